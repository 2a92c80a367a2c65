package eventbus

import (
	"context"
	"sync"

	"github.com/forecastnet/roundcast/internal/core"
)

// MemoryBus is an in-process Bus with the same drop-if-unsubscribed
// semantics as Redis Pub/Sub.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, channel, payload string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	var n int64
	for s := range b.subs {
		if s.deliver(channel, payload) {
			n++
		}
	}
	return n, nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	s := &memorySubscription{
		bus:      b,
		channels: make(map[string]struct{}),
		out:      make(chan core.Message),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	go s.pump()
	if len(channels) > 0 {
		if err := s.Subscribe(ctx, channels...); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Subscribers returns how many subscriptions are attached to channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for s := range b.subs {
		if s.has(channel) {
			n++
		}
	}
	return n
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySubscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

type memorySubscription struct {
	bus      *MemoryBus
	mu       sync.Mutex
	channels map[string]struct{}
	queue    []core.Message
	out      chan core.Message
	notify   chan struct{}
	done     chan struct{}
	closed   bool
}

func (s *memorySubscription) has(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channel]
	return ok
}

func (s *memorySubscription) deliver(channel, payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel]; !ok || s.closed {
		return false
	}
	s.enqueue(core.Message{Kind: core.KindMessage, Channel: channel, Payload: payload})
	return true
}

// enqueue must be called with s.mu held.
func (s *memorySubscription) enqueue(m core.Message) {
	s.queue = append(s.queue, m)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		m := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		select {
		case s.out <- m:
		case <-s.done:
			return
		}
	}
}

func (s *memorySubscription) Subscribe(ctx context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
		s.enqueue(core.Message{Kind: core.KindSubscribe, Channel: ch, Count: len(s.channels)})
	}
	return nil
}

func (s *memorySubscription) Unsubscribe(ctx context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(channels) == 0 {
		for ch := range s.channels {
			channels = append(channels, ch)
		}
	}
	for _, ch := range channels {
		delete(s.channels, ch)
		s.enqueue(core.Message{Kind: core.KindUnsubscribe, Channel: ch, Count: len(s.channels)})
	}
	return nil
}

func (s *memorySubscription) Messages() <-chan core.Message { return s.out }

func (s *memorySubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	return nil
}
