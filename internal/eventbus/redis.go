package eventbus

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forecastnet/roundcast/internal/core"
)

// RedisBus implements Bus using Redis Pub/Sub with automatic reconnection.
type RedisBus struct {
	mu         sync.Mutex
	client     *redis.Client
	options    *redis.Options
	subs       map[*redisSubscription]struct{}
	logger     *log.Logger
	retryDelay time.Duration
}

// NewRedisBus creates a new Redis-backed event bus using the given options.
func NewRedisBus(opts *redis.Options, logger *log.Logger) *RedisBus {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBus{
		client:     redis.NewClient(opts),
		options:    opts,
		subs:       make(map[*redisSubscription]struct{}),
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Ping verifies the broker is reachable.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.currentClient().Ping(ctx).Err()
}

func (b *RedisBus) currentClient() *redis.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// ensureConnection pings the server and reconnects if necessary.
func (b *RedisBus) ensureConnection(ctx context.Context) *redis.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.logger.Println("[WARN] eventbus reconnecting to Redis", err)
		_ = b.client.Close()
		b.client = redis.NewClient(b.options)
	}
	return b.client
}

// Publish sends a plain-text payload to a channel.
func (b *RedisBus) Publish(ctx context.Context, channel, payload string) (int64, error) {
	return b.ensureConnection(ctx).Publish(ctx, channel, payload).Result()
}

// Subscribe opens a new listen stream. The stream is independent from any
// other subscription on this bus.
func (b *RedisBus) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	client := b.ensureConnection(ctx)
	s := &redisSubscription{
		bus:  b,
		ps:   client.Subscribe(ctx),
		out:  make(chan core.Message),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	if len(channels) > 0 {
		if err := s.Subscribe(ctx, channels...); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (b *RedisBus) forget(s *redisSubscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Close terminates all subscriptions and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	subs := make([]*redisSubscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return b.currentClient().Close()
}

type redisSubscription struct {
	bus     *RedisBus
	mu      sync.Mutex
	ps      *redis.PubSub
	out     chan core.Message
	done    chan struct{}
	started bool
	closed  bool
}

// Subscribe attaches channels. The receive loop starts with the first call
// so the underlying connection exists before anything reads from it.
func (s *redisSubscription) Subscribe(ctx context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.ps.Subscribe(ctx, channels...); err != nil {
		return err
	}
	if !s.started {
		s.started = true
		go s.receive()
	}
	return nil
}

func (s *redisSubscription) Unsubscribe(ctx context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.ps.Unsubscribe(ctx, channels...)
}

func (s *redisSubscription) Messages() <-chan core.Message { return s.out }

func (s *redisSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// receive handles the listen loop for this subscription.
func (s *redisSubscription) receive() {
	defer close(s.out)
	for {
		raw, err := s.ps.Receive(context.Background())
		if err != nil {
			if s.isClosed() || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.bus.logger.Println("[WARN] eventbus receive error", err)
			select {
			case <-s.done:
				return
			case <-time.After(s.bus.retryDelay):
			}
			continue
		}
		var msg core.Message
		switch v := raw.(type) {
		case *redis.Subscription:
			msg = core.Message{Kind: confirmationKind(v.Kind), Channel: v.Channel, Count: v.Count}
		case *redis.Message:
			msg = core.Message{Kind: core.KindMessage, Channel: v.Channel, Payload: v.Payload}
		default:
			continue
		}
		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}

func confirmationKind(kind string) core.MessageKind {
	switch kind {
	case "unsubscribe", "punsubscribe":
		return core.KindUnsubscribe
	}
	return core.KindSubscribe
}

// Close stops the listen loop and releases the connection.
func (s *redisSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	if !s.started {
		close(s.out)
	}
	s.mu.Unlock()
	s.bus.forget(s)
	return s.ps.Close()
}
