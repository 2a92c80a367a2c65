// Package listener collects every agent result across all rounds.
package listener

import (
	"context"
	"errors"
	"fmt"

	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/protocol"
)

const component = "listener"

// ReceivedPrefix starts every line the listener reports.
const ReceivedPrefix = "Moderator received: "

// ErrStreamClosed is returned when the broker ends the listen stream.
var ErrStreamClosed = errors.New("listener: listen stream closed")

// Sink receives each result line as it arrives.
type Sink func(line string)

// Listener subscribes to all results channels up front and reports every
// result verbatim.
type Listener struct {
	bus      eventbus.Bus
	rounds   protocol.Rounds
	observer core.Observer
	sink     Sink
	tally    *Tally
}

func New(bus eventbus.Bus, rounds protocol.Rounds, observer core.Observer, sink Sink) *Listener {
	if observer == nil {
		observer = core.Discard
	}
	if sink == nil {
		sink = func(string) {}
	}
	return &Listener{bus: bus, rounds: rounds, observer: observer, sink: sink, tally: NewTally(rounds.Count)}
}

func (l *Listener) Name() string { return component }

// Summary reports what has been received so far.
func (l *Listener) Summary() []RoundSummary { return l.tally.Summary() }

// Run listens until ctx ends, which is a normal stop, or the stream closes.
// Unsubscribe and close always run.
func (l *Listener) Run(ctx context.Context) (err error) {
	channels := l.rounds.ResultsChannels()
	sub, err := l.bus.Subscribe(ctx, channels...)
	if err != nil {
		l.observe(core.LevelError, "subscribe", "Failed to subscribe to results channels", err)
		return fmt.Errorf("subscribe results: %w", err)
	}
	defer func() {
		l.observe(core.LevelDebug, "close", "Closing broker subscription", nil)
		_ = sub.Unsubscribe(context.WithoutCancel(ctx))
		if cerr := sub.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for _, ch := range channels {
		l.observe(core.LevelDebug, "subscribe", "Subscribing to "+ch, nil)
	}

	l.observe(core.LevelDebug, "listen", "Starting listening loop", nil)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				l.observe(core.LevelError, "listen", "Listen stream closed", ErrStreamClosed)
				return ErrStreamClosed
			}
			if !msg.IsData() {
				continue
			}
			l.receive(msg)
		}
	}
}

func (l *Listener) receive(msg core.Message) {
	line := ReceivedPrefix + msg.Payload
	round, ok := l.rounds.RoundOfResults(msg.Channel)
	if !ok {
		round = core.NoRound
	}
	l.observer.Observe(core.Observation{Component: component, Round: round, Level: core.LevelInfo, Step: "receive", Message: line})
	l.sink(line)
	if ok {
		l.tally.Add(round, msg.Payload)
	}
}

func (l *Listener) observe(level core.Level, step, msg string, err error) {
	l.observer.Observe(core.Observation{Component: component, Round: core.NoRound, Level: level, Step: step, Message: msg, Err: err})
}

var _ core.Participant = (*Listener)(nil)
