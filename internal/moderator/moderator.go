// Package moderator announces one forecast question per round.
package moderator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/protocol"
)

const component = "moderator"

// Announcement records what happened in one round.
type Announcement struct {
	Round     int
	Channel   string
	Event     string
	Payload   string
	Receivers int64
	Err       error
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Moderator publishes a randomly chosen event on each round's event channel.
type Moderator struct {
	bus        eventbus.Bus
	rounds     protocol.Rounds
	observer   core.Observer
	pick       Picker
	startDelay time.Duration
	interval   time.Duration
}

// Option configures a Moderator.
type Option func(*Moderator)

// WithPicker replaces the uniform random choice.
func WithPicker(p Picker) Option { return func(m *Moderator) { m.pick = p } }

// WithStartDelay waits before round 0 so agents can subscribe first.
func WithStartDelay(d time.Duration) Option { return func(m *Moderator) { m.startDelay = d } }

// WithInterval waits between rounds.
func WithInterval(d time.Duration) Option { return func(m *Moderator) { m.interval = d } }

// WithObserver sets where transition observations go.
func WithObserver(o core.Observer) Option { return func(m *Moderator) { m.observer = o } }

func New(bus eventbus.Bus, rounds protocol.Rounds, opts ...Option) *Moderator {
	m := &Moderator{
		bus:      bus,
		rounds:   rounds,
		observer: core.Discard,
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Moderator) Name() string { return component }

// Run plays every round. A failed publish is reported and the next round
// still runs; only context cancellation or an empty pool stop it early.
func (m *Moderator) Run(ctx context.Context) error {
	_, err := m.Announce(ctx)
	return err
}

// Announce is Run returning the per-round record.
func (m *Moderator) Announce(ctx context.Context) ([]Announcement, error) {
	if len(m.rounds.Events) == 0 {
		return nil, protocol.ErrNoEvents
	}
	m.observe(core.NoRound, core.LevelDebug, "start", fmt.Sprintf("Loaded %d events for forecasting", len(m.rounds.Events)), nil)
	if err := sleep(ctx, m.startDelay); err != nil {
		return nil, err
	}

	out := make([]Announcement, 0, m.rounds.Count)
	for _, round := range m.rounds.Indices() {
		if round > 0 {
			if err := sleep(ctx, m.interval); err != nil {
				return out, err
			}
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, m.announce(ctx, round))
	}
	return out, nil
}

func (m *Moderator) announce(ctx context.Context, round int) Announcement {
	event := m.rounds.Events[m.pick(len(m.rounds.Events))]
	a := Announcement{
		Round:   round,
		Channel: m.rounds.EventChannel(round),
		Event:   event,
		Payload: protocol.FormatAnnouncement(event),
	}
	m.observe(round, core.LevelInfo, "round", "Starting round", nil)
	m.observe(round, core.LevelDebug, "select", "Selected event: "+event, nil)

	a.Receivers, a.Err = m.bus.Publish(ctx, a.Channel, a.Payload)
	if a.Err != nil {
		m.observe(round, core.LevelError, "publish", "Failed to publish message", a.Err)
		return a
	}
	m.observe(round, core.LevelInfo, "publish", "Published message: "+a.Payload, nil)
	if a.Receivers == 0 {
		m.observe(round, core.LevelWarn, "publish", "No agent was subscribed to "+a.Channel+"; the announcement is lost", nil)
	}
	return a
}

func (m *Moderator) observe(round int, level core.Level, step, msg string, err error) {
	m.observer.Observe(core.Observation{Component: component, Round: round, Level: level, Step: step, Message: msg, Err: err})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ core.Participant = (*Moderator)(nil)
