// Package agent implements a forecasting participant. Each round it waits
// for one announcement, looks up its reference text, asks the oracle and
// publishes the answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forecastnet/roundcast/internal/blackboard"
	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/oracle"
	"github.com/forecastnet/roundcast/internal/protocol"
)

const component = "agent"

// DefaultRoundDelay is the pause after each round.
const DefaultRoundDelay = 2 * time.Second

// ErrStreamClosed is returned when the listen stream ends mid-round.
var ErrStreamClosed = errors.New("agent: listen stream closed")

// Config identifies an agent and tunes its forecast calls.
type Config struct {
	ID string
	// Label is the name used in published results; defaults to the numeric
	// suffix of ID.
	Label      string
	RoundDelay time.Duration
	MaxTokens  int
	// System overrides the forecaster persona.
	System string
}

// Outcome describes how one round went.
type Outcome struct {
	Round int
	// Payload is the data message that consumed the round.
	Payload string
	// Skipped is set when Payload failed the content filter.
	Skipped     bool
	Event       string
	MarkerFound bool
	Reference   string
	Referenced  bool
	Forecast    string
	Published   bool
}

// Agent plays every round in sequence on a single subscription.
type Agent struct {
	cfg      Config
	bus      eventbus.Bus
	store    blackboard.Store
	oracle   oracle.Oracle
	rounds   protocol.Rounds
	observer core.Observer
}

// New validates cfg and builds an agent. A nil observer discards observations.
func New(cfg Config, bus eventbus.Bus, store blackboard.Store, o oracle.Oracle, rounds protocol.Rounds, observer core.Observer) (*Agent, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("agent id cannot be empty")
	}
	if bus == nil || store == nil || o == nil {
		return nil, fmt.Errorf("agent %s: bus, store and oracle are required", cfg.ID)
	}
	if cfg.Label == "" {
		cfg.Label = protocol.AgentLabel(cfg.ID)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = protocol.DefaultMaxTokens
	}
	if cfg.System == "" {
		cfg.System = protocol.SystemPersona
	}
	if cfg.RoundDelay < 0 {
		cfg.RoundDelay = 0
	}
	if observer == nil {
		observer = core.Discard
	}
	return &Agent{cfg: cfg, bus: bus, store: store, oracle: o, rounds: rounds, observer: observer}, nil
}

func (a *Agent) Name() string { return component + ":" + a.cfg.ID }

// ID returns the agent identifier used in reference keys.
func (a *Agent) ID() string { return a.cfg.ID }

func (a *Agent) Run(ctx context.Context) error {
	_, err := a.Play(ctx)
	return err
}

// Play runs all rounds and returns one outcome per round reached. Any error
// ends the agent's participation: remaining rounds are not played.
func (a *Agent) Play(ctx context.Context) ([]Outcome, error) {
	a.observe(core.NoRound, core.LevelDebug, "start", fmt.Sprintf("Agent %s starting %d rounds", a.cfg.ID, a.rounds.Count), nil)
	sub, err := a.bus.Subscribe(ctx)
	if err != nil {
		a.observe(core.NoRound, core.LevelError, "start", "Failed to open subscription", err)
		return nil, fmt.Errorf("agent %s: open subscription: %w", a.cfg.ID, err)
	}
	defer sub.Close()

	out := make([]Outcome, 0, a.rounds.Count)
	for _, round := range a.rounds.Indices() {
		o, err := a.playRound(ctx, sub, round)
		out = append(out, o)
		if err != nil {
			_ = sub.Unsubscribe(context.WithoutCancel(ctx))
			a.observe(round, core.LevelError, "abort", "An error occurred; abandoning remaining rounds", err)
			return out, fmt.Errorf("agent %s round %d: %w", a.cfg.ID, round, err)
		}
	}
	a.observe(core.NoRound, core.LevelInfo, "done", "Agent completed all rounds", nil)
	return out, nil
}

func (a *Agent) observe(round int, level core.Level, step, msg string, err error) {
	a.observer.Observe(core.Observation{
		Component: a.Name(),
		Round:     round,
		Level:     level,
		Step:      step,
		Message:   msg,
		Err:       err,
	})
}

var _ core.Participant = (*Agent)(nil)
