package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/fsm"
	"github.com/forecastnet/roundcast/internal/oracle"
	"github.com/forecastnet/roundcast/internal/protocol"
)

const (
	StateIdle    fsm.State = "idle"
	StateWaiting fsm.State = "waiting"
	StateDone    fsm.State = "done"
)

const (
	EventSubscribe fsm.Event = "subscribe"
	// EventControl is a subscribe/unsubscribe confirmation. It never
	// consumes the round.
	EventControl fsm.Event = "control"
	// EventMessage is any data message, forecast request or not. It always
	// consumes the round.
	EventMessage fsm.Event = "message"
	EventAdvance fsm.Event = "advance"
)

// RoundTable is the per-round transition table.
var RoundTable = []fsm.Transition{
	{From: StateIdle, Event: EventSubscribe, To: StateWaiting},
	{From: StateWaiting, Event: EventControl, To: StateWaiting},
	{From: StateWaiting, Event: EventMessage, To: StateDone},
	{From: StateDone, Event: EventAdvance, To: StateIdle},
}

// classify maps a stream item to its trigger.
func classify(msg core.Message) fsm.Event {
	if msg.IsData() {
		return EventMessage
	}
	return EventControl
}

// roundRun carries the state of one round through the machine's actions.
type roundRun struct {
	agent   *Agent
	sub     eventbus.Subscription
	round   int
	channel string
	pending core.Message
	outcome Outcome
}

func (r *roundRun) machine() *fsm.FSM {
	actions := map[fsm.Event]func(context.Context) error{
		EventSubscribe: r.subscribe,
		EventControl:   r.ignore,
		EventMessage:   r.handle,
		EventAdvance:   r.advance,
	}
	m := fsm.New(fmt.Sprintf("%s/round-%d", r.agent.cfg.ID, r.round), StateIdle)
	for _, t := range RoundTable {
		t.Action = actions[t.Event]
		m.AddTransition(t)
	}
	m.AddStateActions(StateDone, fsm.StateActions{OnEnter: r.finish})
	// Idle is only re-entered through advance, so the pause runs once per round.
	m.AddStateActions(StateIdle, fsm.StateActions{OnEnter: r.rest})
	return m
}

func (a *Agent) playRound(ctx context.Context, sub eventbus.Subscription, round int) (Outcome, error) {
	r := &roundRun{
		agent:   a,
		sub:     sub,
		round:   round,
		channel: a.rounds.EventChannel(round),
		outcome: Outcome{Round: round},
	}
	m := r.machine()
	a.observe(round, core.LevelDebug, "round", "Starting round", nil)
	if err := m.Trigger(ctx, EventSubscribe); err != nil {
		return r.outcome, err
	}
	for m.State() == StateWaiting {
		msg, err := r.next(ctx)
		if err != nil {
			return r.outcome, err
		}
		r.pending = msg
		if err := m.Trigger(ctx, classify(msg)); err != nil {
			return r.outcome, err
		}
	}
	if err := m.Trigger(ctx, EventAdvance); err != nil {
		return r.outcome, err
	}
	return r.outcome, nil
}

// next blocks until the stream yields an item. There is no timeout: an
// agent waits as long as the moderator takes.
func (r *roundRun) next(ctx context.Context) (core.Message, error) {
	select {
	case <-ctx.Done():
		return core.Message{}, ctx.Err()
	case msg, ok := <-r.sub.Messages():
		if !ok {
			return core.Message{}, ErrStreamClosed
		}
		return msg, nil
	}
}

func (r *roundRun) subscribe(ctx context.Context) error {
	r.agent.observe(r.round, core.LevelDebug, "subscribe", "Subscribing to channel: "+r.channel, nil)
	if err := r.sub.Subscribe(ctx, r.channel); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	return nil
}

func (r *roundRun) ignore(ctx context.Context) error {
	r.agent.observe(r.round, core.LevelDebug, "control",
		fmt.Sprintf("Ignoring %s confirmation for %s", r.pending.Kind, r.pending.Channel), nil)
	return nil
}

func (r *roundRun) handle(ctx context.Context) error {
	a := r.agent
	payload := r.pending.Payload
	r.outcome.Payload = payload
	a.observe(r.round, core.LevelDebug, "receive", "Received message: "+payload, nil)

	if !protocol.IsForecastRequest(payload) {
		r.outcome.Skipped = true
		a.observe(r.round, core.LevelWarn, "filter", "Message is not a forecast request; round ends without a forecast", nil)
		return nil
	}

	ex := protocol.ExtractEvent(payload)
	r.outcome.Event, r.outcome.MarkerFound = ex.Event, ex.MarkerFound
	if !ex.MarkerFound {
		a.observe(r.round, core.LevelWarn, "extract", "Forecast marker missing; using the whole payload as the event", nil)
	}
	a.observe(r.round, core.LevelDebug, "extract", "Extracted event: "+ex.Event, nil)

	key := protocol.ReferenceKey(a.cfg.ID, ex.Event)
	a.observe(r.round, core.LevelDebug, "lookup", "Fetching data with key: "+key, nil)
	info, found, err := a.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", key, err)
	}
	if found {
		a.observe(r.round, core.LevelDebug, "lookup", "Retrieved related info: "+truncate(info, 50), nil)
	} else {
		info = protocol.NoReferenceInfo
		a.observe(r.round, core.LevelDebug, "lookup", "No related info found", nil)
	}
	r.outcome.Reference, r.outcome.Referenced = info, found

	a.observe(r.round, core.LevelDebug, "forecast", "Generating forecast", nil)
	forecast, err := a.oracle.Complete(ctx, oracle.Request{
		System:    a.cfg.System,
		Prompt:    protocol.BuildPrompt(ex.Event, info),
		MaxTokens: a.cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	forecast = strings.TrimSpace(forecast)
	r.outcome.Forecast = forecast
	a.observe(r.round, core.LevelDebug, "forecast", "Generated forecast: "+forecast, nil)

	results := a.rounds.ResultsChannel(r.round)
	result := protocol.FormatResult(a.cfg.Label, forecast)
	if _, err := a.bus.Publish(ctx, results, result); err != nil {
		return fmt.Errorf("publish %s: %w", results, err)
	}
	r.outcome.Published = true
	a.observe(r.round, core.LevelInfo, "publish", "Published result to "+results, nil)
	return nil
}

func (r *roundRun) advance(ctx context.Context) error {
	r.agent.observe(r.round, core.LevelDebug, "advance", "Unsubscribing from channel: "+r.channel, nil)
	if err := r.sub.Unsubscribe(ctx, r.channel); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", r.channel, err)
	}
	return nil
}

func (r *roundRun) finish(ctx context.Context) error {
	o := r.outcome
	msg := "Round consumed without a forecast"
	if o.Published {
		msg = "Round complete"
	}
	r.agent.observe(r.round, core.LevelDebug, "done", msg, nil)
	return nil
}

// rest is the pause between rounds.
func (r *roundRun) rest(ctx context.Context) error {
	d := r.agent.cfg.RoundDelay
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

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
