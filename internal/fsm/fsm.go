package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State represents a state identifier.
type State string

// Event represents a transition trigger.
type Event string

// ErrNoTransition is returned when the current state has no transition for
// the triggered event.
var ErrNoTransition = errors.New("fsm: no transition")

// Transition defines a state change caused by an event.
type Transition struct {
	From   State
	Event  Event
	To     State
	Action func(ctx context.Context) error
}

// StateActions groups callbacks for a state lifecycle.
type StateActions struct {
	OnEnter func(ctx context.Context) error
	OnExit  func(ctx context.Context) error
}

// FSM is a simple finite state machine implementation.
type FSM struct {
	id           string
	initial      State
	currentState State
	transitions  map[State]map[Event]Transition
	stateActions map[State]StateActions
	mu           sync.RWMutex
}

// New creates a new FSM.
func New(id string, initialState State) *FSM {
	return &FSM{
		id:           id,
		initial:      initialState,
		currentState: initialState,
		transitions:  make(map[State]map[Event]Transition),
		stateActions: make(map[State]StateActions),
	}
}

// ID returns the FSM identifier.
func (f *FSM) ID() string { return f.id }

// AddTransition registers a transition.
func (f *FSM) AddTransition(t Transition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transitions[t.From]; !ok {
		f.transitions[t.From] = make(map[Event]Transition)
	}
	f.transitions[t.From][t.Event] = t
}

// AddStateActions sets callbacks for a state.
func (f *FSM) AddStateActions(s State, actions StateActions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateActions[s] = actions
}

// ValidateTransitions checks that all states are reachable from the initial state.
func (f *FSM) ValidateTransitions() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for from, evs := range f.transitions {
		for _, t := range evs {
			if from == "" || t.To == "" {
				return fmt.Errorf("invalid transition %s --%s--> %s", t.From, t.Event, t.To)
			}
		}
	}
	reachable := map[State]bool{f.initial: true}
	queue := []State{f.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range f.transitions[s] {
			if !reachable[t.To] {
				reachable[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	for s := range f.transitions {
		if !reachable[s] {
			return fmt.Errorf("state %s unreachable", s)
		}
	}
	for s := range f.stateActions {
		if !reachable[s] {
			return fmt.Errorf("state %s unreachable", s)
		}
	}
	return nil
}

// Trigger moves the FSM according to an event. If the transition action
// fails the machine stays where it was.
func (f *FSM) Trigger(ctx context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trans, ok := f.transitions[f.currentState][e]
	if !ok {
		return fmt.Errorf("%w: %s --%s-->", ErrNoTransition, f.currentState, e)
	}
	if trans.Action != nil {
		if err := trans.Action(ctx); err != nil {
			return err
		}
	}
	if trans.To != f.currentState {
		if act, ok := f.stateActions[f.currentState]; ok && act.OnExit != nil {
			if err := act.OnExit(ctx); err != nil {
				return err
			}
		}
		f.currentState = trans.To
		if act, ok := f.stateActions[f.currentState]; ok && act.OnEnter != nil {
			if err := act.OnEnter(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// State returns the current state.
func (f *FSM) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.currentState
}
