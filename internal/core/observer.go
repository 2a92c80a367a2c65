package core

import (
	"fmt"
	"log"
	"sync"
)

// Observation is emitted by components at protocol transition points.
type Observation struct {
	Component string
	Round     int
	Level     Level
	Step      string
	Message   string
	Err       error
}

// Observer receives observations. Implementations must be safe for
// concurrent use when shared between agents of one fleet.
type Observer interface {
	Observe(o Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(o Observation)

func (f ObserverFunc) Observe(o Observation) { f(o) }

// Discard drops every observation.
var Discard Observer = ObserverFunc(func(Observation) {})

// LogObserver writes observations as leveled log lines.
type LogObserver struct {
	logger *log.Logger
	runID  string
	debug  bool
}

// NewLogObserver returns an observer writing to logger. Debug lines are
// dropped unless debug is set.
func NewLogObserver(logger *log.Logger, runID string, debug bool) *LogObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LogObserver{logger: logger, runID: runID, debug: debug}
}

func (l *LogObserver) Observe(o Observation) {
	if o.Level == LevelDebug && !l.debug {
		return
	}
	scope := o.Component
	if l.runID != "" {
		scope += " run=" + l.runID
	}
	if o.Round != NoRound {
		scope += fmt.Sprintf(" round=%d", o.Round)
	}
	line := fmt.Sprintf("[%s] %s %s: %s", o.Level, scope, o.Step, o.Message)
	if o.Err != nil {
		line += ": " + o.Err.Error()
	}
	l.logger.Println(line)
}

// Recorder keeps every observation in memory.
type Recorder struct {
	mu  sync.Mutex
	obs []Observation
}

func (r *Recorder) Observe(o Observation) {
	r.mu.Lock()
	r.obs = append(r.obs, o)
	r.mu.Unlock()
}

// Observations returns a copy of what was recorded so far.
func (r *Recorder) Observations() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observation, len(r.obs))
	copy(out, r.obs)
	return out
}

// Steps returns the recorded step names in order.
func (r *Recorder) Steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := make([]string, 0, len(r.obs))
	for _, o := range r.obs {
		steps = append(steps, o.Step)
	}
	return steps
}
