package listener

import (
	"sync"

	"github.com/forecastnet/roundcast/internal/protocol"
)

// RoundSummary aggregates the results of one round.
type RoundSummary struct {
	Round   int
	Results int
	// Parsed counts results with a readable likelihood; Mean averages them.
	Parsed int
	Mean   float64
}

// Tally accumulates likelihoods per round.
type Tally struct {
	mu     sync.Mutex
	rounds []RoundSummary
	sums   []float64
}

func NewTally(count int) *Tally {
	t := &Tally{rounds: make([]RoundSummary, count), sums: make([]float64, count)}
	for i := range t.rounds {
		t.rounds[i].Round = i
	}
	return t
}

// Add records one result payload for round.
func (t *Tally) Add(round int, payload string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if round < 0 || round >= len(t.rounds) {
		return
	}
	s := &t.rounds[round]
	s.Results++
	if v, ok := protocol.ParseLikelihood(payload); ok {
		s.Parsed++
		t.sums[round] += v
		s.Mean = t.sums[round] / float64(s.Parsed)
	}
}

func (t *Tally) Summary() []RoundSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RoundSummary(nil), t.rounds...)
}
