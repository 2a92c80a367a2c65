package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	EventChannelPrefix   = "forecast_event_"
	ResultsChannelPrefix = "forecast_results_"

	// DefaultRoundCount is the number of rounds every process plays.
	DefaultRoundCount = 3
)

// Namer derives channel names from a round index.
type Namer interface {
	EventChannel(round int) string
	ResultsChannel(round int) string
}

// DefaultNamer produces forecast_event_<r> and forecast_results_<r>.
type DefaultNamer struct{}

func (DefaultNamer) EventChannel(round int) string {
	return EventChannelPrefix + strconv.Itoa(round)
}

func (DefaultNamer) ResultsChannel(round int) string {
	return ResultsChannelPrefix + strconv.Itoa(round)
}

// Rounds is the round layout shared by every participant.
type Rounds struct {
	Count  int
	Events []string
	Namer  Namer
}

// NewRounds validates a round layout. A nil namer selects DefaultNamer.
func NewRounds(count int, events []string, namer Namer) (Rounds, error) {
	if count <= 0 {
		return Rounds{}, fmt.Errorf("round count must be positive, got %d", count)
	}
	if namer == nil {
		namer = DefaultNamer{}
	}
	for i, e := range events {
		if e == "" {
			return Rounds{}, fmt.Errorf("event %d is empty", i)
		}
	}
	return Rounds{Count: count, Events: events, Namer: namer}, nil
}

// DefaultRounds is three rounds over the default event pool.
func DefaultRounds() Rounds {
	return Rounds{Count: DefaultRoundCount, Events: DefaultEvents(), Namer: DefaultNamer{}}
}

// ErrNoEvents is returned when a moderator has nothing to announce.
var ErrNoEvents = errors.New("event pool is empty")

// Indices lists 0..Count-1.
func (r Rounds) Indices() []int {
	out := make([]int, r.Count)
	for i := range out {
		out[i] = i
	}
	return out
}

func (r Rounds) namer() Namer {
	if r.Namer == nil {
		return DefaultNamer{}
	}
	return r.Namer
}

func (r Rounds) EventChannel(round int) string   { return r.namer().EventChannel(round) }
func (r Rounds) ResultsChannel(round int) string { return r.namer().ResultsChannel(round) }

// ResultsChannels lists every round's results channel in round order.
func (r Rounds) ResultsChannels() []string {
	out := make([]string, 0, r.Count)
	for _, i := range r.Indices() {
		out = append(out, r.ResultsChannel(i))
	}
	return out
}

// RoundOfResults maps a results channel back to its round.
func (r Rounds) RoundOfResults(channel string) (int, bool) {
	for _, i := range r.Indices() {
		if r.ResultsChannel(i) == channel {
			return i, true
		}
	}
	return 0, false
}
