// Package seeder loads per-agent reference text into the shared store.
package seeder

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/forecastnet/roundcast/internal/blackboard"
	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/protocol"
)

const component = "seeder"

// Tables maps agent id to event text to reference text.
type Tables map[string]map[string]string

// DefaultTables is the reference data shipped with the demo.
func DefaultTables() Tables {
	return Tables{
		"agent_1": {
			"Will global temperatures rise by 2 degrees Celsius by 2030?": "Agent 1: Scientific reports indicate a potential temperature increase of 1.8-2.2°C.",
			"Will AI replace 30% of jobs by 2040?":                         "Agent 1: Automation is projected to replace up to 30% of current jobs.",
		},
		"agent_2": {
			"Will global temperatures rise by 2 degrees Celsius by 2030?":     "Agent 2: Current emission trends could cause a 2.5°C rise by 2030 without interventions.",
			"Will AI replace 30% of jobs by 2040?":                            "Agent 2: AI is likely to replace lower-skill jobs, but high-skill jobs may see a growth.",
			"Will electric vehicles make up 80% of car sales by 2035?":        "Agent 2: Electric vehicle adoption is growing rapidly, but infrastructure and supply chain challenges may slow progress. 80% adoption is ambitious but feasible if policies and technological advancements align.",
			"Will quantum computing break modern encryption by 2040?":         "Agent 2: Quantum computing has the potential to break modern encryption, but widespread commercial use is unlikely before 2040. Advances in quantum-resistant cryptography are expected to mitigate risks.",
			"Will renewable energy account for 50% of global energy by 2030?": "Agent 2: Renewable energy's share is increasing globally, but challenges in scaling storage and grid infrastructure could delay achieving 50% by 2030, especially in certain regions.",
		},
	}
}

// LoadTables reads a YAML document of the form
//
//	agent_1:
//	  "Will AI replace 30% of jobs by 2040?": "reference text"
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("seed file %s defines no agents", path)
	}
	return t, nil
}

// Len counts the entries across all agents.
func (t Tables) Len() int {
	n := 0
	for _, events := range t {
		n += len(events)
	}
	return n
}

// Seeder writes reference entries.
type Seeder struct {
	store    blackboard.Store
	observer core.Observer
}

func New(store blackboard.Store, observer core.Observer) *Seeder {
	if observer == nil {
		observer = core.Discard
	}
	return &Seeder{store: store, observer: observer}
}

// Seed writes every entry with a plain SET, in agent then event order. There
// is no transaction: a failure leaves earlier entries in place. It returns
// how many entries were written.
func (s *Seeder) Seed(ctx context.Context, tables Tables) (int, error) {
	agents := make([]string, 0, len(tables))
	for id := range tables {
		agents = append(agents, id)
	}
	sort.Strings(agents)

	written := 0
	for _, agentID := range agents {
		events := make([]string, 0, len(tables[agentID]))
		for e := range tables[agentID] {
			events = append(events, e)
		}
		sort.Strings(events)
		for _, event := range events {
			key := protocol.ReferenceKey(agentID, event)
			if err := s.store.Set(ctx, key, tables[agentID][event]); err != nil {
				s.observe(core.LevelError, "set", "Failed to write "+key, err)
				return written, fmt.Errorf("seed %s: %w", key, err)
			}
			written++
			s.observe(core.LevelDebug, "set", "Wrote "+key, nil)
		}
		s.observe(core.LevelInfo, "agent", fmt.Sprintf("Seeded %d entries for %s", len(events), agentID), nil)
	}
	return written, nil
}

func (s *Seeder) observe(level core.Level, step, msg string, err error) {
	s.observer.Observe(core.Observation{Component: component, Round: core.NoRound, Level: level, Step: step, Message: msg, Err: err})
}
