// Package fleet runs several participants, typically agents with different
// identities, inside one process.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/forecastnet/roundcast/internal/core"
)

// Factory creates participants by identifier.
type Factory interface {
	Create(id string) (core.Participant, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(id string) (core.Participant, error)

func (f FactoryFunc) Create(id string) (core.Participant, error) { return f(id) }

// Fleet manages the lifecycle of its members.
type Fleet struct {
	name     string
	registry map[string]core.Participant
	factory  Factory
	mu       sync.RWMutex
}

// New returns an empty fleet.
func New(name string, f Factory) *Fleet {
	return &Fleet{name: name, registry: make(map[string]core.Participant), factory: f}
}

func (f *Fleet) Name() string { return f.name }

// Spawn creates and registers a member.
func (f *Fleet) Spawn(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.registry[id]; ok {
		return fmt.Errorf("member %s already registered", id)
	}
	p, err := f.factory.Create(id)
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	f.registry[id] = p
	return nil
}

// IDs returns the member identifiers in sorted order.
func (f *Fleet) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.idsLocked()
}

// Run starts every member in its own goroutine and waits for all of them.
// A failing member does not stop the others; all errors are joined.
func (f *Fleet) Run(ctx context.Context) error {
	f.mu.RLock()
	members := make([]core.Participant, 0, len(f.registry))
	for _, id := range f.idsLocked() {
		members = append(members, f.registry[id])
	}
	f.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, p := range members {
		wg.Add(1)
		go func(p core.Participant) {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (f *Fleet) idsLocked() []string {
	ids := make([]string, 0, len(f.registry))
	for id := range f.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ core.Participant = (*Fleet)(nil)
