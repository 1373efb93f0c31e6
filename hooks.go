package sitrep

import (
	"sync"
	"time"

	"github.com/covid19datasets/sitrep/pkg/pipeline"
)

// EntityHook is called with an entity name and the report date it changed in
type EntityHook func(name string, reportDate time.Time)

// hooks manages event callbacks for entity changes
type hooks struct {
	mu        sync.RWMutex
	onAdded   []EntityHook
	onRemoved []EntityHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnEntityAdded registers a callback for entities new in a report
func (s *scraper) OnEntityAdded(fn EntityHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onAdded = append(s.hooks.onAdded, fn)
}

// OnEntityRemoved registers a callback for entities missing from a report
func (s *scraper) OnEntityRemoved(fn EntityHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onRemoved = append(s.hooks.onRemoved, fn)
}

// trigger calls the registered hooks for a reconciled run
func (h *hooks) trigger(res *pipeline.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, name := range res.Reconciliation.Added {
		for _, fn := range h.onAdded {
			fn(name, res.ReportDate)
		}
	}
	for _, name := range res.Reconciliation.Removed {
		for _, fn := range h.onRemoved {
			fn(name, res.ReportDate)
		}
	}
}
