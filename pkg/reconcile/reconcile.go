// Package reconcile compares the entity names of two consecutive snapshots.
package reconcile

import (
	"fmt"

	"github.com/covid19datasets/sitrep/pkg/record"
)

// Result holds the entities that appeared and disappeared between two reports.
type Result struct {
	Added   NameSet `json:"added" yaml:"added"`
	Removed NameSet `json:"removed" yaml:"removed"`
}

// HasChanges returns true if any entity was added or removed.
func (r Result) HasChanges() bool {
	return !r.Added.Empty() || !r.Removed.Empty()
}

// String returns a one-line summary.
func (r Result) String() string {
	if !r.HasChanges() {
		return "No changes detected"
	}
	return fmt.Sprintf("%d added, %d removed", len(r.Added), len(r.Removed))
}

// Names computes the result from two name lists.
func Names(prev, next []string) Result {
	p := NewNameSet(prev...)
	n := NewNameSet(next...)
	return Result{
		Added:   n.Minus(p),
		Removed: p.Minus(n),
	}
}

// Reconcile compares the names of prev and next. A nil prev is an empty
// baseline. The comparison is by exact name; case and whitespace matter.
func Reconcile(prev, next *record.Snapshot) Result {
	return Names(prev.Names(), next.Names())
}

// Invert swaps added and removed, which is the result of reconciling the
// snapshots in the opposite order.
func (r Result) Invert() Result {
	return Result{Added: r.Removed, Removed: r.Added}
}
