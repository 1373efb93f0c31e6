package pipeline

import (
	"fmt"

	"github.com/covid19datasets/sitrep/pkg/errors"
)

// Stage is a pipeline state. A run moves strictly forward one stage at a
// time and ends in Persisted or Failed.
type Stage int

const (
	// Pending is the state before extraction.
	Pending Stage = iota
	Extracted
	Validated
	Merged
	Filtered
	Enriched
	Reconciled
	Persisted
	// Failed is terminal and reachable from any non-terminal stage.
	Failed
)

var stageNames = [...]string{
	Pending:    "pending",
	Extracted:  "extracted",
	Validated:  "validated",
	Merged:     "merged",
	Filtered:   "filtered",
	Enriched:   "enriched",
	Reconciled: "reconciled",
	Persisted:  "persisted",
	Failed:     "failed",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == Persisted || s == Failed
}

// CanAdvance reports whether from may transition to to.
func CanAdvance(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	return to == from+1
}

// tracker records the current stage and the last stage reached before failure.
type tracker struct {
	current Stage
	reached Stage
}

func (t *tracker) advance(to Stage) error {
	if !CanAdvance(t.current, to) {
		return errors.NewConfigError("pipeline", fmt.Sprintf("illegal transition %s -> %s", t.current, to), nil)
	}
	t.current = to
	if to != Failed {
		t.reached = to
	}
	return nil
}

func (t *tracker) fail() {
	if !t.current.Terminal() {
		t.current = Failed
	}
}
