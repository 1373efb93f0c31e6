// Package record defines the canonical per-entity record and the snapshot
// of all records for one report date.
package record

import (
	"sort"
	"time"
)

// Record is one entity's figures for one report date.
// Optional numeric fields are nil when the source cell was missing.
type Record struct {
	Name                string
	CumulativeConfirmed *int64
	NewConfirmed        *int64
	CumulativeDeaths    *int64
	NewDeaths           *int64
	Transmission        string // empty when missing
	DaysSinceLastCase   *int64

	ReportDate time.Time // civil date at UTC midnight
	Retrieved  time.Time
	Sequence   int
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// Equal reports whether r and o hold the same values. Instants are
// compared with time.Equal so a change of location does not matter.
func (r Record) Equal(o Record) bool {
	return r.Name == o.Name &&
		eqInt(r.CumulativeConfirmed, o.CumulativeConfirmed) &&
		eqInt(r.NewConfirmed, o.NewConfirmed) &&
		eqInt(r.CumulativeDeaths, o.CumulativeDeaths) &&
		eqInt(r.NewDeaths, o.NewDeaths) &&
		r.Transmission == o.Transmission &&
		eqInt(r.DaysSinceLastCase, o.DaysSinceLastCase) &&
		r.ReportDate.Equal(o.ReportDate) &&
		r.Retrieved.Equal(o.Retrieved) &&
		r.Sequence == o.Sequence
}

func eqInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Snapshot is the complete set of records for one report date.
type Snapshot struct {
	ReportDate time.Time
	Retrieved  time.Time
	Sequence   int
	Records    []Record
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Names returns the distinct entity names in first-seen order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool, len(s.Records))
	names := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	return names
}

// SortedNames returns the distinct entity names in lexical order.
func (s *Snapshot) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Equal reports whether both snapshots hold equal records in the same order.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := range s.Records {
		if !s.Records[i].Equal(o.Records[i]) {
			return false
		}
	}
	return true
}
