// Package enrich stamps converted records with their report date, a single
// retrieval instant and the report sequence number.
package enrich

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/agentstation/utc"

	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/record"
)

// Clock returns the current instant.
type Clock func() utc.Time

// Epoch is the report date of sequence number zero.
var Epoch = time.Date(constants.EpochYear, constants.EpochMonth, constants.EpochDay, 0, 0, 0, 0, time.UTC)

// Enricher stamps records. The zero value is not usable; use New.
type Enricher struct {
	clock    Clock
	location *time.Location
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock sets the capture clock.
func WithClock(c Clock) Option {
	return func(e *Enricher) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLocation sets the zone retrieval instants are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Enricher) {
		if loc != nil {
			e.location = loc
		}
	}
}

// New creates an Enricher using utc.Now and the default timezone.
func New(opts ...Option) (*Enricher, error) {
	loc, err := time.LoadLocation(constants.DefaultTimezone)
	if err != nil {
		return nil, errors.NewConfigError("enrich", "cannot load timezone "+constants.DefaultTimezone, err)
	}
	e := &Enricher{clock: utc.Now, location: loc}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Location returns the retrieval timezone.
func (e *Enricher) Location() *time.Location {
	return e.location
}

// Stamp copies records into a snapshot for reportDate. The clock is read
// exactly once so every record carries the same retrieval instant.
func (e *Enricher) Stamp(records []record.Record, reportDate time.Time) *record.Snapshot {
	date := CivilDate(reportDate)
	retrieved := e.clock().Time.In(e.location)
	seq := SequenceNumber(date)

	out := make([]record.Record, len(records))
	for i, r := range records {
		r.ReportDate = date
		r.Retrieved = retrieved
		r.Sequence = seq
		out[i] = r
	}
	return &record.Snapshot{
		ReportDate: date,
		Retrieved:  retrieved,
		Sequence:   seq,
		Records:    out,
	}
}

// CivilDate drops the clock part of t, keeping its calendar date, and
// returns it at UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SequenceNumber returns the report number for date: the count of whole
// days since the epoch report. Dates before the epoch are negative.
func SequenceNumber(date time.Time) int {
	return int(CivilDate(date).Sub(Epoch).Hours() / 24)
}

// DateForSequence is the inverse of SequenceNumber.
func DateForSequence(seq int) time.Time {
	return Epoch.AddDate(0, 0, seq)
}

// ParseReportDate parses a DDMMYYYY date.
func ParseReportDate(s string) (time.Time, error) {
	t, err := utc.Parse(constants.ReportDateFlagLayout, s)
	if err != nil {
		return time.Time{}, errors.NewParseError("date", "", fmt.Sprintf("report date %q must be DDMMYYYY", s), err)
	}
	return CivilDate(t.Time), nil
}

// FormatReportDate renders date as dd/mm/yyyy.
func FormatReportDate(date time.Time) string {
	return date.Format(constants.ReportDateLayout)
}
