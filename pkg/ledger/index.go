package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
)

var indexHeader = []string{"arrival", "date", "sequence", "key", "count"}

// Entry is one line of the arrival index.
type Entry struct {
	Arrival  int
	Date     time.Time
	Sequence int
	// Key is the object holding the entry's records: its own segment, or
	// the consolidated ledger file once compacted.
	Key   string
	Count int
}

// DateKey returns the entry's report date as YYYYMMDD.
func (e Entry) DateKey() string {
	return e.Date.Format(constants.SegmentDateLayout)
}

// Index is the arrival-ordered list of ledger entries.
type Index []Entry

// Find returns the entry for date.
func (ix Index) Find(date time.Time) (Entry, bool) {
	for _, e := range ix {
		if e.Date.Equal(date) {
			return e, true
		}
	}
	return Entry{}, false
}

// LatestBefore returns the most recently arrived entry dated strictly
// before date.
func (ix Index) LatestBefore(date time.Time) (Entry, bool) {
	var best Entry
	found := false
	for _, e := range ix {
		if !e.Date.Before(date) {
			continue
		}
		if !found || e.Arrival > best.Arrival {
			best = e
			found = true
		}
	}
	return best, found
}

// NextArrival returns the arrival ordinal for a new entry.
func (ix Index) NextArrival() int {
	next := 0
	for _, e := range ix {
		if e.Arrival >= next {
			next = e.Arrival + 1
		}
	}
	return next
}

func encodeIndex(ix Index) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(indexHeader); err != nil {
		return nil, err
	}
	for _, e := range ix {
		row := []string{
			strconv.Itoa(e.Arrival),
			e.DateKey(),
			strconv.Itoa(e.Sequence),
			e.Key,
			strconv.Itoa(e.Count),
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func decodeIndex(data []byte, source string) (Index, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(indexHeader)
	if _, err := cr.Read(); err != nil {
		return nil, parseError(source, 1, "cannot read index header", err)
	}

	var ix Index
	for line := 2; ; line++ {
		f, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(source, line, "malformed index row", err)
		}
		e, err := decodeEntry(f)
		if err != nil {
			return nil, parseError(source, line, err.Error(), err)
		}
		ix = append(ix, e)
	}
	return ix, nil
}

func decodeEntry(f []string) (Entry, error) {
	arrival, err := strconv.Atoi(f[0])
	if err != nil {
		return Entry{}, fmt.Errorf("arrival: %w", err)
	}
	date, err := time.Parse(constants.SegmentDateLayout, f[1])
	if err != nil {
		return Entry{}, fmt.Errorf("date: %w", err)
	}
	seq, err := strconv.Atoi(f[2])
	if err != nil {
		return Entry{}, fmt.Errorf("sequence: %w", err)
	}
	if f[3] == "" {
		return Entry{}, errors.New("key is empty")
	}
	count, err := strconv.Atoi(f[4])
	if err != nil {
		return Entry{}, fmt.Errorf("count: %w", err)
	}
	return Entry{Arrival: arrival, Date: date, Sequence: seq, Key: f[3], Count: count}, nil
}
