// Package ledger persists snapshots: the current-period snapshot file is
// replaced on every run, and every snapshot is appended to an append-only
// historical ledger of immutable per-date segments with an arrival index.
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
	"github.com/covid19datasets/sitrep/pkg/record"
)

// Header is the persisted column order.
var Header = []string{
	"Country/Region",
	"Cumulative Confirmed Cases",
	"Total New Confirmed Cases",
	"Cumulative Deaths",
	"Total New Deaths",
	"Classification of Transmission",
	"Days Since Previous Reported Case",
	"Date",
	"Retrieved",
	"Report Number",
}

// Encode renders records as CSV with a header row.
func Encode(records []record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTo(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes records as CSV with a header row.
func EncodeTo(w io.Writer, records []record.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(encodeRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRecord(r record.Record) []string {
	return []string{
		r.Name,
		formatInt(r.CumulativeConfirmed),
		formatInt(r.NewConfirmed),
		formatInt(r.CumulativeDeaths),
		formatInt(r.NewDeaths),
		r.Transmission,
		formatInt(r.DaysSinceLastCase),
		r.ReportDate.Format(constants.ReportDateLayout),
		r.Retrieved.Format(constants.RetrievedLayout),
		strconv.Itoa(r.Sequence),
	}
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// Decode parses CSV produced by Encode. source names the input in errors.
// Empty input decodes to no records.
func Decode(data []byte, source string) ([]record.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, parseError(source, 1, "cannot read header", err)
	}
	for i, h := range Header {
		if head[i] != h {
			return nil, parseError(source, 1, fmt.Sprintf("column %d is %q, expected %q", i, head[i], h), nil)
		}
	}

	var records []record.Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(source, line, "malformed row", err)
		}
		r, err := decodeRecord(fields)
		if err != nil {
			return nil, parseError(source, line, err.Error(), err)
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRecord(f []string) (record.Record, error) {
	r := record.Record{Name: f[0], Transmission: f[5]}
	ints := []struct {
		col int
		dst **int64
	}{
		{1, &r.CumulativeConfirmed},
		{2, &r.NewConfirmed},
		{3, &r.CumulativeDeaths},
		{4, &r.NewDeaths},
		{6, &r.DaysSinceLastCase},
	}
	for _, c := range ints {
		if f[c.col] == "" {
			continue
		}
		v, err := strconv.ParseInt(f[c.col], 10, 64)
		if err != nil {
			return r, fmt.Errorf("%s: %w", Header[c.col], err)
		}
		*c.dst = record.Int64(v)
	}

	date, err := time.Parse(constants.ReportDateLayout, f[7])
	if err != nil {
		return r, fmt.Errorf("%s: %w", Header[7], err)
	}
	r.ReportDate = date

	retrieved, err := time.Parse(constants.RetrievedLayout, f[8])
	if err != nil {
		return r, fmt.Errorf("%s: %w", Header[8], err)
	}
	r.Retrieved = retrieved

	seq, err := strconv.Atoi(f[9])
	if err != nil {
		return r, fmt.Errorf("%s: %w", Header[9], err)
	}
	r.Sequence = seq
	return r, nil
}

func parseError(source string, line int, msg string, err error) *errors.ParseError {
	pe := errors.NewParseError("csv", source, msg, err)
	pe.Line = line
	return pe
}
