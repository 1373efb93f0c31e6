package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// Column positions in the seven-column layout.
const (
	colName = iota
	colCumulativeConfirmed
	colNewConfirmed
	colCumulativeDeaths
	colNewDeaths
	colTransmission
	colDaysSinceLastCase
	width
)

var numericReplacer = strings.NewReplacer(
	" ", "",
	",", "",
	"\u00a0", "",
	"\u202f", "",
	"*", "",
	"†", "",
	"‡", "",
	"§", "",
)

// ParseCount parses a numeric cell, ignoring thousands separators and
// footnote marks.
func ParseCount(s string) (int64, error) {
	clean := numericReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.ParseInt(clean, 10, 64)
}

// FromTable converts the filtered working table to records. Rows that do
// not fit the layout, and rows repeating a name already converted, are
// skipped and returned as row shape errors. Date and sequence fields are
// left for the enricher.
func FromTable(t *table.Raw) ([]Record, []*errors.RowShapeError) {
	records := make([]Record, 0, t.RowCount())
	var issues []*errors.RowShapeError
	seen := make(map[string]int, t.RowCount())

	columns := t.Columns
	if len(columns) < width {
		columns = nil
	}

	for _, r := range t.Rows {
		name := r.Name().Text
		if len(r.Cells) != width {
			issues = append(issues, errors.NewRowShapeError(r.Ordinal, name,
				fmt.Sprintf("width %d, expected %d", len(r.Cells), width)))
			continue
		}

		rec := Record{Name: name}
		if c := r.Cells[colTransmission]; c.Present {
			rec.Transmission = c.Text
		}

		fields := []struct {
			col int
			dst **int64
		}{
			{colCumulativeConfirmed, &rec.CumulativeConfirmed},
			{colNewConfirmed, &rec.NewConfirmed},
			{colCumulativeDeaths, &rec.CumulativeDeaths},
			{colNewDeaths, &rec.NewDeaths},
			{colDaysSinceLastCase, &rec.DaysSinceLastCase},
		}
		var bad *errors.RowShapeError
		for _, f := range fields {
			c := r.Cells[f.col]
			if !c.Present {
				continue
			}
			v, err := ParseCount(c.Text)
			if err != nil {
				bad = &errors.RowShapeError{
					Row:     r.Ordinal,
					Name:    name,
					Column:  columnName(columns, f.col),
					Value:   c.Text,
					Message: "not a number",
				}
				break
			}
			*f.dst = Int64(v)
		}
		if bad != nil {
			issues = append(issues, bad)
			continue
		}
		if first, ok := seen[name]; ok {
			issues = append(issues, errors.NewRowShapeError(r.Ordinal, name,
				fmt.Sprintf("duplicate entity name, first seen in row %d", first)))
			continue
		}
		seen[name] = r.Ordinal
		records = append(records, rec)
	}
	return records, issues
}

func columnName(columns []string, col int) string {
	if columns != nil {
		return columns[col]
	}
	return strconv.Itoa(col)
}
