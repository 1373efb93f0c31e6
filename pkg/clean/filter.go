package clean

import (
	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// Dropped records a row removed by the filter.
type Dropped struct {
	Ordinal int
	Name    string
	Rule    string
	Reason  string
}

// FilterResult is the outcome of Filter.Apply.
type FilterResult struct {
	Table    *table.Raw
	Dropped  []Dropped
	Warnings []Dropped
	// Issues lists rows dropped for having no name.
	Issues []*errors.RowShapeError
}

// Filter removes rows that are not entity rows.
type Filter struct {
	policy *Policy
	logger *zerolog.Logger
}

// NewFilter creates a Filter. A nil policy uses DefaultPolicy, a nil
// logger discards output.
func NewFilter(policy *Policy, logger *zerolog.Logger) *Filter {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Filter{policy: policy, logger: logger}
}

// Policy returns the active policy.
func (f *Filter) Policy() *Policy {
	return f.policy
}

// Apply returns a new table holding the rows that have a name and match no
// drop rule. Relative order is preserved.
func (f *Filter) Apply(in *table.Raw) FilterResult {
	out := table.New(in.ColumnCount())
	out.Columns = append([]string(nil), in.Columns...)
	out.Layout = in.Layout
	out.Page = in.Page
	res := FilterResult{Table: out}

	for _, r := range in.Rows {
		name := r.Name()
		if !name.Present {
			res.Issues = append(res.Issues, &errors.RowShapeError{Row: r.Ordinal, Message: "row without a name dropped"})
			continue
		}

		values := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			if c.Present {
				values[i] = c.Text
			}
		}
		d := f.policy.Evaluate(values)

		for _, w := range d.Warnings {
			res.Warnings = append(res.Warnings, Dropped{Ordinal: r.Ordinal, Name: name.Text, Rule: w.String(), Reason: w.Reason})
			f.logger.Warn().
				Int("row", r.Ordinal).
				Str("name", name.Text).
				Str("rule", w.String()).
				Msg("Row matched warn rule")
		}
		if d.Drop {
			res.Dropped = append(res.Dropped, Dropped{Ordinal: r.Ordinal, Name: name.Text, Rule: d.Rule.String(), Reason: d.Rule.Reason})
			f.logger.Debug().
				Int("row", r.Ordinal).
				Str("name", name.Text).
				Str("rule", d.Rule.String()).
				Msg("Row dropped")
			continue
		}
		out.AppendCells(r.Clone().Cells)
	}
	return res
}
