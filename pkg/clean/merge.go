// Package clean repairs and filters the working table: it folds name-only
// fragments produced by page breaks into the row that follows them and
// drops aggregate or header rows according to a configurable policy.
package clean

import (
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// fragmentPopulation is the populated count of a row holding only a name.
const fragmentPopulation = 2

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Table *table.Raw
	// Merged counts fragments folded into their successor.
	Merged int
	// Issues lists rows dropped without being folded.
	Issues []*errors.RowShapeError
}

// Merge folds each name-only row into the row that follows it. The merged
// row's name is the fragment's name, a space, and the successor's name, or
// just the fragment's name when the successor has none. A row that has just
// received a fragment is not itself folded forward. Once the pass completes
// every row with a populated count of two or less is removed, so applying
// Merge to its own output changes nothing.
//
// The input is not modified.
func Merge(in *table.Raw) MergeResult {
	t := in.Clone()
	res := MergeResult{}
	n := len(t.Rows)
	folded := make([]bool, n)
	received := make([]bool, n)

	for i := 0; i < n-1; i++ {
		cur := t.Rows[i]
		if cur.Populated() != fragmentPopulation || received[i] {
			continue
		}
		name := cur.Name()
		if !name.Present {
			continue
		}
		next := &t.Rows[i+1]
		merged := name.Text
		if nn := next.Name(); nn.Present {
			merged = name.Text + " " + nn.Text
		}
		next.SetName(table.Value(merged))
		folded[i] = true
		received[i+1] = true
		res.Merged++
	}

	kept := table.New(t.ColumnCount())
	kept.Columns = t.Columns
	kept.Layout = t.Layout
	kept.Page = t.Page
	for i, r := range t.Rows {
		if r.Populated() > fragmentPopulation {
			kept.AppendCells(r.Cells)
			continue
		}
		if folded[i] {
			continue
		}
		res.Issues = append(res.Issues, &errors.RowShapeError{
			Row:     r.Ordinal,
			Name:    r.Name().Text,
			Message: danglingMessage(r, i == n-1),
		})
	}
	res.Table = kept
	return res
}

func danglingMessage(r table.Row, last bool) string {
	switch {
	case r.Populated() < fragmentPopulation:
		return "empty row dropped"
	case !r.Name().Present:
		return "single value without a name dropped"
	case last:
		return "name-only fragment at end of table dropped"
	}
	return "name-only fragment could not be merged and was dropped"
}
