// Package table holds the transient grid produced by extraction and
// consumed by validation and cleaning.
package table

import "strings"

// Cell is an optionally-missing cell value.
type Cell struct {
	Text    string
	Present bool
}

// Value returns a present cell holding s.
func Value(s string) Cell {
	return Cell{Text: s, Present: true}
}

// Missing returns a missing cell.
func Missing() Cell {
	return Cell{}
}

// Parse converts extracted text into a cell. Blank text is missing.
func Parse(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing()
	}
	return Value(s)
}

// Row is one physical row of a table. Ordinal is the row's arrival position
// in the working table and always counts as a populated cell.
type Row struct {
	Ordinal int
	Cells   []Cell
}

// Populated returns the number of non-missing cells, counting the ordinal.
// A row holding only a name therefore has a populated count of 2.
func (r Row) Populated() int {
	n := 1
	for _, c := range r.Cells {
		if c.Present {
			n++
		}
	}
	return n
}

// Name returns the first cell, which holds the entity name.
func (r Row) Name() Cell {
	if len(r.Cells) == 0 {
		return Missing()
	}
	return r.Cells[0]
}

// SetName replaces the first cell.
func (r *Row) SetName(c Cell) {
	if len(r.Cells) == 0 {
		r.Cells = []Cell{c}
		return
	}
	r.Cells[0] = c
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Ordinal: r.Ordinal, Cells: cells}
}

// Raw is a grid of optionally-missing cells with a known column count.
type Raw struct {
	// Columns are the canonical column names, set once the table is validated.
	Columns []string
	// Layout names the schema layout the table was validated against.
	Layout string
	// Page is the 1-based source page, 0 when unknown.
	Page int

	width int
	Rows  []Row
}

// New creates an empty table of the given width.
func New(width int) *Raw {
	return &Raw{width: width}
}

// FromStrings builds a table from extracted text. The width is the widest
// row; blank strings become missing cells.
func FromStrings(rows [][]string) *Raw {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	t := New(width)
	for _, r := range rows {
		cells := make([]Cell, len(r))
		for j, s := range r {
			cells[j] = Parse(s)
		}
		t.AppendCells(cells)
	}
	return t
}

// ColumnCount returns the table width.
func (t *Raw) ColumnCount() int {
	return t.width
}

// RowCount returns the number of rows.
func (t *Raw) RowCount() int {
	return len(t.Rows)
}

// AppendCells adds a row, assigning the next ordinal.
func (t *Raw) AppendCells(cells []Cell) {
	t.Rows = append(t.Rows, Row{Ordinal: len(t.Rows), Cells: cells})
	if len(cells) > t.width {
		t.width = len(cells)
	}
}

// Concat appends other's rows in order, renumbering ordinals.
func (t *Raw) Concat(other *Raw) {
	for _, r := range other.Rows {
		t.AppendCells(r.Clone().Cells)
	}
}

// Clone returns a deep copy of the table.
func (t *Raw) Clone() *Raw {
	c := &Raw{
		Columns: append([]string(nil), t.Columns...),
		Layout:  t.Layout,
		Page:    t.Page,
		width:   t.width,
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		c.Rows[i] = r.Clone()
	}
	return c
}

// Names returns the name cell of every row, with missing names as "".
func (t *Raw) Names() []string {
	names := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		names[i] = r.Name().Text
	}
	return names
}
