package schema

import (
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// Observer receives non-fatal drift warnings.
type Observer interface {
	DriftWarning(w errors.DriftWarning)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(errors.DriftWarning)

// DriftWarning implements Observer.
func (f ObserverFunc) DriftWarning(w errors.DriftWarning) { f(w) }

// Validator keeps tables of the expected width and concatenates them.
type Validator struct {
	registry *Registry
	expected int
	observer Observer
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry sets the layout registry.
func WithRegistry(r *Registry) Option {
	return func(v *Validator) {
		if r != nil {
			v.registry = r
		}
	}
}

// WithExpectedWidth sets the active layout width.
func WithExpectedWidth(width int) Option {
	return func(v *Validator) {
		v.expected = width
	}
}

// WithObserver sets the drift warning observer.
func WithObserver(o Observer) Option {
	return func(v *Validator) {
		v.observer = o
	}
}

// NewValidator creates a Validator. It fails when no layout is registered
// for the expected width.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{
		registry: DefaultRegistry(),
		expected: constants.ExpectedColumns,
	}
	for _, opt := range opts {
		opt(v)
	}
	if !v.registry.Has(v.expected) {
		return nil, errors.NewConfigError("schema", "no layout registered for the expected width", nil)
	}
	return v, nil
}

// ExpectedWidth returns the active layout width.
func (v *Validator) ExpectedWidth() int {
	return v.expected
}

// Validate keeps only tables whose column count equals the expected width,
// names their columns, strips repeated header rows, and concatenates them in
// arrival order. Other tables are reported to the observer as drift
// warnings. When nothing survives it returns a SchemaDriftError.
func (v *Validator) Validate(tables []*table.Raw) (*table.Raw, error) {
	work, _, err := v.ValidateWithWarnings(tables)
	return work, err
}

// ValidateWithWarnings is Validate that also returns the drift warnings.
func (v *Validator) ValidateWithWarnings(tables []*table.Raw) (*table.Raw, []errors.DriftWarning, error) {
	var warnings []errors.DriftWarning
	var work *table.Raw
	kept := 0

	for i, t := range tables {
		if t == nil {
			continue
		}
		if t.ColumnCount() != v.expected {
			w := errors.DriftWarning{Table: i, Columns: t.ColumnCount(), Expected: v.expected, Rows: t.RowCount()}
			warnings = append(warnings, w)
			if v.observer != nil {
				v.observer.DriftWarning(w)
			}
			continue
		}

		var first *table.Row
		if t.RowCount() > 0 {
			first = &t.Rows[0]
		}
		layout, _ := v.registry.Lookup(t.ColumnCount(), first)

		rows := t.Rows
		if first != nil && layout.IsHeader(*first) {
			rows = rows[1:]
		}

		if work == nil {
			work = table.New(layout.Width())
			work.Columns = append([]string(nil), layout.Columns...)
			work.Layout = layout.Name
			work.Page = t.Page
		}
		for _, r := range rows {
			work.AppendCells(r.Clone().Cells)
		}
		kept++
	}

	if kept == 0 {
		return nil, warnings, errors.NewSchemaDriftError(v.expected, len(tables), warnings)
	}
	return work, warnings, nil
}
