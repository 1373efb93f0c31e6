package errors_test

import (
	"errors"
	"testing"

	pkgerrors "github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestExtractionError(t *testing.T) {
	t.Run("with document and cause", func(t *testing.T) {
		cause := errors.New("bad xref")
		err := pkgerrors.NewExtractionError("report.pdf", "corrupt document", cause)
		assert.Equal(t, "cannot extract tables from report.pdf: corrupt document: bad xref", err.Error())
		assert.True(t, pkgerrors.IsExtraction(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("without document", func(t *testing.T) {
		err := &pkgerrors.ExtractionError{Message: "unsupported format"}
		assert.Equal(t, "cannot extract tables: unsupported format", err.Error())
	})

	t.Run("is fatal", func(t *testing.T) {
		assert.True(t, pkgerrors.IsFatal(pkgerrors.NewExtractionError("", "x", nil)))
	})
}

func TestSchemaDriftError(t *testing.T) {
	t.Run("no tables", func(t *testing.T) {
		err := pkgerrors.NewSchemaDriftError(7, 0, nil)
		assert.Contains(t, err.Error(), "no tables extracted")
		assert.True(t, pkgerrors.IsSchemaDrift(err))
	})

	t.Run("collects widths", func(t *testing.T) {
		err := pkgerrors.NewSchemaDriftError(7, 2, []pkgerrors.DriftWarning{
			{Table: 0, Columns: 5, Expected: 7},
			{Table: 1, Columns: 9, Expected: 7},
		})
		assert.Equal(t, []int{5, 9}, err.Widths)
		assert.Contains(t, err.Error(), "[5 9]")
	})

	t.Run("wrapped in run error", func(t *testing.T) {
		err := pkgerrors.NewRunError("02/03/2020", "extracted", pkgerrors.NewSchemaDriftError(7, 1, nil))
		assert.True(t, pkgerrors.IsSchemaDrift(err))
		assert.Contains(t, err.Error(), "02/03/2020")
		assert.Contains(t, err.Error(), "extracted")
	})
}

func TestRowShapeError(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.RowShapeError
		want string
	}{
		{
			name: "row with column",
			err:  &pkgerrors.RowShapeError{Row: 3, Name: "Italy", Column: "Cumulative Deaths", Value: "n/a", Message: "not a number"},
			want: `row 3 (Italy) column "Cumulative Deaths" value "n/a": not a number`,
		},
		{
			name: "whole table",
			err:  pkgerrors.NewRowShapeError(-1, "", "ragged rows"),
			want: "table: ragged rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, pkgerrors.IsRowShape(tt.err))
			assert.False(t, pkgerrors.IsFatal(tt.err))
		})
	}
}

func TestReconciliationIntegrityError(t *testing.T) {
	cause := errors.New("truncated record")
	err := pkgerrors.NewReconciliationIntegrityError("01/03/2020", "corrupt segment", cause)
	assert.True(t, pkgerrors.IsReconciliationIntegrity(err))
	assert.True(t, pkgerrors.IsFatal(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "01/03/2020")
}

func TestNotFoundAndAlreadyExists(t *testing.T) {
	assert.True(t, pkgerrors.IsNotFound(pkgerrors.NewNotFoundError("object", "today.csv")))
	assert.True(t, pkgerrors.IsAlreadyExists(pkgerrors.NewAlreadyExistsError("ledger partition", "20200302")))

	wrapped := errors.Join(errors.New("failed"), pkgerrors.NewNotFoundError("object", "x"))
	assert.True(t, pkgerrors.IsNotFound(wrapped))
}

func TestWrapHelpers(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapIO("read", "x", nil))
	assert.Nil(t, pkgerrors.WrapParse("csv", "x", nil))

	base := errors.New("disk full")
	err := pkgerrors.WrapIO("write", "historic.csv", base)
	var ioErr *pkgerrors.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Operation)
	assert.ErrorIs(t, err, base)

	perr := pkgerrors.WrapParse("yaml", "policy.yaml", base)
	assert.Contains(t, perr.Error(), "policy.yaml")
}
