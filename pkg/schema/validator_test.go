package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

func sevenWide(names ...string) *table.Raw {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, "10", "1", "0", "0", "Local transmission", "0"})
	}
	return table.FromStrings(rows)
}

func TestValidate(t *testing.T) {
	t.Run("keeps expected width in page order", func(t *testing.T) {
		var warned []errors.DriftWarning
		v, err := NewValidator(WithObserver(ObserverFunc(func(w errors.DriftWarning) {
			warned = append(warned, w)
		})))
		require.NoError(t, err)

		narrow := table.FromStrings([][]string{{"a", "b", "c"}})
		work, err := v.Validate([]*table.Raw{sevenWide("China", "Japan"), narrow, sevenWide("Italy")})
		require.NoError(t, err)

		assert.Equal(t, []string{"China", "Japan", "Italy"}, work.Names())
		assert.Equal(t, WHOSitrepV7.Columns, work.Columns)
		assert.Equal(t, "who-sitrep-v7", work.Layout)
		for i, r := range work.Rows {
			assert.Equal(t, i, r.Ordinal)
		}

		require.Len(t, warned, 1)
		assert.Equal(t, 1, warned[0].Table)
		assert.Equal(t, 3, warned[0].Columns)
	})

	t.Run("strips repeated header rows", func(t *testing.T) {
		v, err := NewValidator()
		require.NoError(t, err)

		page := table.FromStrings([][]string{
			{"Reporting Country/ Territory/Area", "Total confirmed cases", "Total confirmed new cases", "Total deaths", "Total new deaths", "Transmission classification", "Days since last reported case"},
			{"China", "80000", "100", "3000", "30", "Local transmission", "0"},
		})
		work, err := v.Validate([]*table.Raw{page, page.Clone()})
		require.NoError(t, err)
		assert.Equal(t, []string{"China", "China"}, work.Names())
	})

	t.Run("drift when no table matches", func(t *testing.T) {
		v, err := NewValidator()
		require.NoError(t, err)

		_, err = v.Validate([]*table.Raw{
			table.FromStrings([][]string{{"a", "b"}}),
			table.FromStrings([][]string{{"a", "b", "c", "d", "e", "f", "g", "h"}}),
		})
		require.Error(t, err)
		assert.True(t, errors.IsSchemaDrift(err))

		var drift *errors.SchemaDriftError
		require.True(t, errors.As(err, &drift))
		assert.Equal(t, []int{2, 8}, drift.Widths)
	})

	t.Run("drift when nothing extracted", func(t *testing.T) {
		v, err := NewValidator()
		require.NoError(t, err)
		_, err = v.Validate(nil)
		assert.True(t, errors.IsSchemaDrift(err))
	})
}

func TestNewValidatorUnknownWidth(t *testing.T) {
	_, err := NewValidator(WithExpectedWidth(9))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicates", func(t *testing.T) {
		r := DefaultRegistry()
		err := r.Register(WHOSitrepV7)
		assert.True(t, errors.IsAlreadyExists(err))
	})

	t.Run("fingerprint preferred over default", func(t *testing.T) {
		r := DefaultRegistry()
		alt := Layout{
			Name:    "who-sitrep-v7-alt",
			Columns: []string{"Name", "A", "B", "C", "D", "E", "F"},
			Header:  []string{"country", "", "new"},
		}
		require.NoError(t, r.Register(alt))

		header := table.FromStrings([][]string{{"Country", "x", "New cases", "", "", "", ""}}).Rows[0]
		got, ok := r.Lookup(7, &header)
		require.True(t, ok)
		assert.Equal(t, "who-sitrep-v7-alt", got.Name)

		data := table.FromStrings([][]string{{"China", "1", "2", "3", "4", "5", "6"}}).Rows[0]
		got, ok = r.Lookup(7, &data)
		require.True(t, ok)
		assert.Equal(t, "who-sitrep-v7", got.Name)

		_, ok = r.Lookup(3, nil)
		assert.False(t, ok)
	})

	t.Run("parse yaml", func(t *testing.T) {
		data := []byte(`
layouts:
  - name: five
    columns: [Name, Cases, New, Deaths, Transmission]
    header: [country]
`)
		r, err := ParseRegistry(data, "layouts.yaml")
		require.NoError(t, err)
		assert.Equal(t, []string{"five"}, r.Names())
		assert.True(t, r.Has(5))
	})

	t.Run("parse empty yaml", func(t *testing.T) {
		_, err := ParseRegistry([]byte("layouts: []\n"), "empty.yaml")
		assert.Error(t, err)
	})
}
