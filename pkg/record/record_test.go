package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"80 904", 80904, false},
		{"1,234", 1234, false},
		{"3 045", 3045, false},
		{"17*", 17, false},
		{"2†‡", 2, false},
		{"", 0, true},
		{"n/a", 0, true},
		{"*", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromTable(t *testing.T) {
	in := table.FromStrings([][]string{
		{"China", "80 904", "44", "3 123", "24", "Local transmission", "0"},
		{"Holy See", "1", "", "", "", "", ""},
		{"Italy", "n/a", "1", "0", "0", "Local transmission", "0"},
	})
	in.Columns = []string{"Country/Region", "Cumulative Confirmed Cases", "Total New Confirmed Cases", "Cumulative Deaths", "Total New Deaths", "Classification of Transmission", "Days Since Previous Reported Case"}
	in.AppendCells([]table.Cell{table.Value("Short")})

	records, issues := FromTable(in)
	require.Len(t, records, 2)

	assert.Equal(t, "China", records[0].Name)
	assert.Equal(t, int64(80904), *records[0].CumulativeConfirmed)
	assert.Equal(t, "Local transmission", records[0].Transmission)

	assert.Equal(t, int64(1), *records[1].CumulativeConfirmed)
	assert.Nil(t, records[1].NewConfirmed)
	assert.Empty(t, records[1].Transmission)

	require.Len(t, issues, 2)
	assert.Equal(t, "Italy", issues[0].Name)
	assert.Equal(t, "Cumulative Confirmed Cases", issues[0].Column)
	assert.Equal(t, 2, issues[0].Row)
	assert.Equal(t, "Short", issues[1].Name)
	assert.True(t, errors.IsRowShape(issues[1]))
}

func TestFromTableDuplicateNames(t *testing.T) {
	in := table.FromStrings([][]string{
		{"Italy", "10", "1", "0", "0", "Local transmission", "0"},
		{"Spain", "5", "1", "0", "0", "Local transmission", "0"},
		{"Italy", "12", "2", "0", "0", "Local transmission", "0"},
	})

	records, issues := FromTable(in)
	require.Len(t, records, 2)
	assert.Equal(t, "Italy", records[0].Name)
	assert.Equal(t, int64(10), *records[0].CumulativeConfirmed)
	assert.Equal(t, "Spain", records[1].Name)

	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Row)
	assert.Equal(t, "Italy", issues[0].Name)
	assert.Contains(t, issues[0].Message, "duplicate entity name")
	assert.True(t, errors.IsRowShape(issues[0]))
}

func TestRecordEqual(t *testing.T) {
	retrieved := time.Date(2020, 3, 3, 1, 2, 3, 4, time.UTC)
	loc := time.FixedZone("AEDT", 11*3600)
	a := Record{Name: "China", CumulativeConfirmed: Int64(5), Retrieved: retrieved}
	b := Record{Name: "China", CumulativeConfirmed: Int64(5), Retrieved: retrieved.In(loc)}
	assert.True(t, a.Equal(b))

	b.CumulativeConfirmed = nil
	assert.False(t, a.Equal(b))

	b.CumulativeConfirmed = Int64(6)
	assert.False(t, a.Equal(b))
}

func TestSnapshotNames(t *testing.T) {
	s := &Snapshot{Records: []Record{{Name: "B"}, {Name: "A"}, {Name: "B"}}}
	assert.Equal(t, []string{"B", "A"}, s.Names())
	assert.Equal(t, []string{"A", "B"}, s.SortedNames())

	var empty *Snapshot
	assert.Zero(t, empty.Len())
	assert.Empty(t, empty.Names())
}
