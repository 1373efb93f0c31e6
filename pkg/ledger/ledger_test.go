package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/record"
)

var canberra = time.FixedZone("AEDT", 11*3600)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snap(d time.Time, seq int, names ...string) *record.Snapshot {
	retrieved := time.Date(d.Year(), d.Month(), d.Day(), 20, 15, 30, 123456789, canberra)
	s := &record.Snapshot{ReportDate: d, Retrieved: retrieved, Sequence: seq}
	for i, n := range names {
		s.Records = append(s.Records, record.Record{
			Name:                n,
			CumulativeConfirmed: record.Int64(int64(100 + i)),
			NewConfirmed:        record.Int64(int64(i)),
			Transmission:        "Local transmission",
			ReportDate:          d,
			Retrieved:           retrieved,
			Sequence:            seq,
		})
	}
	return s
}

func TestCodecRoundTrip(t *testing.T) {
	s := snap(date(2020, 3, 2), 42, "China", "Bonaire, Sint Eustatius and Saba", `Côte d'Ivoire "CI"`)
	s.Records[1].CumulativeConfirmed = nil
	s.Records[1].Transmission = ""
	s.Records[2].DaysSinceLastCase = record.Int64(3)

	data, err := Encode(s.Records)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(Header, ",")+"\n"))
	assert.Contains(t, string(data), "02/03/2020")

	got, err := Decode(data, "today.csv")
	require.NoError(t, err)
	require.Len(t, got, len(s.Records))
	for i := range got {
		assert.True(t, s.Records[i].Equal(got[i]), "record %d", i)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrong header", "Name,Cases,New,Deaths,New Deaths,Transmission,Days,Date,Retrieved,Report\n"},
		{"short row", strings.Join(Header, ",") + "\nChina,1\n"},
		{"bad number", strings.Join(Header, ",") + "\nChina,x,,,,,,02/03/2020,2020-03-02T20:00:00+11:00,42\n"},
		{"bad date", strings.Join(Header, ",") + "\nChina,1,,,,,,2020-03-02,2020-03-02T20:00:00+11:00,42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), "historic.csv")
			require.Error(t, err)
			var pe *errors.ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}

	recs, err := Decode(nil, "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAppendAndLatest(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := New(mem)

	base, err := l.Latest(ctx, date(2020, 3, 1))
	require.NoError(t, err)
	assert.Zero(t, base.Len())

	first, err := l.Append(ctx, snap(date(2020, 3, 1), 41, "A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, 0, first.Arrival)
	assert.Equal(t, "ledger/segments/0041-20200301.csv", first.Key)

	second, err := l.Append(ctx, snap(date(2020, 3, 2), 42, "B", "C", "D"))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Arrival)

	t.Run("duplicate date rejected before write", func(t *testing.T) {
		before := mem.Len()
		_, err := l.Append(ctx, snap(date(2020, 3, 2), 42, "X"))
		assert.True(t, errors.IsAlreadyExists(err))
		assert.Equal(t, before, mem.Len())
	})

	t.Run("latest strictly before", func(t *testing.T) {
		prev, err := l.Latest(ctx, date(2020, 3, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "D"}, prev.Names())

		prev, err = l.Latest(ctx, date(2020, 3, 2))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, prev.Names())
	})

	t.Run("no prior date", func(t *testing.T) {
		_, err := l.Latest(ctx, date(2020, 2, 1))
		assert.True(t, errors.IsReconciliationIntegrity(err))
	})

	t.Run("read in arrival order", func(t *testing.T) {
		all, err := l.Read(ctx)
		require.NoError(t, err)
		names := make([]string, len(all))
		for i, r := range all {
			names[i] = r.Name
		}
		assert.Equal(t, []string{"A", "B", "C", "B", "C", "D"}, names)
	})
}

func TestLatestCorruptBaseline(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := New(mem)

	e, err := l.Append(ctx, snap(date(2020, 3, 1), 41, "A"))
	require.NoError(t, err)

	t.Run("corrupt", func(t *testing.T) {
		require.NoError(t, mem.Put(ctx, e.Key, []byte("garbage\n")))
		_, err := l.Latest(ctx, date(2020, 3, 2))
		assert.True(t, errors.IsReconciliationIntegrity(err))
	})

	t.Run("truncated", func(t *testing.T) {
		data, err := Encode(nil)
		require.NoError(t, err)
		require.NoError(t, mem.Put(ctx, e.Key, data))
		_, err = l.Latest(ctx, date(2020, 3, 2))
		assert.True(t, errors.IsReconciliationIntegrity(err))
	})

	t.Run("missing", func(t *testing.T) {
		require.NoError(t, mem.Delete(ctx, e.Key))
		_, err := l.Latest(ctx, date(2020, 3, 2))
		assert.True(t, errors.IsReconciliationIntegrity(err))
	})
}

func TestCompact(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := New(mem)

	// arrival order differs from date order
	for _, s := range []*record.Snapshot{
		snap(date(2020, 3, 2), 42, "B", "C"),
		snap(date(2020, 3, 1), 41, "A"),
	} {
		_, err := l.Append(ctx, s)
		require.NoError(t, err)
	}
	before, err := l.Read(ctx)
	require.NoError(t, err)

	res, err := l.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompactResult{Segments: 2, Records: 3}, res)

	segments, err := mem.List(ctx, "ledger/segments/")
	require.NoError(t, err)
	assert.Empty(t, segments)

	after, err := l.Read(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range after {
		assert.True(t, before[i].Equal(after[i]))
	}

	// compacted dates still block duplicates and serve as baselines
	_, err = l.Append(ctx, snap(date(2020, 3, 1), 41, "A"))
	assert.True(t, errors.IsAlreadyExists(err))

	prev, err := l.Latest(ctx, date(2020, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, prev.Names())

	_, err = l.Append(ctx, snap(date(2020, 3, 3), 43, "D"))
	require.NoError(t, err)
	all, err := l.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "D", all[3].Name)

	res, err = l.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Segments)

	res, err = l.Compact(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Segments)
}

func TestWriterPersist(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := NewWriter(mem, New(mem))

	s := snap(date(2020, 3, 2), 42, "China", "Italy")
	entry, err := w.Persist(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "historic.csv", entry.Key)

	today, err := ReadSnapshot(ctx, mem, "today.csv")
	require.NoError(t, err)
	assert.True(t, s.Equal(today))
	assert.Equal(t, 42, today.Sequence)

	_, err = w.Persist(ctx, snap(date(2020, 3, 2), 42, "Other"))
	assert.True(t, errors.IsAlreadyExists(err))

	today, err = ReadSnapshot(ctx, mem, "today.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"China", "Italy"}, today.Names())
}

func TestWriterKeepsLedgerFileCurrent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := NewWriter(mem, New(mem))

	for _, s := range []*record.Snapshot{
		snap(date(2020, 3, 1), 41, "A", "B"),
		snap(date(2020, 3, 2), 42, "B", "C", "D"),
	} {
		_, err := w.Persist(ctx, s)
		require.NoError(t, err)

		historic, err := ReadSnapshot(ctx, mem, "historic.csv")
		require.NoError(t, err)
		tail := historic.Records[len(historic.Records)-s.Len():]
		for i := range tail {
			assert.True(t, s.Records[i].Equal(tail[i]))
		}
	}

	segments, err := mem.List(ctx, "ledger/segments/")
	require.NoError(t, err)
	assert.Empty(t, segments)

	all, err := ReadSnapshot(ctx, mem, "historic.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, all.Len())
}

func TestWriterCompactEvery(t *testing.T) {
	ctx := context.Background()

	t.Run("every second run", func(t *testing.T) {
		mem := store.NewMemory()
		w := NewWriter(mem, New(mem), WithCompactEvery(2))

		entry, err := w.Persist(ctx, snap(date(2020, 3, 1), 41, "A"))
		require.NoError(t, err)
		assert.Equal(t, "ledger/segments/0041-20200301.csv", entry.Key)
		ok, err := store.Exists(ctx, mem, "historic.csv")
		require.NoError(t, err)
		assert.False(t, ok)

		entry, err = w.Persist(ctx, snap(date(2020, 3, 2), 42, "B"))
		require.NoError(t, err)
		assert.Equal(t, "historic.csv", entry.Key)
		pending, err := w.Ledger().Pending(ctx)
		require.NoError(t, err)
		assert.Zero(t, pending)
	})

	t.Run("disabled", func(t *testing.T) {
		mem := store.NewMemory()
		w := NewWriter(mem, New(mem), WithCompactEvery(0))

		_, err := w.Persist(ctx, snap(date(2020, 3, 1), 41, "A"))
		require.NoError(t, err)
		pending, err := w.Ledger().Pending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, pending)
	})
}

// failPrefix fails every Put under prefix once armed.
type failPrefix struct {
	store.Store
	prefix string
	armed  bool
}

func (f *failPrefix) Put(ctx context.Context, key string, data []byte) error {
	if f.armed && strings.HasPrefix(key, f.prefix) {
		return errors.WrapIO("write", key, errors.New("disk full"))
	}
	return f.Store.Put(ctx, key, data)
}

func TestWriterRetryAfterFailedAppend(t *testing.T) {
	ctx := context.Background()
	fs := &failPrefix{Store: store.NewMemory(), prefix: "ledger/", armed: true}
	w := NewWriter(fs, New(fs))

	s := snap(date(2020, 3, 2), 42, "China")
	_, err := w.Persist(ctx, s)
	require.Error(t, err)

	// the snapshot is written first and the date stays unclaimed
	today, err := ReadSnapshot(ctx, fs, "today.csv")
	require.NoError(t, err)
	assert.True(t, s.Equal(today))
	has, err := w.Ledger().Has(ctx, s.ReportDate)
	require.NoError(t, err)
	assert.False(t, has)

	fs.armed = false
	_, err = w.Persist(ctx, s)
	require.NoError(t, err)
	has, err = w.Ledger().Has(ctx, s.ReportDate)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestEncodeParquet(t *testing.T) {
	s := snap(date(2020, 3, 2), 42, "China", "Italy")
	s.Records[1].Transmission = ""
	data, err := EncodeParquet(s.Records)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}
