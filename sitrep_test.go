package sitrep

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/notify"
	"github.com/covid19datasets/sitrep/pkg/table"
)

func report(names ...string) extract.Extractor {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, "5", "1", "0", "0", "Local transmission", "0"})
	}
	return extract.Static{Tables: []*table.Raw{table.FromStrings(rows)}}
}

func newScraper(t *testing.T, mem store.Store, rec *notify.Recorder, ex extract.Extractor) Scraper {
	t.Helper()
	e, err := enrich.New(enrich.WithClock(func() utc.Time {
		return utc.New(time.Date(2020, 3, 2, 9, 0, 0, 0, time.UTC))
	}))
	require.NoError(t, err)
	s, err := New(WithStore(mem), WithNotifier(rec), WithExtractor(ex), WithEnricher(e))
	require.NoError(t, err)
	return s
}

func TestScrapeNotifiesOnChanges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &notify.Recorder{}

	_, err := newScraper(t, mem, rec, report("A", "B", "C")).Scrape(ctx, extract.Open("41.pdf"), time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	s := newScraper(t, mem, rec, report("B", "C", "D"))
	var added, removed []string
	s.OnEntityAdded(func(name string, _ time.Time) { added = append(added, name) })
	s.OnEntityRemoved(func(name string, _ time.Time) { removed = append(removed, name) })

	_, err = s.Scrape(ctx, extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, added)
	assert.Equal(t, []string{"A"}, removed)

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Entity changes for 02/03/2020", msgs[1].Subject)
	assert.Contains(t, msgs[1].Body, "Added: D")
	assert.Contains(t, msgs[1].Body, "Removed: A")

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, current.Names())
}

func TestScrapeNoChangesIsSilent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &notify.Recorder{}

	_, err := newScraper(t, mem, rec, report("A")).Scrape(ctx, extract.Open("41.pdf"), time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = newScraper(t, mem, rec, report("A")).Scrape(ctx, extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, rec.Messages(), 1)
}

func TestScrapeDriftNotifiesAndWritesNothing(t *testing.T) {
	mem := store.NewMemory()
	rec := &notify.Recorder{}
	ex := extract.Static{Tables: []*table.Raw{table.FromStrings([][]string{{"a", "b", "c"}})}}

	_, err := newScraper(t, mem, rec, ex).Scrape(context.Background(), extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.IsSchemaDrift(err))
	assert.Zero(t, mem.Len())

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Scrape failed for 02/03/2020", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "schema drift")
}

func TestCompactAndExport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &notify.Recorder{}
	s := newScraper(t, mem, rec, report("A", "B"))
	_, err := s.Scrape(ctx, extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// every run already folds its segment into the ledger file
	res, err := s.Compact(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Segments)

	n, err := s.Export(ctx, "ledger.parquet")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ok, err := store.Exists(ctx, mem, "ledger.parquet")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScrapeUpdatesLedgerFile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &notify.Recorder{}

	res, err := newScraper(t, mem, rec, report("Italy", "Spain")).Scrape(ctx, extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	historic, err := ledger.ReadSnapshot(ctx, mem, "historic.csv")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.Equal(historic))
}

func TestScrapeDropsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &notify.Recorder{}

	res, err := newScraper(t, mem, rec, report("Italy", "Italy", "Spain")).Scrape(ctx, extract.Open("42.pdf"), time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, res.Snapshot.Records, 2)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Italy", res.Issues[0].Name)

	today, err := ledger.ReadSnapshot(ctx, mem, "today.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Italy", "Spain"}, today.Names())
	assert.Len(t, today.Records, 2)
}

func TestReportFailure(t *testing.T) {
	rec := &notify.Recorder{}
	s := newScraper(t, store.NewMemory(), rec, report("A"))
	date := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

	err := s.ReportFailure(context.Background(), date, errors.NewExtractionError("https://example.org/42.pdf", "status 404", nil))
	require.Error(t, err)
	assert.True(t, errors.IsExtraction(err))

	var runErr *errors.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "pending", runErr.Stage)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Scrape failed for 02/03/2020", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Stage reached: pending")
	assert.Contains(t, msgs[0].Body, "Cause: document could not be read")

	assert.NoError(t, s.ReportFailure(context.Background(), date, nil))
	assert.Len(t, rec.Messages(), 1)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithStore(store.NewMemory()), WithSnapshotFile("../outside.csv"))
	assert.Error(t, err)

	_, err = New(WithStore(store.NewMemory()), WithCompactEvery(-1))
	assert.Error(t, err)
}
