package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/notify"
	"github.com/covid19datasets/sitrep/pkg/record"
	"github.com/covid19datasets/sitrep/pkg/table"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		DataDir:      t.TempDir(),
		SnapshotFile: "today.csv",
		LedgerFile:   "historic.csv",
		Store:        StoreFS,
		Timezone:     "Australia/Canberra",
		WorkDir:      t.TempDir(),
		LogFormat:    "json",
		LogOutput:    "discard",
	}
}

func report(names ...string) extract.Extractor {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, "5", "1", "0", "0", "Local transmission", "0"})
	}
	return extract.Static{Tables: []*table.Raw{table.FromStrings(rows)}}
}

type harness struct {
	app *App
	out *bytes.Buffer
	rec *notify.Recorder
}

func newHarness(t *testing.T, cfg *Config, s store.Store, ex extract.Extractor) *harness {
	t.Helper()
	nop := zerolog.Nop()
	h := &harness{out: &bytes.Buffer{}, rec: &notify.Recorder{}}
	a, err := New("1.0.0", "abc123", "2024-01-01", "test",
		WithConfig(cfg),
		WithLogger(&nop),
		WithStore(s),
		WithExtractor(ex),
		WithNotifier(h.rec),
		WithOutput(h.out),
	)
	require.NoError(t, err)
	h.app = a
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	return h.app.Execute(context.Background(), args)
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithConfig(testConfig(t)))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.NoError(t, app.Shutdown(context.Background()))
}

func TestApp_RejectsNilConfig(t *testing.T) {
	_, err := New("1.0.0", "", "", "", WithConfig(nil))
	require.Error(t, err)
}

// TestApp_Scraper_Singleton verifies that Scraper() returns the same instance.
func TestApp_Scraper_Singleton(t *testing.T) {
	h := newHarness(t, testConfig(t), store.NewMemory(), report("China"))

	s1, err := h.app.Scraper(context.Background())
	require.NoError(t, err)
	s2, err := h.app.Scraper(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestApp_Store(t *testing.T) {
	t.Run("filesystem", func(t *testing.T) {
		cfg := testConfig(t)
		app, err := New("dev", "", "", "", WithConfig(cfg))
		require.NoError(t, err)

		s, err := app.Store(context.Background())
		require.NoError(t, err)
		fs, ok := s.(*store.FS)
		require.True(t, ok)
		assert.Equal(t, cfg.DataDir, fs.Root())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store = "tape"
		app, err := New("dev", "", "", "", WithConfig(cfg))
		require.NoError(t, err)

		_, err = app.Store(context.Background())
		var cerr *errors.ConfigError
		assert.True(t, errors.As(err, &cerr))
	})

	t.Run("minio needs an endpoint", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store = StoreMinio
		app, err := New("dev", "", "", "", WithConfig(cfg))
		require.NoError(t, err)

		_, err = app.Store(context.Background())
		assert.Error(t, err)
	})
}

func TestApp_BadPolicyFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")
	h := newHarness(t, cfg, store.NewMemory(), report("China"))

	_, err := h.app.Scraper(context.Background())
	assert.Error(t, err)
}

func TestApp_BadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Mars/Olympus_Mons"
	h := newHarness(t, cfg, store.NewMemory(), report("China"))

	_, err := h.app.Scraper(context.Background())
	var cerr *errors.ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestApp_NotifyCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.NotifyCommand = "mail -s"
	app, err := New("dev", "", "", "", WithConfig(cfg))
	require.NoError(t, err)

	n, err := app.buildNotifier()
	require.NoError(t, err)
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi, 2)
	assert.Equal(t, notify.Command{Name: "mail", Args: []string{"-s"}}, multi[1])
}

func TestLock(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

	lock, err := acquireLock(dir, date)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "sitrep-20200302.lock"))

	_, err = acquireLock(dir, date)
	assert.True(t, errors.IsAlreadyExists(err))

	other, err := acquireLock(dir, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, lockPath(dir, date))
	assert.NoError(t, lock.Release())
}

func writeSnapshot(t *testing.T, dir, name string, names ...string) string {
	t.Helper()
	records := make([]record.Record, 0, len(names))
	for _, n := range names {
		records = append(records, record.Record{
			Name:       n,
			ReportDate: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
			Retrieved:  time.Date(2020, 3, 2, 9, 0, 0, 0, time.UTC),
			Sequence:   42,
		})
	}
	data, err := ledger.Encode(records)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
