// Package app provides the application context and dependency management
// for the sitrep CLI. It centralizes configuration, logging, the storage
// backend and the scraper, and owns their lifecycle.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep"
	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/clean"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/notify"
	"github.com/covid19datasets/sitrep/pkg/schema"
)

// App represents the sitrep application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger and the closer for its output
	logger      *zerolog.Logger
	logCloser   io.Closer
	fixedLogger bool

	out io.Writer

	// Collaborators (lazy-initialized, singleton)
	mu        sync.RWMutex
	store     store.Store
	scraper   sitrep.Scraper
	extractor extract.Extractor
	notifier  notify.Notifier
}

// Option configures an App.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(c *Config) Option {
	return func(a *App) error {
		if c == nil {
			return errors.NewConfigError("app", "config must not be nil", nil)
		}
		a.config = c
		return nil
	}
}

// WithLogger replaces the configured logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = l
		a.fixedLogger = l != nil
		return nil
	}
}

// WithStore replaces the configured storage backend.
func WithStore(s store.Store) Option {
	return func(a *App) error {
		a.store = s
		return nil
	}
}

// WithScraper replaces the scraper built from configuration.
func WithScraper(s sitrep.Scraper) Option {
	return func(a *App) error {
		a.scraper = s
		return nil
	}
}

// WithExtractor replaces the document table extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(a *App) error {
		a.extractor = e
		return nil
	}
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) error {
		a.notifier = n
		return nil
	}
}

// WithOutput sets where command output is written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapParse("yaml", "config", err)
	}
	app.config = config

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		app.resetLogger()
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// resetLogger rebuilds the logger from the current config, closing the
// previous output.
func (a *App) resetLogger() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
	logger, closer := NewLogger(a.config)
	a.logger = &logger
	a.logCloser = closer
}

// Store returns the storage backend, creating it lazily if needed.
func (a *App) Store(ctx context.Context) (store.Store, error) {
	a.mu.RLock()
	if a.store != nil {
		s := a.store
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked(ctx)
}

func (a *App) storeLocked(ctx context.Context) (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var (
		s   store.Store
		err error
	)
	switch a.config.Store {
	case "", StoreFS:
		s, err = store.NewFS(a.config.DataDir)
	case StoreMinio:
		m := a.config.Minio
		s, err = store.NewMinio(ctx, store.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
		})
	default:
		err = errors.NewConfigError("store", "unknown store backend "+a.config.Store, nil)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Debug().Str("backend", a.config.Store).Msg("Opened store")
	a.store = s
	return s, nil
}

// Scraper returns the scraper, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Scraper(ctx context.Context) (sitrep.Scraper, error) {
	a.mu.RLock()
	if a.scraper != nil {
		s := a.scraper
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.scraper != nil {
		return a.scraper, nil
	}

	opts, err := a.buildScraperOptions(ctx)
	if err != nil {
		return nil, err
	}
	s, err := sitrep.New(opts...)
	if err != nil {
		return nil, err
	}

	a.scraper = s
	return s, nil
}

// buildScraperOptions constructs scraper options from the app configuration.
func (a *App) buildScraperOptions(ctx context.Context) ([]sitrep.Option, error) {
	s, err := a.storeLocked(ctx)
	if err != nil {
		return nil, err
	}

	registry := schema.DefaultRegistry()
	if a.config.SchemaFile != "" {
		if registry, err = schema.LoadRegistry(a.config.SchemaFile); err != nil {
			return nil, err
		}
	}
	validator, err := schema.NewValidator(schema.WithRegistry(registry))
	if err != nil {
		return nil, err
	}

	policy := clean.DefaultPolicy()
	if a.config.PolicyFile != "" {
		if policy, err = clean.LoadPolicy(a.config.PolicyFile); err != nil {
			return nil, err
		}
	}

	loc, err := time.LoadLocation(a.config.Timezone)
	if err != nil {
		return nil, errors.NewConfigError("timezone", "unknown timezone "+a.config.Timezone, err)
	}
	enricher, err := enrich.New(enrich.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	extractor := a.extractor
	if extractor == nil {
		extractor = extract.NewTabula(a.logger)
	}

	notifier, err := a.buildNotifier()
	if err != nil {
		return nil, err
	}

	return []sitrep.Option{
		sitrep.WithStore(s),
		sitrep.WithSnapshotFile(a.config.SnapshotFile),
		sitrep.WithLedgerFile(a.config.LedgerFile),
		sitrep.WithCompactEvery(a.config.CompactEvery),
		sitrep.WithExtractor(extractor),
		sitrep.WithValidator(validator),
		sitrep.WithPolicy(policy),
		sitrep.WithEnricher(enricher),
		sitrep.WithNotifier(notifier),
		sitrep.WithLogger(a.logger),
		sitrep.WithDryRun(a.config.DryRun),
	}, nil
}

// buildNotifier logs every notification and, when a notify command is
// configured, also hands it to that command.
func (a *App) buildNotifier() (notify.Notifier, error) {
	if a.notifier != nil {
		return a.notifier, nil
	}
	logNotifier := notify.Log{Logger: a.logger}
	if a.config.NotifyCommand == "" {
		return logNotifier, nil
	}
	cmd, err := notify.ParseCommand(a.config.NotifyCommand)
	if err != nil {
		return nil, err
	}
	return notify.Multi{logNotifier, cmd}, nil
}

// Shutdown performs graceful shutdown of the application.
// It flushes and closes the log output.
func (a *App) Shutdown(_ context.Context) error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}
