package sitrep

import (
	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/clean"
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/notify"
	"github.com/covid19datasets/sitrep/pkg/schema"
)

// config holds the collaborators a Scraper is built from
type config struct {
	store       store.Store
	snapshotKey string
	ledgerKey   string
	extractor   extract.Extractor
	validator   *schema.Validator
	policy      *clean.Policy
	enricher    *enrich.Enricher
	notifier    notify.Notifier
	logger      *zerolog.Logger
	dryRun      bool
	// compactEvery folds ledger segments after this many runs, 0 never
	compactEvery int
}

func defaultConfig() *config {
	nop := zerolog.Nop()
	return &config{
		snapshotKey: constants.DefaultSnapshotFile,
		ledgerKey:   constants.DefaultLedgerFile,
		logger:      &nop,

		compactEvery: constants.DefaultCompactEvery,
	}
}

// Option is a function that configures a Scraper instance
type Option func(*config) error

// WithStore configures where the snapshot and ledger are written
func WithStore(s store.Store) Option {
	return func(c *config) error {
		if s == nil {
			return errors.NewConfigError("sitrep", "store must not be nil", nil)
		}
		c.store = s
		return nil
	}
}

// WithSnapshotFile configures the current-period snapshot key
func WithSnapshotFile(key string) Option {
	return func(c *config) error {
		if _, err := store.CleanKey(key); err != nil {
			return err
		}
		c.snapshotKey = key
		return nil
	}
}

// WithLedgerFile configures the consolidated ledger key
func WithLedgerFile(key string) Option {
	return func(c *config) error {
		if _, err := store.CleanKey(key); err != nil {
			return err
		}
		c.ledgerKey = key
		return nil
	}
}

// WithExtractor configures the table extractor
func WithExtractor(e extract.Extractor) Option {
	return func(c *config) error {
		c.extractor = e
		return nil
	}
}

// WithValidator configures the schema validator
func WithValidator(v *schema.Validator) Option {
	return func(c *config) error {
		c.validator = v
		return nil
	}
}

// WithPolicy configures the row filter policy
func WithPolicy(p *clean.Policy) Option {
	return func(c *config) error {
		c.policy = p
		return nil
	}
}

// WithEnricher configures the enricher
func WithEnricher(e *enrich.Enricher) Option {
	return func(c *config) error {
		c.enricher = e
		return nil
	}
}

// WithNotifier configures where operator notifications go
func WithNotifier(n notify.Notifier) Option {
	return func(c *config) error {
		c.notifier = n
		return nil
	}
}

// WithLogger configures the logger
func WithLogger(l *zerolog.Logger) Option {
	return func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithDryRun configures whether runs stop before writing
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithCompactEvery configures how many runs accumulate ledger segments
// before they are folded into the ledger file. Zero disables automatic
// compaction.
func WithCompactEvery(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.NewConfigError("sitrep", "compact every must not be negative", nil)
		}
		c.compactEvery = n
		return nil
	}
}
