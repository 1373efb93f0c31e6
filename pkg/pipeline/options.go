package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/clean"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/schema"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the run logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithExtractor sets the table extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithValidator sets the schema validator.
func WithValidator(v *schema.Validator) Option {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// WithPolicy sets the row filter policy.
func WithPolicy(policy *clean.Policy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithEnricher sets the enricher.
func WithEnricher(e *enrich.Enricher) Option {
	return func(p *Pipeline) {
		p.enricher = e
	}
}

// WithLedger sets the baseline source and persister.
func WithLedger(l Ledger) Option {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithDryRun stops the run after reconciliation without writing.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}
