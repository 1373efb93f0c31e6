// Package sitrep ingests the daily situation report tables into a
// snapshot file and an append-only historical ledger, and notifies an
// operator when a run fails or the set of reporting entities changes.
package sitrep

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/notify"
	"github.com/covid19datasets/sitrep/pkg/pipeline"
)

// Scraper runs reports through the pipeline and reports the outcome
type Scraper interface {
	// Scrape processes doc as the report for date
	Scrape(ctx context.Context, doc extract.Document, date time.Time) (*pipeline.Result, error)

	// ReportFailure notifies the operator of a fatal error for date that
	// happened before the pipeline ran, such as a failed download
	ReportFailure(ctx context.Context, date time.Time, err error) error

	// Ledger returns the historical ledger
	Ledger() *ledger.Ledger

	// OnEntityAdded registers a callback for entities new in a report
	OnEntityAdded(EntityHook)

	// OnEntityRemoved registers a callback for entities missing from a report
	OnEntityRemoved(EntityHook)

	Persistence
}

// scraper is the internal implementation of the Scraper interface
type scraper struct {
	config   *config
	pipeline *pipeline.Pipeline
	ledger   *ledger.Ledger
	writer   *ledger.Writer
	hooks    *hooks
}

// New creates a Scraper with the given options
func New(opts ...Option) (Scraper, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if cfg.store == nil {
		return nil, errors.NewConfigError("sitrep", "a store is required", nil)
	}
	if cfg.notifier == nil {
		cfg.notifier = notify.Log{Logger: cfg.logger}
	}

	l := ledger.New(cfg.store,
		ledger.WithConsolidatedKey(cfg.ledgerKey),
		ledger.WithLogger(cfg.logger),
	)
	w := ledger.NewWriter(cfg.store, l,
		ledger.WithSnapshotKey(cfg.snapshotKey),
		ledger.WithWriterLogger(cfg.logger),
		ledger.WithCompactEvery(cfg.compactEvery),
	)

	popts := []pipeline.Option{
		pipeline.WithLogger(cfg.logger),
		pipeline.WithLedger(w),
		pipeline.WithDryRun(cfg.dryRun),
	}
	if cfg.extractor != nil {
		popts = append(popts, pipeline.WithExtractor(cfg.extractor))
	}
	if cfg.validator != nil {
		popts = append(popts, pipeline.WithValidator(cfg.validator))
	}
	if cfg.policy != nil {
		popts = append(popts, pipeline.WithPolicy(cfg.policy))
	}
	if cfg.enricher != nil {
		popts = append(popts, pipeline.WithEnricher(cfg.enricher))
	}
	p, err := pipeline.New(popts...)
	if err != nil {
		return nil, err
	}

	return &scraper{
		config:   cfg,
		pipeline: p,
		ledger:   l,
		writer:   w,
		hooks:    newHooks(),
	}, nil
}

// Scrape runs the pipeline. On a fatal error the notifier receives the
// report date and the stage reached; on a non-empty reconciliation it
// receives the added and removed entities. A notification failure is
// logged and never masks the run's own outcome.
func (s *scraper) Scrape(ctx context.Context, doc extract.Document, date time.Time) (*pipeline.Result, error) {
	dateKey := enrich.FormatReportDate(date)
	res, err := s.pipeline.Run(ctx, doc, date)
	if err != nil {
		s.notifyFailure(ctx, dateKey, err)
		return res, err
	}

	if res.Reconciliation.HasChanges() {
		s.hooks.trigger(res)
		body := notify.ChangesBody(dateKey, res.Reconciliation)
		if nerr := s.config.notifier.Notify(ctx, notify.ChangesSubject(dateKey), body); nerr != nil {
			s.logger().Error().Err(nerr).Msg("Failed to send change notification")
		}
	}
	return res, nil
}

// ReportFailure wraps err as a run that never left the pending stage,
// notifies the operator and returns the wrapped error.
func (s *scraper) ReportFailure(ctx context.Context, date time.Time, err error) error {
	if err == nil {
		return nil
	}
	dateKey := enrich.FormatReportDate(date)
	var runErr *errors.RunError
	if !errors.As(err, &runErr) {
		err = errors.NewRunError(dateKey, pipeline.Pending.String(), err)
	}
	s.logger().Error().Err(err).Str("report_date", dateKey).Msg("Run failed before extraction")
	s.notifyFailure(ctx, dateKey, err)
	return err
}

func (s *scraper) notifyFailure(ctx context.Context, dateKey string, err error) {
	if !errors.IsFatal(err) {
		return
	}
	if nerr := s.config.notifier.Notify(ctx, notify.FailureSubject(dateKey), notify.FailureBody(dateKey, err)); nerr != nil {
		s.logger().Error().Err(nerr).Msg("Failed to send failure notification")
	}
}

// Ledger returns the historical ledger
func (s *scraper) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *scraper) logger() *zerolog.Logger {
	return s.config.logger
}
