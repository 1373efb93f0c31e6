// Package pipeline runs one report through extraction, validation,
// cleaning, enrichment, reconciliation and persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/clean"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/logging"
	"github.com/covid19datasets/sitrep/pkg/reconcile"
	"github.com/covid19datasets/sitrep/pkg/record"
	"github.com/covid19datasets/sitrep/pkg/schema"
)

// Ledger supplies the reconciliation baseline and persists the snapshot.
type Ledger interface {
	Latest(ctx context.Context, date time.Time) (*record.Snapshot, error)
	Persist(ctx context.Context, snap *record.Snapshot) (ledger.Entry, error)
}

// Pipeline holds the collaborators of a run. It is safe to reuse across
// runs but runs must not overlap for the same report date.
type Pipeline struct {
	extractor extract.Extractor
	validator *schema.Validator
	policy    *clean.Policy
	enricher  *enrich.Enricher
	ledger    Ledger
	logger    *zerolog.Logger
	dryRun    bool
}

// New creates a Pipeline. A ledger is required unless the pipeline is a
// dry run.
func New(opts ...Option) (*Pipeline, error) {
	nop := zerolog.Nop()
	p := &Pipeline{logger: &nop}
	for _, opt := range opts {
		opt(p)
	}

	if p.extractor == nil {
		p.extractor = extract.NewTabula(p.logger)
	}
	if p.validator == nil {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, err
		}
		p.validator = v
	}
	if p.policy == nil {
		p.policy = clean.DefaultPolicy()
	}
	if p.enricher == nil {
		e, err := enrich.New()
		if err != nil {
			return nil, err
		}
		p.enricher = e
	}
	if p.ledger == nil && !p.dryRun {
		return nil, errors.NewConfigError("pipeline", "a ledger is required", nil)
	}
	return p, nil
}

// Result describes a completed run.
type Result struct {
	RunID          string
	ReportDate     time.Time
	Stage          Stage
	Snapshot       *record.Snapshot
	Baseline       *record.Snapshot
	Reconciliation reconcile.Result
	Entry          ledger.Entry
	Merged         int
	Dropped        []clean.Dropped
	Warnings       []clean.Dropped
	Drift          []errors.DriftWarning
	// Issues are the non-fatal row shape errors absorbed during cleaning.
	Issues []*errors.RowShapeError
}

// Persisted reports whether the run wrote its snapshot.
func (r *Result) Persisted() bool {
	return r.Stage == Persisted
}

// Run processes doc as the report for date. Fatal errors are returned as a
// RunError carrying the report date and the last stage reached; nothing is
// written unless the run reaches persistence. The partial result is
// returned alongside any error.
func (p *Pipeline) Run(ctx context.Context, doc extract.Document, date time.Time) (*Result, error) {
	date = enrich.CivilDate(date)
	res := &Result{RunID: uuid.NewString(), ReportDate: date}
	dateKey := enrich.FormatReportDate(date)
	// collaborators find the run logger in ctx
	ctx = logging.WithLogger(ctx, p.logger)
	ctx = logging.WithRunID(ctx, res.RunID)
	ctx = logging.WithReportDate(ctx, dateKey)
	log := logging.FromContext(ctx)

	var tr tracker
	fail := func(err error) (*Result, error) {
		reached := tr.reached
		tr.fail()
		res.Stage = tr.current
		log.Error().Err(err).Str("stage", reached.String()).Msg("Run failed")
		return res, errors.NewRunError(dateKey, reached.String(), err)
	}
	step := func(to Stage) error {
		if err := tr.advance(to); err != nil {
			return err
		}
		res.Stage = to
		log.Debug().Str("stage", to.String()).Msg("Stage complete")
		return nil
	}

	log.Info().Str("document", doc.Path).Msg("Starting run")

	tables, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		if !errors.IsExtraction(err) {
			msg := "extraction failed"
			if ctx.Err() != nil {
				msg = "extraction cancelled"
			}
			err = errors.NewExtractionError(doc.Path, msg, err)
		}
		return fail(err)
	}
	if err := step(Extracted); err != nil {
		return fail(err)
	}
	log.Debug().Int("tables", len(tables)).Msg("Extracted candidate tables")

	work, drift, err := p.validator.ValidateWithWarnings(tables)
	res.Drift = drift
	for _, w := range drift {
		log.Warn().
			Int("table", w.Table).
			Int("columns", w.Columns).
			Int("expected", w.Expected).
			Int("rows", w.Rows).
			Msg("Discarded table with unexpected width")
	}
	if err != nil {
		return fail(err)
	}
	if err := step(Validated); err != nil {
		return fail(err)
	}

	merged := clean.Merge(work)
	res.Merged = merged.Merged
	res.Issues = append(res.Issues, merged.Issues...)
	if err := step(Merged); err != nil {
		return fail(err)
	}

	filtered := clean.NewFilter(p.policy, log).Apply(merged.Table)
	res.Dropped = filtered.Dropped
	res.Warnings = filtered.Warnings
	res.Issues = append(res.Issues, filtered.Issues...)
	if err := step(Filtered); err != nil {
		return fail(err)
	}

	records, issues := record.FromTable(filtered.Table)
	res.Issues = append(res.Issues, issues...)
	res.Snapshot = p.enricher.Stamp(records, date)
	if err := step(Enriched); err != nil {
		return fail(err)
	}
	for _, issue := range res.Issues {
		log.Warn().Err(issue).Msg("Row dropped")
	}

	var baseline *record.Snapshot
	if p.ledger != nil {
		baseline, err = p.ledger.Latest(ctx, date)
		if err != nil {
			if !errors.IsReconciliationIntegrity(err) {
				err = errors.NewReconciliationIntegrityError(dateKey, "cannot load baseline", err)
			}
			return fail(err)
		}
	}
	res.Baseline = baseline
	res.Reconciliation = reconcile.Reconcile(baseline, res.Snapshot)
	if err := step(Reconciled); err != nil {
		return fail(err)
	}

	if p.dryRun || p.ledger == nil {
		log.Info().
			Int("records", res.Snapshot.Len()).
			Str("changes", res.Reconciliation.String()).
			Msg("Dry run complete, nothing written")
		return res, nil
	}

	entry, err := p.ledger.Persist(ctx, res.Snapshot)
	if err != nil {
		return fail(err)
	}
	res.Entry = entry
	if err := step(Persisted); err != nil {
		return fail(err)
	}

	log.Info().
		Int("records", res.Snapshot.Len()).
		Int("sequence", res.Snapshot.Sequence).
		Int("merged", res.Merged).
		Int("dropped", len(res.Dropped)).
		Int("issues", len(res.Issues)).
		Str("added", res.Reconciliation.Added.String()).
		Str("removed", res.Reconciliation.Removed.String()).
		Msg("Run complete")
	return res, nil
}
