package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/record"
)

// Writer persists a run's snapshot.
type Writer struct {
	store       store.Store
	ledger      *Ledger
	snapshotKey  string
	compactEvery int
	logger       *zerolog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSnapshotKey sets the current-period snapshot object key.
func WithSnapshotKey(key string) WriterOption {
	return func(w *Writer) {
		if key != "" {
			w.snapshotKey = key
		}
	}
}

// WithCompactEvery folds pending segments into the consolidated file once
// n of them have accumulated. Zero leaves compaction to the caller.
func WithCompactEvery(n int) WriterOption {
	return func(w *Writer) {
		if n >= 0 {
			w.compactEvery = n
		}
	}
}

// WithWriterLogger sets the logger.
func WithWriterLogger(logger *zerolog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a Writer that replaces the snapshot file in s and
// appends to l.
func NewWriter(s store.Store, l *Ledger, opts ...WriterOption) *Writer {
	nop := zerolog.Nop()
	w := &Writer{
		store:        s,
		ledger:       l,
		snapshotKey:  constants.DefaultSnapshotFile,
		compactEvery: constants.DefaultCompactEvery,
		logger:       &nop,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ledger returns the underlying ledger.
func (w *Writer) Ledger() *Ledger {
	return w.ledger
}

// SnapshotKey returns the current-period snapshot object key.
func (w *Writer) SnapshotKey() string {
	return w.snapshotKey
}

// Latest returns the reconciliation baseline for date. See Ledger.Latest.
func (w *Writer) Latest(ctx context.Context, date time.Time) (*record.Snapshot, error) {
	return w.ledger.Latest(ctx, date)
}

// Persist replaces the snapshot file, appends snap to the ledger and then
// compacts when enough segments are pending. A duplicate report date fails
// before anything is touched. A failed append leaves the new snapshot file
// in place and the date unclaimed, so the run can be retried.
func (w *Writer) Persist(ctx context.Context, snap *record.Snapshot) (Entry, error) {
	exists, err := w.ledger.Has(ctx, snap.ReportDate)
	if err != nil {
		return Entry{}, err
	}
	if exists {
		return Entry{}, errors.NewAlreadyExistsError("ledger partition", snap.ReportDate.Format(constants.SegmentDateLayout))
	}

	if err := WriteSnapshot(ctx, w.store, w.snapshotKey, snap); err != nil {
		return Entry{}, err
	}
	w.logger.Info().
		Str("file", w.snapshotKey).
		Int("records", snap.Len()).
		Msg("Wrote current snapshot")

	entry, err := w.ledger.Append(ctx, snap)
	if err != nil {
		return Entry{}, err
	}
	if w.compact(ctx) {
		entry.Key = w.ledger.ConsolidatedKey()
	}
	return entry, nil
}

// compact runs the compaction policy and reports whether it folded the
// pending segments. The append is already committed, so a failure here is
// logged and left for the next run or a manual compact.
func (w *Writer) compact(ctx context.Context) bool {
	if w.compactEvery == 0 {
		return false
	}
	pending, err := w.ledger.Pending(ctx)
	if err == nil && pending < w.compactEvery {
		return false
	}
	if err == nil {
		_, err = w.ledger.Compact(ctx)
	}
	if err != nil {
		w.logger.Warn().Err(err).Str("file", w.ledger.ConsolidatedKey()).Msg("Failed to compact ledger")
		return false
	}
	return true
}

// WriteSnapshot replaces the object at key with snap.
func WriteSnapshot(ctx context.Context, s store.Store, key string, snap *record.Snapshot) error {
	data, err := Encode(snap.Records)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, data)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(ctx context.Context, s store.Store, key string) (*record.Snapshot, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	recs, err := Decode(data, key)
	if err != nil {
		return nil, err
	}
	snap := &record.Snapshot{Records: recs}
	if len(recs) > 0 {
		snap.ReportDate = recs[0].ReportDate
		snap.Retrieved = recs[0].Retrieved
		snap.Sequence = recs[0].Sequence
	}
	return snap, nil
}
