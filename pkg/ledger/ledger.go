package ledger

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/internal/store"
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/record"
)

// Ledger is the append-only history of snapshots. Each snapshot is written
// as an immutable segment and then committed by rewriting the index; a
// segment without an index entry is ignored. Compaction folds committed
// segments into the consolidated file without reordering records.
//
// A Ledger is not safe for concurrent writers; callers serialize runs.
type Ledger struct {
	store         store.Store
	consolidated  string
	indexKey      string
	segmentPrefix string
	logger        *zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithConsolidatedKey sets the consolidated ledger object key.
func WithConsolidatedKey(key string) Option {
	return func(l *Ledger) {
		if key != "" {
			l.consolidated = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Ledger over s.
func New(s store.Store, opts ...Option) *Ledger {
	nop := zerolog.Nop()
	l := &Ledger{
		store:         s,
		consolidated:  constants.DefaultLedgerFile,
		indexKey:      path.Join(constants.LedgerDir, constants.LedgerIndexFile),
		segmentPrefix: path.Join(constants.LedgerDir, constants.LedgerSegmentDir) + "/",
		logger:        &nop,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConsolidatedKey returns the consolidated ledger object key.
func (l *Ledger) ConsolidatedKey() string {
	return l.consolidated
}

// SegmentKey returns the segment object key for a snapshot.
func (l *Ledger) SegmentKey(sequence int, date time.Time) string {
	return fmt.Sprintf("%s%04d-%s.csv", l.segmentPrefix, sequence, date.Format(constants.SegmentDateLayout))
}

// Index loads the arrival index. A missing index is empty.
func (l *Ledger) Index(ctx context.Context) (Index, error) {
	data, err := l.store.Get(ctx, l.indexKey)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeIndex(data, l.indexKey)
}

// Has reports whether a snapshot for date has been appended.
func (l *Ledger) Has(ctx context.Context, date time.Time) (bool, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return false, err
	}
	_, ok := ix.Find(date)
	return ok, nil
}

// Pending returns the number of committed segments not yet folded into
// the consolidated file.
func (l *Ledger) Pending(ctx context.Context) (int, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range ix {
		if e.Key != l.consolidated {
			n++
		}
	}
	return n, nil
}

// Append adds snap to the ledger. Appending a report date that is already
// present fails with an AlreadyExistsError before anything is written.
func (l *Ledger) Append(ctx context.Context, snap *record.Snapshot) (Entry, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return Entry{}, err
	}
	if _, ok := ix.Find(snap.ReportDate); ok {
		return Entry{}, errors.NewAlreadyExistsError("ledger partition", snap.ReportDate.Format(constants.SegmentDateLayout))
	}

	entry := Entry{
		Arrival:  ix.NextArrival(),
		Date:     snap.ReportDate,
		Sequence: snap.Sequence,
		Key:      l.SegmentKey(snap.Sequence, snap.ReportDate),
		Count:    snap.Len(),
	}
	data, err := Encode(snap.Records)
	if err != nil {
		return Entry{}, err
	}
	if err := l.store.Put(ctx, entry.Key, data); err != nil {
		return Entry{}, err
	}
	if err := l.writeIndex(ctx, append(ix, entry)); err != nil {
		return Entry{}, err
	}

	l.logger.Info().
		Int("arrival", entry.Arrival).
		Str("segment", entry.Key).
		Int("records", entry.Count).
		Msg("Appended snapshot to ledger")
	return entry, nil
}

func (l *Ledger) writeIndex(ctx context.Context, ix Index) error {
	data, err := encodeIndex(ix)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, l.indexKey, data)
}

// Latest returns the baseline for a run on date: the most recently arrived
// snapshot dated strictly before it. An empty ledger yields an empty
// snapshot. A non-empty ledger with no usable baseline is a
// ReconciliationIntegrityError.
func (l *Ledger) Latest(ctx context.Context, date time.Time) (*record.Snapshot, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return nil, errors.NewReconciliationIntegrityError(l.indexKey, "cannot read ledger index", err)
	}
	if len(ix) == 0 {
		return &record.Snapshot{}, nil
	}
	entry, ok := ix.LatestBefore(date)
	if !ok {
		return nil, errors.NewReconciliationIntegrityError(date.Format(constants.SegmentDateLayout),
			"ledger has no snapshot dated before this report", nil)
	}
	return l.load(ctx, entry)
}

// Load returns the snapshot appended for date.
func (l *Ledger) Load(ctx context.Context, date time.Time) (*record.Snapshot, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := ix.Find(date)
	if !ok {
		return nil, errors.NewNotFoundError("ledger partition", date.Format(constants.SegmentDateLayout))
	}
	return l.load(ctx, entry)
}

func (l *Ledger) load(ctx context.Context, e Entry) (*record.Snapshot, error) {
	partition := e.DateKey()
	data, err := l.store.Get(ctx, e.Key)
	if err != nil {
		return nil, errors.NewReconciliationIntegrityError(partition, "cannot read "+e.Key, err)
	}
	all, err := Decode(data, e.Key)
	if err != nil {
		return nil, errors.NewReconciliationIntegrityError(partition, "corrupt "+e.Key, err)
	}

	snap := &record.Snapshot{ReportDate: e.Date, Sequence: e.Sequence}
	for _, r := range all {
		if r.ReportDate.Equal(e.Date) {
			snap.Records = append(snap.Records, r)
		}
	}
	if len(snap.Records) != e.Count {
		return nil, errors.NewReconciliationIntegrityError(partition,
			fmt.Sprintf("%s holds %d records for this date, index says %d", e.Key, len(snap.Records), e.Count), nil)
	}
	if len(snap.Records) > 0 {
		snap.Retrieved = snap.Records[0].Retrieved
	}
	return snap, nil
}

// Read returns every committed record in arrival order.
func (l *Ledger) Read(ctx context.Context) ([]record.Record, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return nil, err
	}

	var out []record.Record
	compacted := make(map[string]bool)
	for _, e := range ix {
		if e.Key == l.consolidated {
			compacted[e.DateKey()] = true
		}
	}
	if len(compacted) > 0 {
		data, err := l.store.Get(ctx, l.consolidated)
		if err != nil {
			return nil, err
		}
		recs, err := Decode(data, l.consolidated)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if compacted[r.ReportDate.Format(constants.SegmentDateLayout)] {
				out = append(out, r)
			}
		}
	}

	for _, e := range ix {
		if e.Key == l.consolidated {
			continue
		}
		data, err := l.store.Get(ctx, e.Key)
		if err != nil {
			return nil, err
		}
		recs, err := Decode(data, e.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// CompactResult summarizes a compaction.
type CompactResult struct {
	Segments int
	Records  int
}

// Compact folds every segment into the consolidated file. The consolidated
// file is replaced first, then the index is repointed, then segments are
// removed; a crash at any step leaves a readable ledger.
func (l *Ledger) Compact(ctx context.Context) (CompactResult, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return CompactResult{}, err
	}
	var segments []string
	for _, e := range ix {
		if e.Key != l.consolidated {
			segments = append(segments, e.Key)
		}
	}
	if len(segments) == 0 {
		return CompactResult{}, nil
	}

	all, err := l.Read(ctx)
	if err != nil {
		return CompactResult{}, err
	}
	data, err := Encode(all)
	if err != nil {
		return CompactResult{}, err
	}
	if err := l.store.Put(ctx, l.consolidated, data); err != nil {
		return CompactResult{}, err
	}

	repointed := make(Index, len(ix))
	for i, e := range ix {
		e.Key = l.consolidated
		repointed[i] = e
	}
	if err := l.writeIndex(ctx, repointed); err != nil {
		return CompactResult{}, err
	}

	for _, key := range segments {
		if err := l.store.Delete(ctx, key); err != nil {
			l.logger.Warn().Err(err).Str("segment", key).Msg("Failed to remove compacted segment")
		}
	}

	l.logger.Info().
		Int("segments", len(segments)).
		Int("records", len(all)).
		Str("file", l.consolidated).
		Msg("Compacted ledger")
	return CompactResult{Segments: len(segments), Records: len(all)}, nil
}
