package sitrep

import (
	"context"

	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/record"
)

// Persistence handles ledger maintenance operations
type Persistence interface {
	// Compact folds ledger segments into the consolidated ledger file
	Compact(ctx context.Context) (ledger.CompactResult, error)

	// Export writes the whole ledger as Parquet to key in the store
	Export(ctx context.Context, key string) (int, error)

	// Current returns the current-period snapshot
	Current(ctx context.Context) (*record.Snapshot, error)
}

// Compact folds ledger segments into the consolidated ledger file
func (s *scraper) Compact(ctx context.Context) (ledger.CompactResult, error) {
	return s.ledger.Compact(ctx)
}

// Export writes the whole ledger as Parquet to key in the store
func (s *scraper) Export(ctx context.Context, key string) (int, error) {
	data, n, err := s.ledger.ExportParquet(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.config.store.Put(ctx, key, data); err != nil {
		return 0, err
	}
	s.logger().Info().Str("file", key).Int("records", n).Msg("Exported ledger")
	return n, nil
}

// Current returns the current-period snapshot
func (s *scraper) Current(ctx context.Context) (*record.Snapshot, error) {
	return ledger.ReadSnapshot(ctx, s.config.store, s.writer.SnapshotKey())
}
