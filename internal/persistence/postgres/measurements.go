package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jchen1/qs/internal/domain"
	"github.com/jchen1/qs/internal/observability"
)

// MeasurementStore persists normalized intraday records, one table per
// metric kind, keyed on (user_id, time). Redelivered tasks re-insert the
// same keys, so every insert is conflict-tolerant.
type MeasurementStore struct {
	pool *pgxpool.Pool
}

// NewMeasurementStore constructs a MeasurementStore.
func NewMeasurementStore(pool *pgxpool.Pool) *MeasurementStore {
	return &MeasurementStore{pool: pool}
}

// InsertBatch writes one day's batch in a single transaction and returns the
// number of rows actually inserted. Rows already present for (user_id, time)
// are skipped, which makes re-ingestion of a redelivered task a no-op.
func (s *MeasurementStore) InsertBatch(ctx context.Context, batch domain.Batch) (int, error) {
	if batch.IsEmpty() {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, r := range batch.Steps {
		b.Queue(`INSERT INTO steps (time, user_id, source, count) VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, time) DO NOTHING`, r.Time, r.UserID, r.Source, r.Count)
	}
	for _, r := range batch.Calories {
		b.Queue(`INSERT INTO calories (time, user_id, source, count, level, mets) VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (user_id, time) DO NOTHING`, r.Time, r.UserID, r.Source, r.Count, r.Level, r.METs)
	}
	for _, r := range batch.Distances {
		b.Queue(`INSERT INTO distances (time, user_id, source, count) VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, time) DO NOTHING`, r.Time, r.UserID, r.Source, r.Count)
	}
	for _, r := range batch.Elevations {
		b.Queue(`INSERT INTO elevations (time, user_id, source, count) VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, time) DO NOTHING`, r.Time, r.UserID, r.Source, r.Count)
	}
	for _, r := range batch.Floors {
		b.Queue(`INSERT INTO floors (time, user_id, source, count) VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, time) DO NOTHING`, r.Time, r.UserID, r.Source, r.Count)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, b)
	inserted := 0
	for i := 0; i < b.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	observability.RecordMeasurementPersisted(time.Now().UTC())
	return inserted, nil
}
