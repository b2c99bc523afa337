package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	dbpkg "github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
)

type AccessEventStore struct {
	db     *sqlx.DB
	writer *dbpkg.Worker
}

var _ store.AccessEventStore = (*AccessEventStore)(nil)

func NewAccessEventStore(db *sqlx.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	var requestedMs any
	if rec.RequestedAt != nil {
		requestedMs = rec.RequestedAt.UTC().UnixMilli()
	}

	var passID any
	if rec.PassID != nil {
		passID = int64(*rec.PassID)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO access_events(
  event_id, user_id, pass_id, module_id, received_at_ms, requested_at_ms,
  granted, method, reason, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`),
			rec.ID, int32(rec.UserID), passID, rec.ModuleID,
			rec.ReceivedAt.UTC().UnixMilli(), requestedMs,
			rec.Granted, rec.Method, rec.Reason, rec.DecidedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

func (s *AccessEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
DELETE FROM access_events WHERE received_at_ms < ?;
`), cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan delete: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
