package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/locate-ingest/internal/domain"
)

// LedgerRepository encapsulates the notification dedup ledger. Entries are
// insert-only; first_seen_at is never rewritten and nothing here deletes.
type LedgerRepository interface {
	// Get returns the record and an explicit found flag; absence is not an error.
	Get(ctx context.Context, notificationID string) (*domain.NotificationRecord, bool, error)
	// Record inserts the notification if absent. The returned flag is true when
	// this call was the first sighting, false for a duplicate. The insert is a
	// single conditional statement, so check-and-record is atomic.
	Record(ctx context.Context, notificationID string, eventType domain.EventType) (bool, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository instantiates repository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) Get(ctx context.Context, notificationID string) (*domain.NotificationRecord, bool, error) {
	const query = `
        SELECT notification_id, event_type, first_seen_at
        FROM notifications WHERE notification_id=$1`
	var rec domain.NotificationRecord
	err := r.pool.QueryRow(ctx, query, notificationID).Scan(
		&rec.NotificationID,
		&rec.EventType,
		&rec.FirstSeenAt,
	)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (r *ledgerRepository) Record(ctx context.Context, notificationID string, eventType domain.EventType) (bool, error) {
	const query = `
        INSERT INTO notifications (notification_id, event_type)
        VALUES ($1,$2)
        ON CONFLICT (notification_id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, notificationID, eventType)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
