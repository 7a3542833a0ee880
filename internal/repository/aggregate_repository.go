package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/locate-ingest/internal/domain"
)

// ErrVersionConflict reports a lost optimistic-concurrency race; the caller
// should re-read, re-merge, and retry.
var ErrVersionConflict = errors.New("aggregate version conflict")

// AggregateRepository encapsulates ticket aggregate persistence.
type AggregateRepository interface {
	Get(ctx context.Context, ticketID string) (*domain.TicketAggregate, bool, error)
	// Save persists agg conditioned on the version it was read at (0 for a new
	// aggregate). Returns ErrVersionConflict when another writer got there first.
	Save(ctx context.Context, agg *domain.TicketAggregate, readVersion int64) error
	List(ctx context.Context, limit, offset int) ([]domain.TicketAggregate, error)
	Delete(ctx context.Context, ticketID string) error
}

type aggregateRepository struct {
	pool *pgxpool.Pool
}

// NewAggregateRepository instantiates repository.
func NewAggregateRepository(pool *pgxpool.Pool) AggregateRepository {
	return &aggregateRepository{pool: pool}
}

const aggregateColumns = `ticket_id, digsite_address, legal_start_at, members,
               member_count, response_count, last_event_type, last_event_at, last_raw_ref, version`

func (r *aggregateRepository) Get(ctx context.Context, ticketID string) (*domain.TicketAggregate, bool, error) {
	const query = `
        SELECT ` + aggregateColumns + `
        FROM ticket_aggregates WHERE ticket_id=$1`
	agg, err := scanAggregate(r.pool.QueryRow(ctx, query, ticketID))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return agg, true, nil
}

func (r *aggregateRepository) Save(ctx context.Context, agg *domain.TicketAggregate, readVersion int64) error {
	members, err := json.Marshal(agg.Members)
	if err != nil {
		return err
	}

	if readVersion == 0 {
		const insert = `
            INSERT INTO ticket_aggregates (ticket_id, digsite_address, legal_start_at, members,
                member_count, response_count, last_event_type, last_event_at, last_raw_ref, version)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1)
            ON CONFLICT (ticket_id) DO NOTHING`
		cmd, err := r.pool.Exec(ctx, insert,
			agg.TicketID,
			agg.DigsiteAddress,
			agg.LegalStartAt,
			members,
			agg.MemberCount,
			agg.ResponseCount,
			agg.LastEventType,
			agg.LastEventAt,
			agg.LastRawRef,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		agg.Version = 1
		return nil
	}

	const update = `
        UPDATE ticket_aggregates SET digsite_address=$1, legal_start_at=$2, members=$3,
            member_count=$4, response_count=$5, last_event_type=$6, last_event_at=$7,
            last_raw_ref=$8, version=version+1
        WHERE ticket_id=$9 AND version=$10`
	cmd, err := r.pool.Exec(ctx, update,
		agg.DigsiteAddress,
		agg.LegalStartAt,
		members,
		agg.MemberCount,
		agg.ResponseCount,
		agg.LastEventType,
		agg.LastEventAt,
		agg.LastRawRef,
		agg.TicketID,
		readVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	agg.Version = readVersion + 1
	return nil
}

func (r *aggregateRepository) List(ctx context.Context, limit, offset int) ([]domain.TicketAggregate, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT ` + aggregateColumns + `
        FROM ticket_aggregates ORDER BY last_event_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agg)
	}
	return result, rows.Err()
}

func (r *aggregateRepository) Delete(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM ticket_aggregates WHERE ticket_id=$1`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}

func scanAggregate(row pgx.Row) (*domain.TicketAggregate, error) {
	var agg domain.TicketAggregate
	var members []byte
	if err := row.Scan(
		&agg.TicketID,
		&agg.DigsiteAddress,
		&agg.LegalStartAt,
		&members,
		&agg.MemberCount,
		&agg.ResponseCount,
		&agg.LastEventType,
		&agg.LastEventAt,
		&agg.LastRawRef,
		&agg.Version,
	); err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &agg.Members); err != nil {
			return nil, err
		}
	}
	return &agg, nil
}
