package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/locate-ingest/internal/domain"
	"github.com/spec-kit/locate-ingest/internal/queue"
	"github.com/spec-kit/locate-ingest/internal/repository"
)

// memAggregateRepo is an in-memory AggregateRepository honoring the version
// contract, so CAS behavior is exercised without a database.
type memAggregateRepo struct {
	mu             sync.Mutex
	rows           map[string]domain.TicketAggregate
	getErr         error
	saveErr        error
	forceConflicts int
}

func newMemAggregateRepo() *memAggregateRepo {
	return &memAggregateRepo{rows: make(map[string]domain.TicketAggregate)}
}

func (r *memAggregateRepo) Get(_ context.Context, ticketID string) (*domain.TicketAggregate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	agg, ok := r.rows[ticketID]
	if !ok {
		return nil, false, nil
	}
	copied := agg
	return &copied, true, nil
}

func (r *memAggregateRepo) Save(_ context.Context, agg *domain.TicketAggregate, readVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.forceConflicts > 0 {
		r.forceConflicts--
		return repository.ErrVersionConflict
	}
	current, exists := r.rows[agg.TicketID]
	if readVersion == 0 {
		if exists {
			return repository.ErrVersionConflict
		}
		agg.Version = 1
	} else {
		if !exists || current.Version != readVersion {
			return repository.ErrVersionConflict
		}
		agg.Version = readVersion + 1
	}
	r.rows[agg.TicketID] = *agg
	return nil
}

func (r *memAggregateRepo) List(_ context.Context, limit, offset int) ([]domain.TicketAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.TicketAggregate
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, r.rows[id])
	}
	return out, nil
}

func (r *memAggregateRepo) Delete(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, ticketID)
	return nil
}

// memLedgerRepo is an in-memory dedup ledger.
type memLedgerRepo struct {
	mu        sync.Mutex
	records   map[string]domain.NotificationRecord
	getErr    error
	recordErr error
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{records: make(map[string]domain.NotificationRecord)}
}

func (r *memLedgerRepo) Get(_ context.Context, notificationID string) (*domain.NotificationRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	rec, ok := r.records[notificationID]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (r *memLedgerRepo) Record(_ context.Context, notificationID string, eventType domain.EventType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return false, r.recordErr
	}
	if _, ok := r.records[notificationID]; ok {
		return false, nil
	}
	r.records[notificationID] = domain.NotificationRecord{
		NotificationID: notificationID,
		EventType:      eventType,
		FirstSeenAt:    time.Now().UTC(),
	}
	return true, nil
}

// memBlobStore records archived payloads.
type memBlobStore struct {
	mu   sync.Mutex
	refs []string
	err  error
}

func (s *memBlobStore) Put(_ context.Context, eventLabel, notificationID string, receivedAt time.Time, _ []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	ref := eventLabel + "/" + receivedAt.UTC().Format("2006/01/02") + "/" + notificationID + ".json"
	s.refs = append(s.refs, ref)
	return ref, nil
}

// memPublisher captures published envelopes.
type memPublisher struct {
	mu        sync.Mutex
	envelopes []queue.Envelope
	err       error
}

func (p *memPublisher) Publish(_ context.Context, env queue.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.envelopes = append(p.envelopes, env)
	return nil
}
