package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/domain"
	"github.com/spec-kit/locate-ingest/internal/ingest"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/queue"
	"github.com/spec-kit/locate-ingest/internal/repository"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// Writers racing on the same ticket lose the CAS and re-merge; a handful of
// retries is plenty because each attempt re-reads fresh state.
const maxSaveAttempts = 5

// AggregationService runs the asynchronous half of the pipeline: normalize a
// queued payload and merge the resulting event into its ticket aggregate.
type AggregationService struct {
	aggregates repository.AggregateRepository
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAggregationService constructs the service.
func NewAggregationService(aggregates repository.AggregateRepository, metrics *observability.Metrics, logger *zap.Logger) *AggregationService {
	return &AggregationService{aggregates: aggregates, metrics: metrics, logger: logger}
}

// Process normalizes one queued envelope and applies it. A missing ticket id
// is terminal (redelivery cannot fix it); storage trouble comes back as a
// transient error for the worker to requeue.
func (s *AggregationService) Process(ctx context.Context, env queue.Envelope) error {
	event, err := ingest.Normalize(env.Body, env.RawRef, env.ReceivedAt)
	if err != nil {
		return err
	}
	event.NotificationID = env.NotificationID

	agg, err := s.Apply(ctx, event)
	if err != nil {
		return err
	}

	s.metrics.EventsProcessed.WithLabelValues(string(event.Type)).Inc()
	s.logger.Info("event merged",
		zap.String("ticket_id", agg.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Int("member_count", agg.MemberCount),
		zap.Int("response_count", agg.ResponseCount),
	)
	return nil
}

// Apply merges one canonical event into the per-ticket aggregate using a
// read-merge-write loop guarded by the aggregate version. Safe to retry: the
// merge is idempotent, so at-least-once redelivery cannot corrupt state.
func (s *AggregationService) Apply(ctx context.Context, event domain.CanonicalEvent) (*domain.TicketAggregate, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		existing, found, err := s.aggregates.Get(ctx, event.TicketID)
		if err != nil {
			return nil, apperrors.NewTransientStorage("aggregate get", err)
		}

		var readVersion int64
		if found {
			readVersion = existing.Version
		} else {
			existing = nil
		}

		merged := domain.Merge(existing, event)
		err = s.aggregates.Save(ctx, &merged, readVersion)
		if err == repository.ErrVersionConflict {
			continue
		}
		if err != nil {
			return nil, apperrors.NewTransientStorage("aggregate save", err)
		}
		return &merged, nil
	}
	return nil, apperrors.NewTransientStorage("aggregate save", repository.ErrVersionConflict)
}
