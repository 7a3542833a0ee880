package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/archive"
	"github.com/spec-kit/locate-ingest/internal/domain"
	"github.com/spec-kit/locate-ingest/internal/ingest"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/queue"
	"github.com/spec-kit/locate-ingest/internal/repository"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// IntakeResult reports the webhook-visible outcome of one delivery.
type IntakeResult struct {
	NotificationID string
	Duplicate      bool
}

// IntakeService runs the webhook side of the pipeline: authenticate, archive
// the raw payload, deduplicate, and hand the validated event to the queue.
// Everything past the queue is asynchronous.
type IntakeService struct {
	verifier *ingest.SignatureVerifier
	ledger   repository.LedgerRepository
	blobs    archive.BlobStore
	events   queue.Publisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	Verifier *ingest.SignatureVerifier
	Ledger   repository.LedgerRepository
	Blobs    archive.BlobStore
	Events   queue.Publisher
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &IntakeService{
		verifier: deps.Verifier,
		ledger:   deps.Ledger,
		blobs:    deps.Blobs,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      now,
	}
}

// Accept processes one inbound delivery. A bad signature or malformed body is
// terminal: nothing is archived as valid and nothing is queued. A duplicate
// notification short-circuits before the queue, so the aggregator runs at most
// once per notification id.
//
// The ledger entry is written only after the envelope is on the queue. A
// transient publish failure therefore leaves no ledger row, and the vendor's
// redelivery goes through the full path again instead of being swallowed as a
// duplicate. The cost is a narrow race where two concurrent deliveries of the
// same notification both enqueue; the merge is idempotent, so the second
// envelope is a no-op downstream.
func (s *IntakeService) Accept(ctx context.Context, body []byte, signatureHeader string) (*IntakeResult, error) {
	if err := s.verifier.Verify(body, signatureHeader); err != nil {
		s.metrics.AuthFailures.Inc()
		return nil, err
	}

	notificationID, ok := ingest.ResolveNotificationID(body)
	if !ok {
		return nil, apperrors.NewMalformedPayload("payload is not valid JSON", nil)
	}
	if notificationID == "" {
		// The ledger key must never be empty; an unidentified delivery gets a
		// fresh id and is treated as first-seen.
		notificationID = uuid.NewString()
	}

	rec, found, err := s.ledger.Get(ctx, notificationID)
	if err != nil {
		return nil, apperrors.NewTransientStorage("ledger lookup", err)
	}
	if found {
		s.metrics.Duplicates.Inc()
		s.logger.Info("duplicate notification skipped",
			zap.String("notification_id", notificationID),
			zap.Time("first_seen_at", rec.FirstSeenAt))
		return &IntakeResult{NotificationID: notificationID, Duplicate: true}, nil
	}

	receivedAt := s.now().UTC()
	eventType := s.peekEventType(body)

	// Archive failure must not block the webhook response; the raw copy is an
	// audit artifact, not a pipeline input.
	rawRef, err := s.blobs.Put(ctx, string(eventType), notificationID, receivedAt, body)
	if err != nil {
		s.logger.Error("raw payload archive failed",
			zap.String("notification_id", notificationID), zap.Error(err))
		rawRef = ""
	}

	err = s.events.Publish(ctx, queue.Envelope{
		NotificationID: notificationID,
		RawRef:         rawRef,
		ReceivedAt:     receivedAt,
		Body:           body,
	})
	if err != nil {
		return nil, err
	}

	firstSeen, err := s.ledger.Record(ctx, notificationID, eventType)
	if err != nil {
		// The envelope is already queued. Surfacing the error triggers a
		// redelivery that may enqueue it again; idempotent merge absorbs that.
		return nil, apperrors.NewTransientStorage("ledger record", err)
	}
	if !firstSeen {
		// A concurrent delivery won the conditional insert after our lookup.
		// Both envelopes are queued; downstream state converges regardless.
		s.logger.Info("concurrent delivery detected",
			zap.String("notification_id", notificationID))
	}

	return &IntakeResult{NotificationID: notificationID}, nil
}

// peekEventType maps the vendor event label without full normalization; it
// only labels the ledger entry and the archive partition.
func (s *IntakeService) peekEventType(body []byte) domain.EventType {
	var probe struct {
		Event string `json:"Event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ingest.MapEventType("")
	}
	return ingest.MapEventType(probe.Event)
}
