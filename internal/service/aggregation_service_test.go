package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/domain"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/queue"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

func newAggregationService(repo *memAggregateRepo) *AggregationService {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewAggregationService(repo, metrics, zap.NewNop())
}

func testEvent(eventType domain.EventType) domain.CanonicalEvent {
	return domain.CanonicalEvent{
		TicketID:   "T1",
		Type:       eventType,
		ReceivedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Members: []domain.Member{
			{StationCode: "S1", ResponseCode: "10"},
			{StationCode: "S2"},
		},
	}
}

func TestApplyCreatesAndMerges(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)

	agg, err := svc.Apply(context.Background(), testEvent(domain.EventTicketCreated))
	require.NoError(t, err)
	require.Equal(t, domain.EventTicketCreated, agg.LastEventType)
	require.Equal(t, 2, agg.MemberCount)
	require.Equal(t, 1, agg.ResponseCount)
	require.EqualValues(t, 1, agg.Version)
}

func TestApplyIdempotent(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)
	event := testEvent(domain.EventMemberResponse)

	first, err := svc.Apply(context.Background(), event)
	require.NoError(t, err)
	second, err := svc.Apply(context.Background(), event)
	require.NoError(t, err)

	// Byte-for-byte identical state both times; only the version token moves.
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestApplyStickyCreationAcrossEvents(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)
	ctx := context.Background()

	_, err := svc.Apply(ctx, testEvent(domain.EventMemberResponse))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, testEvent(domain.EventTicketCreated))
	require.NoError(t, err)
	agg, err := svc.Apply(ctx, testEvent(domain.EventMemberResponse))
	require.NoError(t, err)
	require.Equal(t, domain.EventTicketCreated, agg.LastEventType)
}

func TestApplyRetriesVersionConflict(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)
	ctx := context.Background()

	seeded := domain.Merge(nil, testEvent(domain.EventTicketCreated))
	require.NoError(t, repo.Save(ctx, &seeded, 0))

	// The first save attempt loses a simulated race; the read-merge-write
	// loop must go around again and still land the event.
	repo.forceConflicts = 1
	agg, err := svc.Apply(ctx, testEvent(domain.EventMemberResponse))
	require.NoError(t, err)
	require.Equal(t, domain.EventTicketCreated, agg.LastEventType)
	require.EqualValues(t, 2, agg.Version)
}

func TestApplySurfacesStorageFailure(t *testing.T) {
	repo := newMemAggregateRepo()
	repo.getErr = context.DeadlineExceeded
	svc := newAggregationService(repo)

	_, err := svc.Apply(context.Background(), testEvent(domain.EventTicketCreated))
	require.Error(t, err)
	require.True(t, apperrors.IsTransient(err))
}

func TestProcessNormalizesQueuedEnvelope(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)

	env := queue.Envelope{
		NotificationID: "n-1",
		RawRef:         "raw/a.json",
		ReceivedAt:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Body:           []byte(`{"TicketNumber":"T9","Event":"TICKET CREATION"}`),
	}
	require.NoError(t, svc.Process(context.Background(), env))

	agg, found, err := repo.Get(context.Background(), "T9")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.EventTicketCreated, agg.LastEventType)
	require.Equal(t, "raw/a.json", agg.LastRawRef)
}

func TestProcessMissingTicketIDIsTerminal(t *testing.T) {
	repo := newMemAggregateRepo()
	svc := newAggregationService(repo)

	env := queue.Envelope{Body: []byte(`{"Event":"TICKET CREATION"}`)}
	err := svc.Process(context.Background(), env)
	require.Error(t, err)
	require.False(t, apperrors.IsTransient(err))
	require.Equal(t, "MISSING_REQUIRED_FIELD", apperrors.ToDomainError(err).Code)
}
