package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/domain"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/repository"
)

const sweepPageSize = 500

// RetentionService owns the expiry rule and the sweep an external scheduler
// triggers. Tickets whose legal start cannot be parsed are skipped, never
// deleted: the sweeper must not destroy data it cannot evaluate.
type RetentionService struct {
	aggregates repository.AggregateRepository
	window     time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// SweepReport summarizes one retention sweep.
type SweepReport struct {
	Deleted     int `json:"deleted"`
	Skipped     int `json:"skipped"`
	Unparseable int `json:"unparseable"`
}

// NewRetentionService constructs the service.
func NewRetentionService(aggregates repository.AggregateRepository, cfg config.RetentionConfig, metrics *observability.Metrics, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		aggregates: aggregates,
		window:     cfg.Window(),
		metrics:    metrics,
		logger:     logger,
	}
}

// IsExpired evaluates the retention rule for one aggregate: expired when
// legal_start_at plus the retention window is in the past. The second return
// value reports whether the legal start was evaluable at all.
func (s *RetentionService) IsExpired(agg domain.TicketAggregate, now time.Time) (expired bool, evaluable bool) {
	legalStart, ok := domain.ParseVendorTime(agg.LegalStartAt)
	if !ok {
		return false, false
	}
	return legalStart.Add(s.window).Before(now), true
}

// Sweep walks all aggregates and deletes the expired ones.
func (s *RetentionService) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	report := &SweepReport{}
	offset := 0
	for {
		page, err := s.aggregates.List(ctx, sweepPageSize, offset)
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}

		deletedThisPage := 0
		for _, agg := range page {
			expired, evaluable := s.IsExpired(agg, now)
			if !evaluable {
				s.logger.Warn("ticket has unparseable legal start, skipping",
					zap.String("ticket_id", agg.TicketID),
					zap.String("legal_start_at", agg.LegalStartAt))
				report.Unparseable++
				report.Skipped++
				continue
			}
			if !expired {
				report.Skipped++
				continue
			}
			if err := s.aggregates.Delete(ctx, agg.TicketID); err != nil {
				s.logger.Error("failed to delete expired ticket",
					zap.String("ticket_id", agg.TicketID), zap.Error(err))
				report.Skipped++
				continue
			}
			report.Deleted++
			deletedThisPage++
		}

		if len(page) < sweepPageSize {
			break
		}
		// Deletions shrink the result set under the same offsets, so advance
		// only by what survived this page.
		offset += len(page) - deletedThisPage
	}

	s.metrics.SweepDeleted.Add(float64(report.Deleted))
	s.metrics.SweepSkipped.Add(float64(report.Skipped))
	s.logger.Info("retention sweep complete",
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("unparseable", report.Unparseable))
	return report, nil
}
