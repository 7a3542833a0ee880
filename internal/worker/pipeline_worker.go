package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/queue"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// EventProcessor drives normalization and aggregation for one queued envelope.
type EventProcessor interface {
	Process(ctx context.Context, env queue.Envelope) error
}

// PipelineWorker consumes validated events from the work queue and drives
// normalization plus aggregation. Delivery is at-least-once: a received
// envelope stays on the queue's processing list until acknowledged, transient
// storage failures put it back on the pending list, and terminal failures (no
// resolvable ticket id, undecodable message) are acknowledged and logged
// because redelivery cannot change the outcome.
type PipelineWorker struct {
	events       queue.Consumer
	processor    EventProcessor
	requeueDelay time.Duration
	logger       *zap.Logger
}

// NewPipelineWorker constructs the worker.
func NewPipelineWorker(events queue.Consumer, processor EventProcessor, cfg config.QueueConfig, logger *zap.Logger) *PipelineWorker {
	return &PipelineWorker{
		events:       events,
		processor:    processor,
		requeueDelay: cfg.RequeueDelay(),
		logger:       logger,
	}
}

// Run processes the queue until ctx is cancelled. Envelopes stranded on the
// processing list by a previous crash are put back in play first.
func (w *PipelineWorker) Run(ctx context.Context) {
	moved, err := w.events.Recover(ctx)
	if err != nil {
		w.logger.Error("queue recovery failed", zap.Error(err))
	} else if moved > 0 {
		w.logger.Info("recovered in-flight events", zap.Int("count", moved))
	}

	w.logger.Info("pipeline worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("pipeline worker stopped")
			return
		}
		env, err := w.events.Receive(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("queue receive failed", zap.Error(err))
			w.pause(ctx)
			continue
		}
		w.handle(ctx, *env)
	}
}

func (w *PipelineWorker) handle(ctx context.Context, env queue.Envelope) {
	err := w.processor.Process(ctx, env)
	if err == nil {
		w.ack(ctx, env)
		return
	}

	if apperrors.IsTransient(err) {
		w.logger.Warn("transient failure, requeueing",
			zap.String("notification_id", env.NotificationID), zap.Error(err))
		w.pause(ctx)
		if requeueErr := w.events.Requeue(ctx, env); requeueErr != nil {
			// The envelope is still on the processing list; the next startup
			// recovery puts it back in play.
			w.logger.Error("requeue failed, event held for recovery",
				zap.String("notification_id", env.NotificationID), zap.Error(requeueErr))
		}
		return
	}

	w.logger.Error("event discarded",
		zap.String("notification_id", env.NotificationID), zap.Error(err))
	w.ack(ctx, env)
}

func (w *PipelineWorker) ack(ctx context.Context, env queue.Envelope) {
	if err := w.events.Ack(ctx, env); err != nil {
		w.logger.Error("queue ack failed, event held for recovery",
			zap.String("notification_id", env.NotificationID), zap.Error(err))
	}
}

func (w *PipelineWorker) pause(ctx context.Context) {
	if w.requeueDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.requeueDelay):
	}
}
