package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/queue"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// fakeConsumer serves envelopes from a slice and cancels the run context once
// drained, so Run returns deterministically.
type fakeConsumer struct {
	pending   []queue.Envelope
	cancel    context.CancelFunc
	acked     []string
	requeued  []string
	recovered bool
}

func (c *fakeConsumer) Receive(_ context.Context) (*queue.Envelope, error) {
	if len(c.pending) == 0 {
		c.cancel()
		return nil, queue.ErrEmpty
	}
	env := c.pending[0]
	c.pending = c.pending[1:]
	return &env, nil
}

func (c *fakeConsumer) Ack(_ context.Context, env queue.Envelope) error {
	c.acked = append(c.acked, env.NotificationID)
	return nil
}

func (c *fakeConsumer) Requeue(_ context.Context, env queue.Envelope) error {
	c.requeued = append(c.requeued, env.NotificationID)
	c.pending = append(c.pending, env)
	return nil
}

func (c *fakeConsumer) Recover(_ context.Context) (int, error) {
	c.recovered = true
	return 0, nil
}

type fakeProcessor struct {
	errs []error
	seen []string
}

func (p *fakeProcessor) Process(_ context.Context, env queue.Envelope) error {
	p.seen = append(p.seen, env.NotificationID)
	if len(p.errs) == 0 {
		return nil
	}
	err := p.errs[0]
	p.errs = p.errs[1:]
	return err
}

func runWorker(t *testing.T, consumer *fakeConsumer, processor *fakeProcessor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.cancel = cancel

	w := NewPipelineWorker(consumer, processor, config.QueueConfig{}, zap.NewNop())
	w.Run(ctx)
}

func TestRunAcksProcessedEvents(t *testing.T) {
	consumer := &fakeConsumer{pending: []queue.Envelope{{NotificationID: "n-1"}}}
	processor := &fakeProcessor{}

	runWorker(t, consumer, processor)

	require.True(t, consumer.recovered)
	require.Equal(t, []string{"n-1"}, processor.seen)
	require.Equal(t, []string{"n-1"}, consumer.acked)
	require.Empty(t, consumer.requeued)
}

func TestRunRequeuesTransientFailureUntilProcessed(t *testing.T) {
	consumer := &fakeConsumer{pending: []queue.Envelope{{NotificationID: "n-1"}}}
	processor := &fakeProcessor{errs: []error{
		apperrors.NewTransientStorage("aggregate save", context.DeadlineExceeded),
	}}

	runWorker(t, consumer, processor)

	// First attempt fails transiently and goes back on the queue; the second
	// attempt lands and acknowledges.
	require.Equal(t, []string{"n-1", "n-1"}, processor.seen)
	require.Equal(t, []string{"n-1"}, consumer.requeued)
	require.Equal(t, []string{"n-1"}, consumer.acked)
}

func TestRunAcksTerminalFailures(t *testing.T) {
	consumer := &fakeConsumer{pending: []queue.Envelope{{NotificationID: "n-1"}}}
	processor := &fakeProcessor{errs: []error{
		apperrors.NewMissingRequiredField("ticket id"),
	}}

	runWorker(t, consumer, processor)

	// Redelivery cannot change the outcome, so the envelope is removed rather
	// than cycled forever.
	require.Equal(t, []string{"n-1"}, processor.seen)
	require.Empty(t, consumer.requeued)
	require.Equal(t, []string{"n-1"}, consumer.acked)
}
