package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/persistence"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// Envelope is the message carried between the webhook stage and the
// normalization/aggregation stage. It holds the validated raw payload plus the
// intake metadata the downstream stages need.
type Envelope struct {
	NotificationID string    `json:"notification_id"`
	RawRef         string    `json:"raw_ref"`
	ReceivedAt     time.Time `json:"received_at"`
	Body           []byte    `json:"body"`

	// raw is the wire form the envelope was received as; it identifies the
	// in-flight entry on the processing list.
	raw []byte
}

// Publisher enqueues validated events for downstream processing.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Consumer pops events with at-least-once delivery: a received envelope stays
// on a processing list until acknowledged, so a crash mid-flight redelivers
// after Recover instead of losing the event.
type Consumer interface {
	Receive(ctx context.Context) (*Envelope, error)
	Ack(ctx context.Context, env Envelope) error
	Requeue(ctx context.Context, env Envelope) error
	Recover(ctx context.Context) (int, error)
}

// ErrEmpty signals that no message was available within the poll timeout.
var ErrEmpty = errors.New("queue empty")

// RedisQueue implements the work queue over a redis list pair: the pending
// list plus a processing list holding envelopes between Receive and Ack.
type RedisQueue struct {
	client        *redis.Client
	key           string
	processingKey string
	pollTimeout   time.Duration
}

// NewRedisQueue binds a queue to the configured list key.
func NewRedisQueue(r *persistence.Redis, cfg config.QueueConfig) *RedisQueue {
	return &RedisQueue{
		client:        r.Client,
		key:           cfg.Name,
		processingKey: cfg.Name + ":processing",
		pollTimeout:   cfg.PollTimeout(),
	}
}

// Publish pushes one envelope onto the pending list.
func (q *RedisQueue) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return apperrors.NewTransientStorage("queue publish", err)
	}
	return nil
}

// Receive blocks up to the poll timeout for one envelope, moving it onto the
// processing list atomically. Returns ErrEmpty when the timeout elapses with
// nothing to do. An undecodable entry is removed so it cannot wedge the queue.
func (q *RedisQueue) Receive(ctx context.Context) (*Envelope, error) {
	res, err := q.client.BLMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT", q.pollTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, apperrors.NewTransientStorage("queue receive", err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res), &env); err != nil {
		_ = q.client.LRem(ctx, q.processingKey, 1, res).Err()
		return nil, apperrors.NewMalformedPayload("undecodable queue message", nil)
	}
	env.raw = []byte(res)
	return &env, nil
}

// Ack removes a fully handled envelope from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, env Envelope) error {
	raw := env.raw
	if raw == nil {
		payload, err := json.Marshal(env)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		raw = payload
	}
	if err := q.client.LRem(ctx, q.processingKey, 1, raw).Err(); err != nil {
		return apperrors.NewTransientStorage("queue ack", err)
	}
	return nil
}

// Requeue returns a transiently failed envelope to the pending list. If the
// processing-list removal fails the entry is left there and picked up by the
// next Recover, so the envelope is never dropped.
func (q *RedisQueue) Requeue(ctx context.Context, env Envelope) error {
	if err := q.Ack(ctx, env); err != nil {
		return err
	}
	return q.Publish(ctx, env)
}

// Recover drains the processing list back onto the pending list. Run it at
// worker startup: anything left there belongs to a consumer that died between
// Receive and Ack.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey, q.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, apperrors.NewTransientStorage("queue recover", err)
		}
		moved++
	}
}
