package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/router"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "fedistream-events"

// Publisher is the subset of redis.UniversalClient used by Redis.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisOptions configure a Redis sink.
type RedisOptions struct {
	Client  Publisher
	Channel string
	Stream  string
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Redis publishes each event as a JSON Record.
type Redis struct {
	ctx     context.Context
	client  Publisher
	channel string
	stream  string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRedis creates a Redis sink. Publishes run under ctx.
func NewRedis(ctx context.Context, opts RedisOptions) *Redis {
	channel := opts.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		ctx:     ctx,
		client:  opts.Client,
		channel: channel,
		stream:  opts.Stream,
		timeout: timeout,
		metrics: opts.Metrics,
		logger:  logger.With("sink", "redis", "channel", channel),
	}
}

// Handle implements connection.Sink. Heartbeats are skipped.
func (r *Redis) Handle(ev router.Event) {
	if _, ok := ev.(router.Heartbeat); ok {
		return
	}

	rec, err := newRecord(uuid.NewString(), r.stream, ev, time.Now())
	if err != nil {
		r.fail("failed to encode event", err, ev)
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		r.fail("failed to encode event", err, ev)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.fail("redis publish failed", err, ev)
	}
}

func (r *Redis) fail(msg string, err error, ev router.Event) {
	r.logger.Error(msg, "error", err, "type", ev.Type(), "entity_id", router.EntityID(ev))
	r.metrics.SinkError("redis")
}
