package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/router"
)

// Schema creates the table written by the Postgres sink.
const Schema = `
CREATE TABLE IF NOT EXISTS stream_events (
	delivery_id UUID PRIMARY KEY,
	stream      TEXT        NOT NULL,
	event_type  TEXT        NOT NULL,
	entity_id   TEXT        NOT NULL,
	payload     JSONB       NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS stream_events_entity_idx ON stream_events (event_type, entity_id);
CREATE INDEX IF NOT EXISTS stream_events_received_idx ON stream_events (received_at);
`

// DefaultWriteTimeout bounds a single insert.
const DefaultWriteTimeout = 5 * time.Second

// execer is the subset of *pgxpool.Pool used by Postgres.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStats tracks insert outcomes.
type PostgresStats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
}

// Postgres inserts each event into stream_events as it arrives.
type Postgres struct {
	ctx     context.Context
	db      execer
	stream  string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	statsMu sync.Mutex
	stats   PostgresStats
}

// eventRow is one stream_events row.
type eventRow struct {
	DeliveryID string
	Stream     string
	EventType  string
	EntityID   string
	Payload    []byte
	ReceivedAt time.Time
}

// NewPostgres creates a Postgres sink. Inserts run under ctx, so cancelling
// it aborts in-flight writes on shutdown.
func NewPostgres(
	ctx context.Context,
	db *pgxpool.Pool,
	stream string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Postgres {
	p := newPostgres(ctx, nil, stream, m, logger)
	if db != nil {
		p.db = db
	}
	return p
}

func newPostgres(ctx context.Context, db execer, stream string, m *metrics.Metrics, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		ctx:     ctx,
		db:      db,
		stream:  stream,
		timeout: DefaultWriteTimeout,
		metrics: m,
		logger:  logger.With("sink", "postgres"),
	}
}

// Handle implements connection.Sink. Heartbeats are skipped.
func (p *Postgres) Handle(ev router.Event) {
	if _, ok := ev.(router.Heartbeat); ok {
		return
	}

	row, err := p.transform(ev, time.Now())
	if err != nil {
		p.fail("failed to encode event", err, ev)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	ct, err := p.db.Exec(ctx, `
		INSERT INTO stream_events (delivery_id, stream, event_type, entity_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (delivery_id) DO NOTHING
	`, row.DeliveryID, row.Stream, row.EventType, row.EntityID, row.Payload, row.ReceivedAt)
	if err != nil {
		p.fail("insert failed", err, ev)
		return
	}

	p.statsMu.Lock()
	if ct.RowsAffected() == 0 {
		p.stats.Conflicts++
	} else {
		p.stats.Inserts++
	}
	p.statsMu.Unlock()
}

// Stats returns current insert counts.
func (p *Postgres) Stats() PostgresStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// transform converts an event to an eventRow.
func (p *Postgres) transform(ev router.Event, receivedAt time.Time) (eventRow, error) {
	payload, err := encodePayload(ev)
	if err != nil {
		return eventRow{}, err
	}
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return eventRow{
		DeliveryID: uuid.NewString(),
		Stream:     p.stream,
		EventType:  string(ev.Type()),
		EntityID:   router.EntityID(ev),
		Payload:    payload,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}

func (p *Postgres) fail(msg string, err error, ev router.Event) {
	p.logger.Error(msg, "error", err, "type", ev.Type(), "entity_id", router.EntityID(ev))
	p.metrics.SinkError("postgres")

	p.statsMu.Lock()
	p.stats.Errors++
	p.statsMu.Unlock()
}
