package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/solaracontrol/mission-control/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS telemetry_events (
	id               UUID PRIMARY KEY,
	event_type       TEXT NOT NULL,
	conversation_id  TEXT NOT NULL,
	visitor_id       TEXT,
	ticket_id        TEXT,
	occurred_at      TIMESTAMPTZ NOT NULL,
	category         TEXT,
	risk_level       TEXT,
	agent_routed_to  TEXT,
	response_time_ms BIGINT,
	confidence_score DOUBLE PRECISION,
	has_citations    BOOLEAN,
	outcome_status   TEXT
);
CREATE INDEX IF NOT EXISTS telemetry_events_conversation_idx ON telemetry_events (conversation_id, occurred_at);
`

const insertEvent = `
INSERT INTO telemetry_events (
	id, event_type, conversation_id, visitor_id, ticket_id, occurred_at, category,
	risk_level, agent_routed_to, response_time_ms, confidence_score, has_citations, outcome_status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`

// OpenPostgres opens a pooled connection to the telemetry database.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// PostgresSink persists events in the telemetry_events table.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a PostgreSQL telemetry sink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the events table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create telemetry schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Emit implements Emitter.
func (s *PostgresSink) Emit(ctx context.Context, e model.TelemetryEvent) error {
	_, err := s.db.ExecContext(ctx, insertEvent,
		e.ID,
		string(e.Type),
		e.ConversationID,
		nullString(e.VisitorID),
		nullString(e.TicketID),
		e.OccurredAt,
		nullString(e.Category),
		nullString(string(e.RiskLevel)),
		nullString(e.AgentRoutedTo),
		nullInt64(e.ResponseTimeMs),
		nullFloat64(e.Confidence),
		nullBool(e.HasCitations),
		nullString(e.OutcomeStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry event: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
