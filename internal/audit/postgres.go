package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// createTableSQL matches the audit_events(id, ts, kind, workspace_id,
// payload jsonb) shape; PostgresWriter does not run migrations beyond this
// one idempotent statement.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           TEXT PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	kind         TEXT NOT NULL,
	workspace_id TEXT NOT NULL DEFAULT '',
	payload      JSONB NOT NULL DEFAULT '{}'::jsonb
)`

const insertSQL = `INSERT INTO audit_events (id, ts, kind, workspace_id, payload) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// PostgresWriter persists audit events to a Postgres table via database/sql
// and lib/pq. It is the optional writer referenced by Config.PostgresDSN;
// absence of a DSN means callers never construct one and Logger falls back
// to the structured log alone.
type PostgresWriter struct {
	db *sql.DB
}

// OpenPostgresWriter connects to dsn and ensures the audit_events table
// exists.
func OpenPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure audit_events table: %w", err)
	}
	return &PostgresWriter{db: db}, nil
}

// Write inserts event as one audit_events row.
func (w *PostgresWriter) Write(ctx context.Context, event *Event) error {
	payload := event.Payload
	if payload == nil {
		payload = []byte("{}")
	}
	_, err := w.db.ExecContext(ctx, insertSQL, event.ID, event.Timestamp, string(event.Kind), event.WorkspaceID, payload)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (w *PostgresWriter) Close() error {
	return w.db.Close()
}
