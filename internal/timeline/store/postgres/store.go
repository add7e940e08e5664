// Package postgres is the durable timeline store. The full event is kept
// as a JSONB payload with the query columns lifted out, so the persisted
// shape stays exactly the event shape.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trrhub/internal/timeline"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an event. Events are immutable; there is no update path.
func (s *Store) Append(ctx context.Context, event timeline.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal timeline event: %w", err)
	}

	query := `
		INSERT INTO timeline_events (
			event_id, user_id, object_type, object_id, ts,
			source, action, severity, ttl_days, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.EventID,
		event.UserID,
		event.Object.Type,
		event.Object.ID,
		event.TS,
		string(event.Source),
		string(event.Action),
		string(event.Severity),
		event.TTLDays,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]timeline.Event, error) {
	query := `
		SELECT payload FROM timeline_events
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	return s.list(ctx, query, userID, normalizeLimit(limit))
}

func (s *Store) ListByObject(ctx context.Context, objectType, objectID string, limit int) ([]timeline.Event, error) {
	query := `
		SELECT payload FROM timeline_events
		WHERE object_type = $1 AND object_id = $2
		ORDER BY ts DESC
		LIMIT $3
	`
	return s.list(ctx, query, objectType, objectID, normalizeLimit(limit))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]timeline.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query timeline events: %w", err)
	}
	defer rows.Close()

	var events []timeline.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		var event timeline.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal timeline event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

const defaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// Schema is the DDL the store expects, applied by deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS timeline_events (
	event_id    TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	object_type TEXT NOT NULL,
	object_id   TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	source      TEXT NOT NULL,
	action      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	ttl_days    INTEGER NOT NULL,
	payload     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS timeline_events_user_ts ON timeline_events (user_id, ts DESC);
CREATE INDEX IF NOT EXISTS timeline_events_object_ts ON timeline_events (object_type, object_id, ts DESC);
`
