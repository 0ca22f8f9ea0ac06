package store

import (
	"context"
	"database/sql"
	"fmt"

	"verdant/internal/audit"
)

// Postgres persists the trail append-only in the audit_events table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, actor_role, action, subject, detail, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.ActorID, event.ActorRole, event.Action,
		event.Subject, event.Detail, event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_role, action, subject, detail, recorded_at
		FROM audit_events WHERE subject = $1
		ORDER BY recorded_at ASC`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action,
			&e.Subject, &e.Detail, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
