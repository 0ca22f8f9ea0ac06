package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"verdant/internal/scoring"
	"verdant/pkg/platform/sentinel"
)

// Postgres persists score rows append-only in the scores table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, score scoring.Score) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (id, user_id, value, grade, badge, method, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		score.ID, score.UserID, score.Value, score.Grade, score.Badge,
		score.Method, score.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *Postgres) LatestByUserID(ctx context.Context, userID string) (*scoring.Score, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, value, grade, badge, method, scored_at
		FROM scores WHERE user_id = $1
		ORDER BY scored_at DESC LIMIT 1`, userID)

	var score scoring.Score
	err := row.Scan(&score.ID, &score.UserID, &score.Value, &score.Grade,
		&score.Badge, &score.Method, &score.ScoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan score: %w", err)
	}
	return &score, nil
}
