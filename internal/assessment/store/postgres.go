package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"verdant/internal/assessment/models"
	"verdant/pkg/platform/sentinel"
)

// Postgres persists assessments, one row per user, answers stored as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const assessmentColumns = `id, user_id, answers, progress, submitted_at,
	document_url, created_at, updated_at`

func (s *Postgres) FindByUserID(ctx context.Context, userID string) (*models.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assessmentColumns+` FROM assessments WHERE user_id = $1`, userID)
	return scanAssessment(row)
}

// Execute locks the user's row for the duration of validate and mutate,
// inserting a fresh row first when the user has never saved. The insert uses
// ON CONFLICT DO NOTHING so two first-save racers converge on one row, then
// both proceed through the row lock.
func (s *Postgres) Execute(
	ctx context.Context,
	userID string,
	init func() *models.Assessment,
	validate func(*models.Assessment) error,
	mutate func(*models.Assessment),
) (*models.Assessment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assessment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+assessmentColumns+` FROM assessments WHERE user_id = $1 FOR UPDATE`, userID)
	a, err := scanAssessment(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		a = init()
		if err := insertAssessment(ctx, tx, a); err != nil {
			return nil, err
		}
		row = tx.QueryRowContext(ctx, `
			SELECT `+assessmentColumns+` FROM assessments WHERE user_id = $1 FOR UPDATE`, userID)
		if a, err = scanAssessment(row); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE assessments
		SET answers = $2, progress = $3, submitted_at = $4,
		    document_url = $5, updated_at = $6
		WHERE user_id = $1`,
		a.UserID, answers, a.Progress, nullTime(a.SubmittedAt),
		a.DocumentURL, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assessment tx: %w", err)
	}
	return a, nil
}

func insertAssessment(ctx context.Context, tx *sql.Tx, a *models.Assessment) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assessments (`+assessmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING`,
		a.ID, a.UserID, answers, a.Progress, nullTime(a.SubmittedAt),
		a.DocumentURL, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*models.Assessment, error) {
	var (
		a           models.Assessment
		answers     []byte
		submittedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.UserID, &answers, &a.Progress, &submittedAt,
		&a.DocumentURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assessment: %w", err)
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		a.SubmittedAt = &t
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
