package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"verdant/internal/registration/models"
	"verdant/pkg/platform/sentinel"
)

// Postgres persists registrations. Email uniqueness rides on the table's
// unique index; Execute takes a row lock so a guard check and the transition
// it protects are atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const registrationColumns = `id, company, contact_name, email, password_hash, status,
	manager_notes, rejection_reason, user_id, assessment_notified_at, created_at, updated_at`

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, reg *models.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.Company, reg.ContactName, strings.ToLower(reg.Email), reg.PasswordHash,
		string(reg.Status), reg.ManagerNotes, reg.RejectionReason,
		nullString(reg.UserID), nullTime(reg.AssessmentNotifiedAt), reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	return scanRegistration(row)
}

func (s *Postgres) FindByUserID(ctx context.Context, userID string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1`, userID)
	return scanRegistration(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE email = $1`,
		strings.ToLower(email))
	return scanRegistration(row)
}

// Execute locks the row, runs validate then mutate, and writes the result
// back, all within one transaction.
func (s *Postgres) Execute(
	ctx context.Context,
	id string,
	validate func(*models.Registration) error,
	mutate func(*models.Registration),
) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, err
	}

	if err := validate(reg); err != nil {
		return nil, err
	}
	mutate(reg)

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = $2, manager_notes = $3, rejection_reason = $4,
		    user_id = $5, assessment_notified_at = $6, updated_at = $7
		WHERE id = $1`,
		reg.ID, string(reg.Status), reg.ManagerNotes, reg.RejectionReason,
		nullString(reg.UserID), nullTime(reg.AssessmentNotifiedAt), reg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration tx: %w", err)
	}
	return reg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg        models.Registration
		status     string
		userID     sql.NullString
		notifiedAt sql.NullTime
	)
	err := row.Scan(
		&reg.ID, &reg.Company, &reg.ContactName, &reg.Email, &reg.PasswordHash, &status,
		&reg.ManagerNotes, &reg.RejectionReason, &userID, &notifiedAt,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.Status = models.Status(status)
	if userID.Valid {
		reg.UserID = userID.String
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		reg.AssessmentNotifiedAt = &t
	}
	return &reg, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
