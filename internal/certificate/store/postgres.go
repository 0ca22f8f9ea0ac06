package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"verdant/internal/certificate/models"
	"verdant/pkg/platform/sentinel"
)

// Postgres persists certificates, one row per user. The unique index on
// user_id backs CreateIfAbsent.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const certificateColumns = `id, user_id, number, grade, url, generated,
	issued_at, created_at, updated_at`

func (s *Postgres) FindByUserID(ctx context.Context, userID string) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1`, userID)
	return scanCertificate(row)
}

func (s *Postgres) CreateIfAbsent(ctx context.Context, cert *models.Certificate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cert.ID, cert.UserID, cert.Number, cert.Grade, cert.URL, cert.Generated,
		nullTime(cert.IssuedAt), cert.CreatedAt, cert.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// Execute locks the user's row, runs validate then mutate, and writes the
// result back within one transaction.
func (s *Postgres) Execute(
	ctx context.Context,
	userID string,
	validate func(*models.Certificate) error,
	mutate func(*models.Certificate),
) (*models.Certificate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin certificate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 FOR UPDATE`, userID)
	cert, err := scanCertificate(row)
	if err != nil {
		return nil, err
	}

	if err := validate(cert); err != nil {
		return nil, err
	}
	mutate(cert)

	_, err = tx.ExecContext(ctx, `
		UPDATE certificates
		SET number = $2, grade = $3, url = $4, generated = $5,
		    issued_at = $6, updated_at = $7
		WHERE user_id = $1`,
		cert.UserID, cert.Number, cert.Grade, cert.URL, cert.Generated,
		nullTime(cert.IssuedAt), cert.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit certificate tx: %w", err)
	}
	return cert, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		cert     models.Certificate
		issuedAt sql.NullTime
	)
	err := row.Scan(
		&cert.ID, &cert.UserID, &cert.Number, &cert.Grade, &cert.URL, &cert.Generated,
		&issuedAt, &cert.CreatedAt, &cert.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	if issuedAt.Valid {
		t := issuedAt.Time
		cert.IssuedAt = &t
	}
	return &cert, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
