package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"verdant/internal/identity"
	"verdant/pkg/platform/sentinel"
)

const accountColumns = `id, email, first_name, last_name, role, created_at`

// Postgres persists accounts in the accounts table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, acct *identity.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, lower($2), $3, $4, $5, $6)`,
		acct.ID, acct.Email, acct.FirstName, acct.LastName, string(acct.Role), acct.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*identity.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, addr string) (*identity.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, addr)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*identity.Account, error) {
	var acct identity.Account
	var role string
	err := row.Scan(&acct.ID, &acct.Email, &acct.FirstName, &acct.LastName, &role, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	acct.Role = identity.Role(role)
	return &acct, nil
}
