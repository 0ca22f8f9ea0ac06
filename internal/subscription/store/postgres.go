package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"verdant/internal/subscription/models"
	"verdant/pkg/platform/sentinel"
)

// Postgres persists subscriptions, one row per user.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const subscriptionColumns = `id, user_id, plan_name, price, currency, status,
	start_date, end_date, created_at, updated_at`

func (s *Postgres) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)

	var (
		sub    models.Subscription
		status string
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.Price, &sub.Currency,
		&status, &sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Status = models.Status(status)
	return &sub, nil
}

func (s *Postgres) Upsert(ctx context.Context, sub *models.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_name = EXCLUDED.plan_name,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.UserID, sub.PlanName, sub.Price, sub.Currency, string(sub.Status),
		sub.StartDate, sub.EndDate, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// ExpireDue is a single idempotent statement, so concurrent sweeps cannot
// double-expire a row.
func (s *Postgres) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND end_date < $2`,
		string(models.StatusExpired), now, string(models.StatusActive),
	)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions rows affected: %w", err)
	}
	return int(n), nil
}
