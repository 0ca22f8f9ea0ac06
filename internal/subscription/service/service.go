package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verdant/internal/subscription/models"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Store is the subscription persistence contract.
type Store interface {
	FindByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Service activates subscriptions and runs the expiry sweep.
type Service struct {
	subs          Store
	validityYears int
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithValidityYears overrides the default one-year subscription term.
func WithValidityYears(years int) Option {
	return func(s *Service) { s.validityYears = years }
}

func New(subs Store, opts ...Option) *Service {
	s := &Service{subs: subs, validityYears: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the member's subscription.
func (s *Service) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.subs.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subscription not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "subscription store failure")
	}
	return sub, nil
}

// Activate starts the member's subscription for the configured term,
// snapshotting the plan name and price at purchase time. An existing
// subscription is replaced in place, so a renewal extends from now rather
// than stacking terms.
func (s *Service) Activate(ctx context.Context, userID, plan string, price float64, currency string) (*models.Subscription, error) {
	now := requestcontext.Now(ctx)

	sub, err := s.subs.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		sub = &models.Subscription{
			ID:        uuid.NewString(),
			UserID:    userID,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "subscription store failure")
	}

	sub.PlanName = plan
	sub.Price = price
	sub.Currency = currency
	sub.Status = models.StatusActive
	sub.StartDate = now
	sub.EndDate = now.AddDate(s.validityYears, 0, 0)
	sub.UpdatedAt = now

	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription")
	}

	s.logger.InfoContext(ctx, "subscription activated",
		"user_id", userID,
		"plan", plan,
		"ends", sub.EndDate,
	)
	return sub, nil
}

// ExpireDue flips overdue active subscriptions to expired. Safe to run on
// any schedule and from multiple nodes at once.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	expired, err := s.subs.ExpireDue(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "expiry sweep failed")
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "expired overdue subscriptions", "count", expired)
	}
	return expired, nil
}
