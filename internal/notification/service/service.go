package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"verdant/internal/notification/models"
	platformredis "verdant/internal/platform/redis"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

const unreadCacheTTL = time.Minute

// Store is the notification persistence contract.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUserID(ctx context.Context, userID string) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Service manages in-app notifications. The unread count rides a short
// redis cache when redis is configured; the store is always authoritative.
type Service struct {
	notifications Store
	cache         *platformredis.Client
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCache enables the unread-count cache. A nil client disables it.
func WithCache(cache *platformredis.Client) Option {
	return func(s *Service) { s.cache = cache }
}

func New(notifications Store, opts ...Option) *Service {
	s := &Service{notifications: notifications, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInApp records a notification for the member.
func (s *Service) CreateInApp(ctx context.Context, userID, title, message string, ntype models.Type, link string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      ntype,
		Link:      link,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}
	s.invalidateUnread(ctx, userID)
	return n, nil
}

// List returns the member's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	out, err := s.notifications.ListByUserID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "notification store failure")
	}
	return out, nil
}

// UnreadCount returns the member's unread total, from cache when possible.
// Cache failures fall through to the store.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.unreadKey(userID)).Result(); err == nil {
			if count, convErr := strconv.Atoi(cached); convErr == nil {
				return count, nil
			}
		}
	}

	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "notification store failure")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.unreadKey(userID), strconv.Itoa(count), unreadCacheTTL).Err(); err != nil {
			s.logger.WarnContext(ctx, "failed to cache unread count", "error", err)
		}
	}
	return count, nil
}

// MarkRead flips one notification to read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.notifications.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "notification store failure")
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.unreadKey(userID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate unread count", "error", err)
	}
}

func (s *Service) unreadKey(userID string) string {
	return fmt.Sprintf("verdant:notifications:unread:%s", userID)
}
