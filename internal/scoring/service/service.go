// Package service records scoring runs over submitted answer sets.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"verdant/internal/scoring"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Store is the append-only score persistence contract.
type Store interface {
	Append(ctx context.Context, score scoring.Score) error
	LatestByUserID(ctx context.Context, userID string) (*scoring.Score, error)
}

// Service runs the configured engine over answers and records the result.
type Service struct {
	scores  Store
	engine  scoring.Engine
	method  string
	letters []scoring.Boundary
	badges  []scoring.Boundary
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEngine swaps the default simple aggregate engine. The method name is
// recorded on every score row the engine produces.
func WithEngine(engine scoring.Engine, method string) Option {
	return func(s *Service) {
		s.engine = engine
		s.method = method
	}
}

func New(scores Store, opts ...Option) *Service {
	s := &Service{
		scores:  scores,
		engine:  scoring.DefaultSimpleAggregate(),
		method:  scoring.MethodSimpleAggregate,
		letters: scoring.DefaultLetterBoundaries(),
		badges:  scoring.DefaultBadgeBoundaries(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreSubmission scores the answers, classifies the letter grade and
// completeness badge, and appends the row.
func (s *Service) ScoreSubmission(ctx context.Context, userID string, answers map[string]string) error {
	value := s.engine.Score(answers)
	row := scoring.Score{
		ID:       uuid.NewString(),
		UserID:   userID,
		Value:    value,
		Grade:    scoring.Classify(value, s.letters),
		Badge:    scoring.Classify(scoring.AnsweredPercentage(answers), s.badges),
		Method:   s.method,
		ScoredAt: requestcontext.Now(ctx),
	}

	if err := s.scores.Append(ctx, row); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record score")
	}

	s.logger.InfoContext(ctx, "scored assessment",
		"user_id", userID,
		"score", row.Value,
		"grade", row.Grade,
		"badge", row.Badge,
	)
	return nil
}

// Latest returns the authoritative score row for the user.
func (s *Service) Latest(ctx context.Context, userID string) (*scoring.Score, error) {
	row, err := s.scores.LatestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no score recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "score store failure")
	}
	return row, nil
}
