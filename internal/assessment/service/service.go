package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	assessmentmetrics "verdant/internal/assessment/metrics"
	"verdant/internal/assessment/models"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Store is the persistence contract for assessments. Execute creates the
// row on first write and holds a lock across validate and mutate.
type Store interface {
	FindByUserID(ctx context.Context, userID string) (*models.Assessment, error)
	Execute(ctx context.Context, userID string,
		init func() *models.Assessment,
		validate func(*models.Assessment) error,
		mutate func(*models.Assessment)) (*models.Assessment, error)
}

// RegistrationDirectory resolves a member account to its approved
// registration. Accounts without an approved registration are denied intake.
type RegistrationDirectory interface {
	ApprovedRegistrationID(ctx context.Context, userID string) (string, error)
}

// DocumentGenerator renders the submitted questionnaire into a document and
// returns its URL.
type DocumentGenerator interface {
	GenerateAssessmentDocument(ctx context.Context, registrationID string) (url string, err error)
}

// Scorer scores a submitted answer set. Wired when synchronous scoring on
// submit is configured.
type Scorer interface {
	ScoreSubmission(ctx context.Context, userID string, answers map[string]string) error
}

// Service owns questionnaire intake: draft saves, progress tracking, and
// submission.
type Service struct {
	assessments Store
	directory   RegistrationDirectory
	generator   DocumentGenerator
	scorer      Scorer
	logger      *slog.Logger
	metrics     *assessmentmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *assessmentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDocumentGenerator enables document rendering on submit.
func WithDocumentGenerator(g DocumentGenerator) Option {
	return func(s *Service) { s.generator = g }
}

// WithScorer enables synchronous scoring on submit.
func WithScorer(sc Scorer) Option {
	return func(s *Service) { s.scorer = sc }
}

func New(assessments Store, directory RegistrationDirectory, opts ...Option) *Service {
	s := &Service{
		assessments: assessments,
		directory:   directory,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the member's assessment, or a well-formed empty one when the
// member has never saved. Absence is a normal state, not an error.
func (s *Service) Load(ctx context.Context, userID string) (*models.Assessment, error) {
	a, err := s.assessments.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.New("", userID, requestcontext.Now(ctx)), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assessment store failure")
	}
	return a, nil
}

// Save merges partial answers into the member's draft and advances progress.
// The first save creates the assessment.
func (s *Service) Save(ctx context.Context, userID string, step int, partial map[string]string) (*models.Assessment, error) {
	if step < 1 || step > models.MaxStep {
		return nil, dErrors.New(dErrors.CodeValidation, "step is out of range")
	}
	if _, err := s.directory.ApprovedRegistrationID(ctx, userID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	a, err := s.assessments.Execute(ctx, userID,
		func() *models.Assessment { return models.New(uuid.NewString(), userID, now) },
		func(a *models.Assessment) error { return a.CanSave() },
		func(a *models.Assessment) { a.ApplySave(step, partial, now) },
	)
	if err != nil {
		return nil, wrapAssessmentErr(err)
	}

	s.incrementSaves()
	return a, nil
}

// Submit marks the assessment complete, then renders the submission document
// and triggers scoring when those collaborators are wired. Submitting an
// already-completed assessment refreshes the submission timestamp but skips
// the document and scoring side effects. Document and scoring failures are
// logged and do not unwind the submission.
func (s *Service) Submit(ctx context.Context, userID string) (*models.Assessment, error) {
	regID, err := s.directory.ApprovedRegistrationID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, findErr := s.assessments.FindByUserID(ctx, userID); findErr == nil && existing.Completed() {
		restamped, execErr := s.assessments.Execute(ctx, userID,
			func() *models.Assessment { return existing },
			func(a *models.Assessment) error { return nil },
			func(a *models.Assessment) { a.ApplySubmit(requestcontext.Now(ctx)) },
		)
		if execErr != nil {
			return nil, wrapAssessmentErr(execErr)
		}
		return restamped, nil
	}

	now := requestcontext.Now(ctx)
	a, err := s.assessments.Execute(ctx, userID,
		func() *models.Assessment { return models.New(uuid.NewString(), userID, now) },
		func(a *models.Assessment) error { return nil },
		func(a *models.Assessment) {
			if !a.Completed() {
				a.ApplySubmit(now)
			}
		},
	)
	if err != nil {
		return nil, wrapAssessmentErr(err)
	}

	s.incrementSubmissions()

	if s.generator != nil {
		url, genErr := s.generator.GenerateAssessmentDocument(ctx, regID)
		if genErr != nil {
			s.logger.ErrorContext(ctx, "assessment document generation failed",
				"user_id", userID, "error", genErr)
		} else {
			a, err = s.assessments.Execute(ctx, userID,
				func() *models.Assessment { return a },
				func(*models.Assessment) error { return nil },
				func(a *models.Assessment) { a.DocumentURL = url },
			)
			if err != nil {
				return nil, wrapAssessmentErr(err)
			}
		}
	}

	if s.scorer != nil {
		if scoreErr := s.scorer.ScoreSubmission(ctx, userID, a.Answers); scoreErr != nil {
			s.logger.ErrorContext(ctx, "synchronous scoring failed",
				"user_id", userID, "error", scoreErr)
		}
	}

	return a, nil
}

func wrapAssessmentErr(err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "assessment store failure")
	}
}

func (s *Service) incrementSaves() {
	if s.metrics != nil {
		s.metrics.Saves.Inc()
	}
}

func (s *Service) incrementSubmissions() {
	if s.metrics != nil {
		s.metrics.Submissions.Inc()
	}
}
