package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	assessmentmodels "verdant/internal/assessment/models"
	"verdant/internal/audit"
	certmetrics "verdant/internal/certificate/metrics"
	"verdant/internal/certificate/models"
	"verdant/internal/scoring"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Store is the certificate persistence contract. CreateIfAbsent must be
// atomic: concurrent first issuances for one user resolve to a single
// winner, and losers receive sentinel.ErrConflict.
type Store interface {
	FindByUserID(ctx context.Context, userID string) (*models.Certificate, error)
	CreateIfAbsent(ctx context.Context, cert *models.Certificate) error
	Execute(ctx context.Context, userID string,
		validate func(*models.Certificate) error,
		mutate func(*models.Certificate)) (*models.Certificate, error)
}

// ArtifactGenerator renders the certificate document and returns its URL.
type ArtifactGenerator interface {
	GenerateCertificateDocument(ctx context.Context, userID, grade string) (url string, err error)
}

// AssessmentReader loads the member's assessment for auto grading.
type AssessmentReader interface {
	Load(ctx context.Context, userID string) (*assessmentmodels.Assessment, error)
}

// Notifier announces issued certificates. Best-effort.
type Notifier interface {
	CertificateIssued(ctx context.Context, cert *models.Certificate)
}

// AuditTrail records issuance and revocation. Recording is asynchronous and
// never fails the operation.
type AuditTrail interface {
	Record(ctx context.Context, action, subject, detail string)
}

// Service coordinates certificate issuance and revocation.
//
// Issue does not consult the eligibility gate: administrators may issue at
// their discretion, and the payment-triggered path checks eligibility
// before calling in.
type Service struct {
	certs       Store
	generator   ArtifactGenerator
	assessments AssessmentReader
	engine      scoring.Engine
	letters     []scoring.Boundary
	notifier    Notifier
	audit       AuditTrail
	logger      *slog.Logger
	metrics     *certmetrics.Metrics
	tracer      trace.Tracer
	nano        func() int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *certmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAudit(a AuditTrail) Option {
	return func(s *Service) { s.audit = a }
}

// WithEngine swaps the auto-grading engine and boundaries.
func WithEngine(engine scoring.Engine, letters []scoring.Boundary) Option {
	return func(s *Service) {
		s.engine = engine
		s.letters = letters
	}
}

func New(certs Store, generator ArtifactGenerator, assessments AssessmentReader, opts ...Option) *Service {
	s := &Service{
		certs:       certs,
		generator:   generator,
		assessments: assessments,
		engine:      scoring.DefaultSimpleAggregate(),
		letters:     scoring.DefaultLetterBoundaries(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("verdant/certificate"),
		nano:        func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the member's certificate.
func (s *Service) Get(ctx context.Context, userID string) (*models.Certificate, error) {
	cert, err := s.certs.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
	}
	return cert, nil
}

// Issue issues or reissues the member's certificate. An existing issued
// certificate is returned unchanged unless regenerate is set. The document
// is rendered before anything is persisted, so a generator failure leaves
// no half-issued state behind.
func (s *Service) Issue(ctx context.Context, userID, grade string, regenerate bool) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue",
		trace.WithAttributes(
			attribute.String("certificate.user_id", userID),
			attribute.Bool("certificate.regenerate", regenerate),
		))
	defer span.End()

	existing, err := s.certs.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
	}
	if existing != nil && existing.Generated && !regenerate {
		return existing, nil
	}

	if grade == "" || grade == models.GradeAuto {
		if grade, err = s.autoGrade(ctx, userID); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.String("certificate.grade", grade))

	url, err := s.generator.GenerateCertificateDocument(ctx, userID, grade)
	if err != nil {
		s.incrementGenerationFailures()
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailed,
			"certificate document generation failed")
	}

	now := requestcontext.Now(ctx)
	number := models.NewNumber(userID, s.nano())

	var cert *models.Certificate
	switch {
	case existing == nil:
		cert = &models.Certificate{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
		cert.ApplyIssuance(number, grade, url, now)
		if err := s.certs.CreateIfAbsent(ctx, cert); err != nil {
			if !errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
			}
			// Lost a first-issuance race. The winner's certificate stands;
			// ours, artifact included, is abandoned.
			winner, findErr := s.certs.FindByUserID(ctx, userID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal,
					"failed to resolve certificate after conflict")
			}
			return winner, nil
		}
		s.incrementIssued()

	default:
		cert, err = s.certs.Execute(ctx, userID,
			func(*models.Certificate) error { return nil },
			func(c *models.Certificate) { c.ApplyIssuance(number, grade, url, now) },
		)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
		}
		if existing.Generated {
			s.incrementRegenerated()
		} else {
			s.incrementIssued()
		}
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"user_id", userID,
		"number", cert.Number,
		"grade", cert.Grade,
		"regenerate", regenerate,
	)

	if s.notifier != nil {
		s.notifier.CertificateIssued(ctx, cert)
	}
	action := audit.ActionCertificateIssued
	if regenerate {
		action = audit.ActionCertificateRegenerated
	}
	s.record(ctx, action, userID, "number "+cert.Number+" grade "+cert.Grade)
	return cert, nil
}

// Revoke clears the issuance fields. The rendered artifact is never deleted.
func (s *Service) Revoke(ctx context.Context, userID string) (*models.Certificate, error) {
	now := requestcontext.Now(ctx)
	cert, err := s.certs.Execute(ctx, userID,
		func(c *models.Certificate) error { return c.CanRevoke() },
		func(c *models.Certificate) { c.ApplyRevocation(now) },
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return nil, err
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
		}
	}

	s.logger.InfoContext(ctx, "certificate revoked", "user_id", userID)
	s.record(ctx, audit.ActionCertificateRevoked, userID, "")
	s.incrementRevoked()
	return cert, nil
}

func (s *Service) record(ctx context.Context, action, subject, detail string) {
	if s.audit != nil {
		s.audit.Record(ctx, action, subject, detail)
	}
}

func (s *Service) autoGrade(ctx context.Context, userID string) (string, error) {
	assessment, err := s.assessments.Load(ctx, userID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment for grading")
	}
	value := s.engine.Score(assessment.Answers)
	return scoring.Classify(value, s.letters), nil
}

func (s *Service) incrementIssued() {
	if s.metrics != nil {
		s.metrics.Issued.Inc()
	}
}

func (s *Service) incrementRegenerated() {
	if s.metrics != nil {
		s.metrics.Regenerated.Inc()
	}
}

func (s *Service) incrementRevoked() {
	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}
}

func (s *Service) incrementGenerationFailures() {
	if s.metrics != nil {
		s.metrics.GenerationFailures.Inc()
	}
}
