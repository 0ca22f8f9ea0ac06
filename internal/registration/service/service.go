package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"verdant/internal/audit"
	"verdant/internal/identity"
	regmetrics "verdant/internal/registration/metrics"
	"verdant/internal/registration/models"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Store is the persistence contract the service needs. The Execute callback
// holds the store's lock (mutex or FOR UPDATE) across validation and
// mutation, so a guard check and the transition it protects are atomic.
type Store interface {
	CreateIfEmailAvailable(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByEmail(ctx context.Context, email string) (*models.Registration, error)
	FindByUserID(ctx context.Context, userID string) (*models.Registration, error)
	Execute(ctx context.Context, id string,
		validate func(*models.Registration) error,
		mutate func(*models.Registration)) (*models.Registration, error)
}

// AccountProvisioner creates the member account backing an approved
// registration. Implementations must be idempotent by email.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, reg *models.Registration) (userID string, err error)
}

// Notifier dispatches review-pipeline notifications. Implementations are
// best-effort: they log failures and never return them, because notification
// transport is not a consistency boundary for the review pipeline.
type Notifier interface {
	RegistrationRecommended(ctx context.Context, reg *models.Registration)
	RegistrationRejected(ctx context.Context, reg *models.Registration)
	RegistrationApproved(ctx context.Context, reg *models.Registration)
	AssessmentInvited(ctx context.Context, reg *models.Registration)
}

// AuditTrail records privileged review actions. Recording is asynchronous
// and must never block or fail the transition.
type AuditTrail interface {
	Record(ctx context.Context, action, subject, detail string)
}

// Service orchestrates the registration review state machine.
type Service struct {
	regs     Store
	accounts AccountProvisioner
	notifier Notifier
	audit    AuditTrail
	logger   *slog.Logger
	metrics  *regmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(a AuditTrail) Option {
	return func(s *Service) { s.audit = a }
}

// New constructs a Service.
func New(regs Store, accounts AccountProvisioner, opts ...Option) *Service {
	s := &Service{regs: regs, accounts: accounts, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupParams carries the public signup form input.
type SignupParams struct {
	Company     string
	ContactName string
	Email       string
	Password    string
}

// Signup creates a registration in the initial review state.
func (s *Service) Signup(ctx context.Context, p SignupParams) (*models.Registration, error) {
	if len(p.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	reg, err := models.NewRegistration(models.NewRegistrationParams{
		ID:           uuid.NewString(),
		Company:      p.Company,
		ContactName:  p.ContactName,
		Email:        p.Email,
		PasswordHash: string(hash),
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.regs.CreateIfEmailAvailable(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	s.incrementCreated()
	return reg, nil
}

// Get returns a registration by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.regs.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}
	return reg, nil
}

// GetByEmail returns a registration by contact email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.Registration, error) {
	reg, err := s.regs.FindByEmail(ctx, email)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}
	return reg, nil
}

// GetByUserID returns the registration backing a member account.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*models.Registration, error) {
	reg, err := s.regs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}
	return reg, nil
}

// ApprovedRegistrationID resolves a member's registration and confirms it
// has passed review. Downstream modules use this as their access gate.
func (s *Service) ApprovedRegistrationID(ctx context.Context, userID string) (string, error) {
	reg, err := s.regs.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeForbidden, "no registration for this account")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "registration store failure")
	}
	if reg.Status != models.StatusApproved {
		return "", dErrors.New(dErrors.CodeForbidden, "registration is not approved")
	}
	return reg.ID, nil
}

// Recommend moves a registration from manager review to admin approval,
// persisting the manager's notes and notifying administrators.
func (s *Service) Recommend(ctx context.Context, id, notes string) (*models.Registration, error) {
	if err := requireCapability(ctx, identity.PermRecommendRegistration); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.regs.Execute(ctx, id,
		func(r *models.Registration) error { return r.CanRecommend() },
		func(r *models.Registration) { r.ApplyRecommendation(notes, now) },
	)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}

	if s.notifier != nil {
		s.notifier.RegistrationRecommended(ctx, reg)
	}
	s.record(ctx, audit.ActionRegistrationRecommended, reg.ID, notes)
	s.incrementRecommended()
	return reg, nil
}

// Reject moves a registration to the terminal rejected state from either
// review stage, persisting the reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (*models.Registration, error) {
	if err := requireCapability(ctx, identity.PermRejectRegistration); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}

	now := requestcontext.Now(ctx)
	reg, err := s.regs.Execute(ctx, id,
		func(r *models.Registration) error { return r.CanReject() },
		func(r *models.Registration) { r.ApplyRejection(reason, now) },
	)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}

	if s.notifier != nil {
		s.notifier.RegistrationRejected(ctx, reg)
	}
	s.record(ctx, audit.ActionRegistrationRejected, reg.ID, reason)
	s.incrementRejected()
	return reg, nil
}

// Approve grants final approval. The member account is provisioned before
// the transition so a provisioning failure leaves the registration
// untouched and the call cleanly retryable. The one-time assessment
// invitation is claimed inside the same store mutation as the transition,
// so repeated approval calls can never double-send it.
func (s *Service) Approve(ctx context.Context, id string) (*models.Registration, error) {
	if err := requireCapability(ctx, identity.PermApproveRegistration); err != nil {
		return nil, err
	}

	current, err := s.regs.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}
	if err := current.CanApprove(); err != nil {
		return nil, err
	}

	userID, err := s.accounts.EnsureAccount(ctx, current)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision member account")
	}

	now := requestcontext.Now(ctx)
	var invite, bypass bool
	reg, err := s.regs.Execute(ctx, id,
		func(r *models.Registration) error { return r.CanApprove() },
		func(r *models.Registration) {
			bypass = r.Status == models.StatusPendingManagerReview
			r.UserID = userID
			invite = r.ApplyApproval(now)
		},
	)
	if err != nil {
		return nil, wrapRegistrationErr(err)
	}

	if bypass {
		s.logger.WarnContext(ctx, "registration approved directly from manager review",
			"registration_id", reg.ID,
			"actor_id", requestcontext.UserID(ctx),
		)
		s.incrementBypass()
		s.record(ctx, audit.ActionApprovalBypassed, reg.ID, "approved without manager recommendation")
	}

	if s.notifier != nil {
		s.notifier.RegistrationApproved(ctx, reg)
		if invite {
			s.notifier.AssessmentInvited(ctx, reg)
		}
	}
	s.record(ctx, audit.ActionRegistrationApproved, reg.ID, "")
	s.incrementApproved()
	return reg, nil
}

// requireCapability is the single role guard every transition consults.
// Unauthenticated callers and callers whose role lacks the capability both
// fail before any state is touched.
func requireCapability(ctx context.Context, perm identity.Permission) error {
	role := identity.Role(requestcontext.Role(ctx))
	if role == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is not established")
	}
	if !identity.PermissionsFor(role).Has(perm) {
		return dErrors.New(dErrors.CodeForbidden, "role "+string(role)+" may not "+string(perm))
	}
	return nil
}

func (s *Service) record(ctx context.Context, action, subject, detail string) {
	if s.audit != nil {
		s.audit.Record(ctx, action, subject, detail)
	}
}

func wrapRegistrationErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registration store failure")
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
}

func (s *Service) incrementRecommended() {
	if s.metrics != nil {
		s.metrics.Recommended.Inc()
	}
}

func (s *Service) incrementApproved() {
	if s.metrics != nil {
		s.metrics.Approved.Inc()
	}
}

func (s *Service) incrementRejected() {
	if s.metrics != nil {
		s.metrics.Rejected.Inc()
	}
}

func (s *Service) incrementBypass() {
	if s.metrics != nil {
		s.metrics.BypassApprovals.Inc()
	}
}
