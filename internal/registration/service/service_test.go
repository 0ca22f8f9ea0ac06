package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"verdant/internal/audit"
	"verdant/internal/registration/models"
	"verdant/internal/registration/service"
	"verdant/internal/registration/store"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/requestcontext"
)

type stubProvisioner struct {
	userID string
	err    error
	calls  int
}

func (p *stubProvisioner) EnsureAccount(_ context.Context, _ *models.Registration) (string, error) {
	p.calls++
	return p.userID, p.err
}

type recordingNotifier struct {
	recommended int
	rejected    int
	approved    int
	invited     int
}

func (n *recordingNotifier) RegistrationRecommended(context.Context, *models.Registration) {
	n.recommended++
}
func (n *recordingNotifier) RegistrationRejected(context.Context, *models.Registration) {
	n.rejected++
}
func (n *recordingNotifier) RegistrationApproved(context.Context, *models.Registration) {
	n.approved++
}
func (n *recordingNotifier) AssessmentInvited(context.Context, *models.Registration) {
	n.invited++
}

type recordedAction struct {
	action  string
	subject string
	detail  string
}

type recordingTrail struct {
	actions []recordedAction
}

func (t *recordingTrail) Record(_ context.Context, action, subject, detail string) {
	t.actions = append(t.actions, recordedAction{action, subject, detail})
}

func (t *recordingTrail) has(action string) bool {
	for _, a := range t.actions {
		if a.action == action {
			return true
		}
	}
	return false
}

type ServiceSuite struct {
	suite.Suite

	regs        *store.InMemory
	provisioner *stubProvisioner
	notifier    *recordingNotifier
	trail       *recordingTrail
	svc         *service.Service
	now         time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.regs = store.NewInMemory()
	s.provisioner = &stubProvisioner{userID: "user-1"}
	s.notifier = &recordingNotifier{}
	s.trail = &recordingTrail{}
	s.svc = service.New(s.regs, s.provisioner,
		service.WithNotifier(s.notifier),
		service.WithAudit(s.trail),
	)
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

// SetupSubTest gives every s.Run block a fresh store, so each can sign up
// the same contact without tripping the email uniqueness rule.
func (s *ServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ServiceSuite) ctxAs(role string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithUserID(ctx, "actor-1")
	return requestcontext.WithRole(ctx, role)
}

func (s *ServiceSuite) signup() *models.Registration {
	reg, err := s.svc.Signup(s.ctxAs(""), service.SignupParams{
		Company:     "Greenfield Logistics",
		ContactName: "Dana Osei",
		Email:       "dana@greenfield.example",
		Password:    "correct-horse",
	})
	s.Require().NoError(err)
	return reg
}

func (s *ServiceSuite) TestSignup() {
	s.Run("creates a pending registration with a hashed password", func() {
		reg := s.signup()

		s.Equal(models.StatusPendingManagerReview, reg.Status)
		s.Equal("dana@greenfield.example", reg.Email)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(reg.PasswordHash), []byte("correct-horse")))
	})

	s.Run("rejects short passwords", func() {
		_, err := s.svc.Signup(s.ctxAs(""), service.SignupParams{
			Company:     "Acme",
			ContactName: "A",
			Email:       "a@acme.example",
			Password:    "short",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects duplicate emails", func() {
		s.signup()
		_, err := s.svc.Signup(s.ctxAs(""), service.SignupParams{
			Company:     "Other Co",
			ContactName: "Someone Else",
			Email:       "DANA@greenfield.example",
			Password:    "another-pass",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestRecommend() {
	s.Run("manager moves the registration to admin approval", func() {
		reg := s.signup()
		updated, err := s.svc.Recommend(s.ctxAs("manager"), reg.ID, "solid supply chain docs")
		s.Require().NoError(err)
		s.Equal(models.StatusPendingAdminApproval, updated.Status)
		s.Equal("solid supply chain docs", updated.ManagerNotes)
		s.Equal(1, s.notifier.recommended)
	})

	s.Run("second recommendation is an invariant violation", func() {
		reg := s.signup()
		_, err := s.svc.Recommend(s.ctxAs("manager"), reg.ID, "first")
		s.Require().NoError(err)

		_, err = s.svc.Recommend(s.ctxAs("manager"), reg.ID, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ServiceSuite) TestReject() {
	s.Run("requires a reason", func() {
		reg := s.signup()
		_, err := s.svc.Reject(s.ctxAs("manager"), reg.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects from manager review", func() {
		reg := s.signup()
		updated, err := s.svc.Reject(s.ctxAs("manager"), reg.ID, "incomplete filings")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, updated.Status)
		s.Equal("incomplete filings", updated.RejectionReason)
		s.Equal(1, s.notifier.rejected)
	})

	s.Run("rejects from admin approval", func() {
		reg := s.signup()
		_, err := s.svc.Recommend(s.ctxAs("manager"), reg.ID, "fwd")
		s.Require().NoError(err)

		updated, err := s.svc.Reject(s.ctxAs("administrator"), reg.ID, "failed diligence")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, updated.Status)
	})
}

func (s *ServiceSuite) TestApprove() {
	s.Run("two stage approval provisions an account and invites to the assessment", func() {
		reg := s.signup()
		_, err := s.svc.Recommend(s.ctxAs("manager"), reg.ID, "fwd")
		s.Require().NoError(err)

		approved, err := s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.Require().NoError(err)

		s.Equal(models.StatusApproved, approved.Status)
		s.Equal("user-1", approved.UserID)
		s.Require().NotNil(approved.AssessmentNotifiedAt)
		s.Equal(s.now, *approved.AssessmentNotifiedAt)
		s.Equal(1, s.notifier.approved)
		s.Equal(1, s.notifier.invited)
		s.True(s.trail.has(audit.ActionRegistrationApproved))
		s.False(s.trail.has(audit.ActionApprovalBypassed))
	})

	s.Run("direct approval from manager review skips the invitation", func() {
		reg := s.signup()

		approved, err := s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.Require().NoError(err)

		s.Equal(models.StatusApproved, approved.Status)
		s.Nil(approved.AssessmentNotifiedAt)
		s.Equal(1, s.notifier.approved)
		s.Zero(s.notifier.invited)
		s.True(s.trail.has(audit.ActionApprovalBypassed))
	})

	s.Run("approving twice is an invariant violation", func() {
		reg := s.signup()
		_, err := s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.Require().NoError(err)

		_, err = s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(1, s.notifier.approved)
	})

	s.Run("provisioning failure leaves the registration pending", func() {
		reg := s.signup()
		s.provisioner.err = dErrors.New(dErrors.CodeInternal, "directory down")

		_, err := s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))

		current, err := s.regs.FindByID(context.Background(), reg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingManagerReview, current.Status)

		s.provisioner.err = nil
		_, err = s.svc.Approve(s.ctxAs("administrator"), reg.ID)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestCapabilityGuards() {
	cases := []struct {
		name string
		role string
		call func(ctx context.Context, id string) error
		code dErrors.Code
	}{
		{
			name: "member cannot recommend",
			role: "member",
			call: func(ctx context.Context, id string) error {
				_, err := s.svc.Recommend(ctx, id, "n")
				return err
			},
			code: dErrors.CodeForbidden,
		},
		{
			name: "manager cannot approve",
			role: "manager",
			call: func(ctx context.Context, id string) error {
				_, err := s.svc.Approve(ctx, id)
				return err
			},
			code: dErrors.CodeForbidden,
		},
		{
			name: "anonymous cannot reject",
			role: "",
			call: func(ctx context.Context, id string) error {
				_, err := s.svc.Reject(ctx, id, "r")
				return err
			},
			code: dErrors.CodeUnauthorized,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			reg := s.signup()

			err := tc.call(s.ctxAs(tc.role), reg.ID)
			s.True(dErrors.HasCode(err, tc.code))

			current, findErr := s.regs.FindByID(context.Background(), reg.ID)
			s.Require().NoError(findErr)
			s.Equal(models.StatusPendingManagerReview, current.Status)
		})
	}
}

func (s *ServiceSuite) TestGetNotFound() {
	_, err := s.svc.Get(s.ctxAs("manager"), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
