package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"verdant/internal/billing"
	certmodels "verdant/internal/certificate/models"
	"verdant/internal/eligibility"
	regmodels "verdant/internal/registration/models"
	submodels "verdant/internal/subscription/models"
	dErrors "verdant/pkg/domain-errors"
)

type stubRegistrations struct {
	byUser  map[string]*regmodels.Registration
	byEmail map[string]*regmodels.Registration
}

func (s *stubRegistrations) GetByUserID(_ context.Context, userID string) (*regmodels.Registration, error) {
	if reg, ok := s.byUser[userID]; ok {
		return reg, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func (s *stubRegistrations) GetByEmail(_ context.Context, email string) (*regmodels.Registration, error) {
	if reg, ok := s.byEmail[email]; ok {
		return reg, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

type recordingActivator struct {
	activated []string
	plans     []string
}

func (a *recordingActivator) Activate(_ context.Context, userID, plan string, _ float64, _ string) (*submodels.Subscription, error) {
	a.activated = append(a.activated, userID)
	a.plans = append(a.plans, plan)
	return &submodels.Subscription{UserID: userID, PlanName: plan, Status: submodels.StatusActive}, nil
}

type stubGate struct {
	result eligibility.Result
	err    error
}

func (g *stubGate) Check(context.Context, string) (eligibility.Result, error) {
	return g.result, g.err
}

type recordingIssuer struct {
	issued []string
	err    error
}

func (i *recordingIssuer) Issue(_ context.Context, userID, grade string, _ bool) (*certmodels.Certificate, error) {
	if i.err != nil {
		return nil, i.err
	}
	i.issued = append(i.issued, userID+":"+grade)
	return &certmodels.Certificate{UserID: userID, Grade: grade, Generated: true}, nil
}

type OrchestratorSuite struct {
	suite.Suite

	registrations *stubRegistrations
	activator     *recordingActivator
	gate          *stubGate
	issuer        *recordingIssuer
}

func (s *OrchestratorSuite) SetupTest() {
	s.registrations = &stubRegistrations{
		byUser: map[string]*regmodels.Registration{
			"user-1": {ID: "reg-1", UserID: "user-1", Status: regmodels.StatusApproved},
		},
		byEmail: map[string]*regmodels.Registration{
			"billing@acme.example": {ID: "reg-2", UserID: "user-2", Status: regmodels.StatusApproved},
			"pending@acme.example": {ID: "reg-3", Status: regmodels.StatusPendingManagerReview},
		},
	}
	s.activator = &recordingActivator{}
	s.gate = &stubGate{result: eligibility.Result{Eligible: true}}
	s.issuer = &recordingIssuer{}
}

func (s *OrchestratorSuite) plans() map[string]string {
	return map[string]string{"esg-premium": "Premium", "esg-basic": "Basic"}
}

func (s *OrchestratorSuite) event() billing.PaymentEvent {
	return billing.PaymentEvent{
		UserID:     "user-1",
		ProductRef: "esg-premium",
		OrderID:    "order-1",
		Amount:     499.00,
		Currency:   "EUR",
	}
}

func (s *OrchestratorSuite) TestActivatesSubscription() {
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator)

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), s.event()))
	s.Equal([]string{"user-1"}, s.activator.activated)
	s.Equal([]string{"Premium"}, s.activator.plans)
}

func (s *OrchestratorSuite) TestUnrecognizedProductIsSilentlyDropped() {
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator)

	evt := s.event()
	evt.ProductRef = "unknown-widget"

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), evt))
	s.Empty(s.activator.activated)
}

func (s *OrchestratorSuite) TestResolvesPayerByEmail() {
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator)

	evt := s.event()
	evt.UserID = ""
	evt.BillingEmail = "billing@acme.example"

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), evt))
	s.Equal([]string{"user-2"}, s.activator.activated)
}

func (s *OrchestratorSuite) TestUnresolvablePayerIsDropped() {
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator)

	cases := []billing.PaymentEvent{
		{ProductRef: "esg-basic", OrderID: "o1", UserID: "ghost"},
		{ProductRef: "esg-basic", OrderID: "o2", BillingEmail: "nobody@acme.example"},
		{ProductRef: "esg-basic", OrderID: "o3", BillingEmail: "pending@acme.example"},
		{ProductRef: "esg-basic", OrderID: "o4"},
	}
	for _, evt := range cases {
		s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), evt))
	}
	s.Empty(s.activator.activated)
}

func (s *OrchestratorSuite) TestAutoGradingIssuesWhenEligible() {
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator,
		billing.WithAutoGrading(s.gate, s.issuer))

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), s.event()))
	s.Equal([]string{"user-1:auto"}, s.issuer.issued)
}

func (s *OrchestratorSuite) TestIneligibleMemberStaysActiveWithoutCertificate() {
	s.gate.result = eligibility.Result{Reason: "assessment not completed"}
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator,
		billing.WithAutoGrading(s.gate, s.issuer))

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), s.event()))
	s.Equal([]string{"user-1"}, s.activator.activated)
	s.Empty(s.issuer.issued)
}

func (s *OrchestratorSuite) TestIssuanceFailureDoesNotFailThePayment() {
	s.issuer.err = dErrors.New(dErrors.CodeGenerationFailed, "renderer down")
	orch := billing.NewOrchestrator(s.plans(), s.registrations, s.activator,
		billing.WithAutoGrading(s.gate, s.issuer))

	s.Require().NoError(orch.HandlePaymentCompleted(context.Background(), s.event()))
	s.Equal([]string{"user-1"}, s.activator.activated)
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}
