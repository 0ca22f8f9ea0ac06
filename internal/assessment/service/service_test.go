package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verdant/internal/assessment/models"
	"verdant/internal/assessment/service"
	"verdant/internal/assessment/store"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/requestcontext"
)

type stubDirectory struct {
	regID string
	err   error
}

func (d *stubDirectory) ApprovedRegistrationID(context.Context, string) (string, error) {
	return d.regID, d.err
}

type stubGenerator struct {
	url   string
	err   error
	calls int
}

func (g *stubGenerator) GenerateAssessmentDocument(context.Context, string) (string, error) {
	g.calls++
	return g.url, g.err
}

type recordingScorer struct {
	answers map[string]string
	calls   int
}

func (r *recordingScorer) ScoreSubmission(_ context.Context, _ string, answers map[string]string) error {
	r.calls++
	r.answers = answers
	return nil
}

type AssessmentServiceSuite struct {
	suite.Suite

	directory *stubDirectory
	generator *stubGenerator
	scorer    *recordingScorer
	svc       *service.Service
	now       time.Time
}

func (s *AssessmentServiceSuite) SetupTest() {
	s.directory = &stubDirectory{regID: "reg-1"}
	s.generator = &stubGenerator{url: "https://artifacts.example/reg-1.pdf"}
	s.scorer = &recordingScorer{}
	s.svc = service.New(store.NewInMemory(), s.directory,
		service.WithDocumentGenerator(s.generator),
		service.WithScorer(s.scorer),
	)
	s.now = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
}

func (s *AssessmentServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *AssessmentServiceSuite) TestSave() {
	s.Run("first save creates the assessment", func() {
		a, err := s.svc.Save(s.ctx(), "user-1", 1, map[string]string{"q1": "yes"})
		s.Require().NoError(err)
		s.Equal(1, a.Progress)
		s.Equal("yes", a.Answers["q1"])
		s.False(a.Completed())
	})

	s.Run("later saves merge and keep the furthest step", func() {
		_, err := s.svc.Save(s.ctx(), "user-1", 3, map[string]string{"q2": "no"})
		s.Require().NoError(err)

		a, err := s.svc.Save(s.ctx(), "user-1", 2, map[string]string{"q1": "partial"})
		s.Require().NoError(err)
		s.Equal(3, a.Progress)
		s.Equal("partial", a.Answers["q1"])
		s.Equal("no", a.Answers["q2"])
	})

	s.Run("step out of range is a validation error", func() {
		_, err := s.svc.Save(s.ctx(), "user-1", 0, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unapproved accounts are denied", func() {
		s.directory.err = dErrors.New(dErrors.CodeForbidden, "registration is not approved")
		defer func() { s.directory.err = nil }()

		_, err := s.svc.Save(s.ctx(), "user-2", 1, map[string]string{"q1": "yes"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *AssessmentServiceSuite) TestSubmit() {
	s.Run("marks complete, renders the document, and triggers scoring", func() {
		_, err := s.svc.Save(s.ctx(), "user-1", 5, map[string]string{"q1": "yes", "q2": "no"})
		s.Require().NoError(err)

		a, err := s.svc.Submit(s.ctx(), "user-1")
		s.Require().NoError(err)

		s.True(a.Completed())
		s.Equal(models.MaxStep, a.Progress)
		s.Equal("https://artifacts.example/reg-1.pdf", a.DocumentURL)
		s.Equal(1, s.generator.calls)
		s.Equal(1, s.scorer.calls)
		s.Equal("yes", s.scorer.answers["q1"])
	})

	s.Run("repeated submit refreshes the timestamp only", func() {
		first, err := s.svc.Submit(s.ctx(), "user-1")
		s.Require().NoError(err)
		s.Require().NotNil(first.SubmittedAt)

		s.now = s.now.Add(time.Hour)
		again, err := s.svc.Submit(s.ctx(), "user-1")
		s.Require().NoError(err)

		s.Require().NotNil(again.SubmittedAt)
		s.True(again.SubmittedAt.After(*first.SubmittedAt))
		s.Equal(s.now, *again.SubmittedAt)
		s.Equal(1, s.generator.calls)
		s.Equal(1, s.scorer.calls)
	})

	s.Run("saving after submission is rejected", func() {
		_, err := s.svc.Save(s.ctx(), "user-1", 4, map[string]string{"q9": "yes"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("document failure does not unwind the submission", func() {
		s.generator.err = dErrors.New(dErrors.CodeGenerationFailed, "renderer down")

		a, err := s.svc.Submit(s.ctx(), "user-3")
		s.Require().NoError(err)
		s.True(a.Completed())
		s.Empty(a.DocumentURL)
	})
}

func (s *AssessmentServiceSuite) TestLoadDefaults() {
	a, err := s.svc.Load(s.ctx(), "never-saved")
	s.Require().NoError(err)

	s.Equal("never-saved", a.UserID)
	s.Zero(a.Progress)
	s.Empty(a.Answers)
	s.False(a.Completed())
}

func TestAssessmentServiceSuite(t *testing.T) {
	suite.Run(t, new(AssessmentServiceSuite))
}
