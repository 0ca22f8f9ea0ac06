package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"verdant/internal/registration/handler"
	"verdant/internal/registration/models"
	"verdant/internal/registration/service"
	"verdant/internal/registration/store"
	"verdant/internal/transport/http/shared"
	"verdant/pkg/requestcontext"
)

type accountStub struct{}

func (accountStub) EnsureAccount(_ context.Context, _ *models.Registration) (string, error) {
	return "user-9", nil
}

type HandlerSuite struct {
	suite.Suite

	router chi.Router
}

func (s *HandlerSuite) SetupTest() {
	svc := service.New(store.NewInMemory(), accountStub{})
	h := handler.New(svc, slog.Default())

	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)

	s.router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := requestcontext.WithUserID(req.Context(), "actor-1")
				ctx = requestcontext.WithRole(ctx, req.Header.Get("X-Test-Role"))
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		h.Register(r)
	})
}

func (s *HandlerSuite) do(method, path, role string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) signup() string {
	rec := s.do(http.MethodPost, "/registrations", "", map[string]string{
		"company":     "Tidewater Textiles",
		"contactName": "Priya Nair",
		"email":       "priya@tidewater.example",
		"password":    "long-enough-pass",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("pending_manager_review", resp.Status)
	return resp.ID
}

func (s *HandlerSuite) TestSignupValidation() {
	rec := s.do(http.MethodPost, "/registrations", "", map[string]string{
		"company": "No Contact Co",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	var resp shared.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("validation", resp.Error)
}

func (s *HandlerSuite) TestReviewFlow() {
	id := s.signup()

	rec := s.do(http.MethodPost, "/registrations/"+id+"/recommend", "manager",
		map[string]string{"notes": "checked references"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/registrations/"+id+"/approve", "administrator", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Status    string  `json:"status"`
		UserID    string  `json:"userId"`
		InvitedAt *string `json:"assessmentInvitedAt"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("approved", resp.Status)
	s.Equal("user-9", resp.UserID)
	s.NotNil(resp.InvitedAt)
}

func (s *HandlerSuite) TestApproveConflictsAfterTerminal() {
	id := s.signup()

	rec := s.do(http.MethodPost, "/registrations/"+id+"/reject", "manager",
		map[string]string{"reason": "shell company"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/registrations/"+id+"/approve", "administrator", nil)
	s.Equal(http.StatusConflict, rec.Code)

	var resp shared.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("invariant_violation", resp.Error)
}

func (s *HandlerSuite) TestRoleEnforcement() {
	id := s.signup()

	rec := s.do(http.MethodPost, "/registrations/"+id+"/approve", "manager", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestGetUnknown() {
	rec := s.do(http.MethodGet, "/registrations/nope", "manager", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
