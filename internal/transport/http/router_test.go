package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/platform/middleware"
	reghandler "verdant/internal/registration/handler"
	"verdant/internal/registration/models"
	regservice "verdant/internal/registration/service"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &middleware.JWTClaims{UserID: "user-1", Role: "member"}, nil
}

type stubRegistrations struct{}

func (stubRegistrations) Signup(context.Context, regservice.SignupParams) (*models.Registration, error) {
	return nil, dErrors.New(dErrors.CodeValidation, "stub rejects signups")
}

func (stubRegistrations) Get(context.Context, string) (*models.Registration, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func (stubRegistrations) Recommend(context.Context, string, string) (*models.Registration, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func (stubRegistrations) Reject(context.Context, string, string) (*models.Registration, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func (stubRegistrations) Approve(context.Context, string) (*models.Registration, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func newTestRouter(checks map[string]HealthCheck) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Deps{
		Logger:        logger,
		Validator:     stubValidator{},
		Registrations: reghandler.New(stubRegistrations{}, logger),
		HealthChecks:  checks,
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(map[string]HealthCheck{
		"db": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthzDegraded(t *testing.T) {
	router := newTestRouter(map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registrations/reg-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/registrations/reg-1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupIsPublic(t *testing.T) {
	router := newTestRouter(nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", map[string]string{"email": "x@y.z"})
	rec := testutil.DoRequest(router, req)

	// No token needed; the stub service rejects with a validation error.
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
