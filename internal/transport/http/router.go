// Package httptransport assembles the HTTP surface: middleware chain,
// public endpoints, and the authenticated API group.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assessmenthandler "verdant/internal/assessment/handler"
	billinghandler "verdant/internal/billing/handler"
	certhandler "verdant/internal/certificate/handler"
	notifhandler "verdant/internal/notification/handler"
	"verdant/internal/platform/metrics"
	"verdant/internal/platform/middleware"
	"verdant/internal/ratelimit"
	reghandler "verdant/internal/registration/handler"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts. Nil handlers are skipped so
// tests can wire a subset.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator

	Registrations *reghandler.Handler
	Assessments   *assessmenthandler.Handler
	Certificates  *certhandler.Handler
	Notifications *notifhandler.Handler
	Billing       *billinghandler.Handler

	// PublicLimiter throttles the unauthenticated endpoints per source
	// address. Nil disables throttling.
	PublicLimiter *ratelimit.Limiter

	// HealthChecks run on /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// NewRouter wires the middleware chain and mounts all endpoints. Signup and
// the payment webhook stay outside the auth group; everything else requires
// a bearer token.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if deps.Metrics != nil {
		r.Use(middleware.LatencyMiddleware(deps.Metrics))
	}

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if deps.PublicLimiter != nil {
				r.Use(ratelimit.Middleware(deps.PublicLimiter))
			}
			if deps.Registrations != nil {
				deps.Registrations.RegisterPublic(r)
			}
			if deps.Billing != nil {
				deps.Billing.Register(r)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

			if deps.Registrations != nil {
				deps.Registrations.Register(r)
			}
			if deps.Assessments != nil {
				deps.Assessments.Register(r)
			}
			if deps.Certificates != nil {
				deps.Certificates.Register(r)
			}
			if deps.Notifications != nil {
				deps.Notifications.Register(r)
			}
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
