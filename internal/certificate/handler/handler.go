package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/certificate/models"
	"verdant/internal/identity"
	"verdant/internal/transport/http/shared"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/requestcontext"
)

// CertificateService is the slice of the certificate service the HTTP layer
// needs.
type CertificateService interface {
	Get(ctx context.Context, userID string) (*models.Certificate, error)
	Issue(ctx context.Context, userID, grade string, regenerate bool) (*models.Certificate, error)
	Revoke(ctx context.Context, userID string) (*models.Certificate, error)
}

type Handler struct {
	svc    CertificateService
	logger *slog.Logger
}

func New(svc CertificateService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/certificate", h.getOwn)
	r.Get("/certificates/{userID}", h.get)
	r.Post("/certificates/{userID}/issue", h.issue)
	r.Post("/certificates/{userID}/revoke", h.revoke)
}

type issueRequest struct {
	Grade      string `json:"grade"`
	Regenerate bool   `json:"regenerate"`
}

type certificateResponse struct {
	UserID   string     `json:"userId"`
	Number   string     `json:"number,omitempty"`
	Grade    string     `json:"grade,omitempty"`
	URL      string     `json:"url,omitempty"`
	Issued   bool       `json:"issued"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}

func toResponse(cert *models.Certificate) certificateResponse {
	return certificateResponse{
		UserID:   cert.UserID,
		Number:   cert.Number,
		Grade:    cert.Grade,
		URL:      cert.URL,
		Issued:   cert.Generated,
		IssuedAt: cert.IssuedAt,
	}
}

func (h *Handler) getOwn(w http.ResponseWriter, r *http.Request) {
	cert, err := h.svc.Get(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cert))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	cert, err := h.svc.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cert))
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	if err := requireCapability(r.Context(), identity.PermIssueCertificate); err != nil {
		shared.WriteError(w, err)
		return
	}

	req := issueRequest{Grade: models.GradeAuto}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	cert, err := h.svc.Issue(r.Context(), chi.URLParam(r, "userID"), req.Grade, req.Regenerate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cert))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	if err := requireCapability(r.Context(), identity.PermRevokeCertificate); err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := h.svc.Revoke(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cert))
}

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
