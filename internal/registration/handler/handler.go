package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/registration/models"
	"verdant/internal/registration/service"
	"verdant/internal/transport/http/shared"
	dErrors "verdant/pkg/domain-errors"
)

// RegistrationService is the slice of the registration service the HTTP
// layer needs.
type RegistrationService interface {
	Signup(ctx context.Context, p service.SignupParams) (*models.Registration, error)
	Get(ctx context.Context, id string) (*models.Registration, error)
	Recommend(ctx context.Context, id, notes string) (*models.Registration, error)
	Reject(ctx context.Context, id, reason string) (*models.Registration, error)
	Approve(ctx context.Context, id string) (*models.Registration, error)
}

type Handler struct {
	svc    RegistrationService
	logger *slog.Logger
}

func New(svc RegistrationService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated signup endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/registrations", h.signup)
}

// Register mounts the review-pipeline endpoints. Callers must already be
// authenticated; role checks happen in the service.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registrations/{id}", h.get)
	r.Post("/registrations/{id}/recommend", h.recommend)
	r.Post("/registrations/{id}/reject", h.reject)
	r.Post("/registrations/{id}/approve", h.approve)
}

type signupRequest struct {
	Company     string `json:"company"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type registrationResponse struct {
	ID              string     `json:"id"`
	Company         string     `json:"company"`
	ContactName     string     `json:"contactName"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	ManagerNotes    string     `json:"managerNotes,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	UserID          string     `json:"userId,omitempty"`
	InvitedAt       *time.Time `json:"assessmentInvitedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toResponse(reg *models.Registration) registrationResponse {
	return registrationResponse{
		ID:              reg.ID,
		Company:         reg.Company,
		ContactName:     reg.ContactName,
		Email:           reg.Email,
		Status:          string(reg.Status),
		ManagerNotes:    reg.ManagerNotes,
		RejectionReason: reg.RejectionReason,
		UserID:          reg.UserID,
		InvitedAt:       reg.AssessmentNotifiedAt,
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
	}
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.Signup(r.Context(), service.SignupParams{
		Company:     req.Company,
		ContactName: req.ContactName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toResponse(reg))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(reg))
}

type reviewRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func decodeReview(r *http.Request) (reviewRequest, error) {
	var req reviewRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	req, err := decodeReview(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.svc.Recommend(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	req, err := decodeReview(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.svc.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(reg))
}
