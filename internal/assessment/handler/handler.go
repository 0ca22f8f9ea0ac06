package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/assessment/models"
	"verdant/internal/transport/http/shared"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/requestcontext"
)

// AssessmentService is the slice of the assessment service the HTTP layer
// needs. The acting member is always taken from the request context.
type AssessmentService interface {
	Load(ctx context.Context, userID string) (*models.Assessment, error)
	Save(ctx context.Context, userID string, step int, partial map[string]string) (*models.Assessment, error)
	Submit(ctx context.Context, userID string) (*models.Assessment, error)
}

type Handler struct {
	svc    AssessmentService
	logger *slog.Logger
}

func New(svc AssessmentService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/assessment", h.load)
	r.Put("/assessment", h.save)
	r.Post("/assessment/submit", h.submit)
}

type saveRequest struct {
	Step    int               `json:"step"`
	Answers map[string]string `json:"answers"`
}

type assessmentResponse struct {
	ID          string            `json:"id,omitempty"`
	Answers     map[string]string `json:"answers"`
	Progress    int               `json:"progress"`
	Completed   bool              `json:"completed"`
	SubmittedAt *time.Time        `json:"submittedAt,omitempty"`
	DocumentURL string            `json:"documentUrl,omitempty"`
}

func toResponse(a *models.Assessment) assessmentResponse {
	return assessmentResponse{
		ID:          a.ID,
		Answers:     a.Answers,
		Progress:    a.Progress,
		Completed:   a.Completed(),
		SubmittedAt: a.SubmittedAt,
		DocumentURL: a.DocumentURL,
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Load(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.svc.Save(r.Context(), requestcontext.UserID(r.Context()), req.Step, req.Answers)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Submit(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(a))
}
