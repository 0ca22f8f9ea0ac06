// Package handler exposes the payment webhook, the HTTP twin of the Kafka
// consumer: both deliver the same event shape to the orchestrator.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdant/internal/billing"
	"verdant/internal/transport/http/shared"
	dErrors "verdant/pkg/domain-errors"
)

type Handler struct {
	orch   *billing.Orchestrator
	logger *slog.Logger
}

func New(orch *billing.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{orch: orch, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/payment-completed", h.paymentCompleted)
}

func (h *Handler) paymentCompleted(w http.ResponseWriter, r *http.Request) {
	var evt billing.PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook body"))
		return
	}

	if err := h.orch.HandlePaymentCompleted(r.Context(), evt); err != nil {
		shared.WriteError(w, err)
		return
	}

	// Dropped events (unknown product, duplicate, unresolved payer) are
	// acknowledged too, so the provider stops redelivering them.
	w.WriteHeader(http.StatusAccepted)
}
