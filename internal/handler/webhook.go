package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopflow/fulfillment-service/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type NotificationProcessor interface {
	Process(ctx context.Context, rawID string) error
}

// WebhookHandler is the payment notification ingest. The gateway retries
// aggressively, so every handled outcome answers 200, including "ignored" and
// "not found"; only a crash bubbles to 5xx via the recoverer.
type WebhookHandler struct {
	logger *slog.Logger
	svc    NotificationProcessor
}

func NewWebhookHandler(logger *slog.Logger, svc NotificationProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger: logger.With(slog.String("handler", "webhook")),
		svc:    svc,
	}
}

func (h *WebhookHandler) Init(r chi.Router) {
	r.Post("/webhooks/payments", h.HandlePaymentNotification)
}

func (h *WebhookHandler) HandlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload paymentNotification
	if err := utils.DecodeBody(r, &payload); err != nil {
		h.logger.Warn("unreadable notification payload", slog.Any("error", err))
		notificationsTotal.WithLabelValues("ignored").Inc()
		utils.WriteJSON(w, statusResponse{Status: "ignored"}, http.StatusOK)
		return
	}

	rawID := payload.identifier()
	if rawID == "" {
		h.logger.Warn("notification without identifier")
		notificationsTotal.WithLabelValues("ignored").Inc()
		utils.WriteJSON(w, statusResponse{Status: "ignored"}, http.StatusOK)
		return
	}

	if err := h.svc.Process(ctx, rawID); err != nil {
		// Still 200: a 5xx would only trigger another delivery of the same
		// notification, and the next one is expected to self-heal.
		h.logger.ErrorContext(ctx, "failed to process notification",
			slog.String("id", rawID), slog.Any("error", err))
		notificationsTotal.WithLabelValues("failed").Inc()
		utils.WriteJSON(w, statusResponse{Status: "error"}, http.StatusOK)
		return
	}

	notificationsTotal.WithLabelValues("processed").Inc()
	utils.WriteJSON(w, statusResponse{Status: "ok"}, http.StatusOK)
}

type statusResponse struct {
	Status string `json:"status"`
}

// paymentNotification accepts the two known gateway payload shapes: a nested
// data.id or a top-level id, either of which may be a string or a number.
type paymentNotification struct {
	ID   flexibleID `json:"id"`
	Data struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

func (p paymentNotification) identifier() string {
	if p.Data.ID != "" {
		return string(p.Data.ID)
	}
	return string(p.ID)
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexibleID(n.String())
		return nil
	}

	return fmt.Errorf("unsupported identifier format: %s", b)
}
