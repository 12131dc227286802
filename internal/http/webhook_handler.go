package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/advicly/calendar-sync/internal/application"
)

// Notification headers set by the provider on every push delivery.
const (
	headerChannelID     = "X-Goog-Channel-ID"
	headerResourceID    = "X-Goog-Resource-ID"
	headerResourceState = "X-Goog-Resource-State"
)

type webhookService interface {
	HandleNotification(ctx context.Context, notification application.Notification) error
}

type WebhookHandler struct {
	service   webhookService
	responder responder
	logger    *slog.Logger
}

func NewWebhookHandler(service webhookService, logger *slog.Logger) *WebhookHandler {
	base := defaultLogger(logger)
	return &WebhookHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WebhookHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WebhookHandler", operation, attrs...)
}

// Receive accepts one provider push notification. The response acknowledges
// receipt; the reconciliation it triggers completes in the background.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	notification := application.Notification{
		ChannelID:     r.Header.Get(headerChannelID),
		ResourceID:    r.Header.Get(headerResourceID),
		ResourceState: r.Header.Get(headerResourceState),
	}
	if notification.ChannelID == "" {
		h.log(r.Context(), "Receive", "error_kind", "bad_request").ErrorContext(r.Context(), "notification missing channel id header")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingChannelID)
		return
	}

	logger := h.log(r.Context(), "Receive",
		"channel_id", notification.ChannelID,
		"resource_state", notification.ResourceState,
	)

	if err := h.service.HandleNotification(r.Context(), notification); err != nil {
		logger.ErrorContext(r.Context(), "notification rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "notification accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, notificationResponse{Status: "accepted"})
}

type notificationResponse struct {
	Status string `json:"status"`
}
