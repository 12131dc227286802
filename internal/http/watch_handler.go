package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/advicly/calendar-sync/internal/application"
	"github.com/advicly/calendar-sync/internal/persistence"
)

type watchService interface {
	Setup(ctx context.Context, userID string) (persistence.WatchChannel, error)
	Stop(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (application.SyncStatus, error)
}

type WatchHandler struct {
	service   watchService
	responder responder
	logger    *slog.Logger
}

func NewWatchHandler(service watchService, logger *slog.Logger) *WatchHandler {
	base := defaultLogger(logger)
	return &WatchHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WatchHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WatchHandler", operation, attrs...)
}

// Create registers a watch channel for the user named in the request body,
// replacing any existing registration.
func (h *WatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode watch request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingUserID)
		return
	}

	logger := h.log(r.Context(), "Create", "user_id", userID)

	channel, err := h.service.Setup(r.Context(), userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "watch channel setup failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("channel_id", channel.ChannelID).InfoContext(r.Context(), "watch channel created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, watchResponse{Channel: toWatchDTO(channel)})
}

// Delete tears down the watch channel of the user named in the path.
func (h *WatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingUserID)
		return
	}

	logger := h.log(r.Context(), "Delete", "user_id", userID)

	if err := h.service.Stop(r.Context(), userID); err != nil {
		logger.ErrorContext(r.Context(), "watch channel teardown failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "watch channel removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// SyncStatus reports sync health for the user named in the path.
func (h *WatchHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingUserID)
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		h.log(r.Context(), "SyncStatus", "user_id", userID).ErrorContext(r.Context(), "status lookup failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toStatusDTO(status))
}

type watchRequest struct {
	UserID string `json:"user_id"`
}

type watchResponse struct {
	Channel watchDTO `json:"channel"`
}

type watchDTO struct {
	ChannelID  string `json:"channel_id"`
	ResourceID string `json:"resource_id"`
	Expiration string `json:"expiration"`
	WebhookURL string `json:"webhook_url"`
}

func toWatchDTO(channel persistence.WatchChannel) watchDTO {
	return watchDTO{
		ChannelID:  channel.ChannelID,
		ResourceID: channel.ResourceID,
		Expiration: channel.Expiration.UTC().Format(time.RFC3339),
		WebhookURL: channel.WebhookURL,
	}
}

type statusDTO struct {
	UserID         string  `json:"user_id"`
	SyncEnabled    bool    `json:"sync_enabled"`
	LastSyncAt     *string `json:"last_sync_at"`
	LastSyncStatus string  `json:"last_sync_status,omitempty"`
	FailureCount   int     `json:"failure_count"`
	WatchActive    bool    `json:"watch_active"`
	WatchExpiresAt *string `json:"watch_expires_at,omitempty"`
}

func toStatusDTO(status application.SyncStatus) statusDTO {
	dto := statusDTO{
		UserID:         status.UserID,
		SyncEnabled:    status.SyncEnabled,
		LastSyncStatus: status.LastSyncStatus,
		FailureCount:   status.FailureCount,
		WatchActive:    status.WatchActive,
	}
	if status.LastSyncAt != nil {
		formatted := status.LastSyncAt.UTC().Format(time.RFC3339)
		dto.LastSyncAt = &formatted
	}
	if status.WatchExpiresAt != nil {
		formatted := status.WatchExpiresAt.UTC().Format(time.RFC3339)
		dto.WatchExpiresAt = &formatted
	}
	return dto
}
