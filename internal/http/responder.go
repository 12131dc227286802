package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/advicly/calendar-sync/internal/application"
)

var (
	errBadRequestBody   = errors.New("invalid request body")
	errMissingUserID    = errors.New("a user id is required")
	errMissingChannelID = errors.New("the X-Goog-Channel-ID header is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnknownChannel):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "CHANNEL_UNKNOWN",
			Message:   "no watch channel matches the supplied channel id",
		})
	case errors.Is(err, application.ErrExpiredChannel):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "CHANNEL_EXPIRED",
			Message:   "the watch channel has expired and was removed",
		})
	case errors.Is(err, application.ErrConnectionInactive):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CONNECTION_INACTIVE",
			Message:   "the calendar connection is not active",
		})
	case errors.Is(err, application.ErrSyncDisabled):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SYNC_DISABLED",
			Message:   "calendar sync is disabled for this user",
		})
	case errors.Is(err, application.ErrAuthExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_EXPIRED",
			Message:   "the calendar authorization has expired",
		})
	case errors.Is(err, application.ErrRemoteUnavailable):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "PROVIDER_UNAVAILABLE",
			Message:   "the calendar provider is temporarily unavailable",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusGone:
		return "the requested resource is gone"
	case http.StatusConflict:
		return "the request conflicts with the resource's current state"
	default:
		return "an internal error occurred"
	}
}

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}
