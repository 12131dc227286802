package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// Audit action names recorded by the services.
const (
	AuditActionWatchCreated    = "calendar.watch.created"
	AuditActionWatchStopped    = "calendar.watch.stopped"
	AuditActionWatchRenewed    = "calendar.watch.renewed"
	AuditActionSyncCompleted   = "calendar.sync.completed"
	AuditActionSyncFailed      = "calendar.sync.failed"
	AuditActionSyncDisabled    = "calendar.sync.disabled"
	AuditActionAuthInvalidated = "calendar.auth.invalidated"
)

// Audit resource names.
const (
	auditResourceWatchChannel = "watch_channel"
	auditResourceConnection   = "calendar_connection"
	auditResourceSync         = "calendar_sync"
)

// AuditLogger records audit entries without letting audit failures disturb
// the operation being audited.
type AuditLogger struct {
	entries     persistence.AuditRepository
	idGenerator func() string
	now         func() time.Time
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(entries persistence.AuditRepository, idGenerator func() string, now func() time.Time) *AuditLogger {
	return &AuditLogger{entries: entries, idGenerator: idGenerator, now: now}
}

// Record appends an audit entry. Failures are logged and swallowed.
func (al *AuditLogger) Record(ctx context.Context, userID, action, resource, resourceID string, details map[string]any) {
	if al == nil || al.entries == nil {
		return
	}

	var payload string
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}

	entry := persistence.AuditEntry{
		ID:         al.idGenerator(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    payload,
		CreatedAt:  al.now(),
	}
	if err := al.entries.Append(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("failed to record audit entry",
			"action", action,
			"user_id", userID,
			"error", err,
		)
	}
}
