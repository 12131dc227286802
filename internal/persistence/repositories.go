package persistence

import (
	"context"
	"time"
)

// WatchChannelRepository stores push-notification channel registrations.
type WatchChannelRepository interface {
	// GetByUser returns the channel registered for a user, or ErrNotFound.
	GetByUser(ctx context.Context, userID string) (WatchChannel, error)
	// GetByChannelID resolves an inbound notification's channel id, or ErrNotFound.
	GetByChannelID(ctx context.Context, channelID string) (WatchChannel, error)
	// Upsert replaces any existing channel for the user atomically. The later
	// write wins; the superseded channel id becomes unknown.
	Upsert(ctx context.Context, channel WatchChannel) (WatchChannel, error)
	// FindExpiringBefore returns channels whose expiration precedes the cutoff.
	FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]WatchChannel, error)
	// Delete removes the channel registered for a user.
	Delete(ctx context.Context, userID string) error
}

// ConnectionRepository stores calendar provider connections.
type ConnectionRepository interface {
	GetByUser(ctx context.Context, userID, provider string) (CalendarConnection, error)
	ListActive(ctx context.Context, provider string) ([]CalendarConnection, error)
	Create(ctx context.Context, connection CalendarConnection) error
	// RecordSyncOutcome stamps LastSyncAt/LastSyncStatus for a run.
	RecordSyncOutcome(ctx context.Context, userID, provider, status string, syncedAt time.Time) error
	// SetSyncEnabled toggles sync for a connection and resets the failure count
	// when re-enabling.
	SetSyncEnabled(ctx context.Context, userID, provider string, enabled bool) error
	// IncrementFailureCount bumps the consecutive renewal failure counter and
	// returns the new value.
	IncrementFailureCount(ctx context.Context, userID, provider string) (int, error)
	// ResetFailureCount clears the consecutive renewal failure counter.
	ResetFailureCount(ctx context.Context, userID, provider string) error
	Deactivate(ctx context.Context, userID, provider string) error
}

// MeetingFilter narrows meeting queries to a time window.
type MeetingFilter struct {
	UserID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// MeetingChangeSet is the output of one reconciliation run. Apply commits the
// whole set in a single transaction: either every write lands or none do.
type MeetingChangeSet struct {
	Create []Meeting
	Update []Meeting
	Delete []string // meeting ids
}

// Empty reports whether the change set contains no writes.
func (cs MeetingChangeSet) Empty() bool {
	return len(cs.Create) == 0 && len(cs.Update) == 0 && len(cs.Delete) == 0
}

// MeetingRepository stores local meeting records.
type MeetingRepository interface {
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	GetByRemoteEventID(ctx context.Context, userID, remoteEventID string) (Meeting, error)
	// ApplyChangeSet executes the creates, updates and deletes of one
	// reconciliation run atomically.
	ApplyChangeSet(ctx context.Context, changes MeetingChangeSet) error
}

// TokenRepository stores per-user OAuth credentials.
type TokenRepository interface {
	GetByUser(ctx context.Context, userID string) (CalendarToken, error)
	// Save inserts or replaces the user's token row.
	Save(ctx context.Context, token CalendarToken) error
	Delete(ctx context.Context, userID string) error
}

// AuditRepository appends audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
}
