package persistence

import "time"

// WatchChannel represents a provider push-notification subscription for one
// user's calendar. At most one non-expired channel exists per user; the
// channel id is globally unique.
type WatchChannel struct {
	UserID     string
	ChannelID  string
	ResourceID string
	Expiration time.Time
	WebhookURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the channel is past its provider expiration at the
// supplied reference time.
func (c WatchChannel) Expired(reference time.Time) bool {
	return !c.Expiration.After(reference)
}

// Sync outcome values recorded on a connection after a reconciliation run.
const (
	SyncStatusOK     = "ok"
	SyncStatusFailed = "failed"
)

// CalendarConnection represents a user's link to a calendar provider account.
type CalendarConnection struct {
	ID                   string
	UserID               string
	Provider             string
	ProviderAccountEmail string
	IsActive             bool
	SyncEnabled          bool
	LastSyncAt           *time.Time
	LastSyncStatus       string
	FailureCount         int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Meeting statuses derived from the remote event.
const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusCompleted = "completed"
	MeetingStatusCancelled = "cancelled"
)

// Meeting represents a local record mirroring one remote calendar event.
// RemoteEventID maps 1:1 to at most one meeting per user.
type Meeting struct {
	ID            string
	UserID        string
	RemoteEventID string
	Title         string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	Location      *string
	Description   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CalendarToken stores a user's OAuth credentials for the calendar provider.
// Access and refresh tokens are stored encrypted at rest.
type CalendarToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntry records a security or sync relevant event. Audit writes are
// fire-and-forget and never abort the operation that produced them.
type AuditEntry struct {
	ID         string
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Details    string
	CreatedAt  time.Time
}
