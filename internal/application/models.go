package application

import "time"

// RemoteEvent is a calendar event as reported by the provider, normalized to
// what reconciliation needs.
type RemoteEvent struct {
	ID          string
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Location    *string
	Description *string
	Cancelled   bool
}

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	UserID    string
	Created   int
	Updated   int
	Deleted   int
	Reruns    int
	Coalesced bool
}

// Changed reports whether the run wrote anything.
func (sr SyncResult) Changed() bool {
	return sr.Created > 0 || sr.Updated > 0 || sr.Deleted > 0
}

// WatchRegistration is the provider's answer to a watch channel request.
type WatchRegistration struct {
	ChannelID  string
	ResourceID string
	Expiration time.Time
}

// Notification carries the fields of an incoming push notification.
type Notification struct {
	ChannelID     string
	ResourceID    string
	ResourceState string
}

// SyncStatus reports a user's sync health for the status endpoint.
type SyncStatus struct {
	UserID         string
	SyncEnabled    bool
	LastSyncAt     *time.Time
	LastSyncStatus string
	FailureCount   int
	WatchActive    bool
	WatchExpiresAt *time.Time
}
