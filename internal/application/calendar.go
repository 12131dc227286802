package application

import (
	"context"
	"time"
)

// CalendarClient is the provider-side surface the services depend on. The
// implementation resolves the user's stored credentials itself and reports
// credential problems as ErrAuthExpired and transient outages as
// ErrRemoteUnavailable.
type CalendarClient interface {
	// ListEvents returns the user's events whose start falls inside the
	// half-open window [from, to).
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]RemoteEvent, error)

	// CreateWatch registers a push notification channel for the user's
	// primary calendar.
	CreateWatch(ctx context.Context, userID string) (WatchRegistration, error)

	// StopWatch tells the provider to stop delivering to the channel.
	StopWatch(ctx context.Context, userID, channelID, resourceID string) error
}
