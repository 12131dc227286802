package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

var (
	connectionCounter uint64
	channelCounter    uint64
	meetingCounter    uint64
)

var referenceTime = time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ------------------------- Connection fixtures -------------------------

// ConnectionOption configures the generated connection fixture.
type ConnectionOption func(*persistence.CalendarConnection)

// NewConnectionFixture returns a deterministic active connection with
// optional overrides.
func NewConnectionFixture(opts ...ConnectionOption) persistence.CalendarConnection {
	idx := atomic.AddUint64(&connectionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.CalendarConnection{
		ID:                   fmt.Sprintf("conn-%03d", idx),
		UserID:               fmt.Sprintf("user-%03d", idx),
		Provider:             "google",
		ProviderAccountEmail: fmt.Sprintf("user-%03d@example.com", idx),
		IsActive:             true,
		SyncEnabled:          true,
		CreatedAt:            created,
		UpdatedAt:            created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithConnectionUser overrides the generated user ID.
func WithConnectionUser(userID string) ConnectionOption {
	return func(c *persistence.CalendarConnection) {
		c.UserID = userID
	}
}

// WithSyncDisabled marks the connection's sync as switched off.
func WithSyncDisabled() ConnectionOption {
	return func(c *persistence.CalendarConnection) {
		c.SyncEnabled = false
	}
}

// --------------------------- Channel fixtures ---------------------------

// ChannelOption configures the generated watch channel fixture.
type ChannelOption func(*persistence.WatchChannel)

// NewChannelFixture returns a deterministic watch channel expiring a week
// after the reference time.
func NewChannelFixture(opts ...ChannelOption) persistence.WatchChannel {
	idx := atomic.AddUint64(&channelCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.WatchChannel{
		UserID:     fmt.Sprintf("user-%03d", idx),
		ChannelID:  fmt.Sprintf("channel-%03d", idx),
		ResourceID: fmt.Sprintf("resource-%03d", idx),
		Expiration: referenceTime.Add(7 * 24 * time.Hour),
		WebhookURL: "https://sync.advicly.test/calendar/webhook",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithChannelUser overrides the generated user ID.
func WithChannelUser(userID string) ChannelOption {
	return func(c *persistence.WatchChannel) {
		c.UserID = userID
	}
}

// WithExpiration overrides the channel expiration.
func WithExpiration(expiration time.Time) ChannelOption {
	return func(c *persistence.WatchChannel) {
		c.Expiration = expiration
	}
}

// --------------------------- Meeting fixtures ---------------------------

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*persistence.Meeting)

// NewMeetingFixture returns a deterministic scheduled meeting one hour long.
func NewMeetingFixture(opts ...MeetingOption) persistence.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	fixture := persistence.Meeting{
		ID:            fmt.Sprintf("meeting-%03d", idx),
		UserID:        fmt.Sprintf("user-%03d", idx),
		RemoteEventID: fmt.Sprintf("event-%03d", idx),
		Title:         fmt.Sprintf("Meeting %03d", idx),
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        persistence.MeetingStatusScheduled,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingUser overrides the generated user ID.
func WithMeetingUser(userID string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.UserID = userID
	}
}

// WithMeetingWindow overrides the meeting start and end.
func WithMeetingWindow(start, end time.Time) MeetingOption {
	return func(m *persistence.Meeting) {
		m.StartTime = start
		m.EndTime = end
	}
}

// WithMeetingStatus overrides the derived status.
func WithMeetingStatus(status string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.Status = status
	}
}
