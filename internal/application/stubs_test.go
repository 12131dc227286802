package application

import (
	"context"
	"sync"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
	"github.com/advicly/calendar-sync/internal/testfixtures"
)

type connectionRepoStub struct {
	mu sync.Mutex

	connection persistence.CalendarConnection
	getErr     error

	active  []persistence.CalendarConnection
	listErr error

	outcomes       []syncOutcome
	outcomeErr     error
	syncEnabledSet map[string]bool
	failureCounts  map[string]int
	incrementErr   error
	deactivated    []string
}

type syncOutcome struct {
	userID   string
	status   string
	syncedAt time.Time
}

func (r *connectionRepoStub) GetByUser(ctx context.Context, userID, provider string) (persistence.CalendarConnection, error) {
	if r.getErr != nil {
		return persistence.CalendarConnection{}, r.getErr
	}
	if r.connection.UserID != userID {
		return persistence.CalendarConnection{}, persistence.ErrNotFound
	}
	return r.connection, nil
}

func (r *connectionRepoStub) ListActive(ctx context.Context, provider string) ([]persistence.CalendarConnection, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.active, nil
}

func (r *connectionRepoStub) Create(ctx context.Context, connection persistence.CalendarConnection) error {
	return nil
}

func (r *connectionRepoStub) RecordSyncOutcome(ctx context.Context, userID, provider, status string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomeErr != nil {
		return r.outcomeErr
	}
	r.outcomes = append(r.outcomes, syncOutcome{userID: userID, status: status, syncedAt: syncedAt})
	return nil
}

func (r *connectionRepoStub) SetSyncEnabled(ctx context.Context, userID, provider string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncEnabledSet == nil {
		r.syncEnabledSet = make(map[string]bool)
	}
	r.syncEnabledSet[userID] = enabled
	return nil
}

func (r *connectionRepoStub) IncrementFailureCount(ctx context.Context, userID, provider string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return 0, r.incrementErr
	}
	if r.failureCounts == nil {
		r.failureCounts = make(map[string]int)
	}
	r.failureCounts[userID]++
	return r.failureCounts[userID], nil
}

func (r *connectionRepoStub) ResetFailureCount(ctx context.Context, userID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failureCounts == nil {
		r.failureCounts = make(map[string]int)
	}
	r.failureCounts[userID] = 0
	return nil
}

func (r *connectionRepoStub) Deactivate(ctx context.Context, userID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated = append(r.deactivated, userID)
	return nil
}

func (r *connectionRepoStub) recordedOutcomes() []syncOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]syncOutcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

type meetingRepoStub struct {
	mu sync.Mutex

	meetings []persistence.Meeting
	listErr  error

	applied  []persistence.MeetingChangeSet
	applyErr error
}

func (r *meetingRepoStub) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]persistence.Meeting, len(r.meetings))
	copy(out, r.meetings)
	return out, nil
}

func (r *meetingRepoStub) GetByRemoteEventID(ctx context.Context, userID, remoteEventID string) (persistence.Meeting, error) {
	for _, meeting := range r.meetings {
		if meeting.UserID == userID && meeting.RemoteEventID == remoteEventID {
			return meeting, nil
		}
	}
	return persistence.Meeting{}, persistence.ErrNotFound
}

func (r *meetingRepoStub) ApplyChangeSet(ctx context.Context, changes persistence.MeetingChangeSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	r.applied = append(r.applied, changes)
	return nil
}

func (r *meetingRepoStub) appliedChangeSets() []persistence.MeetingChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]persistence.MeetingChangeSet, len(r.applied))
	copy(out, r.applied)
	return out
}

type watchChannelRepoStub struct {
	mu sync.Mutex

	channel persistence.WatchChannel
	getErr  error

	expiring    []persistence.WatchChannel
	expiringErr error

	upserted  []persistence.WatchChannel
	upsertErr error

	deletedUsers []string
	deleteErr    error
}

func (r *watchChannelRepoStub) GetByUser(ctx context.Context, userID string) (persistence.WatchChannel, error) {
	if r.getErr != nil {
		return persistence.WatchChannel{}, r.getErr
	}
	if r.channel.UserID != userID {
		return persistence.WatchChannel{}, persistence.ErrNotFound
	}
	return r.channel, nil
}

func (r *watchChannelRepoStub) GetByChannelID(ctx context.Context, channelID string) (persistence.WatchChannel, error) {
	if r.getErr != nil {
		return persistence.WatchChannel{}, r.getErr
	}
	if r.channel.ChannelID != channelID {
		return persistence.WatchChannel{}, persistence.ErrNotFound
	}
	return r.channel, nil
}

func (r *watchChannelRepoStub) Upsert(ctx context.Context, channel persistence.WatchChannel) (persistence.WatchChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return persistence.WatchChannel{}, r.upsertErr
	}
	r.upserted = append(r.upserted, channel)
	return channel, nil
}

func (r *watchChannelRepoStub) FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]persistence.WatchChannel, error) {
	if r.expiringErr != nil {
		return nil, r.expiringErr
	}
	out := make([]persistence.WatchChannel, 0, len(r.expiring))
	for _, channel := range r.expiring {
		if channel.Expiration.Before(cutoff) {
			out = append(out, channel)
		}
	}
	return out, nil
}

func (r *watchChannelRepoStub) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedUsers = append(r.deletedUsers, userID)
	return nil
}

type auditRepoStub struct {
	mu      sync.Mutex
	entries []persistence.AuditEntry
	err     error
}

func (r *auditRepoStub) Append(ctx context.Context, entry persistence.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *auditRepoStub) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Action)
	}
	return out
}

type calendarClientStub struct {
	mu sync.Mutex

	events    []RemoteEvent
	listErr   error
	listCalls int
	listHook  func(call int)

	watchID    string
	resourceID string
	expiration time.Time
	createErr  map[string]error

	stopped []string
	stopErr error
}

func (c *calendarClientStub) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]RemoteEvent, error) {
	c.mu.Lock()
	c.listCalls++
	call := c.listCalls
	hook := c.listHook
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := make([]RemoteEvent, len(c.events))
	copy(out, c.events)
	return out, nil
}

func (c *calendarClientStub) CreateWatch(ctx context.Context, userID string) (WatchRegistration, error) {
	if err := c.createErr[userID]; err != nil {
		return WatchRegistration{}, err
	}
	id := c.watchID
	if id == "" {
		id = "channel-" + userID
	}
	resource := c.resourceID
	if resource == "" {
		resource = "resource-" + userID
	}
	return WatchRegistration{ChannelID: id, ResourceID: resource, Expiration: c.expiration}, nil
}

func (c *calendarClientStub) StopWatch(ctx context.Context, userID, channelID, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopErr != nil {
		return c.stopErr
	}
	c.stopped = append(c.stopped, channelID)
	return nil
}

func (c *calendarClientStub) listCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func (c *calendarClientStub) stoppedChannels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.stopped))
	copy(out, c.stopped)
	return out
}

func newTestAudit(repo *auditRepoStub, now func() time.Time) *AuditLogger {
	return NewAuditLogger(repo, testfixtures.NewIDGenerator("audit").Next, now)
}
