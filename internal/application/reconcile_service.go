package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// Provider is the calendar provider this service synchronizes with.
const Provider = "google"

// Reconciliation window relative to the run's reference time.
const (
	windowPast   = 90 * 24 * time.Hour
	windowFuture = 365 * 24 * time.Hour
)

// ReconcileService mirrors a user's remote calendar window into local
// meeting records. Runs are serialized per user; triggers that arrive while
// a run is in flight coalesce into a single rerun.
type ReconcileService struct {
	connections persistence.ConnectionRepository
	meetings    persistence.MeetingRepository
	calendar    CalendarClient
	audit       *AuditLogger
	guard       *syncGuard
	idGenerator func() string
	now         func() time.Time

	retryAttempts int
	retryBaseWait time.Duration
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(
	connections persistence.ConnectionRepository,
	meetings persistence.MeetingRepository,
	calendar CalendarClient,
	audit *AuditLogger,
	idGenerator func() string,
	now func() time.Time,
) *ReconcileService {
	return &ReconcileService{
		connections:   connections,
		meetings:      meetings,
		calendar:      calendar,
		audit:         audit,
		guard:         newSyncGuard(),
		idGenerator:   idGenerator,
		now:           now,
		retryAttempts: defaultRetryAttempts,
		retryBaseWait: defaultRetryBaseWait,
	}
}

// Sync reconciles one user's calendar. If a run for the user is already in
// flight, the call returns immediately with Coalesced set and the in-flight
// run repeats once more before finishing.
func (s *ReconcileService) Sync(ctx context.Context, userID string) (SyncResult, error) {
	if !s.guard.acquire(userID) {
		return SyncResult{UserID: userID, Coalesced: true}, nil
	}
	defer s.guard.release(userID)

	result, err := s.reconcile(ctx, userID)
	for err == nil && s.guard.consumeRerun(userID) {
		result.Reruns++
		var rerun SyncResult
		rerun, err = s.reconcile(ctx, userID)
		if err == nil {
			result.Created += rerun.Created
			result.Updated += rerun.Updated
			result.Deleted += rerun.Deleted
		}
	}
	return result, err
}

func (s *ReconcileService) reconcile(ctx context.Context, userID string) (SyncResult, error) {
	logger := logging.FromContext(ctx)
	result := SyncResult{UserID: userID}

	connection, err := s.connections.GetByUser(ctx, userID, Provider)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return result, ErrConnectionInactive
		}
		return result, fmt.Errorf("load connection: %w", err)
	}
	if !connection.IsActive {
		return result, ErrConnectionInactive
	}
	if !connection.SyncEnabled {
		return result, ErrSyncDisabled
	}

	reference := s.now()
	from := reference.Add(-windowPast)
	to := reference.Add(windowFuture)

	var remote []RemoteEvent
	err = withRetry(ctx, s.retryAttempts, s.retryBaseWait, func(ctx context.Context) error {
		var listErr error
		remote, listErr = s.calendar.ListEvents(ctx, userID, from, to)
		return listErr
	})
	if err != nil {
		s.recordFailure(ctx, userID, reference, err)
		if errors.Is(err, ErrAuthExpired) {
			s.invalidateAuth(ctx, userID)
		}
		return result, fmt.Errorf("list remote events: %w", err)
	}

	local, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		UserID:      userID,
		StartsAfter: &from,
		EndsBefore:  &to,
	})
	if err != nil {
		s.recordFailure(ctx, userID, reference, err)
		return result, fmt.Errorf("list local meetings: %w", err)
	}

	changes := s.diff(userID, remote, local, reference)
	if !changes.Empty() {
		if err := s.meetings.ApplyChangeSet(ctx, changes); err != nil {
			s.recordFailure(ctx, userID, reference, err)
			return result, fmt.Errorf("apply change set: %w", err)
		}
	}

	result.Created = len(changes.Create)
	result.Updated = len(changes.Update)
	result.Deleted = len(changes.Delete)

	if err := s.connections.RecordSyncOutcome(ctx, userID, Provider, persistence.SyncStatusOK, reference); err != nil {
		logger.Warn("failed to record sync outcome", "user_id", userID, "error", err)
	}

	s.audit.Record(ctx, userID, AuditActionSyncCompleted, auditResourceSync, userID, map[string]any{
		"created": result.Created,
		"updated": result.Updated,
		"deleted": result.Deleted,
	})
	logger.Info("calendar reconciliation completed",
		"user_id", userID,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
	)
	return result, nil
}

// diff computes the writes needed to make local meetings match the remote
// window. Remote events cancelled at the provider keep their local record
// with a cancelled status; local meetings absent from the remote listing are
// deleted.
func (s *ReconcileService) diff(userID string, remote []RemoteEvent, local []persistence.Meeting, reference time.Time) persistence.MeetingChangeSet {
	byRemoteID := make(map[string]persistence.Meeting, len(local))
	for _, meeting := range local {
		byRemoteID[meeting.RemoteEventID] = meeting
	}

	var changes persistence.MeetingChangeSet
	seen := make(map[string]bool, len(remote))

	for _, event := range remote {
		seen[event.ID] = true
		existing, known := byRemoteID[event.ID]

		if event.Cancelled {
			if known && existing.Status != persistence.MeetingStatusCancelled {
				existing.Status = persistence.MeetingStatusCancelled
				existing.UpdatedAt = reference
				changes.Update = append(changes.Update, existing)
			}
			continue
		}

		status := deriveStatus(event, reference)
		if !known {
			changes.Create = append(changes.Create, persistence.Meeting{
				ID:            s.idGenerator(),
				UserID:        userID,
				RemoteEventID: event.ID,
				Title:         event.Title,
				StartTime:     event.StartTime,
				EndTime:       event.EndTime,
				Status:        status,
				Location:      event.Location,
				Description:   event.Description,
				CreatedAt:     reference,
				UpdatedAt:     reference,
			})
			continue
		}

		if meetingMatches(existing, event, status) {
			continue
		}
		existing.Title = event.Title
		existing.StartTime = event.StartTime
		existing.EndTime = event.EndTime
		existing.Status = status
		existing.Location = event.Location
		existing.Description = event.Description
		existing.UpdatedAt = reference
		changes.Update = append(changes.Update, existing)
	}

	for _, meeting := range local {
		if !seen[meeting.RemoteEventID] {
			changes.Delete = append(changes.Delete, meeting.ID)
		}
	}
	return changes
}

// deriveStatus classifies a live remote event by its position relative to the
// reference time.
func deriveStatus(event RemoteEvent, reference time.Time) string {
	if event.EndTime.Before(reference) {
		return persistence.MeetingStatusCompleted
	}
	return persistence.MeetingStatusScheduled
}

// meetingMatches reports whether the stored meeting already reflects the
// remote event, so the write can be skipped.
func meetingMatches(meeting persistence.Meeting, event RemoteEvent, status string) bool {
	return meeting.Title == event.Title &&
		meeting.StartTime.Equal(event.StartTime) &&
		meeting.EndTime.Equal(event.EndTime) &&
		meeting.Status == status &&
		stringPtrEqual(meeting.Location, event.Location) &&
		stringPtrEqual(meeting.Description, event.Description)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *ReconcileService) recordFailure(ctx context.Context, userID string, reference time.Time, cause error) {
	if err := s.connections.RecordSyncOutcome(ctx, userID, Provider, persistence.SyncStatusFailed, reference); err != nil {
		logging.FromContext(ctx).Warn("failed to record sync outcome", "user_id", userID, "error", err)
	}
	s.audit.Record(ctx, userID, AuditActionSyncFailed, auditResourceSync, userID, map[string]any{
		"error": cause.Error(),
	})
}

func (s *ReconcileService) invalidateAuth(ctx context.Context, userID string) {
	logger := logging.FromContext(ctx)
	if err := s.connections.Deactivate(ctx, userID, Provider); err != nil {
		logger.Warn("failed to deactivate connection", "user_id", userID, "error", err)
		return
	}
	s.audit.Record(ctx, userID, AuditActionAuthInvalidated, auditResourceConnection, userID, nil)
	logger.Info("calendar connection deactivated after authorization failure", "user_id", userID)
}
