package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// WatchService manages the lifecycle of provider push channels: setup,
// replacement, teardown, and status reporting.
type WatchService struct {
	channels    persistence.WatchChannelRepository
	connections persistence.ConnectionRepository
	calendar    CalendarClient
	audit       *AuditLogger
	webhookURL  string
	now         func() time.Time
}

// NewWatchService creates a WatchService. webhookURL is the address the
// provider will deliver notifications to.
func NewWatchService(
	channels persistence.WatchChannelRepository,
	connections persistence.ConnectionRepository,
	calendar CalendarClient,
	audit *AuditLogger,
	webhookURL string,
	now func() time.Time,
) *WatchService {
	return &WatchService{
		channels:    channels,
		connections: connections,
		calendar:    calendar,
		audit:       audit,
		webhookURL:  webhookURL,
		now:         now,
	}
}

// Setup registers a fresh push channel for the user, replacing any existing
// registration. The previous channel is stopped at the provider best-effort;
// its id becomes unknown either way.
func (s *WatchService) Setup(ctx context.Context, userID string) (persistence.WatchChannel, error) {
	logger := logging.FromContext(ctx)

	connection, err := s.connections.GetByUser(ctx, userID, Provider)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.WatchChannel{}, ErrConnectionInactive
		}
		return persistence.WatchChannel{}, fmt.Errorf("load connection: %w", err)
	}
	if !connection.IsActive {
		return persistence.WatchChannel{}, ErrConnectionInactive
	}

	if previous, err := s.channels.GetByUser(ctx, userID); err == nil {
		s.stopAtProvider(ctx, userID, previous)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		logger.Warn("failed to load previous watch channel", "user_id", userID, "error", err)
	}

	registration, err := s.calendar.CreateWatch(ctx, userID)
	if err != nil {
		return persistence.WatchChannel{}, fmt.Errorf("create watch channel: %w", err)
	}

	reference := s.now()
	channel, err := s.channels.Upsert(ctx, persistence.WatchChannel{
		UserID:     userID,
		ChannelID:  registration.ChannelID,
		ResourceID: registration.ResourceID,
		Expiration: registration.Expiration,
		WebhookURL: s.webhookURL,
		CreatedAt:  reference,
		UpdatedAt:  reference,
	})
	if err != nil {
		return persistence.WatchChannel{}, fmt.Errorf("store watch channel: %w", err)
	}

	s.audit.Record(ctx, userID, AuditActionWatchCreated, auditResourceWatchChannel, channel.ChannelID, map[string]any{
		"expiration": channel.Expiration.UTC().Format(time.RFC3339),
	})
	logger.Info("watch channel registered",
		"user_id", userID,
		"channel_id", channel.ChannelID,
		"expiration", channel.Expiration,
	)
	return channel, nil
}

// Stop tears down the user's push channel. The provider stop is best-effort;
// the local registration is always removed.
func (s *WatchService) Stop(ctx context.Context, userID string) error {
	channel, err := s.channels.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrUnknownChannel
		}
		return fmt.Errorf("load watch channel: %w", err)
	}

	s.stopAtProvider(ctx, userID, channel)

	if err := s.channels.Delete(ctx, userID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("delete watch channel: %w", err)
	}

	s.audit.Record(ctx, userID, AuditActionWatchStopped, auditResourceWatchChannel, channel.ChannelID, nil)
	logging.FromContext(ctx).Info("watch channel stopped", "user_id", userID, "channel_id", channel.ChannelID)
	return nil
}

// Status reports the user's sync health, combining connection state with the
// current watch registration.
func (s *WatchService) Status(ctx context.Context, userID string) (SyncStatus, error) {
	connection, err := s.connections.GetByUser(ctx, userID, Provider)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return SyncStatus{}, ErrConnectionInactive
		}
		return SyncStatus{}, fmt.Errorf("load connection: %w", err)
	}

	status := SyncStatus{
		UserID:         userID,
		SyncEnabled:    connection.IsActive && connection.SyncEnabled,
		LastSyncAt:     connection.LastSyncAt,
		LastSyncStatus: connection.LastSyncStatus,
		FailureCount:   connection.FailureCount,
	}

	channel, err := s.channels.GetByUser(ctx, userID)
	switch {
	case err == nil:
		status.WatchActive = !channel.Expired(s.now())
		expiration := channel.Expiration
		status.WatchExpiresAt = &expiration
	case errors.Is(err, persistence.ErrNotFound):
	default:
		return SyncStatus{}, fmt.Errorf("load watch channel: %w", err)
	}

	return status, nil
}

func (s *WatchService) stopAtProvider(ctx context.Context, userID string, channel persistence.WatchChannel) {
	if err := s.calendar.StopWatch(ctx, userID, channel.ChannelID, channel.ResourceID); err != nil {
		logging.FromContext(ctx).Warn("failed to stop watch channel at provider",
			"user_id", userID,
			"channel_id", channel.ChannelID,
			"error", err,
		)
	}
}
