package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// Resource states delivered by the provider. "sync" is the handshake sent
// right after a channel is created and carries no changes.
const resourceStateSync = "sync"

// WebhookService turns inbound push notifications into reconciliation runs.
// A notification is acknowledged as soon as it is validated and routed; the
// reconciliation itself runs in the background.
type WebhookService struct {
	channels  persistence.WatchChannelRepository
	calendar  CalendarClient
	reconcile *ReconcileService
	now       func() time.Time

	// background runs the detached reconciliation. Tests replace it to run
	// synchronously.
	background func(ctx context.Context, fn func(context.Context))
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(
	channels persistence.WatchChannelRepository,
	calendar CalendarClient,
	reconcile *ReconcileService,
	now func() time.Time,
) *WebhookService {
	return &WebhookService{
		channels:  channels,
		calendar:  calendar,
		reconcile: reconcile,
		now:       now,
		background: func(ctx context.Context, fn func(context.Context)) {
			go fn(context.WithoutCancel(ctx))
		},
	}
}

// HandleNotification validates and routes one push notification. It returns
// once the notification is accepted; the triggered reconciliation completes
// asynchronously. Unknown channel ids return ErrUnknownChannel; expired
// channels are torn down and return ErrExpiredChannel.
func (s *WebhookService) HandleNotification(ctx context.Context, notification Notification) error {
	logger := logging.FromContext(ctx)

	channel, err := s.channels.GetByChannelID(ctx, notification.ChannelID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.Info("notification for unknown watch channel", "channel_id", notification.ChannelID)
			return ErrUnknownChannel
		}
		return fmt.Errorf("resolve watch channel: %w", err)
	}

	if channel.Expired(s.now()) {
		s.teardownExpired(ctx, channel)
		return ErrExpiredChannel
	}

	if notification.ResourceState == resourceStateSync {
		logger.Info("watch channel handshake acknowledged",
			"channel_id", channel.ChannelID,
			"user_id", channel.UserID,
		)
		return nil
	}

	logger.Info("notification routed",
		"channel_id", channel.ChannelID,
		"user_id", channel.UserID,
		"resource_state", notification.ResourceState,
	)

	s.background(ctx, func(ctx context.Context) {
		result, err := s.reconcile.Sync(ctx, channel.UserID)
		if errors.Is(err, ErrConnectionInactive) || errors.Is(err, ErrSyncDisabled) {
			logging.FromContext(ctx).Info("notification ignored for inactive or disabled connection",
				"user_id", channel.UserID,
				"error", err,
			)
			return
		}
		if err != nil {
			logging.FromContext(ctx).Error("reconciliation triggered by notification failed",
				"user_id", channel.UserID,
				"error", err,
			)
			return
		}
		if result.Coalesced {
			logging.FromContext(ctx).Info("notification coalesced into in-flight reconciliation",
				"user_id", channel.UserID,
			)
		}
	})
	return nil
}

// teardownExpired removes an expired registration and asks the provider to
// stop the channel. The provider stop is best-effort.
func (s *WebhookService) teardownExpired(ctx context.Context, channel persistence.WatchChannel) {
	logger := logging.FromContext(ctx)

	if err := s.calendar.StopWatch(ctx, channel.UserID, channel.ChannelID, channel.ResourceID); err != nil {
		logger.Warn("failed to stop expired watch channel at provider",
			"channel_id", channel.ChannelID,
			"error", err,
		)
	}
	if err := s.channels.Delete(ctx, channel.UserID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		logger.Warn("failed to delete expired watch channel",
			"channel_id", channel.ChannelID,
			"error", err,
		)
	}
	logger.Info("expired watch channel torn down",
		"channel_id", channel.ChannelID,
		"user_id", channel.UserID,
	)
}
