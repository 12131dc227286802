package application

import (
	"context"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// Renewal defaults. Channels expiring within the threshold get replaced on
// each pass; a user whose renewals keep failing has sync switched off after
// the failure limit is reached.
const (
	DefaultRenewalInterval  = time.Hour
	DefaultRenewalThreshold = 24 * time.Hour
	DefaultRenewalTimeout   = 10 * time.Second
	DefaultFailureLimit     = 3
)

// RenewalService replaces watch channels before the provider expires them.
// One user's failure never blocks the rest of the pass.
type RenewalService struct {
	channels    persistence.WatchChannelRepository
	connections persistence.ConnectionRepository
	watch       *WatchService
	audit       *AuditLogger
	now         func() time.Time

	interval     time.Duration
	threshold    time.Duration
	perUserLimit time.Duration
	failureLimit int
}

// NewRenewalService creates a RenewalService with the default cadence.
func NewRenewalService(
	channels persistence.WatchChannelRepository,
	connections persistence.ConnectionRepository,
	watch *WatchService,
	audit *AuditLogger,
	now func() time.Time,
) *RenewalService {
	return &RenewalService{
		channels:     channels,
		connections:  connections,
		watch:        watch,
		audit:        audit,
		now:          now,
		interval:     DefaultRenewalInterval,
		threshold:    DefaultRenewalThreshold,
		perUserLimit: DefaultRenewalTimeout,
		failureLimit: DefaultFailureLimit,
	}
}

// SetInterval overrides the pass cadence. Values below one minute are ignored.
func (s *RenewalService) SetInterval(interval time.Duration) {
	if interval >= time.Minute {
		s.interval = interval
	}
}

// Run executes renewal passes on the configured interval until the context
// is cancelled. An immediate first pass runs on startup.
func (s *RenewalService) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)
	logger.Info("watch channel renewal started", "interval", s.interval)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch channel renewal stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce renews every channel expiring within the threshold and returns the
// number of successful renewals.
func (s *RenewalService) RunOnce(ctx context.Context) int {
	logger := logging.FromContext(ctx)

	cutoff := s.now().Add(s.threshold)
	expiring, err := s.channels.FindExpiringBefore(ctx, cutoff)
	if err != nil {
		logger.Error("failed to list expiring watch channels", "error", err)
		return 0
	}
	if len(expiring) == 0 {
		return 0
	}

	logger.Info("renewing expiring watch channels", "count", len(expiring), "cutoff", cutoff)

	renewed := 0
	for _, channel := range expiring {
		if ctx.Err() != nil {
			return renewed
		}
		if s.renewOne(ctx, channel) {
			renewed++
		}
	}
	return renewed
}

// renewOne replaces a single user's channel under the per-user timeout and
// tracks consecutive failures on the connection.
func (s *RenewalService) renewOne(ctx context.Context, channel persistence.WatchChannel) bool {
	logger := logging.FromContext(ctx)

	connection, err := s.connections.GetByUser(ctx, channel.UserID, Provider)
	if err == nil && !connection.SyncEnabled {
		logger.Info("skipping renewal for sync-disabled connection",
			"user_id", channel.UserID,
			"channel_id", channel.ChannelID,
		)
		return false
	}

	userCtx, cancel := context.WithTimeout(ctx, s.perUserLimit)
	defer cancel()

	replacement, err := s.watch.Setup(userCtx, channel.UserID)
	if err != nil {
		logger.Error("watch channel renewal failed",
			"user_id", channel.UserID,
			"channel_id", channel.ChannelID,
			"error", err,
		)
		s.handleFailure(ctx, channel.UserID)
		return false
	}

	if err := s.connections.ResetFailureCount(ctx, channel.UserID, Provider); err != nil {
		logger.Warn("failed to reset renewal failure count", "user_id", channel.UserID, "error", err)
	}

	s.audit.Record(ctx, channel.UserID, AuditActionWatchRenewed, auditResourceWatchChannel, replacement.ChannelID, map[string]any{
		"previous_channel_id": channel.ChannelID,
		"expiration":          replacement.Expiration.UTC().Format(time.RFC3339),
	})
	logger.Info("watch channel renewed",
		"user_id", channel.UserID,
		"channel_id", replacement.ChannelID,
		"expiration", replacement.Expiration,
	)
	return true
}

func (s *RenewalService) handleFailure(ctx context.Context, userID string) {
	logger := logging.FromContext(ctx)

	failures, err := s.connections.IncrementFailureCount(ctx, userID, Provider)
	if err != nil {
		logger.Warn("failed to increment renewal failure count", "user_id", userID, "error", err)
		return
	}
	if failures < s.failureLimit {
		return
	}

	if err := s.connections.SetSyncEnabled(ctx, userID, Provider, false); err != nil {
		logger.Error("failed to disable sync after repeated renewal failures", "user_id", userID, "error", err)
		return
	}
	s.audit.Record(ctx, userID, AuditActionSyncDisabled, auditResourceConnection, userID, map[string]any{
		"consecutive_failures": failures,
	})
	logger.Warn("sync disabled after repeated renewal failures",
		"user_id", userID,
		"consecutive_failures", failures,
	)
}
