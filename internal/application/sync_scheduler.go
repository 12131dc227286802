package application

import (
	"context"
	"errors"
	"time"

	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
)

// DefaultFullSyncInterval is the cadence of the periodic full pass. Push
// notifications drive most reconciliations; the full pass catches users whose
// deliveries were missed.
const DefaultFullSyncInterval = 6 * time.Hour

// SyncScheduler periodically reconciles every active connection as a safety
// net behind the webhook path. One user's failure never blocks the rest of
// the pass.
type SyncScheduler struct {
	connections persistence.ConnectionRepository
	reconcile   *ReconcileService

	interval time.Duration
}

// NewSyncScheduler creates a SyncScheduler with the default cadence.
func NewSyncScheduler(connections persistence.ConnectionRepository, reconcile *ReconcileService) *SyncScheduler {
	return &SyncScheduler{
		connections: connections,
		reconcile:   reconcile,
		interval:    DefaultFullSyncInterval,
	}
}

// SetInterval overrides the pass cadence. Values below one minute are ignored.
func (s *SyncScheduler) SetInterval(interval time.Duration) {
	if interval >= time.Minute {
		s.interval = interval
	}
}

// Run executes full passes on the configured interval until the context is
// cancelled. The first pass waits a full interval so startup traffic is not
// doubled by an immediate sweep.
func (s *SyncScheduler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)
	logger.Info("periodic full sync started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic full sync stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles every active connection once and returns the number of
// users whose reconciliation succeeded.
func (s *SyncScheduler) RunOnce(ctx context.Context) int {
	logger := logging.FromContext(ctx)

	active, err := s.connections.ListActive(ctx, Provider)
	if err != nil {
		logger.Error("failed to list active connections", "error", err)
		return 0
	}
	if len(active) == 0 {
		return 0
	}

	logger.Info("running full sync pass", "count", len(active))

	synced := 0
	for _, connection := range active {
		if ctx.Err() != nil {
			return synced
		}

		result, err := s.reconcile.Sync(ctx, connection.UserID)
		if errors.Is(err, ErrSyncDisabled) {
			continue
		}
		if err != nil {
			logger.Error("full sync pass failed for user",
				"user_id", connection.UserID,
				"error", err,
			)
			continue
		}
		synced++
		if result.Changed() {
			logger.Info("full sync pass reconciled changes",
				"user_id", connection.UserID,
				"created", result.Created,
				"updated", result.Updated,
				"deleted", result.Deleted,
			)
		}
	}
	return synced
}
