package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/advicly/calendar-sync/internal/persistence"
	"github.com/advicly/calendar-sync/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool        *sqlite.ConnectionPool
	Connections persistence.ConnectionRepository
	Channels    persistence.WatchChannelRepository
	Meetings    persistence.MeetingRepository
	Tokens      persistence.TokenRepository
	Audit       persistence.AuditRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "syncd.db") + "?_pragma=foreign_keys(1)"

	pool, err := sqlite.Open(dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:        pool,
		Connections: sqlite.NewConnectionRepository(pool),
		Channels:    sqlite.NewWatchChannelRepository(pool),
		Meetings:    sqlite.NewMeetingRepository(pool),
		Tokens:      sqlite.NewTokenRepository(pool),
		Audit:       sqlite.NewAuditRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
