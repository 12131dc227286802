package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
	"github.com/advicly/calendar-sync/internal/testfixtures"
)

func TestConnectionRepository_Create(t *testing.T) {
	t.Run("stores and retrieves a connection", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		connection := testfixtures.NewConnectionFixture()
		if err := harness.Connections.Create(ctx, connection); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		stored, err := harness.Connections.GetByUser(ctx, connection.UserID, connection.Provider)
		if err != nil {
			t.Fatalf("GetByUser returned error: %v", err)
		}
		if stored.ID != connection.ID || !stored.IsActive || !stored.SyncEnabled {
			t.Fatalf("stored = %+v, want %+v", stored, connection)
		}
		if stored.LastSyncAt != nil {
			t.Fatalf("fresh connection has LastSyncAt = %v", stored.LastSyncAt)
		}
	})

	t.Run("rejects a second connection for the same user and provider", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		connection := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-dup"))
		if err := harness.Connections.Create(ctx, connection); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		duplicate := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-dup"))
		if err := harness.Connections.Create(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestConnectionRepository_ListActive(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	active := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-active"))
	inactive := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-inactive"))
	for _, connection := range []persistence.CalendarConnection{active, inactive} {
		if err := harness.Connections.Create(ctx, connection); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	if err := harness.Connections.Deactivate(ctx, "user-inactive", "google"); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}

	connections, err := harness.Connections.ListActive(ctx, "google")
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(connections) != 1 || connections[0].UserID != "user-active" {
		t.Fatalf("ListActive = %+v, want only user-active", connections)
	}
}

func TestConnectionRepository_RecordSyncOutcome(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	connection := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-sync"))
	if err := harness.Connections.Create(ctx, connection); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	syncedAt := testfixtures.ReferenceTime().Add(time.Hour)
	if err := harness.Connections.RecordSyncOutcome(ctx, "user-sync", "google", persistence.SyncStatusOK, syncedAt); err != nil {
		t.Fatalf("RecordSyncOutcome returned error: %v", err)
	}

	stored, err := harness.Connections.GetByUser(ctx, "user-sync", "google")
	if err != nil {
		t.Fatalf("GetByUser returned error: %v", err)
	}
	if stored.LastSyncStatus != persistence.SyncStatusOK {
		t.Fatalf("LastSyncStatus = %q, want ok", stored.LastSyncStatus)
	}
	if stored.LastSyncAt == nil || !stored.LastSyncAt.Equal(syncedAt) {
		t.Fatalf("LastSyncAt = %v, want %v", stored.LastSyncAt, syncedAt)
	}

	failedAt := syncedAt.Add(time.Hour)
	if err := harness.Connections.RecordSyncOutcome(ctx, "user-sync", "google", persistence.SyncStatusFailed, failedAt); err != nil {
		t.Fatalf("RecordSyncOutcome returned error: %v", err)
	}

	stored, err = harness.Connections.GetByUser(ctx, "user-sync", "google")
	if err != nil {
		t.Fatalf("GetByUser returned error: %v", err)
	}
	if stored.LastSyncStatus != persistence.SyncStatusFailed {
		t.Fatalf("LastSyncStatus = %q, want failed", stored.LastSyncStatus)
	}
	if stored.LastSyncAt == nil || !stored.LastSyncAt.Equal(failedAt) {
		t.Fatalf("failed runs must advance LastSyncAt, got %v", stored.LastSyncAt)
	}

	if err := harness.Connections.RecordSyncOutcome(ctx, "user-missing", "google", persistence.SyncStatusOK, syncedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown user, got %v", err)
	}
}

func TestConnectionRepository_FailureCounting(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	connection := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-fail"))
	if err := harness.Connections.Create(ctx, connection); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	for want := 1; want <= 3; want++ {
		count, err := harness.Connections.IncrementFailureCount(ctx, "user-fail", "google")
		if err != nil {
			t.Fatalf("IncrementFailureCount returned error: %v", err)
		}
		if count != want {
			t.Fatalf("failure count = %d, want %d", count, want)
		}
	}

	if err := harness.Connections.ResetFailureCount(ctx, "user-fail", "google"); err != nil {
		t.Fatalf("ResetFailureCount returned error: %v", err)
	}
	stored, err := harness.Connections.GetByUser(ctx, "user-fail", "google")
	if err != nil {
		t.Fatalf("GetByUser returned error: %v", err)
	}
	if stored.FailureCount != 0 {
		t.Fatalf("FailureCount = %d after reset", stored.FailureCount)
	}

	if _, err := harness.Connections.IncrementFailureCount(ctx, "user-missing", "google"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown user, got %v", err)
	}
}

func TestConnectionRepository_SetSyncEnabled(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	connection := testfixtures.NewConnectionFixture(testfixtures.WithConnectionUser("user-toggle"))
	if err := harness.Connections.Create(ctx, connection); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := harness.Connections.SetSyncEnabled(ctx, "user-toggle", "google", false); err != nil {
		t.Fatalf("SetSyncEnabled returned error: %v", err)
	}
	if _, err := harness.Connections.IncrementFailureCount(ctx, "user-toggle", "google"); err != nil {
		t.Fatalf("IncrementFailureCount returned error: %v", err)
	}

	stored, err := harness.Connections.GetByUser(ctx, "user-toggle", "google")
	if err != nil {
		t.Fatalf("GetByUser returned error: %v", err)
	}
	if stored.SyncEnabled {
		t.Fatal("SyncEnabled = true after disable")
	}

	if err := harness.Connections.SetSyncEnabled(ctx, "user-toggle", "google", true); err != nil {
		t.Fatalf("SetSyncEnabled returned error: %v", err)
	}
	stored, err = harness.Connections.GetByUser(ctx, "user-toggle", "google")
	if err != nil {
		t.Fatalf("GetByUser returned error: %v", err)
	}
	if !stored.SyncEnabled {
		t.Fatal("SyncEnabled = false after re-enable")
	}
	if stored.FailureCount != 0 {
		t.Fatalf("re-enabling must clear the failure count, got %d", stored.FailureCount)
	}
}
