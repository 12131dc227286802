package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
	"github.com/advicly/calendar-sync/internal/testfixtures"
)

func TestWatchChannelRepository_Upsert(t *testing.T) {
	t.Run("stores and retrieves a channel", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		channel := testfixtures.NewChannelFixture()
		stored, err := harness.Channels.Upsert(ctx, channel)
		if err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
		if stored.ChannelID != channel.ChannelID {
			t.Fatalf("stored channel id = %q, want %q", stored.ChannelID, channel.ChannelID)
		}

		byUser, err := harness.Channels.GetByUser(ctx, channel.UserID)
		if err != nil {
			t.Fatalf("GetByUser returned error: %v", err)
		}
		if byUser.ChannelID != channel.ChannelID || !byUser.Expiration.Equal(channel.Expiration) {
			t.Fatalf("GetByUser = %+v, want %+v", byUser, channel)
		}

		byChannel, err := harness.Channels.GetByChannelID(ctx, channel.ChannelID)
		if err != nil {
			t.Fatalf("GetByChannelID returned error: %v", err)
		}
		if byChannel.UserID != channel.UserID {
			t.Fatalf("GetByChannelID user = %q, want %q", byChannel.UserID, channel.UserID)
		}
	})

	t.Run("replaces the previous channel for the same user", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		first := testfixtures.NewChannelFixture(testfixtures.WithChannelUser("user-replace"))
		if _, err := harness.Channels.Upsert(ctx, first); err != nil {
			t.Fatalf("first Upsert returned error: %v", err)
		}

		second := testfixtures.NewChannelFixture(testfixtures.WithChannelUser("user-replace"))
		if _, err := harness.Channels.Upsert(ctx, second); err != nil {
			t.Fatalf("second Upsert returned error: %v", err)
		}

		current, err := harness.Channels.GetByUser(ctx, "user-replace")
		if err != nil {
			t.Fatalf("GetByUser returned error: %v", err)
		}
		if current.ChannelID != second.ChannelID {
			t.Fatalf("current channel = %q, want %q", current.ChannelID, second.ChannelID)
		}

		if _, err := harness.Channels.GetByChannelID(ctx, first.ChannelID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("superseded channel id still resolves: %v", err)
		}
	})

	t.Run("rejects a channel id already registered to another user", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		first := testfixtures.NewChannelFixture(testfixtures.WithChannelUser("user-a"))
		if _, err := harness.Channels.Upsert(ctx, first); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}

		clash := first
		clash.UserID = "user-b"
		if _, err := harness.Channels.Upsert(ctx, clash); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestWatchChannelRepository_FindExpiringBefore(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	reference := testfixtures.ReferenceTime()

	soon := testfixtures.NewChannelFixture(
		testfixtures.WithChannelUser("user-soon"),
		testfixtures.WithExpiration(reference.Add(6*time.Hour)),
	)
	sooner := testfixtures.NewChannelFixture(
		testfixtures.WithChannelUser("user-sooner"),
		testfixtures.WithExpiration(reference.Add(2*time.Hour)),
	)
	comfortable := testfixtures.NewChannelFixture(
		testfixtures.WithChannelUser("user-later"),
		testfixtures.WithExpiration(reference.Add(5*24*time.Hour)),
	)
	for _, channel := range []persistence.WatchChannel{soon, sooner, comfortable} {
		if _, err := harness.Channels.Upsert(ctx, channel); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
	}

	expiring, err := harness.Channels.FindExpiringBefore(ctx, reference.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("FindExpiringBefore returned error: %v", err)
	}

	if len(expiring) != 2 {
		t.Fatalf("expected 2 expiring channels, got %d", len(expiring))
	}
	if expiring[0].UserID != "user-sooner" || expiring[1].UserID != "user-soon" {
		t.Fatalf("unexpected order: %q, %q", expiring[0].UserID, expiring[1].UserID)
	}
}

func TestWatchChannelRepository_Delete(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	channel := testfixtures.NewChannelFixture(testfixtures.WithChannelUser("user-delete"))
	if _, err := harness.Channels.Upsert(ctx, channel); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := harness.Channels.Delete(ctx, "user-delete"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := harness.Channels.GetByUser(ctx, "user-delete"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("deleted channel still resolves: %v", err)
	}

	if err := harness.Channels.Delete(ctx, "user-delete"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
