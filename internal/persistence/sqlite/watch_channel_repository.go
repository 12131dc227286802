package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

// WatchChannelRepository implements persistence.WatchChannelRepository using SQLite.
type WatchChannelRepository struct {
	pool *ConnectionPool
}

// NewWatchChannelRepository creates a SQLite watch channel repository.
func NewWatchChannelRepository(pool *ConnectionPool) *WatchChannelRepository {
	return &WatchChannelRepository{pool: pool}
}

const watchChannelColumns = "user_id, channel_id, resource_id, expiration, webhook_url, created_at, updated_at"

// GetByUser retrieves the channel registered for a user.
func (r *WatchChannelRepository) GetByUser(ctx context.Context, userID string) (persistence.WatchChannel, error) {
	if userID == "" {
		return persistence.WatchChannel{}, persistence.ErrNotFound
	}

	query := "SELECT " + watchChannelColumns + " FROM calendar_watch_channels WHERE user_id = ?"
	return scanWatchChannel(r.pool.db.QueryRowContext(ctx, query, userID))
}

// GetByChannelID resolves an inbound notification's channel id.
func (r *WatchChannelRepository) GetByChannelID(ctx context.Context, channelID string) (persistence.WatchChannel, error) {
	if channelID == "" {
		return persistence.WatchChannel{}, persistence.ErrNotFound
	}

	query := "SELECT " + watchChannelColumns + " FROM calendar_watch_channels WHERE channel_id = ?"
	return scanWatchChannel(r.pool.db.QueryRowContext(ctx, query, channelID))
}

// Upsert replaces any existing channel for the user in a single statement so a
// concurrent upsert for the same user cannot leave two live channels.
func (r *WatchChannelRepository) Upsert(ctx context.Context, channel persistence.WatchChannel) (persistence.WatchChannel, error) {
	if channel.UserID == "" || channel.ChannelID == "" {
		return persistence.WatchChannel{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now

	query := `
		INSERT INTO calendar_watch_channels (user_id, channel_id, resource_id, expiration, webhook_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			resource_id = excluded.resource_id,
			expiration = excluded.expiration,
			webhook_url = excluded.webhook_url,
			updated_at = excluded.updated_at
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		channel.UserID,
		channel.ChannelID,
		channel.ResourceID,
		channel.Expiration.UTC().Format(time.RFC3339),
		channel.WebhookURL,
		channel.CreatedAt.Format(time.RFC3339),
		channel.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return persistence.WatchChannel{}, mapError(err)
	}

	return r.GetByUser(ctx, channel.UserID)
}

// FindExpiringBefore returns channels whose expiration precedes the cutoff,
// soonest first.
func (r *WatchChannelRepository) FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]persistence.WatchChannel, error) {
	query := "SELECT " + watchChannelColumns + ` FROM calendar_watch_channels
		WHERE expiration < ?
		ORDER BY expiration ASC, user_id ASC`

	rows, err := r.pool.db.QueryContext(ctx, query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var channels []persistence.WatchChannel
	for rows.Next() {
		channel, err := scanWatchChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return channels, nil
}

// Delete removes the channel registered for a user.
func (r *WatchChannelRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM calendar_watch_channels WHERE user_id = ?", userID)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchChannel(row rowScanner) (persistence.WatchChannel, error) {
	var channel persistence.WatchChannel
	var expirationStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&channel.UserID,
		&channel.ChannelID,
		&channel.ResourceID,
		&expirationStr,
		&channel.WebhookURL,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.WatchChannel{}, persistence.ErrNotFound
		}
		return persistence.WatchChannel{}, mapError(err)
	}

	if channel.Expiration, err = time.Parse(time.RFC3339, expirationStr); err != nil {
		return persistence.WatchChannel{}, fmt.Errorf("sqlite: parse expiration: %w", err)
	}
	if channel.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.WatchChannel{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if channel.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.WatchChannel{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return channel, nil
}
