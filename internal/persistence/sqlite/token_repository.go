package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

// TokenRepository implements persistence.TokenRepository using SQLite.
type TokenRepository struct {
	pool *ConnectionPool
}

// NewTokenRepository creates a SQLite calendar token repository.
func NewTokenRepository(pool *ConnectionPool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// GetByUser retrieves a user's stored token.
func (r *TokenRepository) GetByUser(ctx context.Context, userID string) (persistence.CalendarToken, error) {
	if userID == "" {
		return persistence.CalendarToken{}, persistence.ErrNotFound
	}

	query := "SELECT user_id, access_token, refresh_token, expires_at, updated_at FROM calendar_tokens WHERE user_id = ?"

	var token persistence.CalendarToken
	var expiresAtStr, updatedAtStr string

	err := r.pool.db.QueryRowContext(ctx, query, userID).Scan(
		&token.UserID,
		&token.AccessToken,
		&token.RefreshToken,
		&expiresAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.CalendarToken{}, persistence.ErrNotFound
		}
		return persistence.CalendarToken{}, mapError(err)
	}

	if token.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.CalendarToken{}, fmt.Errorf("sqlite: parse expires_at: %w", err)
	}
	if token.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.CalendarToken{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return token, nil
}

// Save inserts or replaces the user's token row.
func (r *TokenRepository) Save(ctx context.Context, token persistence.CalendarToken) error {
	if token.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO calendar_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		token.UserID,
		token.AccessToken,
		token.RefreshToken,
		token.ExpiresAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// Delete removes the user's token row.
func (r *TokenRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM calendar_tokens WHERE user_id = ?", userID)
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
