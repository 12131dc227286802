package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

// ConnectionRepository implements persistence.ConnectionRepository using SQLite.
type ConnectionRepository struct {
	pool *ConnectionPool
}

// NewConnectionRepository creates a SQLite calendar connection repository.
func NewConnectionRepository(pool *ConnectionPool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

const connectionColumns = "id, user_id, provider, provider_account_email, is_active, sync_enabled, last_sync_at, last_sync_status, failure_count, created_at, updated_at"

// GetByUser retrieves a user's connection for a provider.
func (r *ConnectionRepository) GetByUser(ctx context.Context, userID, provider string) (persistence.CalendarConnection, error) {
	if userID == "" || provider == "" {
		return persistence.CalendarConnection{}, persistence.ErrNotFound
	}

	query := "SELECT " + connectionColumns + " FROM calendar_connections WHERE user_id = ? AND provider = ?"
	return scanConnection(r.pool.db.QueryRowContext(ctx, query, userID, provider))
}

// ListActive returns all active connections for a provider ordered by user id.
func (r *ConnectionRepository) ListActive(ctx context.Context, provider string) ([]persistence.CalendarConnection, error) {
	query := "SELECT " + connectionColumns + ` FROM calendar_connections
		WHERE provider = ? AND is_active = 1
		ORDER BY user_id ASC`

	rows, err := r.pool.db.QueryContext(ctx, query, provider)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var connections []persistence.CalendarConnection
	for rows.Next() {
		connection, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, connection)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return connections, nil
}

// Create inserts a new connection.
func (r *ConnectionRepository) Create(ctx context.Context, connection persistence.CalendarConnection) error {
	if connection.ID == "" || connection.UserID == "" || connection.Provider == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	connection.CreatedAt = now
	connection.UpdatedAt = now

	query := `
		INSERT INTO calendar_connections (id, user_id, provider, provider_account_email, is_active, sync_enabled, last_sync_at, last_sync_status, failure_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var lastSyncAt sql.NullString
	if connection.LastSyncAt != nil {
		lastSyncAt.String = connection.LastSyncAt.UTC().Format(time.RFC3339)
		lastSyncAt.Valid = true
	}

	_, err := r.pool.db.ExecContext(ctx, query,
		connection.ID,
		connection.UserID,
		connection.Provider,
		connection.ProviderAccountEmail,
		boolToInt(connection.IsActive),
		boolToInt(connection.SyncEnabled),
		lastSyncAt,
		connection.LastSyncStatus,
		connection.FailureCount,
		connection.CreatedAt.Format(time.RFC3339),
		connection.UpdatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

// RecordSyncOutcome stamps the last sync time and status for a connection.
// The timestamp advances on failed runs too so staleness stays observable.
func (r *ConnectionRepository) RecordSyncOutcome(ctx context.Context, userID, provider, status string, syncedAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET last_sync_at = ?, last_sync_status = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`
	return r.execExpectingRow(ctx, query,
		syncedAt.UTC().Format(time.RFC3339),
		status,
		time.Now().UTC().Format(time.RFC3339),
		userID,
		provider,
	)
}

// SetSyncEnabled toggles sync for a connection. Re-enabling clears the
// consecutive failure counter.
func (r *ConnectionRepository) SetSyncEnabled(ctx context.Context, userID, provider string, enabled bool) error {
	query := `
		UPDATE calendar_connections
		SET sync_enabled = ?, failure_count = CASE WHEN ? THEN 0 ELSE failure_count END, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`
	return r.execExpectingRow(ctx, query,
		boolToInt(enabled),
		boolToInt(enabled),
		time.Now().UTC().Format(time.RFC3339),
		userID,
		provider,
	)
}

// IncrementFailureCount bumps the consecutive failure counter and returns the
// new value.
func (r *ConnectionRepository) IncrementFailureCount(ctx context.Context, userID, provider string) (int, error) {
	var count int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE calendar_connections
			SET failure_count = failure_count + 1, updated_at = ?
			WHERE user_id = ? AND provider = ?
		`
		result, err := tx.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), userID, provider)
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

		row := tx.QueryRowContext(ctx, "SELECT failure_count FROM calendar_connections WHERE user_id = ? AND provider = ?", userID, provider)
		return row.Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ResetFailureCount clears the consecutive failure counter.
func (r *ConnectionRepository) ResetFailureCount(ctx context.Context, userID, provider string) error {
	query := `
		UPDATE calendar_connections
		SET failure_count = 0, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`
	return r.execExpectingRow(ctx, query, time.Now().UTC().Format(time.RFC3339), userID, provider)
}

// Deactivate marks the connection inactive, e.g. after an unrecoverable token
// refresh failure.
func (r *ConnectionRepository) Deactivate(ctx context.Context, userID, provider string) error {
	query := `
		UPDATE calendar_connections
		SET is_active = 0, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`
	return r.execExpectingRow(ctx, query, time.Now().UTC().Format(time.RFC3339), userID, provider)
}

func (r *ConnectionRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.db.ExecContext(ctx, query, args...)
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

func scanConnection(row rowScanner) (persistence.CalendarConnection, error) {
	var connection persistence.CalendarConnection
	var isActive, syncEnabled int
	var lastSyncAt sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&connection.ID,
		&connection.UserID,
		&connection.Provider,
		&connection.ProviderAccountEmail,
		&isActive,
		&syncEnabled,
		&lastSyncAt,
		&connection.LastSyncStatus,
		&connection.FailureCount,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.CalendarConnection{}, persistence.ErrNotFound
		}
		return persistence.CalendarConnection{}, mapError(err)
	}

	connection.IsActive = isActive != 0
	connection.SyncEnabled = syncEnabled != 0

	if lastSyncAt.Valid {
		parsed, err := time.Parse(time.RFC3339, lastSyncAt.String)
		if err != nil {
			return persistence.CalendarConnection{}, fmt.Errorf("sqlite: parse last_sync_at: %w", err)
		}
		connection.LastSyncAt = &parsed
	}
	if connection.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.CalendarConnection{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if connection.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.CalendarConnection{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return connection, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
