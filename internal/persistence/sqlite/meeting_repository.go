package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	pool *ConnectionPool
}

// NewMeetingRepository creates a SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

const meetingColumns = "id, user_id, remote_event_id, title, start_time, end_time, status, location, description, created_at, updated_at"

// ListMeetings returns a user's meetings within the filter window ordered by
// start time.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	query := "SELECT " + meetingColumns + " FROM meetings WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.StartsAfter != nil {
		query += " AND start_time >= ?"
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		query += " AND start_time < ?"
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return meetings, nil
}

// GetByRemoteEventID retrieves the meeting mirroring a remote event.
func (r *MeetingRepository) GetByRemoteEventID(ctx context.Context, userID, remoteEventID string) (persistence.Meeting, error) {
	if userID == "" || remoteEventID == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}

	query := "SELECT " + meetingColumns + " FROM meetings WHERE user_id = ? AND remote_event_id = ?"
	return scanMeeting(r.pool.db.QueryRowContext(ctx, query, userID, remoteEventID))
}

// ApplyChangeSet commits one reconciliation run's creates, updates and deletes
// in a single transaction. A failure rolls back the whole set.
func (r *MeetingRepository) ApplyChangeSet(ctx context.Context, changes persistence.MeetingChangeSet) error {
	if changes.Empty() {
		return nil
	}

	now := time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, meeting := range changes.Create {
			if meeting.ID == "" || meeting.UserID == "" || meeting.RemoteEventID == "" {
				return persistence.ErrConstraintViolation
			}

			query := `
				INSERT INTO meetings (id, user_id, remote_event_id, title, start_time, end_time, status, location, description, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			_, err := tx.ExecContext(ctx, query,
				meeting.ID,
				meeting.UserID,
				meeting.RemoteEventID,
				meeting.Title,
				meeting.StartTime.UTC().Format(time.RFC3339),
				meeting.EndTime.UTC().Format(time.RFC3339),
				meeting.Status,
				nullString(meeting.Location),
				nullString(meeting.Description),
				now.Format(time.RFC3339),
				now.Format(time.RFC3339),
			)
			if err != nil {
				return mapError(err)
			}
		}

		for _, meeting := range changes.Update {
			query := `
				UPDATE meetings
				SET title = ?, start_time = ?, end_time = ?, status = ?, location = ?, description = ?, updated_at = ?
				WHERE id = ?
			`
			result, err := tx.ExecContext(ctx, query,
				meeting.Title,
				meeting.StartTime.UTC().Format(time.RFC3339),
				meeting.EndTime.UTC().Format(time.RFC3339),
				meeting.Status,
				nullString(meeting.Location),
				nullString(meeting.Description),
				now.Format(time.RFC3339),
				meeting.ID,
			)
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
		}

		for _, id := range changes.Delete {
			if _, err := tx.ExecContext(ctx, "DELETE FROM meetings WHERE id = ?", id); err != nil {
				return mapError(err)
			}
		}

		return nil
	})
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	var startStr, endStr, createdAtStr, updatedAtStr string
	var location, description sql.NullString

	err := row.Scan(
		&meeting.ID,
		&meeting.UserID,
		&meeting.RemoteEventID,
		&meeting.Title,
		&startStr,
		&endStr,
		&meeting.Status,
		&location,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, mapError(err)
	}

	if location.Valid {
		meeting.Location = &location.String
	}
	if description.Valid {
		meeting.Description = &description.String
	}

	if meeting.StartTime, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse start_time: %w", err)
	}
	if meeting.EndTime, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse end_time: %w", err)
	}
	if meeting.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if meeting.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return meeting, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
