package sqlite

import (
	"context"
	"time"

	"github.com/advicly/calendar-sync/internal/persistence"
)

// AuditRepository implements persistence.AuditRepository using SQLite.
type AuditRepository struct {
	pool *ConnectionPool
}

// NewAuditRepository creates a SQLite audit log repository.
func NewAuditRepository(pool *ConnectionPool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.Action == "" {
		return persistence.ErrConstraintViolation
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Details,
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}
