package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "rekam/pkg/domain"
	audit "rekam/pkg/platform/audit"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `id, timestamp, user_id, actor_role, action, category, subject,
	decision, reason, request_id, client_ip, user_agent`

// Append inserts the event. Duplicate IDs are ignored so redelivery is harmless.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}
	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, user_id, actor_role, action, category, subject,
			decision, reason, request_id, client_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		userID,
		event.ActorRole,
		event.Action,
		event.RecordCategory,
		event.Subject,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns userID's events, newest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_events WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`
	return s.list(ctx, query, uuid.UUID(userID), clampLimit(limit))
}

// ListRecent returns the newest events across all users.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_events ORDER BY timestamp DESC LIMIT $1`
	return s.list(ctx, query, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 1000
	}
	return limit
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e      audit.Event
			userID uuid.NullUUID
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &userID, &e.ActorRole, &e.Action, &e.RecordCategory,
			&e.Subject, &e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if userID.Valid {
			e.UserID = id.UserID(userID.UUID)
		}
		e.Category = audit.AuditEvent(e.Action).Category()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
