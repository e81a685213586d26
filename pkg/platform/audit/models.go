package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "rekam/pkg/domain"
)

// EventCategory classifies audit events by retention needs.
type EventCategory string

const (
	// CategoryCompliance covers changes to the submission record itself.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers review bookkeeping (ready flag, schedule).
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// UserID is the actor who performed the action.
	UserID    id.UserID `json:"user_id"`
	ActorRole string    `json:"actor_role,omitempty"`
	Action    string    `json:"action"`
	// RecordCategory is the submission category the action touched.
	RecordCategory string `json:"record_category,omitempty"`
	// Subject is the submission id.
	Subject   string `json:"subject,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type AuditEvent string

const (
	EventSubmissionCreated   AuditEvent = "submission_created"
	EventSubmissionEdited    AuditEvent = "submission_edited"
	EventSubmissionDeleted   AuditEvent = "submission_deleted"
	EventReadyToggled        AuditEvent = "submission_ready_toggled"
	EventScheduledDateSet    AuditEvent = "submission_scheduled_date_set"
	EventAuthorizationDenied AuditEvent = "submission_authorization_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSubmissionCreated:   CategoryCompliance,
	EventSubmissionEdited:    CategoryCompliance,
	EventSubmissionDeleted:   CategoryCompliance,
	EventAuthorizationDenied: CategoryCompliance,
	EventReadyToggled:        CategoryOperations,
	EventScheduledDateSet:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted events for the activity view.
type Reader interface {
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event after it has been stored.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
