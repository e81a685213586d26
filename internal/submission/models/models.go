package models

import (
	"time"

	id "rekam/pkg/domain"
)

// DateLayout is the wire and storage format of every date field.
const DateLayout = "2006-01-02"

// Payload holds the category-specific fields of a submission, keyed by Field.Key.
type Payload map[string]string

// Clone returns an independent copy.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Submission is one correction request in a record category.
type Submission struct {
	ID                id.SubmissionID
	Category          string
	OwnerID           id.UserID
	SubmitterName     string
	SubmitterNIK      string
	Payload           Payload
	SubmittedAt       time.Time
	ScheduledDate     *time.Time
	ReadyForRecording bool
}

// Filter narrows a store operation. Zero-valued fields do not filter.
type Filter struct {
	ID      id.SubmissionID
	OwnerID id.UserID
	// Search is matched case-insensitively as a substring of any SearchFields value.
	Search       string
	SearchFields []string
}

// Query is a filtered range read. Limit <= 0 means no limit.
type Query struct {
	Filter Filter
	Offset int
	Limit  int
}

// Patch lists the columns an update may touch. Nil fields are left unchanged.
type Patch struct {
	Payload       Payload
	Ready         *bool
	ScheduledDate *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Payload == nil && p.Ready == nil && p.ScheduledDate == nil
}

// Page is one page of a List result.
type Page struct {
	Rows       []*Submission
	TotalCount int
	Page       int
	PageSize   int
	TotalPages int
}

// ListParams carries the caller-owned pagination state of a List call.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

// Operation names a workflow operation for authorization, metrics and tracing.
type Operation string

const (
	OpCreate           Operation = "create"
	OpEdit             Operation = "edit"
	OpDelete           Operation = "delete"
	OpGet              Operation = "get"
	OpList             Operation = "list"
	OpToggleReady      Operation = "toggle_ready"
	OpSetScheduledDate Operation = "set_scheduled_date"
)
