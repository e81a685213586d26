package handler

import (
	"strings"

	"rekam/internal/submission/models"
	dErrors "rekam/pkg/domain-errors"
)

// SubmissionRequest is the body of create and edit. Field semantics are
// checked by the service against the category descriptor.
type SubmissionRequest struct {
	Fields models.Payload `json:"fields"`
}

func (r *SubmissionRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "fields are required")
	}
	return nil
}

// ScheduledDateRequest is the body of PUT .../scheduled-date.
type ScheduledDateRequest struct {
	Date string `json:"date"`
}

func (r *ScheduledDateRequest) Validate() error {
	r.Date = strings.TrimSpace(r.Date)
	if r.Date == "" {
		return dErrors.Invalid("scheduled_date", "date is required")
	}
	return nil
}
