package handler

import (
	"time"

	"rekam/internal/submission/models"
	audit "rekam/pkg/platform/audit"
)

type SubmissionResponse struct {
	ID                string            `json:"id"`
	Category          string            `json:"category"`
	OwnerID           string            `json:"owner_id"`
	SubmitterName     string            `json:"submitter_name"`
	SubmitterNIK      string            `json:"submitter_nik"`
	Fields            map[string]string `json:"fields"`
	SubmittedAt       time.Time         `json:"submitted_at"`
	ScheduledDate     *string           `json:"scheduled_date"`
	ReadyForRecording bool              `json:"ready_for_recording"`
}

type PageResponse struct {
	Rows       []SubmissionResponse `json:"rows"`
	TotalCount int                  `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type ReadyResponse struct {
	ReadyForRecording bool `json:"ready_for_recording"`
}

type ScheduledDateResponse struct {
	ScheduledDate string `json:"scheduled_date"`
}

type FieldResponse struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Kind         string   `json:"kind"`
	Required     bool     `json:"required"`
	Searchable   bool     `json:"searchable"`
	Options      []string `json:"options,omitempty"`
	OtherOption  string   `json:"other_option,omitempty"`
	OtherField   string   `json:"other_field,omitempty"`
	NotFuture    bool     `json:"not_future,omitempty"`
	DefaultToday bool     `json:"default_today,omitempty"`
}

type CategoryResponse struct {
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Fields []FieldResponse `json:"fields"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

type ActivityResponse struct {
	Events []audit.Event `json:"events"`
}

func toSubmissionResponse(s *models.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:                s.ID.String(),
		Category:          s.Category,
		OwnerID:           s.OwnerID.String(),
		SubmitterName:     s.SubmitterName,
		SubmitterNIK:      s.SubmitterNIK,
		Fields:            s.Payload,
		SubmittedAt:       s.SubmittedAt,
		ReadyForRecording: s.ReadyForRecording,
	}
	if resp.Fields == nil {
		resp.Fields = map[string]string{}
	}
	if s.ScheduledDate != nil {
		d := s.ScheduledDate.Format(models.DateLayout)
		resp.ScheduledDate = &d
	}
	return resp
}

func toPageResponse(p *models.Page) PageResponse {
	rows := make([]SubmissionResponse, 0, len(p.Rows))
	for _, s := range p.Rows {
		rows = append(rows, toSubmissionResponse(s))
	}
	return PageResponse{
		Rows:       rows,
		TotalCount: p.TotalCount,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

func toCategoryResponse(c *models.Category) CategoryResponse {
	fields := make([]FieldResponse, 0, len(c.Fields))
	for _, f := range c.Fields {
		fields = append(fields, FieldResponse{
			Key:          f.Key,
			Label:        f.Label,
			Kind:         string(f.Kind),
			Required:     f.Required,
			Searchable:   f.Searchable,
			Options:      f.Options,
			OtherOption:  f.OtherOption,
			OtherField:   f.OtherField,
			NotFuture:    f.NotFuture,
			DefaultToday: f.DefaultToday,
		})
	}
	return CategoryResponse{Name: c.Name, Title: c.Title, Fields: fields}
}
