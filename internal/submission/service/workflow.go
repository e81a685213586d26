package service

import (
	"context"

	"rekam/internal/identity"
	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	audit "rekam/pkg/platform/audit"
	"rekam/pkg/requestcontext"
)

// Create validates payload and stores a new submission owned by actor.
// Nothing is written unless every field validates.
func (s *Service) Create(ctx context.Context, category string, payload models.Payload, actor identity.Actor) (_ *models.Submission, err error) {
	ctx, done := s.observe(ctx, category, models.OpCreate)
	defer done(&err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	clean, err := validatePayload(cat, payload, nil, now)
	if err != nil {
		return nil, err
	}
	if !id.IsNIK(actor.NIK) {
		return nil, dErrors.Invalid("submitter_nik", "your profile NIK must be exactly 16 digits")
	}

	sub := &models.Submission{
		ID:                id.NewSubmissionID(),
		Category:          cat.Name,
		OwnerID:           actor.ID,
		SubmitterName:     actor.Name,
		SubmitterNIK:      actor.NIK,
		Payload:           clean,
		SubmittedAt:       now,
		ReadyForRecording: false,
	}
	if err := s.store.Insert(ctx, cat.Name, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to insert submission",
			"category", cat.Name,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, errPersistence(err, "failed to save submission")
	}

	s.emit(ctx, actor, audit.EventSubmissionCreated, cat.Name, sub.ID, "", "")
	return sub, nil
}

// Edit re-reads the submission scoped to its owner, re-validates payload and
// overwrites only the category payload fields.
func (s *Service) Edit(ctx context.Context, category string, submissionID id.SubmissionID, payload models.Payload, actor identity.Actor) (_ *models.Submission, err error) {
	ctx, done := s.observe(ctx, category, models.OpEdit)
	defer done(&err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := requireSubmissionID(submissionID); err != nil {
		return nil, err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return nil, err
	}

	filter := models.Filter{ID: submissionID, OwnerID: writeScope(cat, actor)}
	current, err := s.findOne(ctx, cat.Name, filter)
	if err != nil {
		return nil, err
	}

	clean, err := validatePayload(cat, payload, current.Payload, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	affected, err := s.store.Update(ctx, cat.Name, filter, models.Patch{Payload: clean})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update submission",
			"category", cat.Name,
			"submission_id", submissionID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, errPersistence(err, "failed to update submission")
	}
	if affected == 0 {
		// deleted between the re-check and the write
		return nil, errNotFoundOrForbidden()
	}

	current.Payload = clean
	s.emit(ctx, actor, audit.EventSubmissionEdited, cat.Name, submissionID, "", "")
	return current, nil
}

// Delete removes the submission after the same ownership re-check as Edit.
func (s *Service) Delete(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) (err error) {
	ctx, done := s.observe(ctx, category, models.OpDelete)
	defer done(&err)

	if err := requireActor(actor); err != nil {
		return err
	}
	if err := requireSubmissionID(submissionID); err != nil {
		return err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return err
	}

	filter := models.Filter{ID: submissionID, OwnerID: writeScope(cat, actor)}
	if _, err := s.findOne(ctx, cat.Name, filter); err != nil {
		return err
	}

	affected, err := s.store.Delete(ctx, cat.Name, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete submission",
			"category", cat.Name,
			"submission_id", submissionID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return errPersistence(err, "failed to delete submission")
	}
	if affected == 0 {
		return errNotFoundOrForbidden()
	}

	s.emit(ctx, actor, audit.EventSubmissionDeleted, cat.Name, submissionID, "", "")
	return nil
}

// findOne reads the single row matching filter. Zero rows is NotFoundOrForbidden.
func (s *Service) findOne(ctx context.Context, category string, filter models.Filter) (*models.Submission, error) {
	rows, _, err := s.store.Query(ctx, category, models.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, errPersistence(err, "failed to load submission")
	}
	if len(rows) == 0 {
		return nil, errNotFoundOrForbidden()
	}
	return rows[0], nil
}

// emit records an audit event. Failures are logged and never reach the caller.
func (s *Service) emit(ctx context.Context, actor identity.Actor, action audit.AuditEvent, category string, subject id.SubmissionID, decision, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		UserID:         actor.ID,
		ActorRole:      actor.Role.String(),
		Action:         string(action),
		RecordCategory: category,
		Decision:       decision,
		Reason:         reason,
	}
	if !subject.IsNil() {
		event.Subject = subject.String()
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
