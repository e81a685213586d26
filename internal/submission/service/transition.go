package service

import (
	"context"
	"strconv"
	"strings"

	"rekam/internal/identity"
	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	audit "rekam/pkg/platform/audit"
	"rekam/pkg/requestcontext"
)

// ToggleReady flips ready_for_recording and returns the value the store wrote.
// Only admin and superuser may call it; any owner's submission is reachable.
// The store negates the flag in place.
func (s *Service) ToggleReady(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) (_ bool, err error) {
	ctx, done := s.observe(ctx, category, models.OpToggleReady)
	defer done(&err)

	if err := s.authorizeTransition(ctx, category, submissionID, actor, models.OpToggleReady); err != nil {
		return false, err
	}
	if err := requireSubmissionID(submissionID); err != nil {
		return false, err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return false, err
	}

	next, affected, err := s.store.ToggleReady(ctx, cat.Name, models.Filter{ID: submissionID})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to toggle ready flag",
			"category", cat.Name,
			"submission_id", submissionID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return false, errPersistence(err, "failed to update review status")
	}
	if affected == 0 {
		return false, errNotFoundOrForbidden()
	}

	s.emit(ctx, actor, audit.EventReadyToggled, cat.Name, submissionID, "ready="+strconv.FormatBool(next), "")
	return next, nil
}

// SetScheduledDate writes scheduled_date only. The submission must still exist.
func (s *Service) SetScheduledDate(ctx context.Context, category string, submissionID id.SubmissionID, date string, actor identity.Actor) (err error) {
	ctx, done := s.observe(ctx, category, models.OpSetScheduledDate)
	defer done(&err)

	if err := s.authorizeTransition(ctx, category, submissionID, actor, models.OpSetScheduledDate); err != nil {
		return err
	}
	if err := requireSubmissionID(submissionID); err != nil {
		return err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return err
	}

	scheduled, err := parseDate(date)
	if err != nil || strings.TrimSpace(date) == "" {
		return dErrors.Invalid("scheduled_date", "scheduled date must be a date in YYYY-MM-DD format")
	}

	filter := models.Filter{ID: submissionID}
	if _, err := s.findOne(ctx, cat.Name, filter); err != nil {
		return err
	}

	affected, err := s.store.Update(ctx, cat.Name, filter, models.Patch{ScheduledDate: &scheduled})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to set scheduled date",
			"category", cat.Name,
			"submission_id", submissionID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return errPersistence(err, "failed to update scheduled date")
	}
	if affected == 0 {
		return errNotFoundOrForbidden()
	}

	s.emit(ctx, actor, audit.EventScheduledDateSet, cat.Name, submissionID, scheduled.Format(models.DateLayout), "")
	return nil
}

// authorizeTransition rejects non-privileged actors before any store access.
// Denials are audited.
func (s *Service) authorizeTransition(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor, op models.Operation) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if canTransition(actor, op) {
		return nil
	}
	s.logger.WarnContext(ctx, "review transition denied",
		"operation", string(op),
		"role", actor.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, actor, audit.EventAuthorizationDenied, category, submissionID, "denied", string(op))
	return errForbidden()
}
