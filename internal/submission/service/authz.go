package service

import (
	"rekam/internal/identity"
	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
)

// canTransition is the single authorization predicate for review transitions.
func canTransition(actor identity.Actor, op models.Operation) bool {
	switch op {
	case models.OpToggleReady, models.OpSetScheduledDate:
		return actor.IsPrivileged()
	default:
		return false
	}
}

// readScope is the owner filter applied to List and Get: role user sees only
// their own submissions, privileged roles see every owner.
func readScope(actor identity.Actor) id.UserID {
	if actor.IsPrivileged() {
		return id.UserID{}
	}
	return actor.ID
}

// writeScope is the owner filter applied to Edit and Delete. Owners are always
// scoped unless the category grants privileged override.
func writeScope(cat *models.Category, actor identity.Actor) id.UserID {
	if cat.PrivilegedOverride && actor.IsPrivileged() {
		return id.UserID{}
	}
	return actor.ID
}

func errForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "only admin or superuser may review submissions")
}

// errNotFoundOrForbidden deliberately does not say which of the two applies.
func errNotFoundOrForbidden() error {
	return dErrors.New(dErrors.CodeNotFound, "submission not found")
}

func errPersistence(err error, msg string) error {
	return dErrors.Wrap(err, dErrors.CodePersistence, msg+": "+err.Error())
}

// requireSubmissionID rejects the nil id. Stores read a nil id as "any row".
func requireSubmissionID(submissionID id.SubmissionID) error {
	if submissionID.IsNil() {
		return errNotFoundOrForbidden()
	}
	return nil
}

func requireActor(actor identity.Actor) error {
	if actor.ID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
