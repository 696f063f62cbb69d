package service

import (
	"errors"
	"fitcoach/coaching-api/internal/domain"
)

// --- Error Definitions ---
// Handlers map these onto HTTP status codes with errors.Is.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrValidation   = errors.New("validation failed")

	ErrRelationshipNotFound    = errors.New("coaching request not found")
	ErrRelationshipNotAccepted = errors.New("coaching request has not been accepted")
	ErrNotParty                = errors.New("caller is not a party to this coaching request")
	ErrRelationshipExists      = errors.New("an open coaching request already exists for this trainer")
	ErrRelationshipResolved    = errors.New("coaching request has already been answered")
	ErrTrainerNotFound         = errors.New("trainer not found")
	ErrClientNotFound          = errors.New("client user not found")

	ErrTemplateNotFound     = errors.New("plan template not found")
	ErrTemplateAccessDenied = errors.New("plan template belongs to another trainer")
	ErrPlanKindMismatch     = errors.New("plan kind does not match this route")

	ErrAssignmentNotFound      = errors.New("plan assignment not found")
	ErrNoActiveAssignment      = errors.New("client has no active assignment of this kind")
	ErrAssignmentAccessDenied  = errors.New("access denied to this plan assignment")
	ErrInvalidStatusTransition = errors.New("invalid assignment status transition")

	ErrDocumentNotFound = errors.New("document not found for this coaching request")
	ErrDocumentInUse    = errors.New("document is attached to a plan assignment")
	ErrUploadURLError   = errors.New("failed to generate upload URL")
	ErrDownloadURLError = errors.New("failed to generate download URL")
)

// ErrorKind is the coarse category of a service error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrAuthenticationFailed):
		return KindUnauthorized
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrPlanKindMismatch),
		errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidEntryKey):
		return KindValidation
	case errors.Is(err, ErrRelationshipNotAccepted),
		errors.Is(err, ErrNotParty),
		errors.Is(err, ErrTemplateAccessDenied),
		errors.Is(err, ErrAssignmentAccessDenied):
		return KindForbidden
	case errors.Is(err, ErrRelationshipNotFound),
		errors.Is(err, ErrTrainerNotFound),
		errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrTemplateNotFound),
		errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrNoActiveAssignment),
		errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrRelationshipExists),
		errors.Is(err, ErrRelationshipResolved),
		errors.Is(err, ErrDocumentInUse),
		errors.Is(err, ErrUserAlreadyExists):
		return KindConflict
	}
	return KindInternal
}
