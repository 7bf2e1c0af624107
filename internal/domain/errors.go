package domain

import "errors"

// Kind is the machine readable category of a domain error.
type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindPrecondition Kind = "precondition_failed"
	KindExists       Kind = "already_exists"
	KindInvalidOp    Kind = "invalid_operation"
	KindUnavailable  Kind = "unavailable"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is an error with a stable kind and a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError builds a validation_failed error with a custom message.
func ValidationError(message string) *Error {
	return NewError(KindValidation, message)
}

// KindOf returns the kind of err, or KindInternal for anything that is not a
// domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrProfileNotFound      = NewError(KindNotFound, "profile not found")
	ErrMatchNotFound        = NewError(KindNotFound, "match not found")
	ErrMessageNotFound      = NewError(KindNotFound, "message not found")
	ErrNotBlocked           = NewError(KindNotFound, "user is not blocked")
	ErrEmailTaken           = NewError(KindExists, "email already registered")
	ErrPhoneTaken           = NewError(KindExists, "phone already registered")
	ErrAlreadyLiked         = NewError(KindExists, "user already liked")
	ErrAlreadyBlocked       = NewError(KindExists, "user already blocked")
	ErrMatchAlreadyExists   = NewError(KindExists, "an active match already exists for this pair")
	ErrCannotLikeSelf       = NewError(KindInvalidOp, "cannot like yourself")
	ErrCannotBlockSelf      = NewError(KindInvalidOp, "cannot block yourself")
	ErrTargetUnavailable    = NewError(KindUnavailable, "user is not available")
	ErrLocationRequired     = NewError(KindPrecondition, "location required")
	ErrNotParticipant       = NewError(KindForbidden, "not a participant of this match")
	ErrMatchInactive        = NewError(KindForbidden, "match is no longer active")
	ErrNotMessageSender     = NewError(KindForbidden, "only the sender can delete a message")
	ErrInvalidCredentials   = NewError(KindUnauthorized, "invalid email or password")
	ErrAccountDisabled      = NewError(KindUnauthorized, "account is disabled")
	ErrInvalidToken         = NewError(KindUnauthorized, "invalid or expired token")
	ErrUnderage             = NewError(KindValidation, "user must be at least 18 years old")
	ErrPhotoLimit           = NewError(KindValidation, "photo limit reached")
	ErrPhotoIndexOutOfRange = NewError(KindNotFound, "photo not found")
)
