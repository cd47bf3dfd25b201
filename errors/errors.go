package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Taxonomy. Every specific error below wraps exactly one of these.
var (
	ErrValidation     = stderrors.New("validation failed")
	ErrNotFound       = stderrors.New("not found")
	ErrExternalLookup = stderrors.New("external lookup failed")
	ErrPersistence    = stderrors.New("persistence failed")
	ErrForbidden      = stderrors.New("forbidden")
)

var (
	ErrEmptySender      = fmt.Errorf("%w: sender id is required", ErrValidation)
	ErrEmptyReceiver    = fmt.Errorf("%w: receiver id is required", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: content is required", ErrValidation)
	ErrEmptyUserID      = fmt.Errorf("%w: user id is required", ErrValidation)
	ErrEmptyMessageID   = fmt.Errorf("%w: message id is required", ErrValidation)
	ErrContentTooLong   = fmt.Errorf("%w: content is too long", ErrValidation)
	ErrInvalidPayload   = fmt.Errorf("%w: invalid payload", ErrValidation)
	ErrUnknownEventType = fmt.Errorf("%w: unknown event type", ErrValidation)

	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)

	ErrNotFriends = fmt.Errorf("%w: users are not friends", ErrExternalLookup)

	ErrNotIdentified    = fmt.Errorf("%w: connection is not identified", ErrForbidden)
	ErrIdentityMismatch = fmt.Errorf("%w: identity does not match", ErrForbidden)
	ErrInvalidToken     = fmt.Errorf("%w: invalid or expired token", ErrForbidden)

	ErrWorkerPanic       = stderrors.New("worker panic")
	ErrEmptyWords        = stderrors.New("no words have been found")
	ErrUnknownStorage    = stderrors.New("unknown storage driver")
	ErrDirectoryResponse = stderrors.New("unexpected directory response")
	ErrConnectionClosed  = stderrors.New("connection closed")
	ErrSinkFull          = stderrors.New("connection buffer is full")
)

// Wire error codes sent back to a client in failure events.
const (
	CodeInvalidMessage    = "invalid_message"
	CodeNotFound          = "not_found"
	CodeLookupFailed      = "lookup_failed"
	CodePersistenceFailed = "persistence_failed"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal_error"
)

// MapToCode converts a domain error into a stable wire code.
func MapToCode(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrValidation):
		return CodeInvalidMessage
	case stderrors.Is(err, ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, ErrExternalLookup):
		return CodeLookupFailed
	case stderrors.Is(err, ErrPersistence):
		return CodePersistenceFailed
	case stderrors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternal
	}
}

// MapToHTTPStatus converts a domain error into the status returned by the REST API.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrForbidden), stderrors.Is(err, ErrNotFriends):
		return http.StatusForbidden
	case stderrors.Is(err, ErrExternalLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is and As are re-exported so callers importing this package under the name
// "errors" keep access to the standard helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
