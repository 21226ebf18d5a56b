package errorx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openagora/agora/internal/common/cnst"
)

// Kind partitions failures the way the chat subsystem reacts to them.
type Kind string

const (
	KindAuth          Kind = "auth"          // invalid, missing or expired token
	KindAuthorization Kind = "authorization" // valid identity, insufficient permission
	KindNotFound      Kind = "not_found"     // referenced entity absent
	KindValidation    Kind = "validation"    // malformed context selector or empty content
	KindDelivery      Kind = "delivery"      // persistence or publish failure
	KindInternal      Kind = "internal"
)

// Error is the structured error used across the chat subsystem.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the original cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches errors by kind so callers can compare against the
// sentinel constructors below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// AuthFailure reports an invalid, missing or expired credential.
func AuthFailure(msg string) *Error { return newError(KindAuth, msg) }

// AuthorizationFailure reports a permission problem for a valid identity.
func AuthorizationFailure(msg string) *Error { return newError(KindAuthorization, msg) }

// NotFound reports an absent entity.
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// ValidationError reports malformed input.
func ValidationError(msg string) *Error { return newError(KindValidation, msg) }

// DeliveryError wraps a persistence or publish failure with its cause.
func DeliveryError(msg string, cause error) *Error {
	return &Error{Kind: KindDelivery, Message: msg, cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf extracts the kind of err, defaulting to KindInternal for
// errors produced outside this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ChannelType maps an error to the type pushed on a connection's
// private error destination.
func ChannelType(err error) cnst.ErrorChannelType {
	switch KindOf(err) {
	case KindAuth:
		return cnst.ErrorTypeAuth
	case KindAuthorization:
		return cnst.ErrorTypeForbidden
	default:
		return cnst.ErrorTypeServer
	}
}

// HTTPStatus maps an error to the status used by the REST adapters.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
