package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport. The string value is what clients
// see in the "type" field of an error body.
type Kind string

const (
	InvalidInput          Kind = "INVALID_FIELDS_VALUE_ERROR"
	InvalidProgramState   Kind = "INVALID_PROGRAM_DATA_ERROR"
	NotFound              Kind = "NOT_FOUND_ENTITY_ERROR"
	BusinessRuleViolation Kind = "BUSINESS_RULES_ERROR"
	DatabaseError         Kind = "DATABASE_ERROR"
	RoutingError          Kind = "ROUTING_ERROR"
	Unauthorized          Kind = "UNAUTHORIZED_ERROR"
	Forbidden             Kind = "FORBIDDEN_ERROR"
	RateLimited           Kind = "RATE_LIMIT_ERROR"
)

// StatusCode maps a kind to the HTTP status used by the error responder.
func (k Kind) StatusCode() int {
	switch k {
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound, RoutingError:
		return http.StatusNotFound
	case BusinessRuleViolation:
		return http.StatusUnprocessableEntity
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type produced by the service layers.
// Params carries the offending caller values, when there are any.
type Error struct {
	Kind    Kind
	Name    string
	Message string
	Params  map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.Err)
	}
	return e.Name + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) StatusCode() int { return e.Kind.StatusCode() }

// New builds an error of the given kind. params may be nil.
func New(kind Kind, name, message string, params map[string]any) *Error {
	return &Error{Kind: kind, Name: name, Message: message, Params: params}
}

// Wrap classifies err for the operation name. An *Error anywhere in the
// chain is returned unchanged; anything else becomes a DatabaseError.
func Wrap(err error, name, message string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{
		Kind:    DatabaseError,
		Name:    name,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of err, or DatabaseError for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return DatabaseError
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
