package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type ErrorType int

const (
	ErrUnknown ErrorType = iota
	// ErrToolInvocation is a single failed tool call. Reported back to the model, never fatal.
	ErrToolInvocation
	// ErrExtraction means the final text held no schema-valid JSON object.
	ErrExtraction
	// ErrVerification is one failed verifier call. The candidate is dropped.
	ErrVerification
	// ErrUpstreamConfig is a missing credential or endpoint for one tool.
	ErrUpstreamConfig
	ErrInvalidInput
	ErrGeneration
	ErrNotFound
	ErrUnauthorized
	ErrConflict
)

func (t ErrorType) String() string {
	switch t {
	case ErrToolInvocation:
		return "ToolInvocation"
	case ErrExtraction:
		return "Extraction"
	case ErrVerification:
		return "Verification"
	case ErrUpstreamConfig:
		return "UpstreamConfig"
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrGeneration:
		return "Generation"
	case ErrNotFound:
		return "NotFound"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// HTTPStatus is the status code an API boundary should answer with.
func (t ErrorType) HTTPStatus() int {
	switch t {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(errorType ErrorType, format string, args ...any) *Error {
	return New(errorType, fmt.Sprintf(format, args...))
}

func Wrap(err error, errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   err,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsType reports whether any error in err's chain is an *Error of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the type of the first *Error in err's chain, or ErrUnknown.
func TypeOf(err error) ErrorType {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrUnknown
}

// PublicMessage is the message safe to show an API caller.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
