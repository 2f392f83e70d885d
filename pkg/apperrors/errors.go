// Package apperrors defines the error taxonomy surfaced over HTTP.
//
// Every handler maps errors to this taxonomy at the outermost boundary;
// internal errors bubble through adapters wrapped with %w so logs carry
// the original cause.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure in the taxonomy.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindUnknownModel        Kind = "unknown_model"
	KindUnsupportedFileType Kind = "unsupported_file_type"
	KindForbiddenVisibility Kind = "forbidden_visibility"
	KindForbiddenRole       Kind = "forbidden_role"
	KindForbiddenScope      Kind = "forbidden_scope"
	KindNotFound            Kind = "not_found"
	KindAuthFailure         Kind = "auth_failure"
	KindProvider            Kind = "provider_error"
	KindStorage             Kind = "storage_error"
)

// Error is a taxonomy error carrying the HTTP status it propagates as.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindUnknownModel, KindUnsupportedFileType:
		return http.StatusBadRequest
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindForbiddenVisibility, KindForbiddenRole, KindForbiddenScope:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports a missing or malformed request field.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// UnknownModel reports a model id absent from the registry.
func UnknownModel(modelID string) *Error {
	return &Error{Kind: KindUnknownModel, Message: fmt.Sprintf("unknown model: %s", modelID)}
}

// UnsupportedFileType reports a file type the upload pipeline rejects.
func UnsupportedFileType(fileType string) *Error {
	return &Error{Kind: KindUnsupportedFileType, Message: fmt.Sprintf("unsupported file type: %s", fileType)}
}

// ForbiddenVisibility reports a visibility outside the actor's allowed set.
func ForbiddenVisibility(visibility string) *Error {
	return &Error{Kind: KindForbiddenVisibility, Message: fmt.Sprintf("visibility %q not allowed for role", visibility)}
}

// ForbiddenRole reports a role/scope combination the actor may not act on.
func ForbiddenRole(message string) *Error {
	return &Error{Kind: KindForbiddenRole, Message: message}
}

// ForbiddenScope reports an action outside the actor's tenant scope.
func ForbiddenScope(message string) *Error {
	return &Error{Kind: KindForbiddenScope, Message: message}
}

// NotFound reports a missing file, conversation or profile.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", resource, id)}
}

// AuthFailure reports a sign-in failure or a missing/invalid bearer.
func AuthFailure(message string) *Error {
	return &Error{Kind: KindAuthFailure, Message: message}
}

// Provider wraps an LLM vendor error, preserving the vendor message.
func Provider(provider string, cause error) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf("provider %s failed", provider), Cause: cause}
}

// Storage wraps a KV or blob store failure.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf("storage %s failed", op), Cause: cause}
}

// StatusOf returns the HTTP status for any error, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status()
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
