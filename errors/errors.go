// Package errors defines the structured application error type and the error
// taxonomy shared by the local store, the remote client, the sync engine and
// the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	// StoreUnavailableError means the host provides no persistent storage for
	// the local store (path cannot be created or opened). Fatal to any
	// local-store operation.
	StoreUnavailableError ErrorType = "STORE_UNAVAILABLE"
	// StoreCorruptError means expected collections are missing from the local
	// store. Recovered automatically via additive schema repair.
	StoreCorruptError ErrorType = "STORE_CORRUPT"
	// StoreRecreatedError means additive repair failed and the local store was
	// destroyed and recreated. Local history is gone; callers must warn the user.
	StoreRecreatedError ErrorType = "STORE_RECREATED"
	// RemoteUnreachableError covers network-level failures: timeout, DNS,
	// connection refused.
	RemoteUnreachableError ErrorType = "REMOTE_UNREACHABLE"
	// RemoteRequestFailedError covers any non-success HTTP status from the
	// remote API.
	RemoteRequestFailedError ErrorType = "REMOTE_REQUEST_FAILED"
	RecordNotFoundError      ErrorType = "RECORD_NOT_FOUND"
	ValidationError          ErrorType = "VALIDATION_ERROR"
	DatabaseError            ErrorType = "DATABASE_ERROR"
	AuthError                ErrorType = "AUTHENTICATION_ERROR"
	ServerError              ErrorType = "SERVER_ERROR"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	// RemoteStatus holds the status code returned by the remote API when
	// Type is RemoteRequestFailedError; zero otherwise.
	RemoteStatus int   `json:"-"`
	Raw          error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped raw error to errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status this error maps to when surfaced
// over the API.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsRemoteFailure reports whether err represents any remote-side failure,
// unreachable or rejected. The sync engine uses this to decide whether a
// write falls back to local-only persistence.
func IsRemoteFailure(err error) bool {
	return IsType(err, RemoteUnreachableError) || IsType(err, RemoteRequestFailedError)
}

// StoreUnavailable signals that the host has no persistent storage capability.
func StoreUnavailable(detail string, raw error) *AppError {
	return &AppError{
		Type:       StoreUnavailableError,
		Message:    "Local store unavailable",
		Detail:     detail,
		HTTPStatus: http.StatusInternalServerError,
		Raw:        raw,
	}
}

// StoreCorrupt signals that expected collections are missing from the local store.
func StoreCorrupt(missing string) *AppError {
	return &AppError{
		Type:       StoreCorruptError,
		Message:    "Local store is missing expected collections",
		Detail:     missing,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// StoreRecreated signals that the local store had to be destroyed and rebuilt.
func StoreRecreated(raw error) *AppError {
	return &AppError{
		Type:       StoreRecreatedError,
		Message:    "Local store was recreated, local history has been reset",
		Detail:     "additive schema repair failed",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        raw,
	}
}

// RemoteUnreachable signals a network-level failure talking to the remote API.
func RemoteUnreachable(raw error) *AppError {
	return &AppError{
		Type:       RemoteUnreachableError,
		Message:    "Remote API unreachable",
		Detail:     rawDetail(raw),
		HTTPStatus: http.StatusBadGateway,
		Raw:        raw,
	}
}

// RemoteRequestFailed signals a non-success HTTP status from the remote API.
// The response status and body are preserved for diagnosis.
func RemoteRequestFailed(status int, body string) *AppError {
	return &AppError{
		Type:         RemoteRequestFailedError,
		Message:      fmt.Sprintf("Remote API request failed with status %d", status),
		Detail:       body,
		HTTPStatus:   http.StatusBadGateway,
		RemoteStatus: status,
	}
}

// NotFound builds a RecordNotFound error for the given entity and key.
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       RecordNotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

// ValidationFailed builds a validation error; it must be raised before any
// write is attempted so no partial state is left behind.
func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// AuthenticationFailed builds an authentication error for the session middleware.
func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewDatabaseError wraps a server-side database failure with a sanitized message.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

// InternalServerError builds a generic server error.
func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func rawDetail(raw error) string {
	if raw == nil {
		return ""
	}
	return raw.Error()
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case RecordNotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case RemoteUnreachableError, RemoteRequestFailedError:
		return http.StatusBadGateway
	case StoreUnavailableError, StoreCorruptError, StoreRecreatedError, DatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
