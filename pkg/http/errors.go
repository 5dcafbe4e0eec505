package http

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with an HTTP status and a machine readable kind,
// rendered as {success:false, message, error_type}.
type AppError struct {
	Code    string `json:"code,omitempty"`
	Kind    string `json:"error_type,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// WithKind sets the error_type reported to clients.
func (e *AppError) WithKind(kind string) *AppError {
	e.Kind = kind
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", message, http.StatusBadRequest)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", message, http.StatusInternalServerError).WithKind("InternalError")
}

// kinded is implemented by domain errors that name their own kind.
type kinded interface {
	Kind() string
}

// FromError converts err into an AppError. Existing AppErrors pass through;
// kinds listed in clientKinds become 400, everything else 500 carrying the
// kind name or "InternalError".
func FromError(err error, clientKinds ...string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var k kinded
	if errors.As(err, &k) {
		for _, ck := range clientKinds {
			if ck == k.Kind() {
				return BadRequestError(err.Error()).WithError(err)
			}
		}
		return NewAppError("ERR_INTERNAL", err.Error(), http.StatusInternalServerError).
			WithKind(k.Kind()).
			WithError(err)
	}
	return InternalError(err.Error()).WithError(err)
}
