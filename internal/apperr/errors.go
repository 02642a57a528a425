// Package apperr holds the error categories shared by services and the HTTP gateway.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Validation wraps ErrValidation with a user-facing message.
func Validation(format string, args ...any) error {
	return &appError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the name of the missing entity.
func NotFound(entity string, id any) error {
	return &appError{kind: ErrNotFound, msg: fmt.Sprintf("%s %v not found", entity, id)}
}

func Conflict(format string, args ...any) error {
	return &appError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

type appError struct {
	kind error
	msg  string
}

func (e *appError) Error() string { return e.msg }

func (e *appError) Unwrap() error { return e.kind }

// HTTPStatus maps an error chain to a response code. Unclassified errors are store errors.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
