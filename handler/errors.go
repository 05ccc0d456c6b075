package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse indicates a handler returned nil instead of a Response
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError represents an HTTP error with status code and a stable key.
// Err optionally carries the cause; client errors expose its message.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Machine-readable key (e.g., "not_found")
	Err  error
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	if e.Err != nil {
		return e.Key + ": " + e.Err.Error()
	}
	return e.Key
}

func (e HTTPError) Unwrap() error {
	return e.Err
}

// Wrap returns a copy of e carrying err as its cause.
func (e HTTPError) Wrap(err error) HTTPError {
	e.Err = err
	return e
}

// message is the text shown to clients. Server errors never expose the cause.
func (e HTTPError) message() string {
	if e.Err != nil && e.Code < http.StatusInternalServerError {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

var (
	ErrBadRequest            = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrNotFound              = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrRequestEntityTooLarge = HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"}
	ErrUnsupportedMediaType  = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type"}
	ErrUnprocessableEntity   = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrInternalServerError   = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error"}
)

// ValidationError maps field names to validation messages.
type ValidationError map[string][]string

func (e ValidationError) Error() string {
	return "validation failed"
}

// Add appends a message for field.
func (e ValidationError) Add(field, message string) {
	e[field] = append(e[field], message)
}
