package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
)

// JSONResponse is the standard JSON response structure
type JSONResponse struct {
	Code  string         `json:"code,omitempty"`
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithJSONCode sets the top-level response code, e.g. "session_created".
func WithJSONCode(code string) JSONOption {
	return func(r *jsonResponse) {
		r.body.Code = code
	}
}

// WithJSONMeta adds metadata to response
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		r.body.Meta = meta
	}
}

// JSON creates a JSON response with options
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK}

	switch val := v.(type) {
	case JSONResponse:
		r.body = val
	case *ErrorDetail:
		r.body.Error = val
		r.body.Code = val.Code
		r.status = http.StatusInternalServerError
	case error:
		r.body.Error = errorToDetail(val, &r.status)
		r.body.Code = r.body.Error.Code
	default:
		r.body.Data = v
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// JSONError creates a JSON error response from an error with options
func JSONError(err any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusInternalServerError}

	switch e := err.(type) {
	case *ErrorDetail:
		r.body.Error = e
		r.body.Code = e.Code
	case error:
		r.body.Error = errorToDetail(e, &r.status)
		r.body.Code = r.body.Error.Code
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// errorToDetail converts err to an ErrorDetail and sets the matching status.
// Errors that are neither ValidationError nor HTTPError become a 500 whose
// message is the generic status text.
func errorToDetail(err error, status *int) *ErrorDetail {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		*status = http.StatusUnprocessableEntity
		detail := &ErrorDetail{
			Code:    "validation_error",
			Message: valErr.Error(),
		}
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string, len(valErr))
			maps.Copy(detail.Details, valErr)
		}
		return detail
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		*status = httpErr.Code
		return &ErrorDetail{
			Code:    httpErr.Key,
			Message: httpErr.message(),
		}
	}

	*status = http.StatusInternalServerError
	return &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: ErrInternalServerError.message(),
	}
}
