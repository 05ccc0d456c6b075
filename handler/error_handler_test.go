package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forecastd/handler"
	"github.com/dmitrymomot/forecastd/pkg/binder"
)

var errGone = errors.New("session gone")

func goneMapper(err error) (handler.HTTPError, bool) {
	if errors.Is(err, errGone) {
		return handler.ErrNotFound.Wrap(err), true
	}
	return handler.HTTPError{}, false
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		level  string
	}{
		{"mapped domain error", fmt.Errorf("get ws-1: %w", errGone), http.StatusNotFound, "not_found", "WARN"},
		{"http error passes through", handler.ErrUnprocessableEntity, http.StatusUnprocessableEntity, "unprocessable_entity", "WARN"},
		{"missing content type", binder.ErrMissingContentType, http.StatusUnsupportedMediaType, "unsupported_media_type", "WARN"},
		{"unsupported media type", binder.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type", "WARN"},
		{"body too large", binder.ErrRequestTooLarge, http.StatusRequestEntityTooLarge, "request_entity_too_large", "WARN"},
		{"malformed json", binder.ErrFailedToParseJSON, http.StatusBadRequest, "bad_request", "WARN"},
		{"bad path", binder.ErrFailedToParsePath, http.StatusBadRequest, "bad_request", "WARN"},
		{"nil response", handler.ErrNilResponse, http.StatusInternalServerError, "internal_error", "ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var logs bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&logs, nil))
			errorHandler := handler.NewErrorHandler(log, goneMapper)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/sessions/ws-1", nil)
			errorHandler(handler.NewContext(w, req), tt.err)

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.code, body.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)

			var record map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &record))
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, "request error", record["msg"])
			assert.Equal(t, float64(tt.status), record["status_code"])
			assert.Equal(t, "/sessions/ws-1", record["path"])
		})
	}

	t.Run("server errors hide details", func(t *testing.T) {
		t.Parallel()
		errorHandler := handler.NewErrorHandler(nil)
		w := httptest.NewRecorder()
		errorHandler(handler.NewContext(w, httptest.NewRequest(http.MethodGet, "/", nil)), errors.New("connection string leaked"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "leaked")
	})
}
