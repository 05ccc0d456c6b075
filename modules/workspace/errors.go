package workspace

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/forecastd/handler"
	"github.com/dmitrymomot/forecastd/pkg/session"
)

var errKeyNotFound = handler.HTTPError{Code: http.StatusNotFound, Key: "key_not_found"}

// sessionErrors maps store and session errors to HTTP errors.
// Expiry is checked first: an expired lookup also matches ErrSessionNotFound.
func sessionErrors(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "session_expired", Err: err}, true
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionDestroyed):
		return handler.ErrNotFound.Wrap(err), true
	case errors.Is(err, session.ErrEmptyKey), errors.Is(err, session.ErrInvalidDuration):
		return handler.ErrBadRequest.Wrap(err), true
	case errors.Is(err, session.ErrNilTable):
		return handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "validation_error", Err: err}, true
	}
	return handler.HTTPError{}, false
}
