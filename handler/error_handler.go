package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/forecastd/pkg/binder"
	"github.com/dmitrymomot/forecastd/pkg/logger"
)

// ErrorMapper converts an application error into an HTTPError.
// It reports false for errors it does not recognise.
type ErrorMapper func(err error) (HTTPError, bool)

// NewErrorHandler returns an ErrorHandler that classifies the error, logs it
// and renders the JSON error envelope. Mappers are consulted in order before
// the built-in binder mapping; anything left unclassified is a 500.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return func(ctx Context, err error) {
		var status int
		detail := errorToDetail(classifyError(err, mappers), &status)

		logError(log, ctx, err, status)

		resp := jsonResponse{
			status: status,
			body:   JSONResponse{Code: detail.Code, Error: detail},
		}
		if renderErr := resp.Render(ctx.ResponseWriter(), ctx.Request()); renderErr != nil {
			log.ErrorContext(ctx, "failed to render error response",
				logger.Component("error_handler"),
				logger.Error(renderErr),
			)
		}
	}
}

// classifyError returns err unchanged when it already carries an HTTP status,
// otherwise the first matching mapping wrapped around it.
func classifyError(err error, mappers []ErrorMapper) error {
	var httpErr HTTPError
	var valErr ValidationError
	if errors.As(err, &valErr) || errors.As(err, &httpErr) {
		return err
	}
	for _, m := range mappers {
		if mapped, ok := m(err); ok {
			return mapped
		}
	}
	if mapped, ok := mapBinderError(err); ok {
		return mapped
	}
	return ErrInternalServerError.Wrap(err)
}

func mapBinderError(err error) (HTTPError, bool) {
	switch {
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMediaType.Wrap(err), true
	case errors.Is(err, binder.ErrRequestTooLarge):
		return ErrRequestEntityTooLarge.Wrap(err), true
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrFailedToParsePath):
		return ErrBadRequest.Wrap(err), true
	}
	return HTTPError{}, false
}

// logError logs client errors at warn and server errors at error level.
// The request id is attached by the logger's context extractors.
func logError(log *slog.Logger, ctx Context, err error, status int) {
	level := slog.LevelError
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	log.LogAttrs(ctx, level, "request error",
		logger.Error(err),
		slog.Int("status_code", status),
		slog.String("method", ctx.Request().Method),
		slog.String("path", ctx.Request().URL.Path),
		logger.Component("error_handler"),
	)
}
