// Package handler provides typed HTTP handlers with pluggable request binding
// and JSON responses.
//
// A HandlerFunc receives a Context and a request struct populated by binders
// and returns a Response. Wrap adapts it to http.HandlerFunc:
//
//	getSession := handler.HandlerFunc[handler.Context, sessionRequest](
//		func(ctx handler.Context, req sessionRequest) handler.Response {
//			sess, err := store.Get(ctx, req.ID)
//			if err != nil {
//				return handler.Error(err)
//			}
//			return handler.JSON(sess.Info())
//		},
//	)
//
//	r.Get("/sessions/{id}", handler.Wrap(getSession,
//		handler.WithBinders[handler.Context, sessionRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[handler.Context, sessionRequest](errorHandler),
//	))
//
// Errors returned by binders or by Error responses go to the ErrorHandler.
// NewErrorHandler classifies them into HTTPError values, logs them and renders
// the JSON error envelope.
package handler
