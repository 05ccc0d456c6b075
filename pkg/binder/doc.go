// Package binder turns HTTP requests into typed request structs.
//
// Each binder handles one source and only the struct tags that belong to it:
// JSON decodes the request body, Path fills fields tagged with `path:"name"`
// from router path parameters. Binders compose through handler.WithBinders
// and are applied in order.
//
// Usage:
//
//	type putValueRequest struct {
//		ID    string `path:"id" json:"-"`
//		Value any    `json:"value" path:"-"`
//	}
//
//	h := handler.Wrap(putValue,
//		handler.WithBinders[handler.Context, putValueRequest](
//			binder.Path(chi.URLParam),
//			binder.JSON(binder.WithMaxBodySize(1<<20)),
//		),
//	)
//
// A binder that has nothing to read returns ErrBinderNotApplicable, which
// handler.Wrap skips. All other failures wrap one of the package errors so
// callers can map them to HTTP status codes with errors.Is.
package binder
