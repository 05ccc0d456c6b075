package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize is the default maximum size for JSON request bodies (1MB).
const DefaultMaxJSONSize = 1 << 20 // 1 MB

type jsonConfig struct {
	maxSize  int64
	optional bool
}

// JSONOption configures the JSON binder.
type JSONOption func(*jsonConfig)

// WithMaxBodySize overrides DefaultMaxJSONSize. Non-positive values are ignored.
func WithMaxBodySize(n int64) JSONOption {
	return func(c *jsonConfig) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithOptionalBody lets requests without a body through untouched.
// The binder reports ErrBinderNotApplicable for them instead of failing.
func WithOptionalBody() JSONOption {
	return func(c *jsonConfig) {
		c.optional = true
	}
}

// JSON creates a JSON binder function. The body must be a single JSON value
// with Content-Type application/json. Unknown fields and trailing data are
// rejected.
func JSON(opts ...JSONOption) func(r *http.Request, v any) error {
	cfg := jsonConfig{maxSize: DefaultMaxJSONSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(r *http.Request, v any) error {
		if err := r.Context().Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		contentType := r.Header.Get("Content-Type")
		if r.Body == nil || r.Body == http.NoBody {
			if cfg.optional && contentType == "" {
				return ErrBinderNotApplicable
			}
			return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
		}
		if contentType == "" {
			return fmt.Errorf("%w: missing content-type header, expected application/json", ErrMissingContentType)
		}

		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, cfg.maxSize+1))
		if err != nil {
			return fmt.Errorf("%w: failed to read request body: %v", ErrFailedToParseJSON, err)
		}
		if int64(len(body)) > cfg.maxSize {
			return fmt.Errorf("%w: max %d bytes", ErrRequestTooLarge, cfg.maxSize)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			if cfg.optional {
				return ErrBinderNotApplicable
			}
			return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.DisallowUnknownFields() // Always use strict mode
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		// Ensure entire body was consumed
		var extra json.RawMessage
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}

		return nil
	}
}
