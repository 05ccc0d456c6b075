package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path creates a binder for fields tagged with `path:"name"`. The extractor
// resolves a parameter by name; chi.URLParam fits directly.
// Empty parameters leave the field unchanged.
func Path(extractor func(r *http.Request, fieldName string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return fmt.Errorf("%w: target must be a non-nil pointer", ErrFailedToParsePath)
		}
		rt := rv.Elem().Type()
		if rt.Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParsePath)
		}

		values := make(map[string][]string)
		for i := range rt.NumField() {
			name, skip := parseFieldTag(rt.Field(i), "path")
			if skip {
				continue
			}
			if val := extractor(r, name); val != "" {
				values[name] = []string{val}
			}
		}

		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
