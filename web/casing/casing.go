// Package casing converts the key casing of JSON-shaped payload values
// between the wire convention (snake_case) and the application convention
// (lowerCamelCase). Only the structure is walked here; the word-case
// conversion itself is delegated to the strcase library.
package casing

import "github.com/iancoleman/strcase"

// ToInternal deep-converts all map keys in v from the wire convention to the
// application convention. Values that are neither maps nor slices are
// returned unchanged.
func ToInternal(v any) any {
	return convert(v, strcase.ToLowerCamel)
}

// ToExternal deep-converts all map keys in v from the application convention
// to the wire convention.
func ToExternal(v any) any {
	return convert(v, strcase.ToSnake)
}

func convert(v any, keyFn func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[keyFn(k)] = convert(val, keyFn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = convert(val, keyFn)
		}
		return out
	default:
		return v
	}
}
