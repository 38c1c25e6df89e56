package service

import (
	"reflect"
	"strconv"
	"strings"
)

// ProviderResponse gives uniform field access over provider payloads that
// arrive either as loose JSON objects or as typed structs.
type ProviderResponse interface {
	Get(field string) (any, bool)
}

// MapResponse is a decoded JSON object.
type MapResponse map[string]any

// Get returns the value stored under field. Nil values count as absent.
func (m MapResponse) Get(field string) (any, bool) {
	v, ok := m[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StructResponse exposes a struct's fields by their json tag names.
type StructResponse struct {
	V any
}

// Get returns the field tagged field, or the exported field with that name.
// Zero values count as absent.
func (s StructResponse) Get(field string) (any, bool) {
	rv := reflect.ValueOf(s.V)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name != field && sf.Name != field {
			continue
		}
		fv := rv.Field(i)
		if fv.IsZero() {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}

// GetString returns a string field, formatting scalars that arrive as other types.
func GetString(r ProviderResponse, field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// GetInt returns a numeric field as an int, with def when absent.
func GetInt(r ProviderResponse, field string, def int) int {
	v, ok := r.Get(field)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case *int:
		if t == nil {
			return def
		}
		return *t
	default:
		return def
	}
}
