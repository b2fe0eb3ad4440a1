// Package views holds the presentation helpers shared by blogsite templates:
// class name composition, date formatting and the fallback error pages.
package views

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ClassNames composes a class attribute from mixed inputs. Strings and
// non-zero numbers are used as is, slices are flattened, and maps contribute
// the keys whose values are truthy (in sorted key order). Booleans, nil,
// empty strings and zero contribute nothing:
//
//	ClassNames("btn", map[string]bool{"btn-active": active, "disabled": off})
func ClassNames(inputs ...any) string {
	var parts []string
	for _, in := range inputs {
		parts = appendClasses(parts, in)
	}
	return strings.Join(parts, " ")
}

func appendClasses(parts []string, in any) []string {
	switch v := in.(type) {
	case nil, bool:
		return parts
	case string:
		if v != "" {
			parts = append(parts, v)
		}
		return parts
	case []string:
		for _, s := range v {
			parts = appendClasses(parts, s)
		}
		return parts
	case []any:
		for _, e := range v {
			parts = appendClasses(parts, e)
		}
		return parts
	case map[string]bool:
		for _, k := range sortedKeys(v) {
			if v[k] && k != "" {
				parts = append(parts, k)
			}
		}
		return parts
	case map[string]any:
		for _, k := range sortedKeys(v) {
			if truthy(v[k]) && k != "" {
				parts = append(parts, k)
			}
		}
		return parts
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.String:
		return appendClasses(parts, rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := rv.Int(); n != 0 {
			parts = append(parts, strconv.FormatInt(n, 10))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n := rv.Uint(); n != 0 {
			parts = append(parts, strconv.FormatUint(n, 10))
		}
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f != 0 && !math.IsNaN(f) {
			parts = append(parts, strconv.FormatFloat(f, 'f', -1, 64))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			parts = appendClasses(parts, rv.Index(i).Interface())
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return parts
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if k != "" && truthy(val.Interface()) {
				parts = append(parts, k)
			}
		}
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			return appendClasses(parts, rv.Elem().Interface())
		}
	}
	return parts
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
