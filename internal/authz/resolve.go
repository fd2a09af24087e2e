package authz

import (
	"fmt"
	"reflect"
	"strconv"
)

// ValueResolver turns a heterogeneous permission or role reference
// into its canonical name. Implementations must be pure: no I/O.
type ValueResolver interface {
	Resolve(value any) string
}

// DefaultValueResolver resolves the reference shapes accepted across
// the public API: domain values, plain strings, constants of named
// string or integer types, and types exposing a String method.
type DefaultValueResolver struct{}

// Resolve returns the canonical name for value.
func (DefaultValueResolver) Resolve(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case Permission:
		return v.Name
	case *Permission:
		if v != nil {
			return v.Name
		}
		return ""
	case Role:
		return v.Name
	case *Role:
		if v != nil {
			return v.Name
		}
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	// Named constant types land here: a declared string type yields its
	// underlying value, a declared integer type its decimal rendering.
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return fmt.Sprint(value)
}

// numericID reports whether value is a plain (unnamed) integer, which
// the API treats as a raw permission or role id rather than a name.
// Constants of declared integer types deliberately do not match: they
// resolve through ValueResolver like any other enumerated reference.
func numericID(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}
