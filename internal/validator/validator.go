package validator

import (
	"fmt"
	"reflect"
)

// Validate checks that every constructor dependency is non-nil and non-zero.
// Components call this before returning from their constructors so a missing
// dependency fails fast instead of panicking mid-publish.
func Validate(component string, deps ...any) error {
	for i, dep := range deps {
		if dep == nil || isZero(reflect.ValueOf(dep)) {
			return fmt.Errorf("missing required dep %d for component: %s", i, component)
		}
	}

	return nil
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
