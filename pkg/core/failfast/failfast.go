// Package failfast holds assertions that panic on programmer errors, such
// as passing a nil handler to a server or a non-positive worker count.
package failfast

import (
	"fmt"
	"reflect"
)

// Violation is the value panicked by every assertion in this package.
type Violation struct {
	Message string
}

func (v *Violation) Error() string {
	return "fail-fast: " + v.Message
}

// If panics if condition is false
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(&Violation{Message: fmt.Sprintf(message, args...)})
	}
}

// NotNil panics if v is nil, including typed nil pointers, funcs,
// interfaces, maps, slices and channels.
func NotNil(v interface{}, name string) {
	if v == nil {
		panic(&Violation{Message: name + " is nil"})
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		if rv.IsNil() {
			panic(&Violation{Message: name + " is nil"})
		}
	}
}
