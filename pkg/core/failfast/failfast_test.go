package failfast

import (
	"strings"
	"testing"
)

func expectViolation(t *testing.T, fn func()) *Violation {
	t.Helper()
	var got *Violation
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic, got none")
			}
			v, ok := r.(*Violation)
			if !ok {
				t.Fatalf("expected *Violation, got %T", r)
			}
			got = v
		}()
		fn()
	}()
	return got
}

func expectNoPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("expected no panic, got: %v", r)
		}
	}()
	fn()
}

func TestIf(t *testing.T) {
	expectNoPanic(t, func() { If(true, "unused") })

	v := expectViolation(t, func() { If(false, "workers=%d", 0) })
	if !strings.Contains(v.Error(), "workers=0") {
		t.Errorf("message not formatted: %q", v.Error())
	}
}

func TestNotNil(t *testing.T) {
	var nilPtr *int
	var nilFunc func()
	var nilMap map[string]int
	x := 1

	expectNoPanic(t, func() { NotNil(&x, "x") })
	expectNoPanic(t, func() { NotNil(func() {}, "fn") })

	expectViolation(t, func() { NotNil(nil, "untyped") })
	expectViolation(t, func() { NotNil(nilPtr, "ptr") })
	expectViolation(t, func() { NotNil(nilFunc, "fn") })
	expectViolation(t, func() { NotNil(nilMap, "map") })
}
