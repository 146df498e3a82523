// Package invariant reports logic bugs. A Violation is never an expected
// runtime condition; callers panic with it instead of returning it.
package invariant

import "fmt"

// Violation is the panic value raised when a precondition that callers are
// required to check has been broken.
type Violation struct {
	Op     string
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", v.Op, v.Reason)
}

// Panicf raises a Violation for op.
func Panicf(op, format string, args ...any) {
	panic(&Violation{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// Check raises a Violation for op when ok is false.
func Check(ok bool, op, format string, args ...any) {
	if !ok {
		Panicf(op, format, args...)
	}
}

// Recover converts a recovered Violation into an error and re-panics on any
// other value. It is intended for tests and process boundaries only:
//
//	defer invariant.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*err = v
		return
	}
	panic(r)
}
