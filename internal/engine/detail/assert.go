package detail

import "fmt"

// assertf panics when a precondition does not hold. Violations are caller
// bugs, so there is no error path; callers guard expensive conditions with
// debugChecks so release builds skip them entirely.
func assertf(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("detail: "+format, args...))
	}
}
