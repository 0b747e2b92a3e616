//go:build debug

package detail

// debugChecks enables precondition assertions. Build with -tags debug.
const debugChecks = true
