//go:build !debug

package detail

const debugChecks = false
