// Package preflight performs the cheap header check that runs before a
// module is handed to the engine.
package preflight

import (
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Rejection reasons.
const (
	ReasonTooSmall = "too small"
	ReasonBadMagic = "bad magic"
)

// Result is the outcome of Check. Only a Valid result may proceed to
// compilation.
type Result struct {
	Reason string
	Valid  bool
}

// Check inspects at most the first HeaderSize bytes of data. The version
// field is left to the engine.
func Check(data []byte) Result {
	if len(data) < wasmbin.HeaderSize {
		return Result{Reason: ReasonTooSmall}
	}
	if string(data[:4]) != wasmbin.Magic {
		return Result{Reason: ReasonBadMagic}
	}
	return Result{Valid: true}
}
