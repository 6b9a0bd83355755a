package harness

import (
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmcheck/wasmbin"
)

// Status classifies an invocation.
type Status uint8

const (
	// Returned means the call completed normally.
	Returned Status = iota
	// Trapped means the engine raised a fault during the call, including a
	// non-zero exit or an expired deadline.
	Trapped
	// NotInvocable means the export could not be called at all.
	NotInvocable
)

func (s Status) String() string {
	switch s {
	case Returned:
		return "returned"
	case Trapped:
		return "trapped"
	case NotInvocable:
		return "not invocable"
	default:
		return "unknown"
	}
}

// Unit renders a call that produced no result.
const Unit = "void"

// Outcome is the result of invoking one function export.
type Outcome struct {
	// Err is the structured invocation error when Status is not Returned.
	Err    error
	Name   string
	Value  string // rendered result when Returned
	Reason string // failure message otherwise
	// Output is what the call printed to the console.
	Output string
	Status Status
}

// OK reports whether the call returned normally.
func (o Outcome) OK() bool {
	return o.Status == Returned
}

// Message is the value for a returned call and the reason otherwise.
func (o Outcome) Message() string {
	if o.OK() {
		return o.Value
	}
	return o.Reason
}

// RenderValues renders raw results by type: Unit for none, the value itself
// for one, and a bracketed list for several.
func RenderValues(types []wasmbin.ValType, raw []uint64) string {
	switch len(raw) {
	case 0:
		return Unit
	case 1:
		return renderValue(typeAt(types, 0), raw[0])
	}
	parts := make([]string, len(raw))
	for i, v := range raw {
		parts[i] = renderValue(typeAt(types, i), v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func typeAt(types []wasmbin.ValType, i int) wasmbin.ValType {
	if i < len(types) {
		return types[i]
	}
	return wasmbin.ValI64
}

func renderValue(vt wasmbin.ValType, v uint64) string {
	switch vt {
	case wasmbin.ValI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case wasmbin.ValI64:
		return strconv.FormatInt(int64(v), 10)
	case wasmbin.ValF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case wasmbin.ValF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	case wasmbin.ValExtern, wasmbin.ValFuncRef:
		if v == 0 {
			return "null"
		}
		return vt.String() + "(0x" + strconv.FormatUint(v, 16) + ")"
	default:
		return "0x" + strconv.FormatUint(v, 16)
	}
}
