package hostenv

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/wasmcheck/printf"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Call is the view a stub gets of one host function invocation.
type Call struct {
	Env    *Environment
	Caller api.Module
	Func   *Func
	Module string // import module name

	params  []uint64
	results []uint64
}

func newCall(env *Environment, caller api.Module, module string, f *Func, stack []uint64) *Call {
	c := &Call{
		Env:     env,
		Caller:  caller,
		Func:    f,
		Module:  module,
		params:  make([]uint64, len(f.Type.Params)),
		results: make([]uint64, len(f.Type.Results)),
	}
	copy(c.params, stack)
	return c
}

// NumParams returns the number of parameters the import declares.
func (c *Call) NumParams() int {
	return len(c.params)
}

// Param returns the raw encoding of parameter i, or 0 when absent.
func (c *Call) Param(i int) uint64 {
	if i < 0 || i >= len(c.params) {
		return 0
	}
	return c.params[i]
}

// ParamU32 returns parameter i truncated to 32 bits, the usual pointer form.
func (c *Call) ParamU32(i int) uint32 {
	return api.DecodeU32(c.Param(i))
}

// ParamArg decodes parameter i by its declared type.
func (c *Call) ParamArg(i int) printf.Arg {
	if i < 0 || i >= len(c.params) {
		return printf.Arg{}
	}
	raw := c.params[i]
	switch c.Func.Type.Params[i] {
	case wasmbin.ValI32:
		return printf.Int(int64(api.DecodeI32(raw)))
	case wasmbin.ValF32:
		return printf.Float(float64(api.DecodeF32(raw)))
	case wasmbin.ValF64:
		return printf.Float(api.DecodeF64(raw))
	default:
		return printf.Int(int64(raw))
	}
}

// Return sets the first result slot, encoded for its declared type. Other
// slots stay zero. A call to a function without results ignores v.
func (c *Call) Return(v printf.Arg) {
	if len(c.results) == 0 {
		return
	}
	c.results[0] = encodeResult(c.Func.Type.Results[0], v)
}

// ReturnInt is shorthand for Return(printf.Int(v)).
func (c *Call) ReturnInt(v int64) {
	c.Return(printf.Int(v))
}

// Memory returns the memory pointers passed to the stub refer to: the
// caller's own when it defines one, otherwise the region, which is also
// what an imported memory resolves to.
func (c *Call) Memory() api.Memory {
	if c.Env == nil {
		return nil
	}
	if c.Env.ModuleMemory && c.Caller != nil {
		return c.Caller.Memory()
	}
	if c.Env.Region != nil {
		return c.Env.Region.Memory()
	}
	return nil
}

// Print writes formatted text to the console.
func (c *Call) Print(format string, args ...any) {
	if c.Env == nil || c.Env.Console == nil {
		return
	}
	fmt.Fprintf(c.Env.Console, format, args...)
}

// Exit closes the calling module with code and unwinds the guest. It does
// not return.
func (c *Call) Exit(ctx context.Context, code uint32) {
	if c.Caller != nil {
		_ = c.Caller.CloseWithExitCode(ctx, code)
	}
	panic(sys.NewExitError(code))
}

func encodeResult(vt wasmbin.ValType, v printf.Arg) uint64 {
	switch vt {
	case wasmbin.ValI32:
		return api.EncodeI32(int32(v.Int64()))
	case wasmbin.ValI64:
		return api.EncodeI64(v.Int64())
	case wasmbin.ValF32:
		return api.EncodeF32(float32(v.Float64()))
	case wasmbin.ValF64:
		return api.EncodeF64(v.Float64())
	default:
		return 0
	}
}
