package engine

import (
	"context"

	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Engine compiles modules and instantiates them against an installed host
// environment. One Engine serves one validation run.
type Engine interface {
	// Compile checks the binary structurally and semantically.
	Compile(ctx context.Context, bin []byte) (CompiledModule, error)
	// Install makes env's import modules available to later instantiations.
	// It is called at most once.
	Install(ctx context.Context, env *hostenv.Environment) error
	// Instantiate creates a fresh, unnamed instance of m.
	Instantiate(ctx context.Context, m CompiledModule) (Instance, error)
	Close(ctx context.Context) error
}

// CompiledModule is the engine's handle on a compiled binary. It is valid
// until the engine is closed.
type CompiledModule interface {
	// Bytes returns the binary the module was compiled from.
	Bytes() []byte
	Close(ctx context.Context) error
}

// Instance is an instantiated module.
type Instance interface {
	// Function returns the exported function name, or false if the instance
	// exports no function by that name.
	Function(name string) (Function, bool)
	// MemorySize returns the size in bytes of the instance's memory, or
	// false when it has none.
	MemorySize() (uint32, bool)
	// Closed reports whether the instance was closed, for example by an
	// exit or an expired deadline.
	Closed() bool
	Close(ctx context.Context) error
}

// Function is an exported function bound to an instance.
type Function interface {
	ParamTypes() []wasmbin.ValType
	ResultTypes() []wasmbin.ValType
	// Call invokes the function with raw-encoded params.
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}
