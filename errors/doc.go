// Package errors provides structured error types for wasmcheck.
//
// Errors are categorized by Phase (the pipeline stage that failed) and Kind
// (error category). The Error type carries a location path, an optional
// offending value, and a cause chain.
//
// The pipeline taxonomy maps onto phases and kinds as follows:
//
//	IOError            PhaseRead        / KindIO
//	MalformedBinary    PhasePreflight   / KindMalformedBinary
//	CompilationError   PhaseCompile     / KindCompilation
//	InstantiationError PhaseInstantiate / KindInstantiation
//	InvocationError    PhaseInvoke      / KindTrap, KindNotInvocable, KindExit, KindTimeout
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
//		Path("env", "table").
//		Detail("table imports cannot be synthesized").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedBinary("bad magic")
//	err := errors.Trap("run", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
