// Package wasmcheck validates WebAssembly modules by running them.
//
// A run takes raw module bytes through a short pipeline and stops at the
// first stage that fails:
//
//	preflight/   header check (length, magic)
//	engine/      compile and instantiate with wazero
//	introspect/  ordered import and export descriptors
//	hostenv/     synthesized imports: one linear memory, stubs, globals
//	harness/     call every exported function with zero arguments
//	report/      summary text
//
// The validator package wires the stages together:
//
//	v := validator.New(validator.DefaultConfig())
//	rep := v.ValidateFile(ctx, "module.wasm")
//	report.Write(os.Stdout, rep, report.PlainStyles())
//
// # Host environment
//
// Imports are satisfied without any knowledge of the module's intent.
// Recognized names (env.esp_printf, wasi_snapshot_preview1.fd_write, ...)
// get behavior; any other function import gets a stub returning zero.
// Table imports cannot be synthesized and fail instantiation.
//
// The env.esp_printf stub renders C printf templates with the printf
// package. Its output, like everything a stub prints, goes to the
// environment's console and is captured per invocation.
//
// # Thread Safety
//
// A Validator may be shared, but each run is strictly sequential and owns
// its engine, environment and instances.
package wasmcheck
