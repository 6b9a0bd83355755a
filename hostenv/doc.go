// Package hostenv synthesizes the minimal host environment a module needs to
// instantiate.
//
// Build turns the module's declared imports into an Environment: one plan
// per import module, holding a stub for every function import, a
// zero-valued global for every global import, and exactly one linear memory
// Region. Recognized imports (the ESP32 peripheral bindings, the esp_printf
// logger and a handful of wasi_snapshot_preview1 calls) come from a Registry;
// every other function import gets a stub that returns zero.
//
// Imports that cannot be synthesized (tables, a second memory, 64-bit
// memories, GC reference globals, signatures with non-numeric types) are
// collected and reported together as one instantiation error.
//
// Stubs print to a Console rather than to the module's own state. The
// engine installs the plan; for import modules that need a memory or
// globals, Synthesize encodes a small module that re-exports the Go stubs
// alongside them, because host modules can only export functions.
package hostenv
