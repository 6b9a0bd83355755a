// Package engine is the compile and instantiate capability the validator
// delegates to.
//
// The Engine interface keeps the pipeline independent of any particular
// runtime so it can be exercised with a fake. WazeroEngine implements it
// on top of wazero:
//
//	WazeroEngine   - owns one wazero runtime for the duration of a run
//	WazeroModule   - a compiled module plus the bytes it came from
//	WazeroInstance - an anonymous instance; the same module can be
//	                 instantiated any number of times
//
// # Installing a host environment
//
// wazero host modules can only export functions, but a module may import
// its memory and globals. Install therefore registers each import module
// of a hostenv.Environment in one of three ways:
//
//   - functions only: a host module under the import module's name
//   - memory or globals: a host module holding the stubs under
//     hostenv.HostModuleName, plus a synthesized module under the import
//     module's name that imports and re-exports the stubs and defines the
//     memory and globals
//   - wasi_snapshot_preview1 with real WASI enabled: wazero's own
//     implementation
//
// After installation the environment's Region is bound to the live memory.
//
// # Deadlines
//
// With Config.CloseOnContextDone, a call whose context expires is aborted
// and returns a *sys.ExitError carrying sys.ExitCodeDeadlineExceeded. The
// instance is closed as a side effect.
//
// # Experimental Features
//
// Threads/Atomics: Enable via Config.EnableThreads. Modules that declare or
// import shared memory do not compile without it.
package engine
