package hostenv

import (
	"context"
	"io"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Default placement of the region when the module imports no memory.
const (
	DefaultMemoryModule = ModuleEnv
	DefaultMemoryName   = "memory"
	fallbackMemoryName  = "__wasmcheck_memory"
)

// Config controls environment synthesis. The zero value is usable.
type Config struct {
	// Registry supplies recognized stubs. nil means DefaultRegistry().
	Registry *Registry
	// Console receives stub output. nil discards it.
	Console io.Writer
	// Logger receives debug records for every stub call. nil means no-op.
	Logger *zap.Logger
	// Pages is the minimum initial size of the region. 0 means DefaultPages.
	Pages uint32
	// WASI satisfies wasi_snapshot_preview1 with a real implementation
	// instead of stubs.
	WASI bool
	// ModuleMemory is true when the module defines its own memory. Stubs
	// then read the caller's memory instead of the region.
	ModuleMemory bool
}

// Environment is the plan for satisfying one module's imports. The engine
// installs it; stubs run against it.
type Environment struct {
	Region  *Region
	Console *Console
	logger  *zap.Logger
	// Modules are the import modules to provide, in first-import order.
	Modules []*Module
	// ModuleMemory mirrors Config.ModuleMemory.
	ModuleMemory bool
}

// Module is one import module the environment provides.
type Module struct {
	Name    string
	Funcs   []*Func
	Globals []*Global
	// Memory is true when the region is exported from this module.
	Memory bool
	// WASI is true when the module is provided by the real WASI
	// implementation; Funcs are then informational.
	WASI bool
}

// Synthetic reports whether the module needs a guest-shaped wrapper, since
// host modules can export only functions.
func (m *Module) Synthetic() bool {
	return !m.WASI && (m.Memory || len(m.Globals) > 0)
}

// Func is a function import and the stub bound to it.
type Func struct {
	Stub StubFunc
	Name string
	Type wasmbin.FuncType
	// Recognized is false for imports served by the default zero stub.
	Recognized bool
}

// Global is a synthesized global holding the zero value of its type.
type Global struct {
	Name string
	Type wasmbin.GlobalType
}

// Logger returns the environment's logger.
func (e *Environment) Logger() *zap.Logger {
	return e.logger
}

// Module returns the plan for the named import module.
func (e *Environment) Module(name string) *Module {
	for _, m := range e.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Build plans an environment satisfying imports. Every import that cannot be
// synthesized is collected; if there are any, the result is an
// instantiation error wrapping *errors.UnsatisfiedImportsError.
func Build(imports []wasmcheck.ImportDescriptor, cfg Config) (*Environment, error) {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Pages == 0 {
		cfg.Pages = DefaultPages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	env := &Environment{
		Console:      NewConsole(cfg.Console),
		ModuleMemory: cfg.ModuleMemory,
		logger:       logger,
	}
	b := &builder{
		cfg:     cfg,
		env:     env,
		modules: make(map[string]*Module),
		kinds:   make(map[string]wasmcheck.Kind),
	}
	for _, imp := range imports {
		b.add(imp)
	}
	b.placeRegion()

	if len(b.unsatisfied) > 0 {
		return nil, errors.Instantiation(&errors.UnsatisfiedImportsError{Imports: b.unsatisfied})
	}

	logger.Debug("environment planned",
		zap.Int("modules", len(b.env.Modules)),
		zap.Strings("stubs", cfg.Registry.Names()),
		zap.String("region", b.env.Region.Module+"."+b.env.Region.Name),
		zap.Uint32("pages", b.env.Region.Pages))
	return b.env, nil
}

type builder struct {
	env         *Environment
	modules     map[string]*Module
	kinds       map[string]wasmcheck.Kind // by "module.name"
	memory      *wasmcheck.ImportDescriptor
	unsatisfied []errors.UnsatisfiedImport
	cfg         Config
}

func (b *builder) reject(imp wasmcheck.ImportDescriptor, reason string) {
	b.unsatisfied = append(b.unsatisfied, errors.UnsatisfiedImport{
		Module: imp.Module,
		Name:   imp.Name,
		Kind:   imp.Kind.String(),
		Reason: reason,
	})
}

func (b *builder) module(name string) *Module {
	if m, ok := b.modules[name]; ok {
		return m
	}
	m := &Module{Name: name, WASI: b.cfg.WASI && name == ModuleWASI}
	b.modules[name] = m
	b.env.Modules = append(b.env.Modules, m)
	return m
}

func (b *builder) add(imp wasmcheck.ImportDescriptor) {
	key := imp.Key()
	if prev, ok := b.kinds[key]; ok && prev != imp.Kind {
		b.reject(imp, "name already imported as "+prev.String())
		return
	}
	b.kinds[key] = imp.Kind

	switch imp.Kind {
	case wasmcheck.KindFunction:
		b.addFunc(imp)
	case wasmcheck.KindMemory:
		b.addMemory(imp)
	case wasmcheck.KindGlobal:
		b.addGlobal(imp)
	case wasmcheck.KindTable:
		b.reject(imp, "tables cannot be synthesized")
	default:
		b.reject(imp, "unknown import kind")
	}
}

func (b *builder) addFunc(imp wasmcheck.ImportDescriptor) {
	if imp.Func == nil {
		b.reject(imp, "missing signature")
		return
	}
	if bad, ok := hostSignature(*imp.Func); !ok {
		b.reject(imp, "unsupported value type "+bad.String()+" in "+imp.Func.String())
		return
	}

	m := b.module(imp.Module)
	for _, f := range m.Funcs {
		if f.Name != imp.Name {
			continue
		}
		if f.Type.String() != imp.Func.String() {
			b.reject(imp, "conflicting signatures "+f.Type.String()+" and "+imp.Func.String())
		}
		return
	}

	f := &Func{Name: imp.Name, Type: *imp.Func}
	if stub, ok := b.cfg.Registry.Lookup(imp.Module, imp.Name); ok {
		f.Stub = stub
		f.Recognized = true
	} else {
		f.Stub = zeroStub
	}
	m.Funcs = append(m.Funcs, f)
}

func (b *builder) addMemory(imp wasmcheck.ImportDescriptor) {
	switch {
	case imp.Memory == nil:
		b.reject(imp, "missing memory type")
		return
	case b.memory != nil:
		b.reject(imp, "only one memory region is supplied, already placed at "+b.memory.Key())
		return
	case imp.Memory.Limits.Memory64:
		b.reject(imp, "64-bit memories are not supported")
		return
	}
	m := b.module(imp.Module)
	if m.WASI {
		b.reject(imp, "the WASI module provides functions only")
		return
	}
	b.memory = &imp
	m.Memory = true
	limits := imp.Memory.Limits
	b.env.Region = newRegion(imp.Module, imp.Name, b.cfg.Pages, &limits)
}

func (b *builder) addGlobal(imp wasmcheck.ImportDescriptor) {
	if imp.Global == nil {
		b.reject(imp, "missing global type")
		return
	}
	if imp.Global.HeapType != nil {
		b.reject(imp, "reference type globals cannot be synthesized")
		return
	}
	if _, ok := wasmbin.ZeroInit(imp.Global.ValType); !ok {
		b.reject(imp, "value type "+imp.Global.ValType.String()+" has no zero value")
		return
	}
	m := b.module(imp.Module)
	if m.WASI {
		b.reject(imp, "the WASI module provides functions only")
		return
	}
	m.Globals = append(m.Globals, &Global{Name: imp.Name, Type: *imp.Global})
}

// placeRegion puts the region at env.memory when no memory import placed
// it, picking another name if the module imports env.memory as something
// else.
func (b *builder) placeRegion() {
	if b.env.Region != nil {
		return
	}
	name := DefaultMemoryName
	if _, taken := b.kinds[DefaultMemoryModule+"."+name]; taken {
		name = fallbackMemoryName
	}
	b.env.Region = newRegion(DefaultMemoryModule, name, b.cfg.Pages, nil)
	b.module(DefaultMemoryModule).Memory = true
}

// hostSignature reports whether every type in ft can cross the host
// boundary, returning the first that cannot.
func hostSignature(ft wasmbin.FuncType) (wasmbin.ValType, bool) {
	for _, list := range [][]wasmbin.ValType{ft.Params, ft.Results} {
		for _, vt := range list {
			if _, ok := ValueType(vt); !ok {
				return vt, false
			}
		}
	}
	return 0, true
}

// ValueType maps a binary value type to the engine's host function type.
func ValueType(vt wasmbin.ValType) (api.ValueType, bool) {
	switch vt {
	case wasmbin.ValI32:
		return api.ValueTypeI32, true
	case wasmbin.ValI64:
		return api.ValueTypeI64, true
	case wasmbin.ValF32:
		return api.ValueTypeF32, true
	case wasmbin.ValF64:
		return api.ValueTypeF64, true
	case wasmbin.ValExtern:
		return api.ValueTypeExternref, true
	default:
		return 0, false
	}
}

// ValueTypes maps a list of binary value types. Callers check the
// signature with Build first.
func ValueTypes(vts []wasmbin.ValType) []api.ValueType {
	out := make([]api.ValueType, 0, len(vts))
	for _, vt := range vts {
		t, _ := ValueType(vt)
		out = append(out, t)
	}
	return out
}

func zeroStub(context.Context, *Call) {}

// HostFunc returns the engine-facing implementation of f as provided by
// module. Results start at zero and are overwritten by the stub.
func (e *Environment) HostFunc(module string, f *Func) api.GoModuleFunc {
	return func(ctx context.Context, caller api.Module, stack []uint64) {
		c := newCall(e, caller, module, f, stack)
		if ce := e.logger.Check(zap.DebugLevel, "stub call"); ce != nil {
			ce.Write(
				zap.String("import", module+"."+f.Name),
				zap.Bool("recognized", f.Recognized),
				zap.Uint64s("params", c.params))
		}
		f.Stub(ctx, c)
		copy(stack, c.results)
	}
}
