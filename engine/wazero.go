package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// WazeroEngine implements Engine using wazero runtime
type WazeroEngine struct {
	runtime wazero.Runtime
	logger  *zap.Logger
	stdout  io.Writer
	modules []api.Module // installed host and synthetic modules
}

// Config holds configuration for engine creation
type Config struct {
	// Logger receives engine records. nil means Logger().
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	// Modules declaring shared memory fail to compile without it.
	EnableThreads bool

	// CloseOnContextDone aborts a running call when its context is done,
	// which is how per-invocation deadlines are enforced.
	CloseOnContextDone bool
}

// NewWazero creates a new wazero-based engine with its own runtime.
func NewWazero(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.EnableThreads {
		runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	if cfg.CloseOnContextDone {
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = Logger()
	}

	return &WazeroEngine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		logger:  logger,
		stdout:  io.Discard,
	}, nil
}

// Compile implements Engine.
func (e *WazeroEngine) Compile(ctx context.Context, bin []byte) (CompiledModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("module compiled",
		zap.Int("bytes", len(bin)),
		zap.Int("imported_functions", len(compiled.ImportedFunctions())),
		zap.Int("exported_functions", len(compiled.ExportedFunctions())))
	return &WazeroModule{compiled: compiled, bin: bin, hasMemory: hasMemory(compiled, bin)}, nil
}

// hasMemory reports whether instances of the module get a linear memory,
// imported or their own. api.Module.Memory cannot tell: it returns a non-nil
// interface around a nil pointer when there is none.
func hasMemory(compiled wazero.CompiledModule, bin []byte) bool {
	if len(compiled.ImportedMemories()) > 0 {
		return true
	}
	m, err := wasmbin.ParseModule(bin)
	return err == nil && len(m.Memories) > 0
}

// Install implements Engine. Import modules holding only functions become
// host modules directly. Those that also carry the region or globals are
// split: the stubs go into a host module under hostenv.HostModuleName, and
// a synthesized module re-exports them with the memory and globals.
func (e *WazeroEngine) Install(ctx context.Context, env *hostenv.Environment) error {
	if env.Console != nil {
		e.stdout = env.Console
	}

	for _, m := range env.Modules {
		if m.WASI {
			mod, err := instantiateWASI(ctx, e.runtime)
			if err != nil {
				return fmt.Errorf("instantiate %s: %w", m.Name, err)
			}
			e.modules = append(e.modules, mod)
			continue
		}

		hostName := m.Name
		if m.Synthetic() {
			hostName = hostenv.HostModuleName(m.Name)
		}
		if len(m.Funcs) > 0 {
			mod, err := e.instantiateHost(ctx, env, hostName, m)
			if err != nil {
				return err
			}
			e.modules = append(e.modules, mod)
		}
		if !m.Synthetic() {
			continue
		}

		mod, err := e.runtime.InstantiateWithConfig(ctx, env.Synthesize(m),
			wazero.NewModuleConfig().WithName(m.Name).WithStartFunctions())
		if err != nil {
			return fmt.Errorf("instantiate %s: %w", m.Name, err)
		}
		e.modules = append(e.modules, mod)

		if m.Memory {
			mem := mod.ExportedMemory(env.Region.Name)
			if mem == nil {
				return fmt.Errorf("module %s does not export %s", m.Name, env.Region.Name)
			}
			env.Region.Bind(mem)
		}
	}

	e.logger.Debug("environment installed", zap.Int("modules", len(e.modules)))
	return nil
}

func (e *WazeroEngine) instantiateHost(ctx context.Context, env *hostenv.Environment, name string, m *hostenv.Module) (api.Module, error) {
	builder := e.runtime.NewHostModuleBuilder(name)
	for _, f := range m.Funcs {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(env.HostFunc(m.Name, f),
				hostenv.ValueTypes(f.Type.Params),
				hostenv.ValueTypes(f.Type.Results)).
			WithName(f.Name).
			Export(f.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate host module %s: %w", name, err)
	}
	return mod, nil
}

// Instantiate implements Engine. Instances are anonymous so the same module
// can be instantiated repeatedly; _start is not run.
func (e *WazeroEngine) Instantiate(ctx context.Context, m CompiledModule) (Instance, error) {
	wm, ok := m.(*WazeroModule)
	if !ok {
		return nil, fmt.Errorf("module was not compiled by this engine")
	}

	modConfig := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithStdout(e.stdout).
		WithStderr(e.stdout)

	instance, err := e.runtime.InstantiateModule(ctx, wm.compiled, modConfig)
	if err != nil {
		return nil, err
	}
	return &WazeroInstance{instance: instance, hasMemory: wm.hasMemory}, nil
}

// Close releases the runtime and everything compiled or instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	e.modules = nil
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled WASM module
type WazeroModule struct {
	compiled  wazero.CompiledModule
	bin       []byte
	hasMemory bool
}

// Bytes implements CompiledModule.
func (m *WazeroModule) Bytes() []byte {
	return m.bin
}

// Close implements CompiledModule.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is a running module instance. It is not safe for
// concurrent use.
type WazeroInstance struct {
	instance  api.Module
	hasMemory bool
}

// Function implements Instance.
func (i *WazeroInstance) Function(name string) (Function, bool) {
	fn := i.instance.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	return wazeroFunction{fn: fn}, true
}

// MemorySize returns the current linear memory size in bytes, or false
// when the module neither imports nor defines a memory.
func (i *WazeroInstance) MemorySize() (uint32, bool) {
	if !i.hasMemory {
		return 0, false
	}
	return i.instance.Memory().Size(), true
}

// Closed implements Instance.
func (i *WazeroInstance) Closed() bool {
	return i.instance.IsClosed()
}

// Close implements Instance.
func (i *WazeroInstance) Close(ctx context.Context) error {
	return i.instance.Close(ctx)
}

type wazeroFunction struct {
	fn api.Function
}

func (f wazeroFunction) ParamTypes() []wasmbin.ValType {
	return valTypes(f.fn.Definition().ParamTypes())
}

func (f wazeroFunction) ResultTypes() []wasmbin.ValType {
	return valTypes(f.fn.Definition().ResultTypes())
}

func (f wazeroFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f.fn.Call(ctx, params...)
}

// valTypes converts engine value types; both use the binary encoding.
func valTypes(vts []api.ValueType) []wasmbin.ValType {
	out := make([]wasmbin.ValType, len(vts))
	for i, vt := range vts {
		out[i] = wasmbin.ValType(vt)
	}
	return out
}
