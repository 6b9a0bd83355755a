package validator

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck/engine"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/introspect"
	"github.com/wippyai/wasmcheck/preflight"
	"github.com/wippyai/wasmcheck/report"
)

// EngineFactory creates the engine for one run.
type EngineFactory func(ctx context.Context, cfg *engine.Config) (engine.Engine, error)

// Config controls a Validator. Start from DefaultConfig; the zero value
// disables isolation and the invocation deadline.
type Config struct {
	// Registry supplies recognized stubs. nil means hostenv.DefaultRegistry().
	Registry *hostenv.Registry
	// Console receives stub and WASI output produced outside an
	// invocation. Output of an invocation is captured into its outcome.
	// nil discards it.
	Console io.Writer
	Logger  *zap.Logger
	// NewEngine creates the engine. nil means wazero.
	NewEngine EngineFactory

	// Pages is the minimum initial size of the memory region.
	Pages uint32
	// MemoryLimitPages caps every memory. 0 means the engine default.
	MemoryLimitPages uint32
	// InvokeTimeout bounds each export call. 0 disables the deadline.
	InvokeTimeout time.Duration

	// WASI provides a real wasi_snapshot_preview1 instead of stubs.
	WASI bool
	// Isolate runs each export on a fresh instance.
	Isolate bool
	// EnableThreads accepts shared memories and atomics.
	EnableThreads bool
}

// DefaultConfig returns the configuration the CLI starts from.
func DefaultConfig() Config {
	return Config{
		Pages:         hostenv.DefaultPages,
		InvokeTimeout: harness.DefaultTimeout,
		Isolate:       true,
	}
}

// Validator runs the validation pipeline. Runs share no state; each one
// gets its own engine.
type Validator struct {
	logger *zap.Logger
	cfg    Config
}

// New creates a validator.
func New(cfg Config) *Validator {
	logger := cfg.Logger
	if logger == nil {
		logger = engine.Logger()
	}
	if cfg.NewEngine == nil {
		cfg.NewEngine = wazeroFactory
	}
	return &Validator{cfg: cfg, logger: logger}
}

func wazeroFactory(ctx context.Context, cfg *engine.Config) (engine.Engine, error) {
	return engine.NewWazero(ctx, cfg)
}

// ValidateFile reads path and validates it. A read failure is reported
// in-band like every other failure.
func (v *Validator) ValidateFile(ctx context.Context, path string) *report.Report {
	bin, err := os.ReadFile(path)
	if err != nil {
		return report.Assemble(report.Input{File: path, Err: errors.IO(path, err)})
	}
	return v.Validate(ctx, path, bin)
}

// Validate runs the whole pipeline on bin and invokes every function export.
// name labels the report.
func (v *Validator) Validate(ctx context.Context, name string, bin []byte) *report.Report {
	s, mod, err := v.open(ctx, name, bin)
	if err != nil {
		return report.Assemble(report.Input{File: name, Module: mod, Err: err})
	}
	defer s.Close(ctx)

	r := s.Report(s.RunAll(ctx))
	s.logger.Debug("validated",
		zap.Int("invoked", len(r.Outcomes)),
		zap.Int("failed", r.Failed()))
	return r
}

// Open runs the pipeline up to instantiation and returns a session for
// invoking exports one at a time. The caller must close it.
func (v *Validator) Open(ctx context.Context, name string, bin []byte) (*Session, error) {
	s, _, err := v.open(ctx, name, bin)
	return s, err
}

// OpenFile is Open for a file on disk.
func (v *Validator) OpenFile(ctx context.Context, path string) (*Session, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}
	return v.Open(ctx, path, bin)
}

// open stops at the first failing stage. The introspection result is
// returned whenever that stage was reached, so failed reports can still
// list the imports.
func (v *Validator) open(ctx context.Context, name string, bin []byte) (*Session, *introspect.Result, error) {
	log := v.logger.With(zap.String("file", name))

	if res := preflight.Check(bin); !res.Valid {
		log.Debug("preflight rejected", zap.String("reason", res.Reason))
		return nil, nil, errors.MalformedBinary(res.Reason)
	}

	eng, err := v.cfg.NewEngine(ctx, &engine.Config{
		Logger:             log,
		MemoryLimitPages:   v.cfg.MemoryLimitPages,
		EnableThreads:      v.cfg.EnableThreads,
		CloseOnContextDone: v.cfg.InvokeTimeout > 0,
	})
	if err != nil {
		return nil, nil, errors.Compilation(err)
	}
	s := &Session{name: name, engine: eng, logger: log}

	s.compiled, err = eng.Compile(ctx, bin)
	if err != nil {
		s.Close(ctx)
		return nil, nil, errors.Compilation(err)
	}
	log.Debug("compiled")

	s.module, err = introspect.Introspect(s.compiled)
	if err != nil {
		s.Close(ctx)
		return nil, nil, err
	}
	log.Debug("introspected",
		zap.Int("imports", len(s.module.Imports)),
		zap.Int("exports", len(s.module.Exports)))

	s.env, err = hostenv.Build(s.module.Imports, hostenv.Config{
		Registry: v.cfg.Registry,
		Console:  v.cfg.Console,
		Logger:   log,
		Pages:    v.cfg.Pages,
		WASI:     v.cfg.WASI,

		ModuleMemory: s.module.DefinesMemory,
	})
	if err != nil {
		s.Close(ctx)
		return nil, s.module, err
	}
	if err := eng.Install(ctx, s.env); err != nil {
		s.Close(ctx)
		return nil, s.module, errors.Instantiation(err)
	}

	s.instance, err = eng.Instantiate(ctx, s.compiled)
	if err != nil {
		s.Close(ctx)
		return nil, s.module, errors.Instantiation(err)
	}
	s.memory, s.source = s.measureMemory()
	log.Debug("instantiated",
		zap.Uint64("memory_bytes", s.memory),
		zap.String("memory_source", string(s.source)))

	s.harness = harness.New(harness.Config{
		Console: s.env.Console,
		Logger:  log,
		Timeout: v.cfg.InvokeTimeout,
		Isolate: v.cfg.Isolate,
	})
	return s, s.module, nil
}
