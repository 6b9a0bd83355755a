package validator

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/engine"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/introspect"
	"github.com/wippyai/wasmcheck/report"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Session is an instantiated module ready for invocation. It is not safe
// for concurrent use.
type Session struct {
	engine   engine.Engine
	compiled engine.CompiledModule
	instance engine.Instance
	module   *introspect.Result
	env      *hostenv.Environment
	harness  *harness.Harness
	logger   *zap.Logger
	name     string
	memory   uint64
	source   report.MemorySource
	ran      bool
}

// Name is the label the session was opened with.
func (s *Session) Name() string {
	return s.name
}

// Imports returns the module's imports in declaration order.
func (s *Session) Imports() []wasmcheck.ImportDescriptor {
	return s.module.Imports
}

// Exports returns the module's exports in declaration order.
func (s *Session) Exports() []wasmcheck.ExportDescriptor {
	return s.module.Exports
}

// Signature returns the type of a function export.
func (s *Session) Signature(name string) (wasmbin.FuncType, bool) {
	ft, ok := s.module.Functions[name]
	return ft, ok
}

// Environment returns the host environment the module was linked against.
func (s *Session) Environment() *hostenv.Environment {
	return s.env
}

// MemoryBytes is the size of the module's memory right after
// instantiation.
func (s *Session) MemoryBytes() uint64 {
	return s.memory
}

// MemorySource says whether MemoryBytes measured the module's own memory
// or the region.
func (s *Session) MemorySource() report.MemorySource {
	return s.source
}

// measureMemory reads the memory the module defines. An imported memory is
// the region, and a module without memory is reported with the region too.
func (s *Session) measureMemory() (uint64, report.MemorySource) {
	if s.module.DefinesMemory {
		if n, ok := s.instance.MemorySize(); ok {
			return uint64(n), report.MemoryModule
		}
	}
	return s.env.Region.Size(), report.MemoryRegion
}

// RunAll invokes every function export with zero arguments. The first run
// uses the session's instance; later runs start from a fresh instance so
// they see the same initial state.
func (s *Session) RunAll(ctx context.Context) []harness.Outcome {
	inst := s.instance
	if s.ran {
		fresh, err := s.spawn(ctx)
		if err != nil {
			return s.unavailable(err)
		}
		defer fresh.Close(ctx)
		inst = fresh
	}
	s.ran = true
	return s.harness.Run(ctx, &harness.Target{Instance: inst, Spawn: s.spawn}, s.module.Exports)
}

func (s *Session) unavailable(err error) []harness.Outcome {
	var out []harness.Outcome
	for _, e := range s.module.FunctionExports() {
		out = append(out, notInvocable(e.Name, err))
	}
	return out
}

// Invoke calls one export with raw-encoded params on a fresh instance,
// padding missing params with zero.
func (s *Session) Invoke(ctx context.Context, name string, params []uint64) harness.Outcome {
	inst, err := s.spawn(ctx)
	if err != nil {
		return notInvocable(name, err)
	}
	defer inst.Close(ctx)
	return s.harness.Call(ctx, inst, name, params)
}

func (s *Session) spawn(ctx context.Context) (engine.Instance, error) {
	return s.engine.Instantiate(ctx, s.compiled)
}

// Report assembles a report from outcomes.
func (s *Session) Report(outcomes []harness.Outcome) *report.Report {
	return report.Assemble(report.Input{
		File:         s.name,
		Module:       s.module,
		MemorySource: s.source,
		MemoryBytes:  s.memory,
		Outcomes:     outcomes,
	})
}

// Close releases the instance, the compiled module and the engine.
func (s *Session) Close(ctx context.Context) error {
	if s.instance != nil {
		if err := s.instance.Close(ctx); err != nil {
			s.logger.Debug("close instance", zap.Error(err))
		}
		s.instance = nil
	}
	if s.compiled != nil {
		if err := s.compiled.Close(ctx); err != nil {
			s.logger.Debug("close compiled module", zap.Error(err))
		}
		s.compiled = nil
	}
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close(ctx)
	s.engine = nil
	return err
}

func notInvocable(name string, err error) harness.Outcome {
	e := errors.NotInvocable(name, "instantiate", err)
	return harness.Outcome{Name: name, Status: harness.NotInvocable, Reason: e.Reason(), Err: e}
}
