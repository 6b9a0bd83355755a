package hostenv

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/wasmbin"
)

func u64p(v uint64) *uint64 { return &v }

func funcImport(module, name string, params, results []wasmbin.ValType) wasmcheck.ImportDescriptor {
	return wasmcheck.ImportDescriptor{
		Module: module,
		Name:   name,
		Kind:   wasmcheck.KindFunction,
		Func:   &wasmbin.FuncType{Params: params, Results: results},
	}
}

func memImport(module, name string, limits wasmbin.Limits) wasmcheck.ImportDescriptor {
	return wasmcheck.ImportDescriptor{
		Module: module,
		Name:   name,
		Kind:   wasmcheck.KindMemory,
		Memory: &wasmbin.MemoryType{Limits: limits},
	}
}

var i32 = wasmbin.ValI32

func TestBuild_DefaultRegion(t *testing.T) {
	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "esp_printf", []wasmbin.ValType{i32, i32}, []wasmbin.ValType{i32}),
		funcImport("env", "mystery", nil, nil),
	}, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if env.Region.Module != "env" || env.Region.Name != "memory" {
		t.Errorf("region at %s.%s, want env.memory", env.Region.Module, env.Region.Name)
	}
	if env.Region.Pages != DefaultPages || env.Region.Imported {
		t.Errorf("region = %+v, want %d page(s), not imported", env.Region, DefaultPages)
	}
	if env.Region.Size() != wasmbin.PageSize {
		t.Errorf("Size() = %d, want %d", env.Region.Size(), wasmbin.PageSize)
	}

	if len(env.Modules) != 1 {
		t.Fatalf("got %d modules, want 1", len(env.Modules))
	}
	m := env.Modules[0]
	if !m.Memory || !m.Synthetic() {
		t.Errorf("env module should carry the region")
	}
	if len(m.Funcs) != 2 {
		t.Fatalf("got %d funcs, want 2", len(m.Funcs))
	}
	if !m.Funcs[0].Recognized {
		t.Errorf("esp_printf should be recognized")
	}
	if m.Funcs[1].Recognized {
		t.Errorf("mystery should get the default stub")
	}
}

func TestBuild_RegionSizing(t *testing.T) {
	tests := []struct {
		name   string
		limits wasmbin.Limits
		pages  uint32
		want   uint32
	}{
		{"default", wasmbin.Limits{Min: 0}, 0, 1},
		{"import min wins", wasmbin.Limits{Min: 3}, 1, 3},
		{"config pages win", wasmbin.Limits{Min: 2}, 4, 4},
		{"clamped to max", wasmbin.Limits{Min: 2, Max: u64p(5)}, 8, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Build([]wasmcheck.ImportDescriptor{
				memImport("js", "mem", tt.limits),
			}, Config{Pages: tt.pages})
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if env.Region.Pages != tt.want {
				t.Errorf("Pages = %d, want %d", env.Region.Pages, tt.want)
			}
			if env.Region.Module != "js" || env.Region.Name != "mem" || !env.Region.Imported {
				t.Errorf("region placed at %s.%s", env.Region.Module, env.Region.Name)
			}
			if env.Module("env") != nil {
				t.Errorf("env module should not be synthesized when memory is imported elsewhere")
			}
		})
	}
}

func TestBuild_RegionNameClash(t *testing.T) {
	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "memory", nil, nil),
	}, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if env.Region.Name == "memory" {
		t.Errorf("region should not reuse a name imported as a function")
	}
}

func TestBuild_Globals(t *testing.T) {
	env, err := Build([]wasmcheck.ImportDescriptor{
		{Module: "env", Name: "__stack_pointer", Kind: wasmcheck.KindGlobal,
			Global: &wasmbin.GlobalType{ValType: wasmbin.ValI32, Mutable: true}},
		{Module: "env", Name: "scale", Kind: wasmcheck.KindGlobal,
			Global: &wasmbin.GlobalType{ValType: wasmbin.ValF64}},
	}, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	m := env.Module("env")
	if m == nil || len(m.Globals) != 2 {
		t.Fatalf("expected two globals on env, got %+v", m)
	}
}

func TestBuild_Unsatisfiable(t *testing.T) {
	heap := int64(-16)
	tests := []struct {
		name string
		imp  wasmcheck.ImportDescriptor
	}{
		{"table", wasmcheck.ImportDescriptor{Module: "env", Name: "__indirect_function_table", Kind: wasmcheck.KindTable,
			Table: &wasmbin.TableType{ElemType: byte(wasmbin.ValFuncRef)}}},
		{"memory64", memImport("env", "memory", wasmbin.Limits{Min: 1, Memory64: true})},
		{"gc global", wasmcheck.ImportDescriptor{Module: "env", Name: "g", Kind: wasmcheck.KindGlobal,
			Global: &wasmbin.GlobalType{ValType: wasmbin.ValRefNull, HeapType: &heap}}},
		{"v128 param", funcImport("env", "simd", []wasmbin.ValType{wasmbin.ValV128}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build([]wasmcheck.ImportDescriptor{
				funcImport("env", "abort", nil, nil),
				tt.imp,
			}, Config{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseInstantiate, Kind: errors.KindInstantiation}) {
				t.Errorf("expected an instantiation error, got %v", err)
			}
			var unsat *errors.UnsatisfiedImportsError
			if !stderrors.As(err, &unsat) {
				t.Fatalf("expected UnsatisfiedImportsError, got %T", err)
			}
			if len(unsat.Imports) != 1 || unsat.Imports[0].Name != tt.imp.Name {
				t.Errorf("unsatisfied = %+v, want only %s", unsat.Imports, tt.imp.Name)
			}
		})
	}
}

func TestBuild_SecondMemory(t *testing.T) {
	_, err := Build([]wasmcheck.ImportDescriptor{
		memImport("env", "memory", wasmbin.Limits{Min: 1}),
		memImport("env", "scratch", wasmbin.Limits{Min: 1}),
	}, Config{})

	var unsat *errors.UnsatisfiedImportsError
	if !stderrors.As(err, &unsat) {
		t.Fatalf("expected UnsatisfiedImportsError, got %v", err)
	}
	if unsat.Imports[0].Name != "scratch" {
		t.Errorf("the second memory should be rejected, got %+v", unsat.Imports)
	}
	if !strings.Contains(err.Error(), "env.memory") {
		t.Errorf("message should name the placed region: %v", err)
	}
}

func TestBuild_Duplicates(t *testing.T) {
	sig := []wasmbin.ValType{i32}

	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "tick", sig, nil),
		funcImport("env", "tick", sig, nil),
	}, Config{})
	if err != nil {
		t.Fatalf("identical duplicates should merge: %v", err)
	}
	if n := len(env.Module("env").Funcs); n != 1 {
		t.Errorf("got %d funcs, want 1", n)
	}

	_, err = Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "tick", sig, nil),
		funcImport("env", "tick", nil, sig),
	}, Config{})
	if err == nil {
		t.Error("conflicting signatures should be rejected")
	}

	_, err = Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "memory", nil, nil),
		memImport("env", "memory", wasmbin.Limits{Min: 1}),
	}, Config{})
	if err == nil {
		t.Error("a name imported as two kinds should be rejected")
	}
}

func TestBuild_WASI(t *testing.T) {
	imports := []wasmcheck.ImportDescriptor{
		funcImport(ModuleWASI, "fd_write", []wasmbin.ValType{i32, i32, i32, i32}, []wasmbin.ValType{i32}),
	}

	stubbed, err := Build(imports, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m := stubbed.Module(ModuleWASI); m == nil || m.WASI || m.Synthetic() {
		t.Errorf("stubbed WASI should be a plain host module, got %+v", m)
	}

	withWASI, err := Build(imports, Config{WASI: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m := withWASI.Module(ModuleWASI); m == nil || !m.WASI {
		t.Errorf("WASI module should be marked for the real implementation")
	}
}

func TestSynthesize(t *testing.T) {
	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "esp_add", []wasmbin.ValType{i32, i32}, []wasmbin.ValType{i32}),
		memImport("env", "memory", wasmbin.Limits{Min: 2, Max: u64p(4)}),
		{Module: "env", Name: "sp", Kind: wasmcheck.KindGlobal,
			Global: &wasmbin.GlobalType{ValType: wasmbin.ValI32, Mutable: true}},
	}, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	bin := env.Synthesize(env.Module("env"))
	m, err := wasmbin.ParseModule(bin)
	if err != nil {
		t.Fatalf("synthesized module does not parse: %v", err)
	}

	if len(m.Imports) != 1 || m.Imports[0].Module != HostModuleName("env") || m.Imports[0].Name != "esp_add" {
		t.Errorf("imports = %+v", m.Imports)
	}
	var names []string
	for _, e := range m.Exports {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "esp_add,memory,sp" {
		t.Errorf("exports = %s", got)
	}
	if len(m.Memories) != 1 || m.Memories[0].Limits.Min != 2 {
		t.Errorf("memories = %+v", m.Memories)
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	if _, err := r.CompileModule(ctx, bin); err != nil {
		t.Fatalf("engine rejected synthesized module: %v", err)
	}
}

func TestHostFunc_ZeroStub(t *testing.T) {
	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "mystery", []wasmbin.ValType{i32, i32}, []wasmbin.ValType{i32}),
	}, Config{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	fn := env.HostFunc("env", env.Module("env").Funcs[0])
	stack := []uint64{5, 6}
	fn(context.Background(), nil, stack)
	if stack[0] != 0 {
		t.Errorf("default stub result = %d, want 0", stack[0])
	}
}

func TestHostFunc_Console(t *testing.T) {
	var out bytes.Buffer
	env, err := Build([]wasmcheck.ImportDescriptor{
		funcImport("env", "abort", nil, nil),
	}, Config{Console: &out})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	env.HostFunc("env", env.Module("env").Funcs[0])(context.Background(), nil, nil)
	if out.String() != "abort called\n" {
		t.Errorf("console = %q", out.String())
	}

	var captured bytes.Buffer
	prev := env.Console.Redirect(&captured)
	env.HostFunc("env", env.Module("env").Funcs[0])(context.Background(), nil, nil)
	env.Console.Redirect(prev)
	if captured.String() != "abort called\n" || out.Len() != len("abort called\n") {
		t.Errorf("redirect did not capture output: %q / %q", captured.String(), out.String())
	}
}
