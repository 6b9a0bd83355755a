package engine

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/introspect"
	"github.com/wippyai/wasmcheck/testbed"
	"github.com/wippyai/wasmcheck/wasmbin"
)

func TestNewWazeroWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{EnableThreads: true}, "threads"},
		{&Config{CloseOnContextDone: true}, "close on done"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewWazero(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("NewWazero failed: %v", err)
			}
			defer e.Close(ctx)

			if e.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestCompile_Rejects(t *testing.T) {
	ctx := context.Background()
	e, err := NewWazero(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close(ctx)

	// Valid header, but the function section declares a body that is missing.
	b := testbed.New()
	b.Func("f", nil, nil, nil)
	bin := b.Bytes()
	bin = bin[:len(bin)-4]

	if _, err := e.Compile(ctx, bin); err == nil {
		t.Fatal("expected a compilation error")
	}
}

// setup compiles bin and installs the environment its imports call for.
func setup(t *testing.T, bin []byte, cfg *Config, envCfg hostenv.Config) (*WazeroEngine, CompiledModule, *hostenv.Environment) {
	t.Helper()
	ctx := context.Background()

	e, err := NewWazero(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close(ctx) })

	compiled, err := e.Compile(ctx, bin)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	res, err := introspect.Introspect(compiled)
	if err != nil {
		t.Fatalf("Introspect failed: %v", err)
	}
	env, err := hostenv.Build(res.Imports, envCfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := e.Install(ctx, env); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	return e, compiled, env
}

func TestInstall_ImportedMemory(t *testing.T) {
	ctx := context.Background()
	var console bytes.Buffer
	e, compiled, env := setup(t, testbed.Hello(), nil, hostenv.Config{Console: &console})

	if env.Region.Memory() == nil {
		t.Fatal("region was not bound to the live memory")
	}

	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	size, ok := inst.MemorySize()
	if !ok || size != wasmbin.PageSize {
		t.Errorf("MemorySize() = %d, %v; want %d", size, ok, wasmbin.PageSize)
	}

	greet, ok := inst.Function("greet")
	if !ok {
		t.Fatal("greet not exported")
	}
	if _, err := greet.Call(ctx); err != nil {
		t.Fatalf("greet failed: %v", err)
	}
	if console.String() != testbed.HelloGreeting {
		t.Errorf("console = %q, want %q", console.String(), testbed.HelloGreeting)
	}

	answer, _ := inst.Function("answer")
	res, err := answer.Call(ctx)
	if err != nil || len(res) != 1 || api.DecodeI32(res[0]) != 42 {
		t.Errorf("answer() = %v, %v", res, err)
	}
	if rt := answer.ResultTypes(); len(rt) != 1 || rt[0] != wasmbin.ValI32 {
		t.Errorf("ResultTypes() = %v", rt)
	}

	add, _ := inst.Function("add")
	if pt := add.ParamTypes(); len(pt) != 2 {
		t.Errorf("ParamTypes() = %v", pt)
	}

	temp, _ := inst.Function("temp")
	res, err = temp.Call(ctx)
	if err != nil || api.DecodeI32(res[0]) != hostenv.PlaceholderTemperature {
		t.Errorf("temp() = %v, %v", res, err)
	}

	if _, ok := inst.Function("missing"); ok {
		t.Error("missing export should not resolve")
	}
}

func TestInstantiate_Repeatedly(t *testing.T) {
	ctx := context.Background()
	e, compiled, _ := setup(t, testbed.Counter(), nil, hostenv.Config{})

	for i := 0; i < 3; i++ {
		inst, err := e.Instantiate(ctx, compiled)
		if err != nil {
			t.Fatalf("instantiation %d failed: %v", i, err)
		}
		bump, _ := inst.Function("bump")
		res, err := bump.Call(ctx)
		if err != nil {
			t.Fatalf("bump failed: %v", err)
		}
		if v := api.DecodeI32(res[0]); v != 1 {
			t.Errorf("fresh instance %d counted %d, want 1", i, v)
		}
		inst.Close(ctx)
	}
}

func TestInstall_FunctionsOnly(t *testing.T) {
	ctx := context.Background()
	b := testbed.New().ImportMemory("js", "mem", wasmbin.Limits{Min: 2})
	add := b.ImportFunc("env", "esp_add", []wasmbin.ValType{wasmbin.ValI32, wasmbin.ValI32}, []wasmbin.ValType{wasmbin.ValI32})
	b.Func("sum", nil, []wasmbin.ValType{wasmbin.ValI32},
		append(append(wasmbin.AppendI32Const(nil, 40), wasmbin.AppendI32Const(nil, 2)...), wasmbin.AppendCall(nil, add)...))

	e, compiled, env := setup(t, b.Bytes(), nil, hostenv.Config{})
	if env.Module("env").Synthetic() {
		t.Error("env holds only functions and should be a plain host module")
	}

	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	sum, _ := inst.Function("sum")
	res, err := sum.Call(ctx)
	if err != nil || api.DecodeI32(res[0]) != 42 {
		t.Errorf("sum() = %v, %v", res, err)
	}
	if size, _ := inst.MemorySize(); size != 2*wasmbin.PageSize {
		t.Errorf("MemorySize() = %d, want two pages", size)
	}
}

func TestInstantiate_NoMemory(t *testing.T) {
	ctx := context.Background()
	b := testbed.New()
	b.Func("answer", nil, []wasmbin.ValType{wasmbin.ValI32}, wasmbin.AppendI32Const(nil, 42))

	e, compiled, _ := setup(t, b.Bytes(), nil, hostenv.Config{})
	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	if size, ok := inst.MemorySize(); ok || size != 0 {
		t.Errorf("MemorySize() = %d, %v; want no memory", size, ok)
	}
}

func TestInstantiate_OwnMemory(t *testing.T) {
	ctx := context.Background()
	e, compiled, _ := setup(t, testbed.Values(), nil, hostenv.Config{})
	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	if size, ok := inst.MemorySize(); !ok || size != wasmbin.PageSize {
		t.Errorf("MemorySize() = %d, %v; want one page", size, ok)
	}
}

func TestInstall_Globals(t *testing.T) {
	ctx := context.Background()
	b := testbed.New().ImportGlobal("env", "__stack_pointer", wasmbin.ValI32, true)
	b.Func("sp", nil, []wasmbin.ValType{wasmbin.ValI32}, []byte{wasmbin.OpGlobalGet, 0})

	e, compiled, _ := setup(t, b.Bytes(), nil, hostenv.Config{})
	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	sp, _ := inst.Function("sp")
	res, err := sp.Call(ctx)
	if err != nil || res[0] != 0 {
		t.Errorf("sp() = %v, %v; want zero", res, err)
	}
}

func TestProcExit(t *testing.T) {
	ctx := context.Background()
	e, compiled, _ := setup(t, testbed.Exiting(), nil, hostenv.Config{})

	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	quit, _ := inst.Function("quit")
	_, err = quit.Call(ctx)

	var exitErr *sys.ExitError
	if !stderrors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %v", err)
	}
}

func TestRealWASI(t *testing.T) {
	ctx := context.Background()
	e, compiled, env := setup(t, testbed.Exiting(), nil, hostenv.Config{WASI: true})
	if !env.Module(hostenv.ModuleWASI).WASI {
		t.Fatal("expected the real WASI module")
	}

	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	quit, _ := inst.Function("quit")
	_, err = quit.Call(ctx)

	var exitErr *sys.ExitError
	if !stderrors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %v", err)
	}
}

func TestCloseOnContextDone(t *testing.T) {
	e, compiled, _ := setup(t, testbed.Spin(), &Config{CloseOnContextDone: true}, hostenv.Config{})

	inst, err := e.Instantiate(context.Background(), compiled)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	spin, _ := inst.Function("spin")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = spin.Call(ctx)

	var exitErr *sys.ExitError
	if !stderrors.As(err, &exitErr) || exitErr.ExitCode() != sys.ExitCodeDeadlineExceeded {
		t.Fatalf("expected a deadline exit, got %v", err)
	}
}

func TestInstantiate_ForeignModule(t *testing.T) {
	ctx := context.Background()
	e, err := NewWazero(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close(ctx)

	_, err = e.Instantiate(ctx, fakeModule{})
	if err == nil || !strings.Contains(err.Error(), "not compiled by this engine") {
		t.Errorf("unexpected error: %v", err)
	}
}

type fakeModule struct{}

func (fakeModule) Bytes() []byte                { return nil }
func (fakeModule) Close(_ context.Context) error { return nil }
