package report

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/introspect"
	"github.com/wippyai/wasmcheck/wasmbin"
)

func module() *introspect.Result {
	return &introspect.Result{
		Imports: []wasmcheck.ImportDescriptor{
			{Module: "env", Name: "memory", Kind: wasmcheck.KindMemory, Memory: &wasmbin.MemoryType{Limits: wasmbin.Limits{Min: 1}}},
			{Module: "env", Name: "esp_printf", Kind: wasmcheck.KindFunction, Func: &wasmbin.FuncType{}},
		},
		Exports: []wasmcheck.ExportDescriptor{
			{Name: "greet", Kind: wasmcheck.KindFunction},
			{Name: "memory", Kind: wasmcheck.KindMemory},
			{Name: "crash", Kind: wasmcheck.KindFunction, Index: 1},
		},
	}
}

func TestWrite_Valid(t *testing.T) {
	r := Assemble(Input{
		File:         "hello.wasm",
		Module:       module(),
		MemorySource: MemoryRegion,
		MemoryBytes:  2 * 65536,
		Outcomes: []harness.Outcome{
			{Name: "greet", Status: harness.Returned, Value: harness.Unit, Output: "hi\nthere\n"},
			{Name: "crash", Status: harness.Trapped, Reason: "wasm error: unreachable"},
		},
	})

	var buf bytes.Buffer
	if err := Write(&buf, r, PlainStyles()); err != nil {
		t.Fatal(err)
	}

	want := `file: hello.wasm
valid: true
memory: 128 KiB (host region)
exports:
  greet
  memory
  crash
imports:
  env.memory (memory)
  env.esp_printf (function)
invocations:
  greet: OK (result: void)
    | hi
    | there
  crash: ERROR (wasm error: unreachable)
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
	if r.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", r.Failed())
	}
}

func TestWrite_Empty(t *testing.T) {
	r := Assemble(Input{Module: &introspect.Result{}, MemoryBytes: 65536})

	var buf bytes.Buffer
	if err := Write(&buf, r, PlainStyles()); err != nil {
		t.Fatal(err)
	}

	want := "valid: true\nmemory: 64 KiB\nexports:\n  (none)\nimports:\n  (none)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWrite_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		mod   *introspect.Result
		stage errors.Phase
		want  string
	}{
		{
			name:  "preflight",
			err:   errors.MalformedBinary("bad magic"),
			stage: errors.PhasePreflight,
			want:  "file: x.wasm\nvalid: false\nstage: preflight\nerror: bad magic\n",
		},
		{
			name: "plain error",
			err:  stderrors.New("boom"),
			want: "file: x.wasm\nvalid: false\nerror: boom\n",
		},
		{
			name: "instantiation",
			err: errors.Instantiation(&errors.UnsatisfiedImportsError{Imports: []errors.UnsatisfiedImport{
				{Module: "env", Name: "__indirect_function_table", Kind: "table", Reason: "tables cannot be synthesized"},
			}}),
			mod: &introspect.Result{Imports: []wasmcheck.ImportDescriptor{
				{Module: "env", Name: "__indirect_function_table", Kind: wasmcheck.KindTable},
			}},
			stage: errors.PhaseInstantiate,
			want:  "file: x.wasm\nvalid: false\nstage: instantiate\n" +
				"error: instantiate module: cannot satisfy 1 import(s):\n" +
				"    env:\n" +
				"      - __indirect_function_table (table): tables cannot be synthesized\n" +
				"imports:\n" +
				"  env.__indirect_function_table (table)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Assemble(Input{File: "x.wasm", Module: tt.mod, Err: tt.err})
			if r.Valid {
				t.Fatal("report with an error must be invalid")
			}
			if r.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", r.Stage, tt.stage)
			}

			var buf bytes.Buffer
			if err := Write(&buf, r, PlainStyles()); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got:\n%q\nwant:\n%q", buf.String(), tt.want)
			}
		})
	}
}

func TestWrite_ColorKeepsText(t *testing.T) {
	r := Assemble(Input{
		Module:       module(),
		MemorySource: MemoryModule,
		MemoryBytes:  65536,
		Outcomes:     []harness.Outcome{{Name: "greet", Status: harness.Returned, Value: "1"}},
	})

	var buf bytes.Buffer
	if err := Write(&buf, r, ColorStyles()); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"memory", "64 KiB (module)", "greet", "OK", "(result: 1)", "env.esp_printf (function)"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("output missing %q:\n%s", s, buf.String())
		}
	}
}
