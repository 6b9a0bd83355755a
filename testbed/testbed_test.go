package testbed

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasmcheck/wasmbin"
)

func TestVarArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want []byte
	}{
		{"empty", nil, nil},
		{"int", []any{7}, []byte{7, 0, 0, 0}},
		{"negative", []any{-1}, []byte{0xff, 0xff, 0xff, 0xff}},
		{"double aligned after int", []any{1, 1.0}, []byte{
			1, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0xf0, 0x3f,
		}},
		{"int after double", []any{1.0, 2}, []byte{
			0, 0, 0, 0, 0, 0, 0xf0, 0x3f,
			2, 0, 0, 0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VarArgs(tt.args...); !bytes.Equal(got, tt.want) {
				t.Errorf("VarArgs(%v) = % x, want % x", tt.args, got, tt.want)
			}
		})
	}
}

func TestFixtures(t *testing.T) {
	tests := []struct {
		name    string
		bin     []byte
		exports string
		imports int
	}{
		{"hello", Hello(), "greet crash answer memory add divide temp", 3},
		{"values", Values(), "pair half big none mem", 0},
		{"table", TableImport(), "run", 1},
		{"exiting", Exiting(), "quit done after", 1},
		{"spin", Spin(), "spin after", 0},
		{"counter", Counter(), "bump again", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wasmbin.ParseModule(tt.bin)
			if err != nil {
				t.Fatalf("ParseModule: %v", err)
			}
			var names []string
			for _, e := range m.Exports {
				names = append(names, e.Name)
			}
			if got := strings.Join(names, " "); got != tt.exports {
				t.Errorf("exports = %q, want %q", got, tt.exports)
			}
			if len(m.Imports) != tt.imports {
				t.Errorf("got %d imports, want %d", len(m.Imports), tt.imports)
			}
		})
	}
}

func TestFixtures_Compile(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	for name, bin := range map[string][]byte{
		"hello":   Hello(),
		"values":  Values(),
		"table":   TableImport(),
		"exiting": Exiting(),
		"spin":    Spin(),
		"counter": Counter(),
	} {
		if _, err := r.CompileModule(ctx, bin); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestImportFuncAfterFunc(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("importing after defining a function must panic")
		}
	}()
	b := New()
	b.Func("f", nil, nil, nil)
	b.ImportFunc("env", "late", nil, nil)
}
