// Package testbed assembles small guest modules for tests. The canned
// modules mirror what the ESP32 toolchain produces: a C program importing
// env.memory and env.esp_printf, or a WASI program calling proc_exit.
package testbed

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wasmcheck/wasmbin"
)

var (
	i32 = wasmbin.ValI32
	f64 = wasmbin.ValF64
)

// Builder assembles a module. All imports must be added before the first
// defined function so function indices are stable.
type Builder struct {
	m       wasmbin.Module
	defined bool
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// ImportFunc adds a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []wasmbin.ValType) uint32 {
	if b.defined {
		panic("testbed: import after defined function")
	}
	idx := uint32(b.m.NumImportedFuncs())
	typeIdx := b.m.AddType(wasmbin.FuncType{Params: params, Results: results})
	b.m.Imports = append(b.m.Imports, wasmbin.Import{
		Module: module,
		Name:   name,
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: typeIdx},
	})
	return idx
}

// ImportMemory adds a memory import.
func (b *Builder) ImportMemory(module, name string, limits wasmbin.Limits) *Builder {
	b.m.Imports = append(b.m.Imports, wasmbin.Import{
		Module: module,
		Name:   name,
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindMemory, Memory: &wasmbin.MemoryType{Limits: limits}},
	})
	return b
}

// ImportTable adds a funcref table import.
func (b *Builder) ImportTable(module, name string, min uint64) *Builder {
	b.m.Imports = append(b.m.Imports, wasmbin.Import{
		Module: module,
		Name:   name,
		Desc: wasmbin.ImportDesc{Kind: wasmbin.KindTable, Table: &wasmbin.TableType{
			ElemType: byte(wasmbin.ValFuncRef),
			Limits:   wasmbin.Limits{Min: min},
		}},
	})
	return b
}

// ImportGlobal adds a global import.
func (b *Builder) ImportGlobal(module, name string, vt wasmbin.ValType, mutable bool) *Builder {
	b.m.Imports = append(b.m.Imports, wasmbin.Import{
		Module: module,
		Name:   name,
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindGlobal, Global: &wasmbin.GlobalType{ValType: vt, Mutable: mutable}},
	})
	return b
}

// Memory defines a memory of min pages.
func (b *Builder) Memory(min uint64) *Builder {
	b.m.Memories = append(b.m.Memories, wasmbin.MemoryType{Limits: wasmbin.Limits{Min: min}})
	return b
}

// Data places init at offset in memory 0.
func (b *Builder) Data(offset uint32, init []byte) *Builder {
	b.m.Data = append(b.m.Data, wasmbin.DataSegment{Offset: offset, Init: init})
	return b
}

// Func defines a function with body code (without the final end) and
// exports it as name unless name is empty. It returns the function index.
func (b *Builder) Func(name string, params, results []wasmbin.ValType, code []byte) uint32 {
	b.defined = true
	idx := uint32(b.m.NumImportedFuncs() + len(b.m.Funcs))
	b.m.Funcs = append(b.m.Funcs, b.m.AddType(wasmbin.FuncType{Params: params, Results: results}))
	body := append(append([]byte{}, code...), wasmbin.OpEnd)
	b.m.Code = append(b.m.Code, wasmbin.FuncBody{Code: body})
	if name != "" {
		b.Export(name, wasmbin.KindFunc, idx)
	}
	return idx
}

// Export adds an export of any kind.
func (b *Builder) Export(name string, kind byte, idx uint32) *Builder {
	b.m.Exports = append(b.m.Exports, wasmbin.Export{Name: name, Kind: kind, Idx: idx})
	return b
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	return b.m.Encode()
}

// VarArgs lays out a C va_list the way clang does for wasm32: int-sized
// values take 4 aligned bytes, doubles 8 aligned bytes.
func VarArgs(args ...any) []byte {
	var out []byte
	for _, a := range args {
		switch v := a.(type) {
		case float64:
			for len(out)%8 != 0 {
				out = append(out, 0)
			}
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
		case int:
			for len(out)%4 != 0 {
				out = append(out, 0)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(v)))
		}
	}
	return out
}

func code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func op(b ...byte) []byte { return b }

func i32Const(v int32) []byte { return wasmbin.AppendI32Const(nil, v) }

func call(idx uint32) []byte { return wasmbin.AppendCall(nil, idx) }

// Output printed by Hello's greet export.
const HelloGreeting = "answer=42 ratio=0.50\n"

// Hello is an ESP32-style program. It imports env.memory and
// env.esp_printf and exports, in order:
//
//	greet  () -> ()     prints HelloGreeting through esp_printf
//	crash  () -> ()     executes unreachable
//	answer () -> i32    returns 42
//	memory              the imported memory
//	add    (i32, i32) -> i32
//	divide () -> i32    divides by zero
//	temp   () -> i32    returns esp_get_temperature()
func Hello() []byte {
	b := New().ImportMemory("env", "memory", wasmbin.Limits{Min: 1})
	printf := b.ImportFunc("env", "esp_printf", []wasmbin.ValType{i32, i32}, []wasmbin.ValType{i32})
	temp := b.ImportFunc("env", "esp_get_temperature", nil, []wasmbin.ValType{i32})

	const fmtAt, argsAt = 0, 64
	b.Data(fmtAt, []byte("answer=%d ratio=%.2f\n\x00"))
	b.Data(argsAt, VarArgs(42, 0.5))

	b.Func("greet", nil, nil, code(i32Const(fmtAt), i32Const(argsAt), call(printf), op(wasmbin.OpDrop)))
	b.Func("crash", nil, nil, op(wasmbin.OpUnreachable))
	b.Func("answer", nil, []wasmbin.ValType{i32}, i32Const(42))
	b.Export("memory", wasmbin.KindMemory, 0)
	b.Func("add", []wasmbin.ValType{i32, i32}, []wasmbin.ValType{i32},
		op(wasmbin.OpLocalGet, 0, wasmbin.OpLocalGet, 1, wasmbin.OpI32Add))
	b.Func("divide", nil, []wasmbin.ValType{i32}, code(i32Const(1), i32Const(0), op(wasmbin.OpI32DivS)))
	b.Func("temp", nil, []wasmbin.ValType{i32}, call(temp))
	return b.Bytes()
}

// Values exports one function per result shape: "pair" returns (i32 7,
// f64 2.5), "half" returns f64 0.5, "big" returns i64 -9000000000 and
// "none" returns nothing. It defines its own memory.
func Values() []byte {
	b := New().Memory(1)
	b.Func("pair", nil, []wasmbin.ValType{i32, f64}, code(i32Const(7), f64Const(2.5)))
	b.Func("half", nil, []wasmbin.ValType{f64}, f64Const(0.5))
	b.Func("big", nil, []wasmbin.ValType{wasmbin.ValI64}, wasmbin.AppendI64Const(nil, -9000000000))
	b.Func("none", nil, nil, nil)
	b.Export("mem", wasmbin.KindMemory, 0)
	return b.Bytes()
}

func f64Const(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{wasmbin.OpF64Const}, math.Float64bits(v))
}

// TableImport needs env.__indirect_function_table, which the host cannot
// synthesize.
func TableImport() []byte {
	b := New().ImportTable("env", "__indirect_function_table", 1)
	b.Func("run", nil, nil, nil)
	return b.Bytes()
}

// Exiting calls wasi_snapshot_preview1.proc_exit: "quit" with 3, "done"
// with 0. "after" returns 7.
func Exiting() []byte {
	b := New()
	exit := b.ImportFunc("wasi_snapshot_preview1", "proc_exit", []wasmbin.ValType{i32}, nil)
	b.Func("quit", nil, nil, code(i32Const(3), call(exit)))
	b.Func("done", nil, nil, code(i32Const(0), call(exit)))
	b.Func("after", nil, []wasmbin.ValType{i32}, i32Const(7))
	return b.Bytes()
}

// Spin exports "spin", which never returns, followed by "after", which
// returns 1.
func Spin() []byte {
	b := New()
	b.Func("spin", nil, nil, op(wasmbin.OpLoop, wasmbin.BlockTypeEmpty, wasmbin.OpBr, 0, wasmbin.OpEnd))
	b.Func("after", nil, []wasmbin.ValType{i32}, i32Const(1))
	return b.Bytes()
}

// Counter keeps a count in memory: "bump" increments it and returns the
// new value. Without isolation repeated calls observe each other.
func Counter() []byte {
	b := New().Memory(1)
	// memarg: align 2^2, offset 0
	load := op(wasmbin.OpI32Load, 2, 0)
	store := op(wasmbin.OpI32Store, 2, 0)
	b.Func("bump", nil, []wasmbin.ValType{i32}, code(
		i32Const(0),
		i32Const(0), load, i32Const(1), op(wasmbin.OpI32Add),
		store,
		i32Const(0), load,
	))
	b.Func("again", nil, []wasmbin.ValType{i32}, call(0))
	return b.Bytes()
}
