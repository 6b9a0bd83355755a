package wasmbin

import (
	"strconv"
	"strings"
)

// Module holds the sections wasmcheck reads or writes. Sections it does not
// need for introspection (element, start, code, data) are skipped by
// ParseModule but can be populated for Encode.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices for defined functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Code     []FuncBody
	Data     []DataSegment
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i32) -> i32".
func (f FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if len(f.Results) > 0 {
		b.WriteString(" -> ")
		if len(f.Results) == 1 {
			b.WriteString(f.Results[0].String())
		} else {
			b.WriteByte('(')
			for i, r := range f.Results {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(r.String())
			}
			b.WriteByte(')')
		}
	}
	return b.String()
}

// ValType is a value type byte.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValRefNull:
		return "ref null"
	case ValRef:
		return "ref"
	default:
		return "0x" + strconv.FormatUint(uint64(v), 16)
	}
}

// Import is an imported function, table, memory, or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item. Exactly one of the pointer fields
// is set for table, memory and global imports; TypeIdx applies to functions.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits   Limits
	ElemType byte
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max      *uint64
	Min      uint64
	Shared   bool
	Memory64 bool
}

// String renders limits as "min 1, max 2" (max omitted when unbounded).
func (l Limits) String() string {
	s := "min " + strconv.FormatUint(l.Min, 10)
	if l.Max != nil {
		s += ", max " + strconv.FormatUint(*l.Max, 10)
	}
	if l.Shared {
		s += ", shared"
	}
	if l.Memory64 {
		s += ", i64"
	}
	return s
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
	// HeapType is set for GC reference globals (ValRef/ValRefNull)
	HeapType *int64
}

// Global is a defined global with its raw init expression (including end).
type Global struct {
	Type GlobalType
	Init []byte
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody holds a function's locals and raw code (including the end opcode).
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// LocalEntry is a run of locals sharing one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment is an active segment written to memory 0 at Offset.
type DataSegment struct {
	Init   []byte
	Offset uint32
}

// NumImportedFuncs returns the number of function imports, which offsets the
// index space of defined functions.
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			n++
		}
	}
	return n
}

// FuncTypeOf resolves the signature of a function by its index in the
// function index space (imports first).
func (m *Module) FuncTypeOf(funcIdx uint32) (FuncType, bool) {
	var seen uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if seen == funcIdx {
			return m.typeAt(imp.Desc.TypeIdx)
		}
		seen++
	}
	local := funcIdx - seen
	if int(local) >= len(m.Funcs) {
		return FuncType{}, false
	}
	return m.typeAt(m.Funcs[local])
}

func (m *Module) typeAt(idx uint32) (FuncType, bool) {
	if int(idx) >= len(m.Types) {
		return FuncType{}, false
	}
	return m.Types[idx], true
}

// AddType appends a signature, reusing an identical existing entry.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if typesEqual(existing, ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

func typesEqual(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// ZeroInit returns a constant expression producing the zero (or null) value
// of vt, or false when vt has no such expression.
func ZeroInit(vt ValType) ([]byte, bool) {
	switch vt {
	case ValI32:
		return []byte{OpI32Const, 0x00, OpEnd}, true
	case ValI64:
		return []byte{OpI64Const, 0x00, OpEnd}, true
	case ValF32:
		return []byte{OpF32Const, 0, 0, 0, 0, OpEnd}, true
	case ValF64:
		return []byte{OpF64Const, 0, 0, 0, 0, 0, 0, 0, 0, OpEnd}, true
	case ValV128:
		expr := make([]byte, 0, 19)
		expr = append(expr, OpPrefixSIMD, OpV128Const)
		expr = append(expr, make([]byte, 16)...)
		return append(expr, OpEnd), true
	case ValFuncRef, ValExtern:
		return []byte{OpRefNull, byte(vt), OpEnd}, true
	default:
		return nil, false
	}
}
