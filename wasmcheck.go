package wasmcheck

import (
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Kind is the kind of an imported or exported item
type Kind uint8

const (
	KindFunction Kind = iota
	KindTable
	KindMemory
	KindGlobal
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// KindOf maps a binary descriptor kind byte to a Kind.
func KindOf(b byte) (Kind, bool) {
	switch b {
	case wasmbin.KindFunc:
		return KindFunction, true
	case wasmbin.KindTable:
		return KindTable, true
	case wasmbin.KindMemory:
		return KindMemory, true
	case wasmbin.KindGlobal:
		return KindGlobal, true
	default:
		return 0, false
	}
}

// ImportDescriptor names a capability the module requires from its host.
// Exactly one of Func, Table, Memory, Global is set, matching Kind.
type ImportDescriptor struct {
	Func   *wasmbin.FuncType
	Table  *wasmbin.TableType
	Memory *wasmbin.MemoryType
	Global *wasmbin.GlobalType
	Module string
	Name   string
	Kind   Kind
}

// Key returns "module.name".
func (d ImportDescriptor) Key() string {
	return d.Module + "." + d.Name
}

// ExportDescriptor names a capability the module offers to its host.
type ExportDescriptor struct {
	Name  string
	Index uint32
	Kind  Kind
}
