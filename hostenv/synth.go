package hostenv

import (
	"github.com/wippyai/wasmcheck/wasmbin"
)

// HostModuleName is the name the Go stubs of a synthetic module are
// registered under. The synthetic module imports them from there and
// re-exports them under the original import module name.
func HostModuleName(module string) string {
	return "wasmcheck:" + module
}

// Synthesize encodes a module that provides everything m plans: the stub
// functions (imported from HostModuleName(m.Name)), the region if placed
// here, and zero-valued globals.
func (e *Environment) Synthesize(m *Module) []byte {
	out := &wasmbin.Module{}
	host := HostModuleName(m.Name)

	for i, f := range m.Funcs {
		typeIdx := out.AddType(f.Type)
		out.Imports = append(out.Imports, wasmbin.Import{
			Module: host,
			Name:   f.Name,
			Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: typeIdx},
		})
		out.Exports = append(out.Exports, wasmbin.Export{Name: f.Name, Kind: wasmbin.KindFunc, Idx: uint32(i)})
	}

	if m.Memory {
		out.Memories = append(out.Memories, wasmbin.MemoryType{Limits: e.Region.Limits()})
		out.Exports = append(out.Exports, wasmbin.Export{Name: e.Region.Name, Kind: wasmbin.KindMemory, Idx: 0})
	}

	for i, g := range m.Globals {
		init, _ := wasmbin.ZeroInit(g.Type.ValType)
		out.Globals = append(out.Globals, wasmbin.Global{Type: g.Type, Init: init})
		out.Exports = append(out.Exports, wasmbin.Export{Name: g.Name, Kind: wasmbin.KindGlobal, Idx: uint32(i)})
	}

	return out.Encode()
}
