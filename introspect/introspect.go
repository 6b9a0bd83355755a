// Package introspect lists a module's imports and exports in declaration
// order without instantiating it.
package introspect

import (
	"fmt"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/wasmbin"
)

// Source is anything holding a module's binary, usually a compiled module.
type Source interface {
	Bytes() []byte
}

// Raw adapts a byte slice to Source.
type Raw []byte

// Bytes implements Source.
func (r Raw) Bytes() []byte { return r }

// Result holds the declared imports and exports.
type Result struct {
	Imports []wasmcheck.ImportDescriptor
	Exports []wasmcheck.ExportDescriptor
	// Functions maps function export names to their signatures.
	Functions map[string]wasmbin.FuncType
	// DefinesMemory is true when the module has a memory section of its own.
	DefinesMemory bool
}

// FunctionExports returns the function exports in declaration order.
func (r *Result) FunctionExports() []wasmcheck.ExportDescriptor {
	var out []wasmcheck.ExportDescriptor
	for _, e := range r.Exports {
		if e.Kind == wasmcheck.KindFunction {
			out = append(out, e)
		}
	}
	return out
}

// Introspect reads the import and export sections of src.
func Introspect(src Source) (*Result, error) {
	m, err := wasmbin.ParseModule(src.Bytes())
	if err != nil {
		return nil, errors.New(errors.PhaseIntrospect, errors.KindInvalidData).
			Detail("decode module").
			Cause(err).
			Build()
	}

	res := &Result{
		Imports:   make([]wasmcheck.ImportDescriptor, 0, len(m.Imports)),
		Exports:   make([]wasmcheck.ExportDescriptor, 0, len(m.Exports)),
		Functions: make(map[string]wasmbin.FuncType),

		DefinesMemory: len(m.Memories) > 0,
	}

	for i, imp := range m.Imports {
		d, err := importDescriptor(m, imp)
		if err != nil {
			return nil, errors.InvalidData(errors.PhaseIntrospect,
				[]string{"import", fmt.Sprint(i)}, err.Error())
		}
		res.Imports = append(res.Imports, d)
	}

	for i, exp := range m.Exports {
		kind, ok := wasmcheck.KindOf(exp.Kind)
		if !ok {
			return nil, errors.Unsupported(errors.PhaseIntrospect,
				[]string{"export", fmt.Sprint(i)}, fmt.Sprintf("export kind 0x%02x", exp.Kind))
		}
		res.Exports = append(res.Exports, wasmcheck.ExportDescriptor{Name: exp.Name, Kind: kind, Index: exp.Idx})
		if kind == wasmcheck.KindFunction {
			if ft, ok := m.FuncTypeOf(exp.Idx); ok {
				res.Functions[exp.Name] = ft
			}
		}
	}

	return res, nil
}

func importDescriptor(m *wasmbin.Module, imp wasmbin.Import) (wasmcheck.ImportDescriptor, error) {
	d := wasmcheck.ImportDescriptor{Module: imp.Module, Name: imp.Name}
	kind, ok := wasmcheck.KindOf(imp.Desc.Kind)
	if !ok {
		return d, fmt.Errorf("%s.%s: unsupported import kind 0x%02x", imp.Module, imp.Name, imp.Desc.Kind)
	}
	d.Kind = kind

	switch kind {
	case wasmcheck.KindFunction:
		if int(imp.Desc.TypeIdx) >= len(m.Types) {
			return d, fmt.Errorf("%s.%s: type index %d out of range", imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
		ft := m.Types[imp.Desc.TypeIdx]
		d.Func = &ft
	case wasmcheck.KindTable:
		d.Table = imp.Desc.Table
	case wasmcheck.KindMemory:
		d.Memory = imp.Desc.Memory
	case wasmcheck.KindGlobal:
		d.Global = imp.Desc.Global
	}
	return d, nil
}
