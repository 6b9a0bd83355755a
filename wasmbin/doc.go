// Package wasmbin reads and writes the parts of the WebAssembly core binary
// format that wasmcheck needs.
//
// Decoding is deliberately shallow: ParseModule walks the section list and
// decodes only the type, import, function, table, memory and export
// sections, which is enough to list a module's imports and exports in
// declaration order. Structural legality is the engine's job.
//
//	m, err := wasmbin.ParseModule(data)
//	for _, imp := range m.Imports {
//	    fmt.Println(imp.Module, imp.Name, imp.Desc.Kind)
//	}
//
// Encoding covers the sections needed to synthesize host-side modules and
// to hand-assemble small test modules:
//
//	m := &wasmbin.Module{}
//	t := m.AddType(wasmbin.FuncType{Results: []wasmbin.ValType{wasmbin.ValI32}})
//	m.Funcs = append(m.Funcs, t)
//	m.Code = append(m.Code, wasmbin.FuncBody{Code: wasmbin.AppendI32Const(nil, 42)})
//	m.Code[0].Code = append(m.Code[0].Code, wasmbin.OpEnd)
//	m.Exports = append(m.Exports, wasmbin.Export{Name: "answer", Kind: wasmbin.KindFunc})
//	data := m.Encode()
package wasmbin
