package wasmbin

// Encode encodes the module to WebAssembly binary format. Sections are
// emitted in canonical order and omitted when empty.
func (m *Module) Encode() []byte {
	var w writer

	w.write([]byte(Magic))
	w.u32le(Version)

	if len(m.Types) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.byte(FuncTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		w.section(SectionType, &sec)
	}

	if len(m.Imports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(imp.Desc.Kind)
			switch imp.Desc.Kind {
			case KindFunc:
				sec.u32(imp.Desc.TypeIdx)
			case KindTable:
				if imp.Desc.Table != nil {
					writeTableType(&sec, *imp.Desc.Table)
				}
			case KindMemory:
				if imp.Desc.Memory != nil {
					writeLimits(&sec, imp.Desc.Memory.Limits)
				}
			case KindGlobal:
				if imp.Desc.Global != nil {
					writeGlobalType(&sec, *imp.Desc.Global)
				}
			}
		}
		w.section(SectionImport, &sec)
	}

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.u32(typeIdx)
		}
		w.section(SectionFunction, &sec)
	}

	if len(m.Tables) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Tables)))
		for _, t := range m.Tables {
			writeTableType(&sec, t)
		}
		w.section(SectionTable, &sec)
	}

	if len(m.Memories) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(&sec, mem.Limits)
		}
		w.section(SectionMemory, &sec)
	}

	if len(m.Globals) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			writeGlobalType(&sec, g.Type)
			sec.write(g.Init)
		}
		w.section(SectionGlobal, &sec)
	}

	if len(m.Exports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.name(exp.Name)
			sec.byte(exp.Kind)
			sec.u32(exp.Idx)
		}
		w.section(SectionExport, &sec)
	}

	if m.Start != nil {
		var sec writer
		sec.u32(*m.Start)
		w.section(SectionStart, &sec)
	}

	if len(m.Code) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Code)))
		for _, body := range m.Code {
			var fb writer
			fb.u32(uint32(len(body.Locals)))
			for _, local := range body.Locals {
				fb.u32(local.Count)
				fb.byte(byte(local.ValType))
			}
			fb.write(body.Code)
			sec.u32(uint32(fb.buf.Len()))
			sec.write(fb.bytes())
		}
		w.section(SectionCode, &sec)
	}

	if len(m.Data) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.u32(0) // active, memory 0
			sec.byte(OpI32Const)
			sec.s64(int64(int32(d.Offset)))
			sec.byte(OpEnd)
			sec.u32(uint32(len(d.Init)))
			sec.write(d.Init)
		}
		w.section(SectionData, &sec)
	}

	return w.bytes()
}

func writeValTypes(w *writer, types []ValType) {
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.byte(byte(t))
	}
}

func writeLimits(w *writer, l Limits) {
	var flags byte
	if l.Max != nil {
		flags |= LimitsHasMax
	}
	if l.Shared {
		flags |= LimitsShared
	}
	if l.Memory64 {
		flags |= LimitsMemory64
	}
	w.byte(flags)

	if l.Memory64 {
		w.u64(l.Min)
		if l.Max != nil {
			w.u64(*l.Max)
		}
		return
	}
	w.u32(uint32(l.Min))
	if l.Max != nil {
		w.u32(uint32(*l.Max))
	}
}

func writeTableType(w *writer, t TableType) {
	w.byte(t.ElemType)
	writeLimits(w, t.Limits)
}

func writeGlobalType(w *writer, g GlobalType) {
	w.byte(byte(g.ValType))
	if g.HeapType != nil {
		w.s64(*g.HeapType)
	}
	if g.Mutable {
		w.byte(1)
	} else {
		w.byte(0)
	}
}
