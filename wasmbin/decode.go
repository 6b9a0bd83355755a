package wasmbin

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Parsing errors returned by ParseModule.
var (
	ErrTooSmall       = errors.New("module shorter than header")
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// ParseModule decodes the type, import, function, table, memory and export
// sections of a core module. Every other section is skipped by size, so the
// result is suitable for introspection, not for re-encoding.
func ParseModule(data []byte) (*Module, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooSmall
	}
	if string(data[:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	r := newReader(data[HeaderSize:], HeaderSize)

	for r.remaining() > 0 {
		sectionID, err := r.readByte()
		if err != nil {
			return nil, r.wrap("section header", err)
		}
		size, err := r.readU32()
		if err != nil {
			return nil, r.wrap("section size", err)
		}
		start := r.base + r.pos
		body, err := r.readBytes(int(size))
		if err != nil {
			return nil, r.wrap("section data", err)
		}

		sr := newReader(body, start)
		var parse func(*reader, *Module) error
		var name string
		switch sectionID {
		case SectionType:
			parse, name = parseTypeSection, "type section"
		case SectionImport:
			parse, name = parseImportSection, "import section"
		case SectionFunction:
			parse, name = parseFunctionSection, "function section"
		case SectionTable:
			parse, name = parseTableSection, "table section"
		case SectionMemory:
			parse, name = parseMemorySection, "memory section"
		case SectionExport:
			parse, name = parseExportSection, "export section"
		case SectionCustom, SectionGlobal, SectionStart, SectionElement,
			SectionCode, SectionData, SectionDataCount, SectionTag:
			continue
		default:
			return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
		}
		if err := parse(sr, m); err != nil {
			return nil, sr.wrap(name, err)
		}
	}

	return m, nil
}

func parseTypeSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *reader) ([]ValType, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.remaining() {
		return nil, ErrUnexpectedEOF
	}
	types := make([]ValType, count)
	for i := range types {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if ValType(b) == ValRef || ValType(b) == ValRefNull {
			return nil, fmt.Errorf("unsupported reference value type 0x%02x", b)
		}
		types[i] = ValType(b)
	}
	return types, nil
}

func parseImportSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.readName()
		if err != nil {
			return err
		}
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}

		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.readU32()
			if err != nil {
				return err
			}
		case KindTable:
			table, err := readTableType(r)
			if err != nil {
				return err
			}
			imp.Desc.Table = &table
		case KindMemory:
			limits, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.Desc.Memory = &MemoryType{Limits: limits}
		case KindGlobal:
			global, err := readGlobalType(r)
			if err != nil {
				return err
			}
			imp.Desc.Global = &global
		default:
			return fmt.Errorf("unsupported import kind: %d", kind)
		}

		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func parseFunctionSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		m.Funcs = append(m.Funcs, idx)
	}
	return nil
}

func parseTableSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := readTableType(r)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, t)
	}
	return nil
}

func parseMemorySection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, 0, count)
	for i := uint32(0); i < count; i++ {
		limits, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, MemoryType{Limits: limits})
	}
	return nil
}

func parseExportSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

func readLimits(r *reader) (Limits, error) {
	flags, err := r.readByte()
	if err != nil {
		return Limits{}, err
	}
	if flags&^(LimitsHasMax|LimitsShared|LimitsMemory64) != 0 {
		return Limits{}, fmt.Errorf("invalid limits flags 0x%02x", flags)
	}

	l := Limits{
		Shared:   flags&LimitsShared != 0,
		Memory64: flags&LimitsMemory64 != 0,
	}

	read := func() (uint64, error) {
		if l.Memory64 {
			return r.readU64()
		}
		v, err := r.readU32()
		return uint64(v), err
	}

	if l.Min, err = read(); err != nil {
		return Limits{}, err
	}
	if flags&LimitsHasMax != 0 {
		maxVal, err := read()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &maxVal
	}

	if l.Max != nil && l.Min > *l.Max {
		return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}
	return l, nil
}

func readTableType(r *reader) (TableType, error) {
	elem, err := r.readByte()
	if err != nil {
		return TableType{}, err
	}
	if elem == byte(ValRefNull) || elem == byte(ValRef) {
		if _, err := r.readS64(); err != nil {
			return TableType{}, err
		}
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elem, Limits: limits}, nil
}

func readGlobalType(r *reader) (GlobalType, error) {
	vt, err := r.readByte()
	if err != nil {
		return GlobalType{}, err
	}
	gt := GlobalType{ValType: ValType(vt)}

	if gt.ValType == ValRefNull || gt.ValType == ValRef {
		heapType, err := r.readS64()
		if err != nil {
			return GlobalType{}, err
		}
		gt.HeapType = &heapType
	}

	mut, err := r.readByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid global mutability 0x%02x", mut)
	}
	gt.Mutable = mut == 1
	return gt, nil
}
