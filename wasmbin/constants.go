package wasmbin

// Header layout of a WebAssembly binary.
const (
	// Magic is the 4-byte preamble "\0asm" as it appears on disk.
	Magic = "\x00asm"

	// Version is the core module format version (little-endian at offset 4).
	Version uint32 = 0x01

	// HeaderSize is the combined length of magic and version.
	HeaderSize = 8
)

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// Import/Export descriptor kinds.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4 // exception handling
)

// Value type encodings.
const (
	ValI32     ValType = 0x7F
	ValI64     ValType = 0x7E
	ValF32     ValType = 0x7D
	ValF64     ValType = 0x7C
	ValV128    ValType = 0x7B
	ValFuncRef ValType = 0x70
	ValExtern  ValType = 0x6F

	// GC proposal reference prefixes; recognized only to be rejected
	ValRefNull ValType = 0x63
	ValRef     ValType = 0x64
)

// FuncTypeByte prefixes every function type in the type section.
const FuncTypeByte byte = 0x60

// Limits flags
const (
	LimitsHasMax   byte = 0x01
	LimitsShared   byte = 0x02
	LimitsMemory64 byte = 0x04
)

// Opcodes used in constant expressions and hand-assembled bodies.
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpEnd         byte = 0x0B
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpGlobalGet   byte = 0x23
	OpI32Load     byte = 0x28
	OpI32Store    byte = 0x36
	OpI32Const    byte = 0x41
	OpI64Const    byte = 0x42
	OpF32Const    byte = 0x43
	OpF64Const    byte = 0x44
	OpI32Add      byte = 0x6A
	OpI32DivS     byte = 0x6D
	OpLoop        byte = 0x03
	OpBr          byte = 0x0C
	OpRefNull     byte = 0xD0
	OpPrefixSIMD  byte = 0xFD
	OpV128Const   byte = 0x0C // after OpPrefixSIMD
)

// BlockTypeEmpty is the block type of a block, loop or if without results.
const BlockTypeEmpty byte = 0x40

// PageSize is the size of one linear memory page.
const PageSize = 65536
