package wasmbin

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Reader errors.
var (
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	ErrOverflow      = errors.New("leb128: overflow")
)

// reader is a cursor over an in-memory byte slice with WASM-specific reads.
type reader struct {
	data []byte
	pos  int
	base int // absolute offset of data[0] in the module, for error positions
}

func newReader(data []byte, base int) *reader {
	return &reader{data: data, base: base}
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// readBytes returns a sub-slice of the underlying data without copying.
func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if shift == 28 && b&0x70 != 0 {
			return 0, ErrOverflow
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

func (r *reader) readU64() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, ErrOverflow
		}
	}
}

func (r *reader) readS64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, ErrOverflow
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

func (r *reader) readName() (string, error) {
	length, err := r.readU32()
	if err != nil {
		return "", err
	}
	data, err := r.readBytes(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("invalid UTF-8 in name")
	}
	return string(data), nil
}

// ParseError carries the section and absolute byte offset of a decode failure.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("wasm: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (r *reader) wrap(section string, err error) error {
	return &ParseError{
		Position: r.base + r.pos,
		Section:  section,
		Err:      err,
	}
}
