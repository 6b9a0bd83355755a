package wasmbin

import (
	"bytes"
	"encoding/binary"
)

// writer accumulates encoded bytes for one module or section.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) write(data []byte) {
	w.buf.Write(data)
}

func (w *writer) u32(v uint32) {
	w.u64(uint64(v))
}

func (w *writer) u64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func (w *writer) s64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if done {
			return
		}
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) u32le(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.buf.Write(buf[:])
}

// section writes id, the LEB128 size of body, then body.
func (w *writer) section(id byte, body *writer) {
	w.byte(id)
	w.u32(uint32(body.buf.Len()))
	w.write(body.bytes())
}

// AppendI32Const appends "i32.const v" to code, for hand-assembled bodies.
func AppendI32Const(code []byte, v int32) []byte {
	var w writer
	w.byte(OpI32Const)
	w.s64(int64(v))
	return append(code, w.bytes()...)
}

// AppendI64Const appends "i64.const v" to code.
func AppendI64Const(code []byte, v int64) []byte {
	var w writer
	w.byte(OpI64Const)
	w.s64(v)
	return append(code, w.bytes()...)
}

// AppendCall appends "call idx" to code.
func AppendCall(code []byte, idx uint32) []byte {
	var w writer
	w.byte(OpCall)
	w.u32(idx)
	return append(code, w.bytes()...)
}
