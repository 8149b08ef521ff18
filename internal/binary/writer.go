package binary

import (
	"encoding/binary"
)

// Writer appends fixed-width values to a growing byte slice.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter creates a writer with the given byte order and initial capacity.
func NewWriter(order binary.ByteOrder, capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity), order: order}
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteBytes appends data.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint32At overwrites 4 bytes at offset, for length fields that are
// known only after the payload is written.
func (w *Writer) PutUint32At(offset int, v uint32) {
	w.order.PutUint32(w.buf[offset:offset+4], v)
}
