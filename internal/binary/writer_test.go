package binary

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriterLittleEndian(t *testing.T) {
	w := NewWriter(binary.LittleEndian, 16)
	w.WriteUint8(0x01)
	w.WriteUint16(0x0302)
	w.WriteUint32(0x07060504)
	w.WriteBytes([]byte{0xAA})

	expected := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0xAA}
	if !bytes.Equal(w.Bytes(), expected) {
		t.Errorf("expected %x, got %x", expected, w.Bytes())
	}
}

func TestWriterPutUint32At(t *testing.T) {
	w := NewWriter(binary.LittleEndian, 0)
	w.WriteUint32(0)
	w.WriteBytes([]byte("payload"))
	w.PutUint32At(0, uint32(w.Len()-4))

	r := NewReader(w.Bytes(), binary.LittleEndian)
	n, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32 failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected length 7, got %d", n)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter(binary.BigEndian, 0)
	w.WriteInt32(-5)
	w.WriteUint64(1 << 40)

	r := NewReader(w.Bytes(), binary.BigEndian)
	a, err := r.ReadInt32()
	if err != nil || a != -5 {
		t.Errorf("ReadInt32: got %d (%v)", a, err)
	}
	b, err := r.ReadUint64()
	if err != nil || b != 1<<40 {
		t.Errorf("ReadUint64: got %d (%v)", b, err)
	}
}
