package codec

import (
	stdbinary "encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/robert-malhotra/go-anndata/internal/binary"
)

// VLenUTF8 implements the numcodecs "vlen-utf8" object codec.
//
// Layout: a little endian uint32 item count, then for each item a uint32
// byte length followed by the UTF-8 bytes.
type VLenUTF8 struct{}

func (VLenUTF8) ID() string { return "vlen-utf8" }

func (VLenUTF8) DecodeStrings(input []byte) ([]string, error) {
	r := binary.NewReader(input, stdbinary.LittleEndian)
	n, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("vlen-utf8 header: %w", err)
	}
	// Every item needs at least its 4 byte length.
	if int(n) > r.Len()/4 {
		return nil, fmt.Errorf("vlen-utf8: %d items cannot fit in %d bytes", n, r.Len())
	}
	values := make([]string, n)
	for i := range values {
		size, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("vlen-utf8 item %d: %w", i, err)
		}
		b, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("vlen-utf8 item %d: %w", i, err)
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("vlen-utf8 item %d: invalid UTF-8", i)
		}
		values[i] = string(b)
	}
	return values, nil
}

func (VLenUTF8) EncodeStrings(values []string) ([]byte, error) {
	size := 4
	for _, v := range values {
		size += 4 + len(v)
	}
	w := binary.NewWriter(stdbinary.LittleEndian, size)
	w.WriteUint32(uint32(len(values)))
	for _, v := range values {
		w.WriteUint32(uint32(len(v)))
		w.WriteBytes([]byte(v))
	}
	return w.Bytes(), nil
}
