package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 implements the numcodecs "lz4" compressor: a little endian uint32
// holding the decompressed size, followed by one LZ4 block.
type LZ4 struct {
	acceleration int
}

// NewLZ4 creates an LZ4 codec.
func NewLZ4(acceleration int) *LZ4 {
	return &LZ4{acceleration: acceleration}
}

func (c *LZ4) ID() string { return "lz4" }

func (c *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("lz4: frame too short (%d bytes)", len(input))
	}
	size := binary.LittleEndian.Uint32(input)
	output := make([]byte, size)
	if size == 0 {
		return output, nil
	}
	n, err := lz4.UncompressBlock(input[4:], output)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, size)
	}
	return output, nil
}

func (c *LZ4) Encode(input []byte) ([]byte, error) {
	output := make([]byte, 4+lz4.CompressBlockBound(len(input)))
	binary.LittleEndian.PutUint32(output, uint32(len(input)))
	if len(input) == 0 {
		return output[:4], nil
	}
	n, err := lz4.CompressBlock(input, output[4:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible input: emit a literal-only block.
		n = lz4LiteralBlock(input, output[4:])
	}
	return output[:4+n], nil
}

// lz4LiteralBlock writes src as a single literal run and returns its size.
// dst must hold CompressBlockBound(len(src)) bytes.
func lz4LiteralBlock(src, dst []byte) int {
	n := len(src)
	pos := 0
	if n < 15 {
		dst[pos] = byte(n << 4)
		pos++
	} else {
		dst[pos] = 0xF0
		pos++
		rest := n - 15
		for rest >= 255 {
			dst[pos] = 255
			pos++
			rest -= 255
		}
		dst[pos] = byte(rest)
		pos++
	}
	pos += copy(dst[pos:], src)
	return pos
}
