package codec

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-anndata/internal/binary"
)

// Fletcher32 implements the numcodecs "fletcher32" checksum filter. The
// encoded form is the input followed by its little-endian checksum.
type Fletcher32 struct{}

func (Fletcher32) ID() string { return "fletcher32" }

// Decode verifies the trailing checksum and returns the data without it.
func (Fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: input too short for checksum")
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	if computed := binpkg.Fletcher32(data); stored != computed {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (stored=0x%08x, computed=0x%08x)", stored, computed)
	}
	return data, nil
}

func (Fletcher32) Encode(input []byte) ([]byte, error) {
	out := make([]byte, len(input)+4)
	copy(out, input)
	binary.LittleEndian.PutUint32(out[len(input):], binpkg.Fletcher32(input))
	return out, nil
}
