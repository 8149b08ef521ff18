package codec

// Shuffle implements the numcodecs "shuffle" filter.
// This filter rearranges bytes to improve compression by grouping
// similar byte positions together (e.g., all MSBs, then all next bytes, etc.).
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a new shuffle filter for elements of elemSize bytes.
func NewShuffle(elemSize int) *Shuffle {
	if elemSize < 1 {
		elemSize = 1
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() string { return "shuffle" }

// Decode reverses the shuffle transformation.
// Input is organized as: [all byte 0s][all byte 1s]...[all byte N-1s][tail]
// Output is organized as: [elem0][elem1]...[elemM][tail]
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	if f.elemSize <= 1 || len(input) < f.elemSize {
		return input, nil
	}
	output := make([]byte, len(input))
	unshuffleBlock(f.elemSize, input, output)
	return output, nil
}

func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	if f.elemSize <= 1 || len(input) < f.elemSize {
		return input, nil
	}
	output := make([]byte, len(input))
	shuffleBlock(f.elemSize, input, output)
	return output, nil
}

// shuffleBlock groups byte j of every element together. Trailing bytes that
// do not fill an element are copied unchanged.
func shuffleBlock(elemSize int, src, dst []byte) {
	numElems := len(src) / elemSize
	for i := 0; i < numElems; i++ {
		for j := 0; j < elemSize; j++ {
			dst[j*numElems+i] = src[i*elemSize+j]
		}
	}
	tail := numElems * elemSize
	copy(dst[tail:], src[tail:])
}

// unshuffleBlock reverses shuffleBlock.
func unshuffleBlock(elemSize int, src, dst []byte) {
	numElems := len(src) / elemSize
	for i := 0; i < numElems; i++ {
		for j := 0; j < elemSize; j++ {
			// In shuffled format, byte j of all elements is at offset j*numElems
			dst[i*elemSize+j] = src[j*numElems+i]
		}
	}
	tail := numElems * elemSize
	copy(dst[tail:], src[tail:])
}

// SetElementSize sets the element size for the shuffle filter.
// This is used when the element size is determined after filter creation.
func (f *Shuffle) SetElementSize(size int) {
	if size >= 1 {
		f.elemSize = size
	}
}
