package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Decoders are pooled; a zstd.Decoder holds sizeable buffers.
var zstdDecoderPool sync.Pool

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Zstd implements the numcodecs "zstd" compressor.
type Zstd struct {
	level int
}

// NewZstd creates a zstd codec. Levels follow the zstd command line scale.
func NewZstd(level int) *Zstd {
	return &Zstd{level: level}
}

func (c *Zstd) ID() string { return "zstd" }

func (c *Zstd) Decode(input []byte) ([]byte, error) {
	return zstdDecompress(input, nil)
}

func (c *Zstd) Encode(input []byte) ([]byte, error) {
	return zstdCompress(input, c.level)
}

func zstdDecompress(input, dst []byte) ([]byte, error) {
	dec, err := getZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer putZstdDecoder(dec)

	output, err := dec.DecodeAll(input, dst)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return output, nil
}

func zstdCompress(input []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(input, nil), nil
}
