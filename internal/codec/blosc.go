package codec

import (
	"bytes"
	stdbinary "encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/robert-malhotra/go-anndata/internal/binary"
)

// Blosc1 frame layout
//
//	byte 0      format version
//	byte 1      inner codec format version
//	byte 2      flags
//	byte 3      typesize
//	bytes 4-7   nbytes, uncompressed size
//	bytes 8-11  blocksize
//	bytes 12-15 cbytes, frame size
//
// followed by one int32 start offset per block. Each block holds one or
// typesize streams, each an int32 compressed size and its payload. A stream
// whose size equals its decompressed size is stored raw.
const (
	bloscHeaderSize = 16
	bloscVersion    = 2

	bloscFlagShuffle    = 0x01
	bloscFlagMemcpyed   = 0x02
	bloscFlagBitShuffle = 0x04
	bloscFlagDontSplit  = 0x10
)

// Inner codec codes stored in the top three flag bits.
const (
	bloscBloscLZ = 0
	bloscLZ4     = 1
	bloscSnappy  = 2
	bloscZlib    = 3
	bloscZstd    = 4
)

var bloscCodes = map[string]byte{
	"blosclz": bloscBloscLZ,
	"lz4":     bloscLZ4,
	"lz4hc":   bloscLZ4,
	"snappy":  bloscSnappy,
	"zlib":    bloscZlib,
	"zstd":    bloscZstd,
}

var bloscCodeNames = map[byte]string{
	bloscBloscLZ: "blosclz",
	bloscLZ4:     "lz4",
	bloscSnappy:  "snappy",
	bloscZlib:    "zlib",
	bloscZstd:    "zstd",
}

// Blosc shuffle modes.
const (
	BloscAutoShuffle = -1
	BloscNoShuffle   = 0
	BloscShuffle     = 1
	BloscBitShuffle  = 2
)

// Blosc implements the numcodecs "blosc" meta-compressor.
type Blosc struct {
	cname    string
	clevel   int
	shuffle  int
	typesize int
}

// NewBlosc creates a blosc codec from a numcodecs configuration
// ({"cname": "lz4", "clevel": 5, "shuffle": 1, "blocksize": 0}).
func NewBlosc(cfg Config) (*Blosc, error) {
	c := &Blosc{
		cname:    cfg.String("cname", "lz4"),
		clevel:   cfg.Int("clevel", 5),
		shuffle:  cfg.Int("shuffle", BloscShuffle),
		typesize: 1,
	}
	if _, ok := bloscCodes[c.cname]; !ok {
		return nil, fmt.Errorf("%w: blosc compressor %q", ErrUnsupported, c.cname)
	}
	return c, nil
}

func (c *Blosc) ID() string { return "blosc" }

// SetElementSize sets the typesize used when encoding.
func (c *Blosc) SetElementSize(size int) {
	if size < 1 {
		size = 1
	}
	if size > 255 {
		size = 1
	}
	c.typesize = size
}

func (c *Blosc) Decode(input []byte) ([]byte, error) {
	if len(input) < bloscHeaderSize {
		return nil, fmt.Errorf("blosc: frame too short (%d bytes)", len(input))
	}

	r := binary.NewReader(input, stdbinary.LittleEndian)
	_, _ = r.ReadUint8() // version
	_, _ = r.ReadUint8() // inner codec version
	flags, _ := r.ReadUint8()
	typesize8, _ := r.ReadUint8()
	nbytes32, _ := r.ReadUint32()
	blocksize32, _ := r.ReadUint32()
	cbytes, _ := r.ReadUint32()

	nbytes := int(nbytes32)
	blocksize := int(blocksize32)
	typesize := int(typesize8)
	if int(cbytes) > len(input) {
		return nil, fmt.Errorf("blosc: frame truncated: %d of %d bytes", len(input), cbytes)
	}

	output := make([]byte, nbytes)
	if flags&bloscFlagMemcpyed != 0 {
		if len(input) < bloscHeaderSize+nbytes {
			return nil, fmt.Errorf("blosc: memcpyed frame truncated")
		}
		copy(output, input[bloscHeaderSize:])
		return output, nil
	}
	if nbytes == 0 {
		return output, nil
	}
	if flags&bloscFlagBitShuffle != 0 {
		return nil, fmt.Errorf("%w: blosc bit shuffle", ErrUnsupported)
	}
	code := flags >> 5
	decompress, ok := bloscDecompressors[code]
	if !ok {
		name := bloscCodeNames[code]
		if name == "" {
			name = fmt.Sprintf("code %d", code)
		}
		return nil, fmt.Errorf("%w: blosc inner codec %s", ErrUnsupported, name)
	}
	if blocksize <= 0 {
		return nil, fmt.Errorf("blosc: invalid blocksize %d", blocksize)
	}

	nblocks := nbytes / blocksize
	leftover := nbytes % blocksize
	if leftover > 0 {
		nblocks++
	}
	bstarts := make([]int, nblocks)
	for i := range bstarts {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("blosc: block offsets: %w", err)
		}
		bstarts[i] = int(v)
	}

	shuffled := flags&bloscFlagShuffle != 0 && typesize > 1
	dontSplit := flags&bloscFlagDontSplit != 0
	tmp := make([]byte, blocksize)

	for j := 0; j < nblocks; j++ {
		bsize := blocksize
		leftoverBlock := j == nblocks-1 && leftover > 0
		if leftoverBlock {
			bsize = leftover
		}
		nstreams := 1
		if !dontSplit && !leftoverBlock && typesize > 1 {
			nstreams = typesize
		}
		neblock := bsize / nstreams

		dst := output[j*blocksize : j*blocksize+bsize]
		if shuffled {
			dst = tmp[:bsize]
		}

		sr := r.At(bstarts[j])
		for s := 0; s < nstreams; s++ {
			csize, err := sr.ReadInt32()
			if err != nil {
				return nil, fmt.Errorf("blosc: block %d stream %d: %w", j, s, err)
			}
			payload, err := sr.ReadBytes(int(csize))
			if err != nil {
				return nil, fmt.Errorf("blosc: block %d stream %d: %w", j, s, err)
			}
			out := dst[s*neblock : (s+1)*neblock]
			if int(csize) == neblock {
				copy(out, payload)
				continue
			}
			if err := decompress(payload, out); err != nil {
				return nil, fmt.Errorf("blosc: block %d stream %d: %w", j, s, err)
			}
		}

		if shuffled {
			unshuffleBlock(typesize, dst, output[j*blocksize:j*blocksize+bsize])
		}
	}

	return output, nil
}

func (c *Blosc) Encode(input []byte) ([]byte, error) {
	code := bloscCodes[c.cname]
	compress, ok := bloscCompressors[code]
	if !ok {
		return nil, fmt.Errorf("%w: blosc compressor %q", ErrUnsupported, c.cname)
	}

	shuffle := c.shuffle
	if shuffle == BloscAutoShuffle {
		shuffle = BloscShuffle
	}
	if shuffle == BloscBitShuffle {
		return nil, fmt.Errorf("%w: blosc bit shuffle", ErrUnsupported)
	}

	nbytes := len(input)
	typesize := c.typesize
	flags := code << 5
	block := input
	if shuffle == BloscShuffle && typesize > 1 {
		flags |= bloscFlagShuffle
		block = make([]byte, nbytes)
		shuffleBlock(typesize, input, block)
	}

	split := flags&bloscFlagShuffle != 0 && nbytes > 0 && nbytes%typesize == 0
	nstreams := 1
	if split {
		nstreams = typesize
	} else {
		flags |= bloscFlagDontSplit
	}

	w := binary.NewWriter(stdbinary.LittleEndian, bloscHeaderSize+nbytes)
	writeHeader := func(flags byte) {
		w.WriteUint8(bloscVersion)
		w.WriteUint8(1)
		w.WriteUint8(flags)
		w.WriteUint8(byte(typesize))
		w.WriteUint32(uint32(nbytes))
		w.WriteUint32(uint32(nbytes))
		w.WriteUint32(0)
	}

	if nbytes > 0 {
		writeHeader(flags)
		w.WriteInt32(bloscHeaderSize + 4)
		neblock := nbytes / nstreams
		for s := 0; s < nstreams; s++ {
			stream := block[s*neblock : (s+1)*neblock]
			compressed, err := compress(stream, c.clevel)
			if err != nil {
				return nil, fmt.Errorf("blosc: %w", err)
			}
			if compressed == nil || len(compressed) >= neblock {
				w.WriteInt32(int32(neblock))
				w.WriteBytes(stream)
				continue
			}
			w.WriteInt32(int32(len(compressed)))
			w.WriteBytes(compressed)
		}
	}

	if nbytes == 0 || w.Len() >= bloscHeaderSize+nbytes {
		w = binary.NewWriter(stdbinary.LittleEndian, bloscHeaderSize+nbytes)
		writeHeader(flags | bloscFlagMemcpyed)
		w.WriteBytes(input)
	}
	w.PutUint32At(12, uint32(w.Len()))
	return w.Bytes(), nil
}

// bloscDecompressors decode one stream into exactly len(dst) bytes.
var bloscDecompressors = map[byte]func(src, dst []byte) error{
	bloscLZ4: func(src, dst []byte) error {
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return fmt.Errorf("lz4: %w", err)
		}
		return checkStreamSize(n, len(dst))
	},
	bloscSnappy: func(src, dst []byte) error {
		out, err := snappy.Decode(nil, src)
		if err != nil {
			return fmt.Errorf("snappy: %w", err)
		}
		return copyStream(out, dst)
	},
	bloscZlib: func(src, dst []byte) error {
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("zlib: %w", err)
		}
		return copyStream(out, dst)
	},
	bloscZstd: func(src, dst []byte) error {
		out, err := zstdDecompress(src, nil)
		if err != nil {
			return err
		}
		return copyStream(out, dst)
	},
}

// bloscCompressors return nil when the stream does not compress.
var bloscCompressors = map[byte]func(src []byte, level int) ([]byte, error){
	bloscLZ4: func(src []byte, _ int) ([]byte, error) {
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return dst[:n], nil
	},
	bloscSnappy: func(src []byte, _ int) ([]byte, error) {
		return snappy.Encode(nil, src), nil
	},
	bloscZlib: func(src []byte, level int) ([]byte, error) {
		return NewZlib(level).Encode(src)
	},
	bloscZstd: func(src []byte, level int) ([]byte, error) {
		return zstdCompress(src, level)
	},
}

func checkStreamSize(got, want int) error {
	if got != want {
		return fmt.Errorf("stream decoded to %d bytes, want %d", got, want)
	}
	return nil
}

func copyStream(out, dst []byte) error {
	if err := checkStreamSize(len(out), len(dst)); err != nil {
		return err
	}
	copy(dst, out)
	return nil
}
