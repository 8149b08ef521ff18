package codec

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned for codecs or codec options that cannot be
// decoded.
var ErrUnsupported = errors.New("unsupported codec")

// Codec is the interface implemented by all byte codecs.
type Codec interface {
	// ID returns the numcodecs identifier.
	ID() string

	// Decode transforms encoded data to decoded form.
	Decode(input []byte) ([]byte, error)

	// Encode transforms decoded data to encoded form.
	Encode(input []byte) ([]byte, error)
}

// ObjectCodec converts between string elements and bytes.
type ObjectCodec interface {
	ID() string
	DecodeStrings(input []byte) ([]string, error)
	EncodeStrings(values []string) ([]byte, error)
}

// Config is the JSON object describing a codec, including its "id".
type Config map[string]any

// ID returns the codec identifier.
func (c Config) ID() string {
	id, _ := c["id"].(string)
	return id
}

// Int returns an integer option, or def when absent.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// String returns a string option, or def when absent.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Registry maps codec IDs to codec constructors.
var Registry = map[string]func(Config) (Codec, error){
	"zlib": func(c Config) (Codec, error) { return NewZlib(c.Int("level", 1)), nil },
	"gzip": func(c Config) (Codec, error) { return NewGzip(c.Int("level", 1)), nil },
	"zstd": func(c Config) (Codec, error) { return NewZstd(c.Int("level", 1)), nil },
	"lz4":  func(c Config) (Codec, error) { return NewLZ4(c.Int("acceleration", 1)), nil },
	"blosc": func(c Config) (Codec, error) {
		b, err := NewBlosc(c)
		if err != nil {
			return nil, err
		}
		return b, nil
	},
	"shuffle":    func(c Config) (Codec, error) { return NewShuffle(c.Int("elementsize", 4)), nil },
	"fletcher32": func(Config) (Codec, error) { return Fletcher32{}, nil },
}

// ObjectRegistry maps object codec IDs to constructors.
var ObjectRegistry = map[string]func(Config) ObjectCodec{
	"vlen-utf8": func(Config) ObjectCodec { return VLenUTF8{} },
}

// codecNames lists known numcodecs IDs that are not implemented, for better
// error messages.
var codecNames = map[string]string{
	"bz2":              "bzip2",
	"lzma":             "LZMA",
	"delta":            "delta",
	"fixedscaleoffset": "fixed scale-offset",
	"quantize":         "quantize",
	"packbits":         "packbits",
	"vlen-bytes":       "variable length bytes",
	"vlen-array":       "variable length array",
	"json2":            "JSON object",
	"msgpack2":         "msgpack object",
	"pickle":           "pickle object",
}

// New creates a byte codec from its configuration.
func New(cfg Config) (Codec, error) {
	id := cfg.ID()
	constructor, ok := Registry[id]
	if !ok {
		if name, known := codecNames[id]; known {
			return nil, fmt.Errorf("%w: %s codec (%q) is not supported; this array cannot be read", ErrUnsupported, name, id)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, id)
	}
	return constructor(cfg)
}

// elementSized is implemented by codecs whose layout depends on the array's
// element size.
type elementSized interface {
	SetElementSize(size int)
}
