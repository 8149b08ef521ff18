package codec

import (
	"fmt"
)

// Pipeline holds the compressor and filters of one array.
type Pipeline struct {
	compressor Codec
	filters    []Codec
	object     ObjectCodec
}

// NewPipeline creates a pipeline from the "compressor" and "filters" entries
// of array metadata. Either may be nil. elemSize is the array's element size
// in bytes, used by codecs that do not record it themselves.
//
// An object codec, if present, must be the first filter: it turns string
// elements into the bytes the remaining filters operate on.
func NewPipeline(compressor Config, filters []Config, elemSize int) (*Pipeline, error) {
	p := &Pipeline{}

	if compressor != nil {
		c, err := New(compressor)
		if err != nil {
			return nil, fmt.Errorf("creating compressor: %w", err)
		}
		setElementSize(c, compressor, elemSize)
		p.compressor = c
	}

	for i, cfg := range filters {
		if constructor, ok := ObjectRegistry[cfg.ID()]; ok {
			if i != 0 {
				return nil, fmt.Errorf("%w: object codec %q must be the first filter", ErrUnsupported, cfg.ID())
			}
			p.object = constructor(cfg)
			continue
		}
		f, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating filter %q: %w", cfg.ID(), err)
		}
		setElementSize(f, cfg, elemSize)
		p.filters = append(p.filters, f)
	}

	return p, nil
}

func setElementSize(c Codec, cfg Config, elemSize int) {
	if _, explicit := cfg["elementsize"]; explicit {
		return
	}
	if s, ok := c.(elementSized); ok && elemSize > 0 {
		s.SetElementSize(elemSize)
	}
}

// Decode decompresses a stored chunk and applies the byte filters in reverse
// order (last filter first). The object codec is not applied.
func (p *Pipeline) Decode(input []byte) ([]byte, error) {
	data := input
	if p.compressor != nil {
		var err error
		data, err = p.compressor.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", p.compressor.ID(), err)
		}
	}

	for i := len(p.filters) - 1; i >= 0; i-- {
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s decode: %w", p.filters[i].ID(), err)
		}
	}

	return data, nil
}

// Encode applies the byte filters in order and then the compressor.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		data, err = f.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s encode: %w", f.ID(), err)
		}
	}

	if p.compressor != nil {
		var err error
		data, err = p.compressor.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("%s encode: %w", p.compressor.ID(), err)
		}
	}
	return data, nil
}

// Object returns the object codec, or nil.
func (p *Pipeline) Object() ObjectCodec {
	return p.object
}

// Empty returns true if the pipeline has no compressor and no filters.
func (p *Pipeline) Empty() bool {
	return p.compressor == nil && len(p.filters) == 0 && p.object == nil
}

// Len returns the number of byte filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
