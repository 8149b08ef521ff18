package zarr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-anndata/internal/codec"
)

// Metadata file names.
const (
	groupKey      = ".zgroup"
	arrayKey      = ".zarray"
	attrsKey      = ".zattrs"
	consolidation = ".zmetadata"
)

// ArrayMetadata is the content of a .zarray file.
type ArrayMetadata struct {
	ZarrFormat         int             `json:"zarr_format"`
	Shape              []int           `json:"shape"`
	Chunks             []int           `json:"chunks"`
	DType              string          `json:"dtype"`
	Compressor         codec.Config    `json:"compressor"`
	FillValue          json.RawMessage `json:"fill_value"`
	Order              string          `json:"order"`
	Filters            []codec.Config  `json:"filters"`
	DimensionSeparator string          `json:"dimension_separator,omitempty"`
}

type rawArrayMetadata struct {
	ArrayMetadata
	DType json.RawMessage `json:"dtype"`
}

// parseArrayMetadata decodes and validates a .zarray document.
func parseArrayMetadata(data []byte) (ArrayMetadata, error) {
	var raw rawArrayMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return ArrayMetadata{}, fmt.Errorf("parsing %s: %w", arrayKey, err)
	}
	meta := raw.ArrayMetadata
	if err := json.Unmarshal(raw.DType, &meta.DType); err != nil {
		return ArrayMetadata{}, fmt.Errorf("%w: structured dtype %s", ErrUnsupported, raw.DType)
	}

	if meta.ZarrFormat != 2 {
		return ArrayMetadata{}, fmt.Errorf("%w: zarr_format %d", ErrUnsupported, meta.ZarrFormat)
	}
	if len(meta.Shape) != len(meta.Chunks) {
		return ArrayMetadata{}, fmt.Errorf("%s: shape %v and chunks %v differ in rank", arrayKey, meta.Shape, meta.Chunks)
	}
	for d := range meta.Shape {
		if meta.Shape[d] < 0 || meta.Chunks[d] <= 0 {
			return ArrayMetadata{}, fmt.Errorf("%s: invalid shape %v or chunks %v", arrayKey, meta.Shape, meta.Chunks)
		}
	}
	if meta.Order == "" {
		meta.Order = "C"
	}
	if meta.Order != "C" && meta.Order != "F" {
		return ArrayMetadata{}, fmt.Errorf("%w: order %q", ErrUnsupported, meta.Order)
	}
	if meta.DimensionSeparator == "" {
		meta.DimensionSeparator = "."
	}
	if meta.DimensionSeparator != "." && meta.DimensionSeparator != "/" {
		return ArrayMetadata{}, fmt.Errorf("%w: dimension_separator %q", ErrUnsupported, meta.DimensionSeparator)
	}
	return meta, nil
}

func (m ArrayMetadata) marshal() ([]byte, error) {
	if m.ZarrFormat == 0 {
		m.ZarrFormat = 2
	}
	if m.Order == "" {
		m.Order = "C"
	}
	if m.FillValue == nil {
		m.FillValue = json.RawMessage("null")
	}
	return json.MarshalIndent(m, "", "    ")
}

// chunkKey returns the key of the chunk at grid coordinates coords,
// relative to the array.
func (m ArrayMetadata) chunkKey(coords []int) string {
	if len(coords) == 0 {
		return "0"
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, m.DimensionSeparator)
}

// Attributes is the decoded content of a .zattrs file.
type Attributes map[string]any

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns a string attribute.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Ints returns an integer list attribute such as "shape".
func (a Attributes) Ints(key string) ([]int, bool) {
	list, ok := a[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]int, len(list))
	for i, v := range list {
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			return nil, false
		}
		out[i] = int(f)
	}
	return out, true
}

// Strings returns a string list attribute such as "column-order".
func (a Attributes) Strings(key string) ([]string, bool) {
	list, ok := a[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// Bool returns a boolean attribute.
func (a Attributes) Bool(key string) (bool, bool) {
	v, ok := a[key].(bool)
	return v, ok
}

func parseAttributes(data []byte) (Attributes, error) {
	attrs := Attributes{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", attrsKey, err)
	}
	return attrs, nil
}
