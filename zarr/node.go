package zarr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robert-malhotra/go-anndata/internal/codec"
	"github.com/robert-malhotra/go-anndata/internal/dtype"
)

// Node is an opened group or array. The implementations are *Group and
// *Array.
type Node interface {
	Location() Location
	Path() string
	Name() string
	Attrs() Attributes
	Attr(name string) (any, bool)

	node()
}

// Group is an opened zarr group.
type Group struct {
	loc   Location
	attrs Attributes
}

// Array is an opened zarr array.
type Array struct {
	loc      Location
	meta     ArrayMetadata
	dtype    DataType
	fill     any
	pipeline *codec.Pipeline
	attrs    Attributes
}

func (*Group) node() {}
func (*Array) node() {}

// Open opens the group or array at loc. It returns an error matching
// ErrNodeNotFound when neither exists.
func Open(ctx context.Context, loc Location) (Node, error) {
	data, err := loc.Store.Get(ctx, loc.Key(arrayKey))
	switch {
	case err == nil:
		return openArray(ctx, loc, data)
	case !errors.Is(err, ErrKeyNotFound):
		return nil, fmt.Errorf("opening %s: %w", loc.Path, err)
	}

	if _, err := loc.Store.Get(ctx, loc.Key(groupKey)); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, loc.Path)
		}
		return nil, fmt.Errorf("opening %s: %w", loc.Path, err)
	}
	attrs, err := readAttrs(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &Group{loc: loc, attrs: attrs}, nil
}

// OpenGroup opens the group at loc.
func OpenGroup(ctx context.Context, loc Location) (*Group, error) {
	n, err := Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, loc.Path)
	}
	return g, nil
}

// OpenArray opens the array at loc.
func OpenArray(ctx context.Context, loc Location) (*Array, error) {
	n, err := Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	a, ok := n.(*Array)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, loc.Path)
	}
	return a, nil
}

// Exists reports whether a group or array exists at loc. Only the presence
// of metadata is checked; the metadata is not parsed.
func Exists(ctx context.Context, loc Location) (bool, error) {
	for _, key := range []string{arrayKey, groupKey} {
		_, err := loc.Store.Get(ctx, loc.Key(key))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return false, fmt.Errorf("checking %s: %w", loc.Path, err)
		}
	}
	return false, nil
}

func openArray(ctx context.Context, loc Location, data []byte) (*Array, error) {
	meta, err := parseArrayMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", loc.Path, err)
	}
	a, err := newArray(loc, meta)
	if err != nil {
		return nil, err
	}
	if a.attrs, err = readAttrs(ctx, loc); err != nil {
		return nil, err
	}
	return a, nil
}

func newArray(loc Location, meta ArrayMetadata) (*Array, error) {
	dt, err := dtype.Parse(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", loc.Path, ErrUnsupported, err)
	}
	fill, err := dtype.ParseFill(dt, meta.FillValue)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", loc.Path, err)
	}
	pipeline, err := codec.NewPipeline(meta.Compressor, meta.Filters, dt.Size)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", loc.Path, ErrUnsupported, err)
	}
	return &Array{
		loc:      loc,
		meta:     meta,
		dtype:    dt,
		fill:     fill,
		pipeline: pipeline,
		attrs:    Attributes{},
	}, nil
}

func readAttrs(ctx context.Context, loc Location) (Attributes, error) {
	data, err := loc.Store.Get(ctx, loc.Key(attrsKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Attributes{}, nil
		}
		return nil, fmt.Errorf("reading attributes of %s: %w", loc.Path, err)
	}
	attrs, err := parseAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.Path, err)
	}
	return attrs, nil
}

// === Group ===

// Location returns the location of the group.
func (g *Group) Location() Location { return g.loc }

// Path returns the absolute path of the group.
func (g *Group) Path() string { return g.loc.Path }

// Name returns the last path component.
func (g *Group) Name() string { return g.loc.Name() }

// Attrs returns the group's attributes.
func (g *Group) Attrs() Attributes { return g.attrs }

// Attr returns a single attribute.
func (g *Group) Attr(name string) (any, bool) {
	v, ok := g.attrs[name]
	return v, ok
}

// Resolve returns the location of a path relative to the group.
func (g *Group) Resolve(rel string) Location {
	return g.loc.Resolve(rel)
}

// Members returns the sorted names of the group's child nodes. The store
// must implement Lister.
func (g *Group) Members(ctx context.Context) ([]string, error) {
	names, err := listDir(ctx, g.loc.Store, g.loc.Prefix())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", g.loc.Path, err)
	}
	var members []string
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		ok, err := Exists(ctx, g.loc.Resolve(name))
		if err != nil {
			return nil, err
		}
		if ok {
			members = append(members, name)
		}
	}
	sort.Strings(members)
	return members, nil
}

// === Array ===

// Location returns the location of the array.
func (a *Array) Location() Location { return a.loc }

// Path returns the absolute path of the array.
func (a *Array) Path() string { return a.loc.Path }

// Name returns the last path component.
func (a *Array) Name() string { return a.loc.Name() }

// Attrs returns the array's attributes.
func (a *Array) Attrs() Attributes { return a.attrs }

// Attr returns a single attribute.
func (a *Array) Attr(name string) (any, bool) {
	v, ok := a.attrs[name]
	return v, ok
}

// Shape returns the array dimensions.
func (a *Array) Shape() []int {
	return append([]int(nil), a.meta.Shape...)
}

// Chunks returns the chunk dimensions.
func (a *Array) Chunks() []int {
	return append([]int(nil), a.meta.Chunks...)
}

// NDim returns the number of dimensions.
func (a *Array) NDim() int {
	return len(a.meta.Shape)
}

// Size returns the total number of elements.
func (a *Array) Size() int {
	return product(a.meta.Shape)
}

// DataType returns the element type.
func (a *Array) DataType() DataType {
	return a.dtype
}

// FillValue returns the decoded fill value, or nil.
func (a *Array) FillValue() any {
	return a.fill
}

// Metadata returns a copy of the array metadata.
func (a *Array) Metadata() ArrayMetadata {
	m := a.meta
	m.Shape = a.Shape()
	m.Chunks = a.Chunks()
	return m
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
