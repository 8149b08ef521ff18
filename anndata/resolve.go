package anndata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robert-malhotra/go-anndata/internal/metrics"
	"github.com/robert-malhotra/go-anndata/zarr"
)

// Encoding attribute names.
const (
	attrEncodingType    = "encoding-type"
	attrEncodingVersion = "encoding-version"
	attrCategories      = "categories"
)

// encoding is a format tag.
type encoding struct {
	Type    string
	Version string
}

type nodeKind int

const (
	groupNode nodeKind = iota
	arrayNode
)

func (k nodeKind) String() string {
	if k == groupNode {
		return "group"
	}
	return "array"
}

func kindOf(n zarr.Node) nodeKind {
	if _, ok := n.(*zarr.Array); ok {
		return arrayNode
	}
	return groupNode
}

type readFunc func(ctx context.Context, r *resolver, parent zarr.Location, node zarr.Node, enc encoding) (Element, error)

type encodingReader struct {
	node nodeKind
	read readFunc
}

// encodings is the dispatch table for tagged nodes.
var encodings = map[encoding]encodingReader{
	{"csr_matrix", "0.1.0"}:     {groupNode, readSparse},
	{"csc_matrix", "0.1.0"}:     {groupNode, readSparse},
	{"categorical", "0.2.0"}:    {groupNode, readCategorical},
	{"dict", "0.1.0"}:           {groupNode, readDict},
	{"dataframe", "0.1.0"}:      {groupNode, readDict},
	{"dataframe", "0.2.0"}:      {groupNode, readDict},
	{"array", "0.2.0"}:          {arrayNode, readArray},
	{"string-array", "0.2.0"}:   {arrayNode, readArray},
	{"numeric-scalar", "0.2.0"}: {arrayNode, readArray},
	{"string", "0.2.0"}:         {arrayNode, readArray},
}

// resolver turns nodes into elements. It is shared by every collection of
// one dataset.
type resolver struct {
	log *slog.Logger
}

// ReadElem resolves the node at key below parent.
//
// Tagged nodes are dispatched on their (encoding-type, encoding-version)
// pair; an unknown pair fails with ErrUnsupportedFormat. Untagged groups
// become collections, untagged arrays with a "categories" attribute become
// categoricals and other untagged arrays are plain arrays.
func ReadElem(ctx context.Context, parent *zarr.Group, key string, opts ...Option) (Element, error) {
	r := &resolver{log: newOptions(opts).logger}
	return r.readElem(ctx, parent.Location(), key)
}

func (r *resolver) readElem(ctx context.Context, parent zarr.Location, key string) (Element, error) {
	loc := parent.Resolve(key)
	node, err := zarr.Open(ctx, loc)
	if err != nil {
		if errors.Is(err, zarr.ErrNodeNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Path)
		}
		return nil, err
	}

	var el Element
	enc, tagged, err := encodingOf(node)
	switch {
	case err != nil:
	case tagged:
		el, err = r.readTagged(ctx, parent, node, enc)
	default:
		el, err = r.readLegacy(ctx, parent, node)
	}
	if err != nil {
		return nil, err
	}

	metrics.ElementsResolved.WithLabelValues(el.Kind().String()).Inc()
	r.log.Debug("element resolved",
		slog.String("path", loc.Path),
		slog.String("kind", el.Kind().String()),
		slog.String("encoding", enc.Type),
		slog.String("version", enc.Version))
	return el, nil
}

// encodingOf returns the node's format tag. A node with only one of the two
// attributes, or with non-string values, is tagged with a pair that matches
// nothing.
func encodingOf(n zarr.Node) (encoding, bool, error) {
	attrs := n.Attrs()
	if !attrs.Has(attrEncodingType) && !attrs.Has(attrEncodingVersion) {
		return encoding{}, false, nil
	}
	typ, okType := attrs.String(attrEncodingType)
	ver, okVer := attrs.String(attrEncodingVersion)
	if !okType || !okVer {
		return encoding{}, true, &FormatError{
			Path:    n.Path(),
			Type:    fmt.Sprint(attrs[attrEncodingType]),
			Version: fmt.Sprint(attrs[attrEncodingVersion]),
			Reason:  "incomplete encoding tag",
		}
	}
	return encoding{Type: typ, Version: ver}, true, nil
}

func (r *resolver) readTagged(ctx context.Context, parent zarr.Location, node zarr.Node, enc encoding) (Element, error) {
	entry, ok := encodings[enc]
	if !ok {
		return nil, &FormatError{Path: node.Path(), Type: enc.Type, Version: enc.Version, Reason: "no reader for encoding"}
	}
	if kind := kindOf(node); kind != entry.node {
		return nil, &FormatError{
			Path:    node.Path(),
			Type:    enc.Type,
			Version: enc.Version,
			Reason:  fmt.Sprintf("encoding requires a %s, found a %s", entry.node, kind),
		}
	}
	return entry.read(ctx, r, parent, node, enc)
}

func (r *resolver) readLegacy(ctx context.Context, parent zarr.Location, node zarr.Node) (Element, error) {
	switch n := node.(type) {
	case *zarr.Group:
		return readDict(ctx, r, parent, n, encoding{})
	case *zarr.Array:
		cats, ok := n.Attr(attrCategories)
		if !ok {
			return &Array{arr: n}, nil
		}
		// Pre-0.8 categoricals: the node holds the codes and names the
		// categories array relative to its parent.
		categories, err := openArray(ctx, parent.Resolve(fmt.Sprint(cats)), n.Path())
		if err != nil {
			return nil, err
		}
		return newCategorical(n.Path(), n, categories, false, r.log), nil
	}
	return nil, &FormatError{Path: node.Path(), Reason: "unknown node type"}
}

// openArray opens a member array of an encoded element. A missing member
// makes the element malformed.
func openArray(ctx context.Context, loc zarr.Location, owner string) (*zarr.Array, error) {
	a, err := zarr.OpenArray(ctx, loc)
	if err != nil {
		if zarr.IsNotFound(err) || errors.Is(err, zarr.ErrNotArray) {
			return nil, &FormatError{Path: owner, Reason: fmt.Sprintf("member %s: %v", loc.Path, err)}
		}
		return nil, err
	}
	return a, nil
}

func readArray(_ context.Context, _ *resolver, _ zarr.Location, node zarr.Node, _ encoding) (Element, error) {
	return &Array{arr: node.(*zarr.Array)}, nil
}

func readDict(_ context.Context, r *resolver, _ zarr.Location, node zarr.Node, _ encoding) (Element, error) {
	return newAxisArrays(node.Location(), r), nil
}

func readCategorical(ctx context.Context, r *resolver, _ zarr.Location, node zarr.Node, _ encoding) (Element, error) {
	g := node.(*zarr.Group)
	codes, err := openArray(ctx, g.Resolve("codes"), g.Path())
	if err != nil {
		return nil, err
	}
	categories, err := openArray(ctx, g.Resolve("categories"), g.Path())
	if err != nil {
		return nil, err
	}
	ordered, _ := g.Attrs().Bool("ordered")
	return newCategorical(g.Path(), codes, categories, ordered, r.log), nil
}

func readSparse(ctx context.Context, r *resolver, _ zarr.Location, node zarr.Node, enc encoding) (Element, error) {
	g := node.(*zarr.Group)
	shape, ok := g.Attrs().Ints("shape")
	if !ok || len(shape) != 2 {
		return nil, &FormatError{Path: g.Path(), Type: enc.Type, Version: enc.Version, Reason: "missing or invalid shape attribute"}
	}

	m := &SparseMatrix{
		path:   g.Path(),
		format: Format(strings.TrimSuffix(enc.Type, "_matrix")),
		shape:  [2]int{shape[0], shape[1]},
		log:    r.log,
	}
	for _, member := range []struct {
		name string
		dst  **zarr.Array
	}{
		{"indptr", &m.indptr},
		{"indices", &m.indices},
		{"data", &m.data},
	} {
		a, err := openArray(ctx, g.Resolve(member.name), g.Path())
		if err != nil {
			return nil, err
		}
		if a.NDim() != 1 {
			return nil, &FormatError{Path: g.Path(), Type: enc.Type, Version: enc.Version, Reason: member.name + " is not one-dimensional"}
		}
		*member.dst = a
	}
	return m, nil
}
