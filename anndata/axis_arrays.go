package anndata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/robert-malhotra/go-anndata/zarr"
)

const (
	attrIndex       = "_index"
	attrColumnOrder = "column-order"
	defaultIndex    = "_index"
	primaryName     = "X"
)

// Key addresses an entry of an AxisArrays: a named member or the dataset's
// primary matrix.
type Key struct {
	name    string
	primary bool
}

// Named returns the key of the member called name.
func Named(name string) Key { return Key{name: name} }

// Primary is the key of the primary matrix X. It is how a layers
// collection exposes X next to its named layers.
var Primary = Key{primary: true}

// IsPrimary reports whether k is Primary.
func (k Key) IsPrimary() bool { return k.primary }

func (k Key) String() string {
	if k.primary {
		return primaryName
	}
	return k.name
}

func (k Key) flight() string {
	if k.primary {
		return "p:"
	}
	return "n:" + k.name
}

// AxisArrays is a lazily resolved, cached collection of elements stored in
// one group. Each key is resolved at most once; concurrent first accesses
// share a single resolution. Failed resolutions are not cached.
type AxisArrays struct {
	loc zarr.Location
	r   *resolver

	mu     sync.Mutex
	cache  map[Key]Element
	flight singleflight.Group
}

func newAxisArrays(loc zarr.Location, r *resolver) *AxisArrays {
	return &AxisArrays{
		loc:   loc,
		r:     r,
		cache: make(map[Key]Element),
	}
}

func (*AxisArrays) element()       {}
func (*AxisArrays) Kind() Kind     { return KindCollection }
func (a *AxisArrays) Path() string { return a.loc.Path }

// Name returns the group name, such as "obs" or "layers".
func (a *AxisArrays) Name() string { return a.loc.Name() }

// Location returns the location of the backing group.
func (a *AxisArrays) Location() zarr.Location { return a.loc }

// Has reports whether key names a member. A cached key answers without
// touching the store.
func (a *AxisArrays) Has(ctx context.Context, key string) (bool, error) {
	if a.cached(Named(key)) != nil {
		return true, nil
	}
	if !validKey(key) {
		return false, nil
	}
	return zarr.Exists(ctx, a.loc.Resolve(key))
}

// Get resolves the member key. A missing key fails with a *KeyError.
func (a *AxisArrays) Get(ctx context.Context, key string) (Element, error) {
	return a.GetKey(ctx, Named(key))
}

// GetKey resolves k. Primary resolves X from the group's parent.
// Concurrent callers share one resolution, which does not observe any
// caller's cancellation. A cancelled caller stops waiting and the others
// still receive the result.
func (a *AxisArrays) GetKey(ctx context.Context, k Key) (Element, error) {
	if el := a.cached(k); el != nil {
		return el, nil
	}
	if !k.primary && !validKey(k.name) {
		return nil, &KeyError{Collection: a.Name(), Key: k.name}
	}

	resolveCtx := context.WithoutCancel(ctx)
	ch := a.flight.DoChan(k.flight(), func() (any, error) {
		if el := a.cached(k); el != nil {
			return el, nil
		}
		parent, name := a.loc, k.name
		if k.primary {
			parent, name = a.loc.Parent(), primaryName
		}
		el, err := a.r.readElem(resolveCtx, parent, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &KeyError{Collection: a.Name(), Key: k.String()}
			}
			return nil, err
		}

		a.mu.Lock()
		a.cache[k] = el
		a.mu.Unlock()
		return el, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Element), nil
	}
}

func (a *AxisArrays) cached(k Key) Element {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache[k]
}

// Keys lists the member names in sorted order. An absent group has no keys.
// The store must support listing.
func (a *AxisArrays) Keys(ctx context.Context) ([]string, error) {
	g, err := a.group(ctx)
	if err != nil || g == nil {
		return nil, err
	}
	return g.Members(ctx)
}

// ColumnOrder returns the "column-order" attribute of a dataframe group,
// or nil when there is none.
func (a *AxisArrays) ColumnOrder(ctx context.Context) ([]string, error) {
	g, err := a.group(ctx)
	if err != nil || g == nil {
		return nil, err
	}
	order, _ := g.Attrs().Strings(attrColumnOrder)
	return order, nil
}

// IndexKey returns the name of the member holding the row index.
func (a *AxisArrays) IndexKey(ctx context.Context) (string, error) {
	g, err := a.group(ctx)
	if err != nil || g == nil {
		return defaultIndex, err
	}
	if name, ok := g.Attrs().String(attrIndex); ok && name != "" {
		return name, nil
	}
	return defaultIndex, nil
}

// Index reads the full row index.
func (a *AxisArrays) Index(ctx context.Context) (zarr.Buffer, error) {
	if _, err := indexLen(ctx, a); err != nil {
		return nil, err
	}
	key, err := a.IndexKey(ctx)
	if err != nil {
		return nil, err
	}
	el, err := a.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	v, err := Get(ctx, el, zarr.All())
	if err != nil {
		return nil, fmt.Errorf("%s index: %w", a.Path(), err)
	}
	return v.Chunk.Data, nil
}

// group opens the backing group, or returns nil when it does not exist.
func (a *AxisArrays) group(ctx context.Context) (*zarr.Group, error) {
	g, err := zarr.OpenGroup(ctx, a.loc)
	if err != nil {
		if zarr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

// validKey reports whether key names a direct child.
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.Contains(key, "/")
}
