package anndata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-anndata/zarr"
)

// Slot names in the order they are reported.
const (
	SlotObs    = "obs"
	SlotVar    = "var"
	SlotObsm   = "obsm"
	SlotVarm   = "varm"
	SlotX      = "X"
	SlotLayers = "layers"
	SlotObsp   = "obsp"
	SlotVarp   = "varp"
)

// Slots lists every top-level slot of a dataset.
var Slots = []string{SlotObs, SlotVar, SlotObsm, SlotVarm, SlotX, SlotLayers, SlotObsp, SlotVarp}

// AnnData is an opened dataset. Collection slots are never nil: a slot
// absent from the store is an empty collection. X is nil when the dataset
// has no primary matrix.
type AnnData struct {
	Obs    *AxisArrays
	Var    *AxisArrays
	Obsm   *AxisArrays
	Varm   *AxisArrays
	Layers *AxisArrays
	Obsp   *AxisArrays
	Varp   *AxisArrays

	// X is an *Array or a *SparseMatrix.
	X View

	root *zarr.Group
	log  *slog.Logger
}

// Read opens the dataset rooted at store. The slots are resolved
// concurrently; no array data is read.
func Read(ctx context.Context, store zarr.Store, opts ...Option) (*AnnData, error) {
	o := newOptions(opts)

	if o.consolidated {
		cs, err := zarr.OpenConsolidated(ctx, store)
		switch {
		case err == nil:
			store = cs
		case zarr.IsNotFound(err):
			o.logger.Debug("no consolidated metadata, reading store directly")
		default:
			return nil, err
		}
	}

	root, err := zarr.OpenGroup(ctx, zarr.Root(store))
	if err != nil {
		if zarr.IsNotFound(err) {
			return nil, fmt.Errorf("%w: no root group: %w", ErrNotFound, err)
		}
		return nil, err
	}

	r := &resolver{log: o.logger}
	elems := make([]Element, len(Slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range Slots {
		g.Go(func() error {
			el, err := r.readElem(gctx, root.Location(), slot)
			if errors.Is(err, ErrNotFound) {
				if slot != SlotX {
					elems[i] = newAxisArrays(root.Resolve(slot), r)
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", slot, err)
			}
			elems[i] = el
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ad := &AnnData{root: root, log: o.logger}
	for i, slot := range Slots {
		if err := ad.assign(slot, elems[i]); err != nil {
			return nil, err
		}
	}
	o.logger.Debug("dataset opened", slog.Bool("has_x", ad.X != nil))
	return ad, nil
}

func (ad *AnnData) assign(slot string, el Element) error {
	if slot == SlotX {
		switch x := el.(type) {
		case nil:
		case *Array:
			ad.X = x
		case *SparseMatrix:
			ad.X = x
		default:
			return &FormatError{Path: el.Path(), Reason: fmt.Sprintf("X must be an array or sparse matrix, found %s", el.Kind())}
		}
		return nil
	}

	c, ok := el.(*AxisArrays)
	if !ok {
		return &FormatError{Path: el.Path(), Reason: fmt.Sprintf("%s must be a collection, found %s", slot, el.Kind())}
	}
	switch slot {
	case SlotObs:
		ad.Obs = c
	case SlotVar:
		ad.Var = c
	case SlotObsm:
		ad.Obsm = c
	case SlotVarm:
		ad.Varm = c
	case SlotLayers:
		ad.Layers = c
	case SlotObsp:
		ad.Obsp = c
	case SlotVarp:
		ad.Varp = c
	}
	return nil
}

// Slot returns a slot by name. It returns nil, nil for "X" when the dataset
// has no primary matrix.
func (ad *AnnData) Slot(name string) (Element, error) {
	switch name {
	case SlotObs:
		return ad.Obs, nil
	case SlotVar:
		return ad.Var, nil
	case SlotObsm:
		return ad.Obsm, nil
	case SlotVarm:
		return ad.Varm, nil
	case SlotX:
		if ad.X == nil {
			return nil, nil
		}
		return ad.X, nil
	case SlotLayers:
		return ad.Layers, nil
	case SlotObsp:
		return ad.Obsp, nil
	case SlotVarp:
		return ad.Varp, nil
	}
	return nil, fmt.Errorf("%w: no slot %q", ErrNotFound, name)
}

// Root returns the root group.
func (ad *AnnData) Root() *zarr.Group { return ad.root }

// ObsNames reads the observation index.
func (ad *AnnData) ObsNames(ctx context.Context) (zarr.Buffer, error) {
	return ad.Obs.Index(ctx)
}

// VarNames reads the variable index.
func (ad *AnnData) VarNames(ctx context.Context) (zarr.Buffer, error) {
	return ad.Var.Index(ctx)
}

// Shape returns (observations, variables), taken from the index lengths.
func (ad *AnnData) Shape(ctx context.Context) (nObs, nVar int, err error) {
	if nObs, err = indexLen(ctx, ad.Obs); err != nil {
		return 0, 0, err
	}
	if nVar, err = indexLen(ctx, ad.Var); err != nil {
		return 0, 0, err
	}
	return nObs, nVar, nil
}

// indexLen returns the length of a dataframe index without reading it.
func indexLen(ctx context.Context, c *AxisArrays) (int, error) {
	key, err := c.IndexKey(ctx)
	if err != nil {
		return 0, err
	}
	el, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var shape []int
	switch v := el.(type) {
	case *Array:
		shape = v.Shape()
	case *Categorical:
		shape = v.Shape()
	default:
		return 0, &FormatError{Path: el.Path(), Reason: fmt.Sprintf("index must be an array, found %s", el.Kind())}
	}
	if len(shape) != 1 {
		return 0, &FormatError{Path: el.Path(), Reason: "index must be one-dimensional"}
	}
	return shape[0], nil
}
