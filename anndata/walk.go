package anndata

import (
	"context"
	"errors"
	"path"
)

// ErrStopWalk can be returned from a WalkFunc to end Walk without an error.
var ErrStopWalk = errors.New("walk stopped")

// WalkFunc is called for each element during Walk. el is nil when err is
// set. Returning ErrStopWalk ends the walk; any other error is returned by
// Walk.
type WalkFunc func(path string, el Element, err error) error

// Walk visits every slot of ad and, depth first, every element below the
// collection slots. Members are visited in sorted order. The store must
// support listing.
func Walk(ctx context.Context, ad *AnnData, fn WalkFunc) error {
	for _, slot := range Slots {
		el, err := ad.Slot(slot)
		if err != nil {
			return err
		}
		if el == nil {
			continue
		}
		if err := walkElement(ctx, "/"+slot, el, fn); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

func walkElement(ctx context.Context, p string, el Element, fn WalkFunc) error {
	if err := fn(p, el, nil); err != nil {
		return err
	}
	c, ok := el.(*AxisArrays)
	if !ok {
		return nil
	}

	keys, err := c.Keys(ctx)
	if err != nil {
		return fn(p, nil, err)
	}
	for _, key := range keys {
		childPath := path.Join(p, key)
		child, err := c.Get(ctx, key)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		if err := walkElement(ctx, childPath, child, fn); err != nil {
			return err
		}
	}
	return nil
}
