package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli"

	"github.com/robert-malhotra/go-anndata/anndata"
	"github.com/robert-malhotra/go-anndata/zarr"
)

func settings(c *cli.Context) *metadata {
	return c.App.Metadata["config"].(*metadata)
}

func runTree(c *cli.Context) error {
	m := settings(c)
	ctx := context.Background()
	ad, err := m.open(ctx)
	if err != nil {
		return err
	}

	if nObs, nVar, err := ad.Shape(ctx); err == nil {
		fmt.Fprintf(m.w, "AnnData %d x %d\n", nObs, nVar)
	} else {
		m.log.Debug("shape unavailable", "err", err)
	}

	return anndata.Walk(ctx, ad, func(path string, el anndata.Element, err error) error {
		depth := strings.Count(path, "/") - 1
		indent := strings.Repeat("  ", depth)
		name := path[strings.LastIndex(path, "/")+1:]
		if err != nil {
			fmt.Fprintf(m.w, "%s%s: ERROR %v\n", indent, name, err)
			return nil
		}
		fmt.Fprintf(m.w, "%s%s%s\n", indent, name, describe(el))
		return nil
	})
}

// describe returns a one-line summary of an element, starting with a
// separator.
func describe(el anndata.Element) string {
	switch e := el.(type) {
	case *anndata.Array:
		return fmt.Sprintf(": array %v %s", e.Shape(), e.DataType())
	case *anndata.SparseMatrix:
		s := e.Shape()
		return fmt.Sprintf(": %s %v %s", e.Format(), s[:], e.DataType())
	case *anndata.Categorical:
		order := ""
		if e.Ordered() {
			order = " ordered"
		}
		return fmt.Sprintf(": categorical%s %v %s", order, e.Shape(), e.DataType())
	case *anndata.AxisArrays:
		return "/"
	}
	return ": " + el.Kind().String()
}

func runGet(c *cli.Context) error {
	m := settings(c)
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("get needs an element path and an optional selection")
	}
	sel, err := zarr.ParseSelection(c.Args().Get(1))
	if err != nil {
		return err
	}

	ctx := context.Background()
	ad, err := m.open(ctx)
	if err != nil {
		return err
	}
	el, err := lookup(ctx, ad, c.Args().Get(0))
	if err != nil {
		return err
	}
	if _, ok := el.(*anndata.SparseMatrix); ok {
		for len(sel) < 2 {
			sel = append(sel, zarr.All())
		}
	}
	v, err := anndata.Get(ctx, el, sel...)
	if err != nil {
		return err
	}
	printValue(m.w, v)
	return nil
}

// lookup resolves a slash separated path below a slot.
func lookup(ctx context.Context, ad *anndata.AnnData, p string) (anndata.Element, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	el, err := ad.Slot(parts[0])
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%w: dataset has no %s", anndata.ErrNotFound, parts[0])
	}
	for _, key := range parts[1:] {
		c, ok := el.(*anndata.AxisArrays)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a %s, not a collection", anndata.ErrNotFound, el.Path(), el.Kind())
		}
		if el, err = c.Get(ctx, key); err != nil {
			return nil, err
		}
	}
	return el, nil
}

func printValue(w io.Writer, v anndata.Value) {
	if v.IsScalar() {
		fmt.Fprintln(w, v.Scalar)
		return
	}
	c := v.Chunk
	fmt.Fprintf(w, "shape %v %s\n", c.Shape, c.Data.DataType())
	switch len(c.Shape) {
	case 0:
		fmt.Fprintln(w, c.Data.Value(0))
	case 1:
		for i := 0; i < c.Shape[0]; i++ {
			fmt.Fprintln(w, c.At(i))
		}
	case 2:
		for i := 0; i < c.Shape[0]; i++ {
			row := make([]string, c.Shape[1])
			for j := range row {
				row[j] = fmt.Sprint(c.At(i, j))
			}
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	default:
		for i := 0; i < c.Data.Len(); i++ {
			fmt.Fprintln(w, c.Data.Value(i))
		}
	}
}

func runNames(c *cli.Context) error {
	m := settings(c)
	ctx := context.Background()
	ad, err := m.open(ctx)
	if err != nil {
		return err
	}

	var names zarr.Buffer
	switch axis := c.String("axis"); axis {
	case "obs":
		names, err = ad.ObsNames(ctx)
	case "var":
		names, err = ad.VarNames(ctx)
	default:
		return fmt.Errorf("unknown axis %q: use obs or var", axis)
	}
	if err != nil {
		return err
	}

	n := names.Len()
	if limit := c.Int("limit"); limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		fmt.Fprintln(m.w, names.Value(i))
	}
	if n < names.Len() {
		fmt.Fprintf(m.w, "... %d more\n", names.Len()-n)
	}
	return nil
}
