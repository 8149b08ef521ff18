package zarr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SelectorKind distinguishes the per-axis selection forms.
type SelectorKind int

const (
	// SelectAll selects the whole axis. It is the zero value.
	SelectAll SelectorKind = iota
	// SelectIndex selects one position and drops the axis from the result.
	SelectIndex
	// SelectRange selects the half-open interval [Start, Stop).
	SelectRange
)

// Selector selects positions along one axis. Negative indices and bounds
// count from the end of the axis; range bounds are clamped.
type Selector struct {
	Kind  SelectorKind
	Start int
	Stop  int
}

// All selects a whole axis.
func All() Selector {
	return Selector{}
}

// At selects position i.
func At(i int) Selector {
	return Selector{Kind: SelectIndex, Start: i}
}

// Range selects [start, stop).
func Range(start, stop int) Selector {
	return Selector{Kind: SelectRange, Start: start, Stop: stop}
}

// From selects [start, end of axis).
func From(start int) Selector {
	return Range(start, math.MaxInt)
}

// IsIndex reports whether the selector picks a single position.
func (s Selector) IsIndex() bool {
	return s.Kind == SelectIndex
}

// Bounds resolves the selector against an axis of length n and returns the
// half-open interval it covers. An index i covers [i, i+1).
func (s Selector) Bounds(n int) (start, stop int, err error) {
	switch s.Kind {
	case SelectAll:
		return 0, n, nil
	case SelectIndex:
		i := s.Start
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return 0, 0, fmt.Errorf("%w: index %d out of bounds for axis of length %d", ErrInvalidSelection, s.Start, n)
		}
		return i, i + 1, nil
	case SelectRange:
		start, stop = clampBound(s.Start, n), clampBound(s.Stop, n)
		if stop < start {
			stop = start
		}
		return start, stop, nil
	}
	return 0, 0, fmt.Errorf("%w: unknown selector kind %d", ErrInvalidSelection, s.Kind)
}

func clampBound(v, n int) int {
	if v < 0 {
		v += n
		if v < 0 {
			return 0
		}
	}
	if v > n {
		return n
	}
	return v
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectIndex:
		return strconv.Itoa(s.Start)
	case SelectRange:
		stop := ""
		if s.Stop != math.MaxInt {
			stop = strconv.Itoa(s.Stop)
		}
		return strconv.Itoa(s.Start) + ":" + stop
	default:
		return ":"
	}
}

// ParseSelection parses a comma separated selection such as "0:10,3,:".
// An empty string selects everything.
func ParseSelection(s string) ([]Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Selector, len(parts))
	for i, part := range parts {
		sel, err := parseSelector(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = sel
	}
	return out, nil
}

func parseSelector(s string) (Selector, error) {
	if s == ":" || s == "" {
		return All(), nil
	}
	lo, hi, isRange := strings.Cut(s, ":")
	if !isRange {
		i, err := strconv.Atoi(s)
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
		}
		return At(i), nil
	}
	start, stop := 0, math.MaxInt
	var err error
	if lo != "" {
		if start, err = strconv.Atoi(lo); err != nil {
			return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
		}
	}
	if hi != "" {
		if stop, err = strconv.Atoi(hi); err != nil {
			return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
		}
	}
	return Range(start, stop), nil
}

// region is a resolved selection over an array shape.
type region struct {
	start []int
	stop  []int
	index []bool
}

func resolveSelection(shape []int, sel []Selector) (region, error) {
	if len(sel) > len(shape) {
		return region{}, fmt.Errorf("%w: %d selectors for %d dimensions", ErrInvalidSelection, len(sel), len(shape))
	}
	r := region{
		start: make([]int, len(shape)),
		stop:  make([]int, len(shape)),
		index: make([]bool, len(shape)),
	}
	for d, n := range shape {
		s := All()
		if d < len(sel) {
			s = sel[d]
		}
		start, stop, err := s.Bounds(n)
		if err != nil {
			return region{}, fmt.Errorf("axis %d: %w", d, err)
		}
		r.start[d], r.stop[d], r.index[d] = start, stop, s.IsIndex()
	}
	return r, nil
}

// extent returns the per-axis sizes, including dropped index axes.
func (r region) extent() []int {
	out := make([]int, len(r.start))
	for d := range out {
		out[d] = r.stop[d] - r.start[d]
	}
	return out
}

// shape returns the result shape with index axes dropped.
func (r region) shape() []int {
	out := make([]int, 0, len(r.start))
	for d := range r.start {
		if !r.index[d] {
			out = append(out, r.stop[d]-r.start[d])
		}
	}
	return out
}
