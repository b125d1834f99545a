// Package curve provides the user-authored falloff ramp that shapes the
// bulge around a contact region.
package curve

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// Interp selects how a ramp segment blends from its left entry to the next.
type Interp int

const (
	None   Interp = iota // hold the left value
	Linear               // straight line
	Smooth               // smoothstep ease in and out
	Spline               // natural cubic through every entry
)

func (i Interp) String() string {
	switch i {
	case None:
		return "none"
	case Linear:
		return "linear"
	case Smooth:
		return "smooth"
	case Spline:
		return "spline"
	default:
		return "unknown"
	}
}

// ParseInterp converts a name such as "spline" to an Interp.
func ParseInterp(s string) (Interp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "step":
		return None, nil
	case "linear":
		return Linear, nil
	case "smooth":
		return Smooth, nil
	case "spline":
		return Spline, nil
	}
	return None, errors.Errorf("unknown interpolation %q, expected none, linear, smooth or spline", s)
}

// Entry is one control point of a ramp.
type Entry struct {
	Position float64 `json:"position"`
	Value    float64 `json:"value"`
	Interp   Interp  `json:"interp"`
}

// Ramp is a piecewise 1-D curve over [0, 1] defined by sorted entries.
// A Ramp is safe for concurrent Sample calls once built.
type Ramp struct {
	entries []Entry
	spline  interp.Predictor
}

// NewRamp returns a ramp holding the given entries in position order.
func NewRamp(entries ...Entry) *Ramp {
	r := &Ramp{entries: append([]Entry(nil), entries...)}
	r.rebuild()
	return r
}

// DefaultBulgeShape returns the flat zero ramp a new deformer starts with.
func DefaultBulgeShape() *Ramp {
	return NewRamp(
		Entry{Position: 0, Value: 0, Interp: Spline},
		Entry{Position: 1, Value: 0, Interp: Spline},
	)
}

// Add inserts an entry.
func (r *Ramp) Add(e Entry) {
	r.entries = append(r.entries, e)
	r.rebuild()
}

// Entries returns a copy of the entries in position order.
func (r *Ramp) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Ramp) Len() int { return len(r.entries) }

// Sample returns the ramp value at pos. Positions before the first entry or
// after the last take that entry's value. An empty ramp or a NaN position
// has no value.
func (r *Ramp) Sample(pos float64) (float64, bool) {
	n := len(r.entries)
	if n == 0 || math.IsNaN(pos) {
		return 0, false
	}
	if pos <= r.entries[0].Position {
		return r.entries[0].Value, true
	}
	if pos >= r.entries[n-1].Position {
		return r.entries[n-1].Value, true
	}

	// First entry strictly right of pos; the segment starts one before it.
	j := sort.Search(n, func(k int) bool { return r.entries[k].Position > pos })
	a, b := r.entries[j-1], r.entries[j]
	span := b.Position - a.Position
	if span <= 0 {
		return b.Value, true
	}
	t := (pos - a.Position) / span

	switch a.Interp {
	case None:
		return a.Value, true
	case Smooth:
		t = t * t * (3 - 2*t)
		return a.Value + (b.Value-a.Value)*t, true
	case Spline:
		if r.spline != nil {
			return r.spline.Predict(pos), true
		}
	}
	return a.Value + (b.Value-a.Value)*t, true
}

// rebuild sorts the entries and refits the spline through them.
func (r *Ramp) rebuild() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Position < r.entries[j].Position
	})

	// Coincident positions keep the last value; fitters need strictly
	// increasing abscissae.
	var xs, ys []float64
	for _, e := range r.entries {
		if k := len(xs); k > 0 && e.Position == xs[k-1] {
			ys[k-1] = e.Value
			continue
		}
		xs = append(xs, e.Position)
		ys = append(ys, e.Value)
	}

	r.spline = nil
	switch {
	case len(xs) >= 3:
		var nc interp.NaturalCubic
		if err := nc.Fit(xs, ys); err == nil {
			r.spline = &nc
		}
	case len(xs) == 2:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err == nil {
			r.spline = &pl
		}
	}
}
