package deform

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/geom"
)

// BulgeParams configures one bulge propagation.
type BulgeParams struct {
	// Start is the first ring of vertices to push.
	Start []int
	// Visited seeds the set of vertices that must never be pushed.
	Visited []int
	// Curve shapes the bulge per ring. May be nil.
	Curve Curve
	// Levels is the number of rings left to process.
	Levels int
	// MaxLevels normalises Levels when sampling Curve.
	MaxLevels int
	// Multiplier scales every offset.
	Multiplier float64
}

// PropagateBulge pushes rings of vertices outward along their normals,
// breadth first from p.Start, for at most p.Levels rings.
//
// Each offset is capped at the nearest collider hit along its direction so a
// bulged vertex never crosses the collider. A vertex is pushed at most once.
// The sizes of the processed rings are returned in order.
func PropagateBulge(buf *Buffer, c Collider, xf geom.Transform, p BulgeParams) ([]int, error) {
	maxLevels := p.MaxLevels
	if maxLevels < p.Levels {
		maxLevels = p.Levels
	}

	visited := toSet(p.Visited)
	layer := subtract(inRange(p.Start, buf.Len()), visited)

	var sizes []int
	for levels := p.Levels; levels > 0 && len(layer) > 0; levels-- {
		amount := bulgeAmount(p.Curve, levels, maxLevels)
		candidates := make(map[int]struct{})

		for _, i := range layer {
			if err := bulgeVertex(buf, c, xf, i, p.Multiplier*amount); err != nil {
				return sizes, err
			}
			for _, n := range buf.Neighbors(i) {
				candidates[n] = struct{}{}
			}
		}

		sizes = append(sizes, len(layer))
		for _, i := range layer {
			visited[i] = struct{}{}
		}
		layer = subtract(keys(candidates), visited)
	}

	return sizes, nil
}

// bulgeVertex moves vertex i by scale along its normal, capped by the collider.
func bulgeVertex(buf *Buffer, c Collider, xf geom.Transform, i int, scale float64) error {
	local := buf.Position(i)
	offset := buf.Normal(i).Mul(scale)
	worldOffset := xf.VectorToWorld(offset)
	if geom.IsZero(worldOffset) || !geom.IsFinite(worldOffset) {
		return nil
	}

	world := xf.PointToWorld(local)
	// The ray follows the signed offset, so a negative scale clamps on the
	// side the vertex moves toward.
	hits, err := c.Intersections(world, worldOffset)
	if err != nil {
		return errors.Wrapf(err, "bulge: vertex %d", i)
	}
	if len(hits) > 0 {
		diff := hits[0].Sub(world)
		if diff.Len() < worldOffset.Len() {
			offset = xf.VectorToLocal(diff)
		}
	}

	buf.SetPosition(i, local.Add(offset))
	return nil
}

// bulgeAmount samples the falloff for the ring at levels. A missing curve, a
// missing sample, or a zero or non-finite value falls back to
// levels²/maxLevels.
func bulgeAmount(curve Curve, levels, maxLevels int) float64 {
	if curve != nil {
		v, ok := curve.Sample(float64(levels) / float64(maxLevels))
		if ok && v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return float64(levels*levels) / float64(maxLevels)
}

// inRange drops indices outside [0, n).
func inRange(idx []int, n int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	return out
}

// subtract returns the distinct members of idx not in drop, sorted.
func subtract(idx []int, drop map[int]struct{}) []int {
	seen := make(map[int]struct{}, len(idx))
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if _, ok := drop[i]; ok {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func keys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// toSet builds a lookup set from idx.
func toSet(idx []int) map[int]struct{} {
	set := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		set[i] = struct{}{}
	}
	return set
}
