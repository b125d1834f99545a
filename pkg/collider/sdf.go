package collider

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/dent/pkg/kernel"
)

const (
	maxMarchSteps     = 1 << 15
	bisectIterations  = 48
	projectIterations = 4
)

// SDF is a collider backed by a signed distance solid.
//
// Closest points come from projecting along the solid's normal. Ray
// crossings are found by sphere tracing inside the solid's bounding box and
// refining every sign change by bisection; features thinner than the
// minimum march step can be missed.
type SDF struct {
	solid    kernel.Solid
	min, max mgl64.Vec3
	gradStep float64
	minStep  float64
}

// NewSDF wraps a kernel solid.
func NewSDF(s kernel.Solid) *SDF {
	min, max := s.BoundingBox()
	diag := max.Sub(min).Len()
	if diag == 0 || math.IsInf(diag, 0) || math.IsNaN(diag) {
		diag = 1
	}
	pad := mgl64.Vec3{1, 1, 1}.Mul(diag * 1e-3)
	return &SDF{
		solid:    s,
		min:      min.Sub(pad),
		max:      max.Add(pad),
		gradStep: diag * 1e-6,
		minStep:  diag * 1e-4,
	}
}

// Solid returns the wrapped solid.
func (c *SDF) Solid() kernel.Solid { return c.solid }

// ClosestPoint projects p onto the surface along the solid's normal.
// Where the normal vanishes (the medial axis) p is returned with a zero
// normal.
func (c *SDF) ClosestPoint(p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, error) {
	q := p
	for i := 0; i < projectIterations; i++ {
		n := c.solid.Normal(q, c.gradStep)
		if n.Len() == 0 {
			return p, mgl64.Vec3{}, nil
		}
		q = q.Sub(n.Mul(c.solid.Distance(q)))
	}
	n := c.solid.Normal(q, c.gradStep)
	if n.Len() == 0 {
		return q, mgl64.Vec3{}, nil
	}
	return q, n.Normalize(), nil
}

// Intersections returns the surface crossings along the ray, nearest first.
func (c *SDF) Intersections(origin, dir mgl64.Vec3) ([]mgl64.Vec3, error) {
	if dir.Len() == 0 {
		return nil, nil
	}
	u := dir.Normalize()
	t, tEnd, ok := rayBox(origin, u, c.min, c.max)
	if !ok {
		return nil, nil
	}

	var ts []float64
	d := c.solid.Distance(origin.Add(u.Mul(t)))
	for steps := 0; t < tEnd && steps < maxMarchSteps; steps++ {
		next := t + math.Max(math.Abs(d), c.minStep)
		if next > tEnd {
			next = tEnd
		}
		dn := c.solid.Distance(origin.Add(u.Mul(next)))
		if (d < 0) != (dn < 0) {
			ts = append(ts, c.bisect(origin, u, t, next, d < 0))
		}
		t, d = next, dn
	}
	return hitsAlong(origin, u, ts, c.minStep), nil
}

// bisect narrows a sign change of the distance between ray parameters lo
// and hi. startInside is the side lo lies on.
func (c *SDF) bisect(origin, u mgl64.Vec3, lo, hi float64, startInside bool) float64 {
	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		if (c.solid.Distance(origin.Add(u.Mul(mid))) < 0) == startInside {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
