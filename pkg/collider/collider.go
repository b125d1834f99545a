// Package collider provides surfaces the deformer can collide against:
// signed distance solids from the geometry kernel and triangle meshes.
// Both answer closest-point and ray-crossing queries in world space.
package collider

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// hitsAlong converts sorted ray parameters into points, merging parameters
// closer than tol (one crossing reported by two faces sharing an edge).
func hitsAlong(origin, dir mgl64.Vec3, ts []float64, tol float64) []mgl64.Vec3 {
	sort.Float64s(ts)
	hits := make([]mgl64.Vec3, 0, len(ts))
	last := 0.0
	for i, t := range ts {
		if i > 0 && t-last <= tol {
			continue
		}
		hits = append(hits, origin.Add(dir.Mul(t)))
		last = t
	}
	return hits
}

// rayBox returns the parameter interval over which origin+t*dir lies in the
// box, clipped to t >= 0.
func rayBox(origin, dir, min, max mgl64.Vec3) (t0, t1 float64, ok bool) {
	t0, t1 = 0, math.Inf(1)
	for k := 0; k < 3; k++ {
		if dir[k] == 0 {
			if origin[k] < min[k] || origin[k] > max[k] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / dir[k]
		a, b := (min[k]-origin[k])*inv, (max[k]-origin[k])*inv
		if a > b {
			a, b = b, a
		}
		if a > t0 {
			t0 = a
		}
		if b < t1 {
			t1 = b
		}
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}
