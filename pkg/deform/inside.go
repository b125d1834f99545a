package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/geom"
)

// InsideTest reports whether point lies inside the collider and, if so,
// returns the nearest exit point along a direction derived from probe.
//
// The search direction is probe biased toward the collider's surface normal
// at the closest point. When the two are exactly opposed the probe is used
// alone. Inside-ness is
// decided by the parity of the crossings, so the collider must be closed and
// free of self-intersections.
func InsideTest(point, probe mgl64.Vec3, c Collider) (mgl64.Vec3, bool, error) {
	_, normal, err := c.ClosestPoint(point)
	if err != nil {
		return mgl64.Vec3{}, false, errors.Wrap(err, "closest point query")
	}

	search := probe
	if angle := geom.Angle(probe, normal); angle < math.Pi && angle > -math.Pi {
		search = probe.Add(normal)
	}
	// Near-opposed vectors cancel to noise.
	if search.Len() < 1e-6*probe.Len() {
		search = probe
	}

	hits, err := c.Intersections(point, search)
	if err != nil {
		return mgl64.Vec3{}, false, errors.Wrap(err, "intersection query")
	}
	if len(hits)%2 == 1 {
		return hits[0], true, nil
	}
	return mgl64.Vec3{}, false, nil
}
