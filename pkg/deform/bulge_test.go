package deform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/chazu/dent/pkg/geom"
)

// farCollider never lies on any test vertex's path.
var farCollider = boxCollider{min: mgl64.Vec3{100, 100, 100}, max: mgl64.Vec3{101, 101, 101}}

func TestBulgeAmountFallback(t *testing.T) {
	test.That(t, bulgeAmount(nil, 2, 2), test.ShouldEqual, 2.0)
	test.That(t, bulgeAmount(nil, 1, 2), test.ShouldEqual, 0.5)
	test.That(t, bulgeAmount(missingCurve{}, 3, 4), test.ShouldEqual, 9.0/4)
	test.That(t, bulgeAmount(constCurve(0), 1, 2), test.ShouldEqual, 0.5)
	test.That(t, bulgeAmount(constCurve(math.NaN()), 1, 2), test.ShouldEqual, 0.5)
	test.That(t, bulgeAmount(constCurve(0.3), 1, 2), test.ShouldEqual, 0.3)
}

func TestBulgeSamplesCurveAtNormalisedLevel(t *testing.T) {
	curve := &recordingCurve{value: 0.1}
	m := lineMesh()
	_, err := PropagateBulge(NewBuffer(m), farCollider, geom.Identity(), BulgeParams{
		Start:      []int{1, 3},
		Visited:    []int{2},
		Curve:      curve,
		Levels:     2,
		MaxLevels:  2,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	// One sample per ring.
	test.That(t, curve.positions, test.ShouldResemble, []float64{1, 0.5})
}

func TestBulgeIgnoresUnknownStart(t *testing.T) {
	m := lineMesh()
	buf := NewBuffer(m)
	sizes, err := PropagateBulge(buf, farCollider, geom.Identity(), BulgeParams{
		Start:      []int{-1, 99, 1},
		Levels:     1,
		MaxLevels:  1,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sizes, test.ShouldResemble, []int{1})
	vecShouldAlmostEqual(t, buf.Position(1), m.Position(1).Add(mgl64.Vec3{0, 1, 0}))
	for _, i := range []int{0, 2, 3, 4} {
		vecShouldAlmostEqual(t, buf.Position(i), m.Position(i))
	}
}

func TestBulgeLayers(t *testing.T) {
	m := lineMesh()
	buf := NewBuffer(m)
	sizes, err := PropagateBulge(buf, farCollider, geom.Identity(), BulgeParams{
		Start:      []int{1, 3},
		Visited:    []int{2},
		Levels:     2,
		MaxLevels:  2,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sizes, test.ShouldResemble, []int{2, 2})

	vecShouldAlmostEqual(t, buf.Position(0), mgl64.Vec3{0, 0.5, 0})
	vecShouldAlmostEqual(t, buf.Position(1), mgl64.Vec3{1, 2, 0})
	vecShouldAlmostEqual(t, buf.Position(2), mgl64.Vec3{2, 0.5, 0})
	vecShouldAlmostEqual(t, buf.Position(3), mgl64.Vec3{3, 2, 0})
	vecShouldAlmostEqual(t, buf.Position(4), mgl64.Vec3{4, 0.5, 0})
}

func TestBulgeClampedByCollider(t *testing.T) {
	// A slab 0.3 above vertex 1 caps its unit bulge.
	slab := boxCollider{min: mgl64.Vec3{0.5, 0.3, -1}, max: mgl64.Vec3{1.5, 5, 1}}
	buf := NewBuffer(lineMesh())
	before := buf.Position(1)

	_, err := PropagateBulge(buf, slab, geom.Identity(), BulgeParams{
		Start:      []int{1},
		Levels:     1,
		MaxLevels:  1,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)

	moved := buf.Position(1).Sub(before)
	test.That(t, moved.Len(), test.ShouldBeLessThanOrEqualTo, 0.3+1e-9)
	vecShouldAlmostEqual(t, buf.Position(1), mgl64.Vec3{1, 0.3, 0})
}

func TestBulgeClampInWorldUnits(t *testing.T) {
	// Scaling local space by 4 makes a local offset of 1 four world units; the
	// slab at world distance 2 must still cap it.
	xf, err := geom.NewTransform(mgl64.Scale3D(4, 4, 4))
	test.That(t, err, test.ShouldBeNil)
	slab := boxCollider{min: mgl64.Vec3{2, 2, -4}, max: mgl64.Vec3{6, 20, 4}}

	buf := NewBuffer(lineMesh())
	_, err = PropagateBulge(buf, slab, xf, BulgeParams{
		Start:      []int{1},
		Levels:     1,
		MaxLevels:  1,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	vecShouldAlmostEqual(t, buf.Position(1), mgl64.Vec3{1, 0.5, 0})
}

func TestBulgeNegativeMultiplierClampsBelow(t *testing.T) {
	slab := boxCollider{min: mgl64.Vec3{0.5, -5, -1}, max: mgl64.Vec3{1.5, -0.2, 1}}
	buf := NewBuffer(lineMesh())
	_, err := PropagateBulge(buf, slab, geom.Identity(), BulgeParams{
		Start:      []int{1},
		Levels:     1,
		MaxLevels:  1,
		Multiplier: -1,
	})
	test.That(t, err, test.ShouldBeNil)
	vecShouldAlmostEqual(t, buf.Position(1), mgl64.Vec3{1, -0.2, 0})
}

func TestBulgeVisitsRingOnce(t *testing.T) {
	const n = 12
	m := ringMesh(n)
	buf := NewBuffer(m)

	sizes, err := PropagateBulge(buf, farCollider, geom.Identity(), BulgeParams{
		Start:      []int{1, n - 1},
		Visited:    []int{0},
		Levels:     50,
		MaxLevels:  50,
		Multiplier: 0.01,
	})
	test.That(t, err, test.ShouldBeNil)

	total := 0
	for _, s := range sizes {
		total += s
	}
	test.That(t, total, test.ShouldBeLessThanOrEqualTo, n)
	test.That(t, total, test.ShouldEqual, n-1)
	test.That(t, sizes, test.ShouldResemble, []int{2, 2, 2, 2, 2, 1})

	// The seed vertex is never pushed; every other vertex is pushed exactly
	// once, by its own ring's amount.
	test.That(t, buf.Position(0), test.ShouldResemble, m.positions[0])
	for ring := 0; ring < len(sizes); ring++ {
		levels := 50 - ring
		want := 0.01 * float64(levels*levels) / 50
		test.That(t, buf.Position(ring+1)[1], test.ShouldAlmostEqual, want, 1e-9)
		test.That(t, buf.Position(n-1-ring)[1], test.ShouldAlmostEqual, want, 1e-9)
	}
}

func TestBulgeStopsAtLevels(t *testing.T) {
	sizes, err := PropagateBulge(NewBuffer(ringMesh(20)), farCollider, geom.Identity(), BulgeParams{
		Start:      []int{1},
		Visited:    []int{0},
		Levels:     3,
		MaxLevels:  3,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sizes, test.ShouldResemble, []int{1, 1, 1})
}

func TestBulgeIgnoresOutOfRangeNeighbors(t *testing.T) {
	m := lineMesh()
	m.adjacency[1] = []int{0, 2, 99, -1, 1}
	sizes, err := PropagateBulge(NewBuffer(m), farCollider, geom.Identity(), BulgeParams{
		Start:      []int{1},
		Visited:    []int{2},
		Levels:     2,
		MaxLevels:  2,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sizes, test.ShouldResemble, []int{1, 1})
}

func TestBulgeQueryFailure(t *testing.T) {
	_, err := PropagateBulge(NewBuffer(lineMesh()), failingCollider{}, geom.Identity(), BulgeParams{
		Start:      []int{1},
		Levels:     1,
		MaxLevels:  1,
		Multiplier: 1,
	})
	test.That(t, err, test.ShouldNotBeNil)
}
