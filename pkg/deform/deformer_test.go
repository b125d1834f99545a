package deform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/chazu/dent/pkg/geom"
)

func newTestDeformer(t *testing.T) *Deformer {
	return New(zaptest.NewLogger(t))
}

func TestEvaluateLineScenario(t *testing.T) {
	m := lineMesh()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{
		Envelope:        1,
		BulgeMultiplier: 1,
		Levels:          2,
		Falloff:         missingCurve{},
	})
	test.That(t, err, test.ShouldBeNil)

	// Vertex 2 sits on the collider boundary and is never bulged.
	vecShouldAlmostEqual(t, m.positions[2], mgl64.Vec3{2, 0.25, 0})
	// First ring: 2²/2 = 2 along +Y.
	vecShouldAlmostEqual(t, m.positions[1], mgl64.Vec3{1, 2, 0})
	vecShouldAlmostEqual(t, m.positions[3], mgl64.Vec3{3, 2, 0})
	// Second ring: 1²/2 = 0.5.
	vecShouldAlmostEqual(t, m.positions[0], mgl64.Vec3{0, 0.5, 0})
	vecShouldAlmostEqual(t, m.positions[4], mgl64.Vec3{4, 0.5, 0})
}

func TestEvaluateZeroEnvelopeIsNoop(t *testing.T) {
	m := lineMesh()
	before := m.snapshot()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{
		Envelope:        0,
		BulgeMultiplier: 3,
		Levels:          2,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.positions, test.ShouldResemble, before)
}

func TestEvaluateZeroLevelsSkipsBulge(t *testing.T) {
	m := lineMesh()
	buf := NewBuffer(lineMesh())
	_, err := ContactPass(buf, lineCollider, geom.Identity(), 1)
	test.That(t, err, test.ShouldBeNil)

	err = newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{
		Envelope:        1,
		BulgeMultiplier: 5,
		Levels:          0,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.positions, test.ShouldResemble, buf.Positions())
}

func TestEvaluateZeroMultiplierSkipsBulge(t *testing.T) {
	curve := &recordingCurve{value: 1}
	m := lineMesh()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{
		Envelope: 1,
		Levels:   3,
		Falloff:  curve,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, curve.positions, test.ShouldBeEmpty)
	vecShouldAlmostEqual(t, m.positions[1], mgl64.Vec3{1, 0, 0})
}

func TestEvaluateBulgeScaledByEnvelope(t *testing.T) {
	m := lineMesh()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{
		Envelope:        0.5,
		BulgeMultiplier: 2,
		Levels:          1,
		Falloff:         constCurve(0.4),
	})
	test.That(t, err, test.ShouldBeNil)
	vecShouldAlmostEqual(t, m.positions[1], mgl64.Vec3{1, 0.4, 0})
	vecShouldAlmostEqual(t, m.positions[2], mgl64.Vec3{2, 0.375, 0})
	vecShouldAlmostEqual(t, m.positions[0], mgl64.Vec3{0, 0, 0})
}

func TestEvaluateFullyEnclosedRestoresInput(t *testing.T) {
	m := lineMesh()
	before := m.snapshot()
	enclosing := boxCollider{min: mgl64.Vec3{-1, -1, -1}, max: mgl64.Vec3{5, 3, 1}}

	err := newTestDeformer(t).Evaluate(m, enclosing, mgl64.Ident4(), Params{
		Envelope:        1,
		BulgeMultiplier: 1,
		Levels:          2,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.positions, test.ShouldResemble, before)
	test.That(t, m.writes, test.ShouldEqual, 0)
}

func TestEvaluateIdleStates(t *testing.T) {
	d := newTestDeformer(t)
	p := Params{Envelope: 1, BulgeMultiplier: 1, Levels: 2}

	t.Run("no collider", func(t *testing.T) {
		m := lineMesh()
		before := m.snapshot()
		test.That(t, d.Evaluate(m, nil, mgl64.Ident4(), p), test.ShouldBeNil)
		test.That(t, m.positions, test.ShouldResemble, before)
	})
	t.Run("empty mesh", func(t *testing.T) {
		test.That(t, d.Evaluate(&fakeMesh{}, lineCollider, mgl64.Ident4(), p), test.ShouldBeNil)
	})
	t.Run("unreadable collider", func(t *testing.T) {
		m := lineMesh()
		before := m.snapshot()
		test.That(t, d.Evaluate(m, failingCollider{}, mgl64.Ident4(), p), test.ShouldBeNil)
		test.That(t, m.positions, test.ShouldResemble, before)
		test.That(t, m.writes, test.ShouldEqual, 0)
	})
}

func TestEvaluateSingularTransform(t *testing.T) {
	m := lineMesh()
	before := m.snapshot()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Scale3D(1, 1, 0), DefaultParams())
	test.That(t, errors.Is(err, geom.ErrSingularTransform), test.ShouldBeTrue)
	test.That(t, m.positions, test.ShouldResemble, before)
}

func TestEvaluateInvalidParams(t *testing.T) {
	m := lineMesh()
	err := newTestDeformer(t).Evaluate(m, lineCollider, mgl64.Ident4(), Params{Envelope: 2, Levels: -1})
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "envelope")
	test.That(t, err.Error(), test.ShouldContainSubstring, "levels")
	test.That(t, m.writes, test.ShouldEqual, 0)
}

func TestEvaluateNilLogger(t *testing.T) {
	m := lineMesh()
	test.That(t, New(nil).Evaluate(m, lineCollider, mgl64.Ident4(), DefaultParams()), test.ShouldBeNil)
	vecShouldAlmostEqual(t, m.positions[2], mgl64.Vec3{2, 0.25, 0})
}
