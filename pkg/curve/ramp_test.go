package curve

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDefaultBulgeShapeIsFlat(t *testing.T) {
	r := DefaultBulgeShape()
	test.That(t, r.Len(), test.ShouldEqual, 2)
	for _, pos := range []float64{0, 0.25, 0.5, 1} {
		v, ok := r.Sample(pos)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, v, test.ShouldAlmostEqual, 0)
	}
}

func TestEmptyRampUnavailable(t *testing.T) {
	_, ok := NewRamp().Sample(0.5)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSampleNaNUnavailable(t *testing.T) {
	_, ok := DefaultBulgeShape().Sample(math.NaN())
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSegmentInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		interp Interp
		pos    float64
		want   float64
	}{
		{"none holds left", None, 0.75, 0},
		{"linear midpoint", Linear, 0.5, 0.5},
		{"linear quarter", Linear, 0.25, 0.25},
		{"smooth midpoint", Smooth, 0.5, 0.5},
		{"smooth quarter", Smooth, 0.25, 0.15625},
		{"spline of two is linear", Spline, 0.25, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRamp(
				Entry{Position: 0, Value: 0, Interp: tt.interp},
				Entry{Position: 1, Value: 1, Interp: tt.interp},
			)
			v, ok := r.Sample(tt.pos)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, v, test.ShouldAlmostEqual, tt.want, 1e-12)
		})
	}
}

func TestClampsOutsideEntries(t *testing.T) {
	r := NewRamp(
		Entry{Position: 0.2, Value: 3, Interp: Linear},
		Entry{Position: 0.8, Value: 5, Interp: Linear},
	)
	v, _ := r.Sample(0)
	test.That(t, v, test.ShouldEqual, 3.0)
	v, _ = r.Sample(1)
	test.That(t, v, test.ShouldEqual, 5.0)
}

func TestEntriesSortedOnAdd(t *testing.T) {
	r := NewRamp(Entry{Position: 1, Value: 2, Interp: Linear})
	r.Add(Entry{Position: 0, Value: 0, Interp: Linear})
	r.Add(Entry{Position: 0.5, Value: 4, Interp: Linear})

	entries := r.Entries()
	test.That(t, entries[0].Position, test.ShouldEqual, 0.0)
	test.That(t, entries[1].Position, test.ShouldEqual, 0.5)
	test.That(t, entries[2].Position, test.ShouldEqual, 1.0)

	v, _ := r.Sample(0.75)
	test.That(t, v, test.ShouldAlmostEqual, 3)
}

func TestSplinePassesThroughEntries(t *testing.T) {
	r := NewRamp(
		Entry{Position: 0, Value: 0, Interp: Spline},
		Entry{Position: 0.5, Value: 1, Interp: Spline},
		Entry{Position: 1, Value: 0, Interp: Spline},
	)
	for _, e := range r.Entries() {
		v, ok := r.Sample(e.Position)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, v, test.ShouldAlmostEqual, e.Value, 1e-9)
	}
	// Symmetric data gives a symmetric curve that bows above the chords.
	a, _ := r.Sample(0.25)
	b, _ := r.Sample(0.75)
	test.That(t, a, test.ShouldAlmostEqual, b, 1e-9)
	test.That(t, a, test.ShouldBeGreaterThan, 0.5)
}

func TestParseInterp(t *testing.T) {
	for name, want := range map[string]Interp{"none": None, "Linear": Linear, " smooth ": Smooth, "spline": Spline, "step": None} {
		got, err := ParseInterp(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}
	_, err := ParseInterp("bezier")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, Spline.String(), test.ShouldEqual, "spline")
}
