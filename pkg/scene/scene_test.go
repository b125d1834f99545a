package scene

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/dent/pkg/curve"
)

func TestShapeKindString(t *testing.T) {
	tests := []struct {
		kind ShapeKind
		want string
	}{
		{ShapeBox, "box"},
		{ShapeSphere, "sphere"},
		{ShapeCylinder, "cylinder"},
		{ShapeGrid, "grid"},
		{ShapeTranslate, "translate"},
		{ShapeRotate, "rotate"},
		{ShapeUnion, "union"},
		{ShapeDifference, "difference"},
		{ShapeIntersection, "intersection"},
		{ShapeKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ShapeKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestWalkPaths(t *testing.T) {
	s := Combine(ShapeUnion,
		Sphere(1),
		Translate(Box(1, 1, 1), mgl64.Vec3{1, 0, 0}),
	)

	var paths []string
	s.Walk("", func(path string, _ *Shape) bool {
		paths = append(paths, path)
		return true
	})

	want := []string{
		"union",
		"union/0:sphere",
		"union/1:translate",
		"union/1:translate/0:box",
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths %v, want %v", len(paths), paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	s := Translate(Rotate(Sphere(1), mgl64.Vec3{}), mgl64.Vec3{})
	visited := 0
	s.Walk("", func(_ string, n *Shape) bool {
		visited++
		return n.Kind != ShapeRotate
	})
	if visited != 2 {
		t.Errorf("visited %d nodes, want 2", visited)
	}
}

func TestShapeMatrix(t *testing.T) {
	p := mgl64.Vec3{1, 0, 0}

	moved := mgl64.TransformCoordinate(p, Translate(nil, mgl64.Vec3{0, 2, 0}).Matrix())
	if !near(moved, mgl64.Vec3{1, 2, 0}) {
		t.Errorf("translate: got %v", moved)
	}

	turned := mgl64.TransformCoordinate(p, Rotate(nil, mgl64.Vec3{0, 0, 90}).Matrix())
	if !near(turned, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("rotate: got %v", turned)
	}

	if Sphere(1).Matrix() != mgl64.Ident4() {
		t.Error("primitive matrix should be identity")
	}
}

func TestTargetMatrixRotatesThenTranslates(t *testing.T) {
	tgt := &Target{Position: mgl64.Vec3{0, 0, 5}, Rotation: mgl64.Vec3{0, 0, 90}}
	got := mgl64.TransformCoordinate(mgl64.Vec3{1, 0, 0}, tgt.Matrix())
	if !near(got, mgl64.Vec3{0, 1, 5}) {
		t.Errorf("got %v, want [0 1 5]", got)
	}
}

func TestBulgeShape(t *testing.T) {
	s := New()
	if s.BulgeShape() != nil {
		t.Fatal("scene without entries should have no ramp")
	}

	s.Ramp = []curve.Entry{
		{Position: 1, Value: 0, Interp: curve.Linear},
		{Position: 0, Value: 1, Interp: curve.Linear},
	}
	r := s.BulgeShape()
	if r.Len() != 2 {
		t.Fatalf("ramp has %d entries, want 2", r.Len())
	}
	if v, ok := r.Sample(0.25); !ok || v != 0.75 {
		t.Errorf("Sample(0.25) = %v, %v; want 0.75, true", v, ok)
	}
}

func TestSceneJSON(t *testing.T) {
	s := New()
	s.Target = &Target{Name: "sheet", Shape: Grid(4, 4, 8, 8)}
	s.Collider = Translate(Sphere(1), mgl64.Vec3{0, 0.5, 0})
	s.Attributes["levels"] = 2

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Scene
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Target.Shape.Kind != ShapeGrid || back.Target.Shape.Cols != 8 {
		t.Errorf("target shape did not survive: %+v", back.Target.Shape)
	}
	if back.Collider.Children[0].Radius != 1 {
		t.Errorf("collider did not survive: %+v", back.Collider)
	}
}

// near compares with an absolute tolerance so rotation residues around
// zero still match.
func near(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}
