package deform

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"
)

// ---------------------------------------------------------------------------
// In-memory mesh
// ---------------------------------------------------------------------------

type fakeMesh struct {
	positions []mgl64.Vec3
	normals   []mgl64.Vec3
	adjacency [][]int
	writes    int
}

func (m *fakeMesh) VertexCount() int                 { return len(m.positions) }
func (m *fakeMesh) Position(i int) mgl64.Vec3        { return m.positions[i] }
func (m *fakeMesh) Normal(i int) mgl64.Vec3          { return m.normals[i] }
func (m *fakeMesh) Neighbors(i int) []int            { return m.adjacency[i] }
func (m *fakeMesh) SetPosition(i int, p mgl64.Vec3) { m.positions[i] = p; m.writes++ }

func (m *fakeMesh) snapshot() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(m.positions))
	copy(out, m.positions)
	return out
}

// lineMesh returns five vertices along X with +Y normals, each connected to
// its immediate neighbours. Vertex 2 is lifted to y=0.5.
func lineMesh() *fakeMesh {
	m := &fakeMesh{}
	for i := 0; i < 5; i++ {
		m.positions = append(m.positions, mgl64.Vec3{float64(i), 0, 0})
		m.normals = append(m.normals, mgl64.Vec3{0, 1, 0})
		var adj []int
		if i > 0 {
			adj = append(adj, i-1)
		}
		if i < 4 {
			adj = append(adj, i+1)
		}
		m.adjacency = append(m.adjacency, adj)
	}
	m.positions[2] = mgl64.Vec3{2, 0.5, 0}
	return m
}

// ringMesh returns n vertices on a circle in the XZ plane, each connected to
// both neighbours, with +Y normals.
func ringMesh(n int) *fakeMesh {
	m := &fakeMesh{}
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		m.positions = append(m.positions, mgl64.Vec3{math.Cos(a), 0, math.Sin(a)})
		m.normals = append(m.normals, mgl64.Vec3{0, 1, 0})
		m.adjacency = append(m.adjacency, []int{(i + n - 1) % n, (i + 1) % n})
	}
	return m
}

// ---------------------------------------------------------------------------
// Axis-aligned box collider with exact queries
// ---------------------------------------------------------------------------

type boxCollider struct {
	min, max mgl64.Vec3
}

func (b boxCollider) contains(p mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if p[k] < b.min[k] || p[k] > b.max[k] {
			return false
		}
	}
	return true
}

func (b boxCollider) ClosestPoint(p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, error) {
	if !b.contains(p) {
		q := p
		for k := 0; k < 3; k++ {
			q[k] = math.Max(b.min[k], math.Min(b.max[k], p[k]))
		}
		return q, p.Sub(q).Normalize(), nil
	}
	best := math.Inf(1)
	var q, n mgl64.Vec3
	for k := 0; k < 3; k++ {
		if d := p[k] - b.min[k]; d < best {
			best, q, n = d, p, mgl64.Vec3{}
			q[k], n[k] = b.min[k], -1
		}
		if d := b.max[k] - p[k]; d < best {
			best, q, n = d, p, mgl64.Vec3{}
			q[k], n[k] = b.max[k], 1
		}
	}
	return q, n, nil
}

func (b boxCollider) Intersections(o, d mgl64.Vec3) ([]mgl64.Vec3, error) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for k := 0; k < 3; k++ {
		if math.Abs(d[k]) < 1e-15 {
			if o[k] < b.min[k] || o[k] > b.max[k] {
				return nil, nil
			}
			continue
		}
		t1 := (b.min[k] - o[k]) / d[k]
		t2 := (b.max[k] - o[k]) / d[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	if tmin > tmax {
		return nil, nil
	}
	var ts []float64
	for _, t := range []float64{tmin, tmax} {
		if t > 1e-12 {
			ts = append(ts, t)
		}
	}
	if len(ts) == 2 && ts[1]-ts[0] < 1e-12 {
		ts = ts[:1]
	}
	sort.Float64s(ts)
	hits := make([]mgl64.Vec3, 0, len(ts))
	for _, t := range ts {
		hits = append(hits, o.Add(d.Mul(t)))
	}
	return hits, nil
}

// translated shifts a box by v.
func (b boxCollider) translated(v mgl64.Vec3) boxCollider {
	return boxCollider{min: b.min.Add(v), max: b.max.Add(v)}
}

// failingCollider cannot be queried.
type failingCollider struct{}

var errNoSurface = errors.New("surface data unreadable")

func (failingCollider) ClosestPoint(mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, error) {
	return mgl64.Vec3{}, mgl64.Vec3{}, errNoSurface
}

func (failingCollider) Intersections(mgl64.Vec3, mgl64.Vec3) ([]mgl64.Vec3, error) {
	return nil, errNoSurface
}

// ---------------------------------------------------------------------------
// Curves
// ---------------------------------------------------------------------------

type constCurve float64

func (c constCurve) Sample(float64) (float64, bool) { return float64(c), true }

type missingCurve struct{}

func (missingCurve) Sample(float64) (float64, bool) { return 0, false }

type recordingCurve struct {
	positions []float64
	value     float64
}

func (c *recordingCurve) Sample(pos float64) (float64, bool) {
	c.positions = append(c.positions, pos)
	return c.value, true
}

// ---------------------------------------------------------------------------
// Assertions
// ---------------------------------------------------------------------------

func vecShouldAlmostEqual(t *testing.T, got, want mgl64.Vec3) {
	t.Helper()
	for k := 0; k < 3; k++ {
		test.That(t, got[k], test.ShouldAlmostEqual, want[k], 1e-9)
	}
}

// lineCollider overlaps only vertex 2 of lineMesh.
var lineCollider = boxCollider{min: mgl64.Vec3{1.5, 0.25, -1}, max: mgl64.Vec3{2.5, 10, 1}}
