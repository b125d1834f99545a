package collider

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/kernel"
)

// ErrEmptyMesh is returned when building a collider from a mesh without
// triangles.
var ErrEmptyMesh = errors.New("collider: mesh has no triangles")

const (
	leafTriangles = 4
	maxBVHDepth   = 24
)

type triangle struct {
	a, b, c mgl64.Vec3
	normal  mgl64.Vec3
}

func (t *triangle) centroid() mgl64.Vec3 {
	return t.a.Add(t.b).Add(t.c).Mul(1.0 / 3)
}

type aabb struct {
	min, max mgl64.Vec3
}

// distSq is the squared distance from p to the box, zero inside.
func (b aabb) distSq(p mgl64.Vec3) float64 {
	var d float64
	for k := 0; k < 3; k++ {
		switch {
		case p[k] < b.min[k]:
			d += (b.min[k] - p[k]) * (b.min[k] - p[k])
		case p[k] > b.max[k]:
			d += (p[k] - b.max[k]) * (p[k] - b.max[k])
		}
	}
	return d
}

type bvhNode struct {
	bounds      aabb
	left, right *bvhNode
	tris        []int
}

// TriMesh is a collider over a closed triangle mesh in world space.
type TriMesh struct {
	tris []triangle
	root *bvhNode
	tol  float64
}

// NewTriMesh builds a collider from the triangles of m. Degenerate
// triangles are dropped.
func NewTriMesh(m *kernel.Mesh) (*TriMesh, error) {
	if m == nil || m.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}
	c := &TriMesh{tris: make([]triangle, 0, m.TriangleCount())}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, cc := m.Triangle(t)
		n := b.Sub(a).Cross(cc.Sub(a))
		if n.Len() == 0 {
			continue
		}
		c.tris = append(c.tris, triangle{a: a, b: b, c: cc, normal: n.Normalize()})
	}
	if len(c.tris) == 0 {
		return nil, ErrEmptyMesh
	}

	indices := make([]int, len(c.tris))
	for i := range indices {
		indices[i] = i
	}
	c.root = c.build(indices, 0)
	c.tol = c.root.bounds.max.Sub(c.root.bounds.min).Len() * 1e-9
	return c, nil
}

// TriangleCount returns the number of triangles in the collider.
func (c *TriMesh) TriangleCount() int { return len(c.tris) }

func (c *TriMesh) build(indices []int, depth int) *bvhNode {
	node := &bvhNode{bounds: c.bounds(indices)}
	if len(indices) <= leafTriangles || depth > maxBVHDepth {
		node.tris = indices
		return node
	}

	size := node.bounds.max.Sub(node.bounds.min)
	axis := 0
	if size[1] > size[axis] {
		axis = 1
	}
	if size[2] > size[axis] {
		axis = 2
	}

	mid := c.partition(indices, axis)
	if mid == 0 || mid == len(indices) {
		node.tris = indices
		return node
	}
	node.left = c.build(indices[:mid], depth+1)
	node.right = c.build(indices[mid:], depth+1)
	return node
}

func (c *TriMesh) bounds(indices []int) aabb {
	inf := math.Inf(1)
	b := aabb{min: mgl64.Vec3{inf, inf, inf}, max: mgl64.Vec3{-inf, -inf, -inf}}
	for _, i := range indices {
		t := &c.tris[i]
		for _, v := range [3]mgl64.Vec3{t.a, t.b, t.c} {
			for k := 0; k < 3; k++ {
				b.min[k] = math.Min(b.min[k], v[k])
				b.max[k] = math.Max(b.max[k], v[k])
			}
		}
	}
	return b
}

// partition splits indices around the mean centroid on axis.
func (c *TriMesh) partition(indices []int, axis int) int {
	var center float64
	for _, i := range indices {
		center += c.tris[i].centroid()[axis]
	}
	center /= float64(len(indices))

	left, right := 0, len(indices)-1
	for left <= right {
		if c.tris[indices[left]].centroid()[axis] < center {
			left++
		} else {
			indices[left], indices[right] = indices[right], indices[left]
			right--
		}
	}
	return left
}

// ClosestPoint returns the nearest point on the mesh and the face normal of
// the triangle it lies on.
func (c *TriMesh) ClosestPoint(p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, error) {
	best := math.Inf(1)
	var point, normal mgl64.Vec3

	stack := []*bvhNode{c.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.bounds.distSq(p) > best {
			continue
		}
		if node.tris != nil {
			for _, i := range node.tris {
				t := &c.tris[i]
				q := closestPointOnTriangle(p, t.a, t.b, t.c)
				if d := q.Sub(p).LenSqr(); d < best {
					best, point, normal = d, q, t.normal
				}
			}
			continue
		}
		// Visit the nearer child first.
		near, far := node.left, node.right
		if far.bounds.distSq(p) < near.bounds.distSq(p) {
			near, far = far, near
		}
		stack = append(stack, far, near)
	}
	return point, normal, nil
}

// Intersections returns every crossing of the ray with the mesh, nearest
// first. A crossing through an edge shared by two triangles is reported
// once.
func (c *TriMesh) Intersections(origin, dir mgl64.Vec3) ([]mgl64.Vec3, error) {
	if dir.Len() == 0 {
		return nil, nil
	}
	u := dir.Normalize()

	var ts []float64
	stack := []*bvhNode{c.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, _, ok := rayBox(origin, u, node.bounds.min, node.bounds.max); !ok {
			continue
		}
		if node.tris != nil {
			for _, i := range node.tris {
				if t, ok := rayTriangle(origin, u, &c.tris[i]); ok && t > c.tol {
					ts = append(ts, t)
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
	return hitsAlong(origin, u, ts, c.tol*10), nil
}

// rayTriangle is the Möller-Trumbore test, accepting both windings.
func rayTriangle(origin, dir mgl64.Vec3, t *triangle) (float64, bool) {
	e1 := t.b.Sub(t.a)
	e2 := t.c.Sub(t.a)
	h := dir.Cross(e2)
	det := e1.Dot(h)
	if math.Abs(det) < 1e-14 {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(t.a)
	u := s.Dot(h) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return e2.Dot(q) * inv, true
}

func closestPointOnTriangle(p, a, b, c mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	return a.Add(ab.Mul(vb * denom)).Add(ac.Mul(vc * denom))
}
