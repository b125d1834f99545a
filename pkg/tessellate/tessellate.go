// Package tessellate turns scene shape trees into geometry: the deformable
// target mesh and the solid the collider queries. It is read-only and never
// mutates the scene.
package tessellate

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/collider"
	"github.com/chazu/dent/pkg/kernel"
	"github.com/chazu/dent/pkg/scene"
)

// transformStack accumulates translate and rotate nodes while walking a
// target tree.
type transformStack struct {
	mats []mgl64.Mat4
}

func (ts *transformStack) push(m mgl64.Mat4) {
	ts.mats = append(ts.mats, m)
}

func (ts *transformStack) pop() {
	if len(ts.mats) > 0 {
		ts.mats = ts.mats[:len(ts.mats)-1]
	}
}

// top returns the composed transform, outermost node first.
func (ts *transformStack) top() mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, t := range ts.mats {
		m = m.Mul4(t)
	}
	return m
}

// Target builds the deformable mesh for a target shape, in the target's
// local space. Solid trees are tessellated at the given resolution; grids
// are generated directly. The mesh carries normals and adjacency.
func Target(sh *scene.Shape, k kernel.Kernel, cells int) (*kernel.Mesh, error) {
	if sh == nil {
		return nil, errors.New("tessellate: no target shape")
	}
	var ts transformStack
	m, err := walkTarget(sh, k, cells, &ts)
	if err != nil {
		return nil, errors.Wrap(err, "tessellate: target")
	}
	return m, nil
}

func walkTarget(sh *scene.Shape, k kernel.Kernel, cells int, ts *transformStack) (*kernel.Mesh, error) {
	switch sh.Kind {
	case scene.ShapeTranslate, scene.ShapeRotate:
		child, err := only(sh)
		if err != nil {
			return nil, err
		}
		ts.push(sh.Matrix())
		defer ts.pop()
		return walkTarget(child, k, cells, ts)

	case scene.ShapeGrid:
		m := kernel.Grid(sh.Size.X(), sh.Size.Z(), sh.Cols, sh.Rows)
		transformMesh(m, ts.top())
		return m, nil
	}

	solid, err := Solid(sh, k)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(solid, cells)
	if err != nil {
		return nil, err
	}
	m.PartName = sh.Kind.String()
	transformMesh(m, ts.top())
	return m, nil
}

// transformMesh applies a rigid transform to positions and normals in
// place. Topology is unchanged so adjacency stays valid.
func transformMesh(m *kernel.Mesh, mat mgl64.Mat4) {
	if mat == mgl64.Ident4() {
		return
	}
	for i := 0; i < m.VertexCount(); i++ {
		m.SetPosition(i, mgl64.TransformCoordinate(m.Position(i), mat))
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := mgl64.TransformNormal(mgl64.Vec3{m.Normals[i], m.Normals[i+1], m.Normals[i+2]}, mat)
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		m.Normals[i], m.Normals[i+1], m.Normals[i+2] = n[0], n[1], n[2]
	}
}

// Solid builds a kernel solid from a closed shape tree. Grids are open
// surfaces and are rejected.
func Solid(sh *scene.Shape, k kernel.Kernel) (kernel.Solid, error) {
	if sh == nil {
		return nil, errors.New("missing shape")
	}
	switch sh.Kind {
	case scene.ShapeBox:
		return k.Box(sh.Size.X(), sh.Size.Y(), sh.Size.Z())
	case scene.ShapeSphere:
		return k.Sphere(sh.Radius)
	case scene.ShapeCylinder:
		return k.Cylinder(sh.Height, sh.Radius)

	case scene.ShapeTranslate, scene.ShapeRotate:
		child, err := only(sh)
		if err != nil {
			return nil, err
		}
		s, err := Solid(child, k)
		if err != nil {
			return nil, err
		}
		o := sh.Offset
		if sh.Kind == scene.ShapeTranslate {
			return k.Translate(s, o.X(), o.Y(), o.Z()), nil
		}
		return k.Rotate(s, o.X(), o.Y(), o.Z()), nil

	case scene.ShapeUnion, scene.ShapeDifference, scene.ShapeIntersection:
		if len(sh.Children) < 2 {
			return nil, errors.Errorf("%s needs at least two shapes, got %d", sh.Kind, len(sh.Children))
		}
		acc, err := Solid(sh.Children[0], k)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: shape 0", sh.Kind)
		}
		for i, c := range sh.Children[1:] {
			s, err := Solid(c, k)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: shape %d", sh.Kind, i+1)
			}
			switch sh.Kind {
			case scene.ShapeUnion:
				acc = k.Union(acc, s)
			case scene.ShapeDifference:
				acc = k.Difference(acc, s)
			default:
				acc = k.Intersection(acc, s)
			}
		}
		return acc, nil

	case scene.ShapeGrid:
		return nil, errors.New("grid is an open surface and has no solid")
	}
	return nil, errors.Errorf("unknown shape kind %d", int(sh.Kind))
}

// Collider builds the collider queried by the deformer.
func Collider(sh *scene.Shape, k kernel.Kernel) (*collider.SDF, error) {
	s, err := Solid(sh, k)
	if err != nil {
		return nil, errors.Wrap(err, "tessellate: collider")
	}
	return collider.NewSDF(s), nil
}

// ColliderMesh tessellates the collider for display.
func ColliderMesh(c *collider.SDF, k kernel.Kernel, cells int) (*kernel.Mesh, error) {
	m, err := k.ToMesh(c.Solid(), cells)
	if err != nil {
		return nil, errors.Wrap(err, "tessellate: collider mesh")
	}
	m.PartName = "collider"
	return m, nil
}

func only(sh *scene.Shape) (*scene.Shape, error) {
	if len(sh.Children) != 1 || sh.Children[0] == nil {
		return nil, errors.Errorf("%s takes exactly one shape", sh.Kind)
	}
	return sh.Children[0], nil
}
