// Package kernel defines the abstract geometry kernel interface and the
// indexed triangle mesh shared by the rest of the system. Kernel solids
// provide signed distance so they can act as colliders; the mesh is the
// deformable geometry. The kernel abstraction allows swapping backends
// without changing the rest of the system.
package kernel

import "github.com/go-gl/mathgl/mgl64"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max mgl64.Vec3)
	// Distance returns the signed distance from p to the surface,
	// negative inside the solid.
	Distance(p mgl64.Vec3) float64
	// Normal returns the unit distance gradient at p, sampled over a box of
	// side 2*eps. It is zero where the gradient vanishes.
	Normal(p mgl64.Vec3, eps float64) mgl64.Vec3
}

// Kernel is the abstract geometry kernel interface.
// Primitives are centered on the origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output. cells sets the tessellation resolution along the
	// longest bounding box axis; zero selects the kernel default.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
