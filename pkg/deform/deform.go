// Package deform implements collision denting and bulging for a deformable
// surface mesh.
//
// An evaluation pulls vertices that have been pushed inside a collider back
// onto its boundary, then pushes the rings of vertices around the contact
// region outward in decaying layers. The package owns no geometry: it works
// through the Mesh, Collider and Curve capabilities supplied by the caller.
package deform

import "github.com/go-gl/mathgl/mgl64"

// Mesh is the read/write view of the deformable geometry.
// Positions are in local space; normals are in the same local space.
type Mesh interface {
	VertexCount() int
	Position(i int) mgl64.Vec3
	Normal(i int) mgl64.Vec3
	// Neighbors returns the indices topologically connected to vertex i.
	Neighbors(i int) []int
	SetPosition(i int, p mgl64.Vec3)
}

// Collider is a closed surface queried in world space.
//
// Queries that legitimately find nothing return empty results, not errors.
// A non-nil error means the surface itself could not be queried.
type Collider interface {
	// ClosestPoint returns the point on the surface nearest to p and the
	// outward surface normal there.
	ClosestPoint(p mgl64.Vec3) (point, normal mgl64.Vec3, err error)
	// Intersections returns every surface crossing of the ray starting at
	// origin along dir, ordered by increasing distance from origin.
	Intersections(origin, dir mgl64.Vec3) ([]mgl64.Vec3, error)
}

// Curve is a 1-D falloff function over [0, 1].
type Curve interface {
	// Sample returns the curve value at pos, or false when no value is
	// available.
	Sample(pos float64) (float64, bool)
}
