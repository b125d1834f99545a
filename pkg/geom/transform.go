// Package geom holds the small amount of linear algebra shared by the
// deformer core and its collaborators: a local-to-world transform that
// carries its own inverse, and a few vector helpers on top of mgl64.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ErrSingularTransform is returned when a local-to-world matrix cannot be
// inverted.
var ErrSingularTransform = errors.New("geom: transform is not invertible")

// singularEpsilon is the smallest determinant magnitude accepted as invertible.
const singularEpsilon = 1e-12

// Transform maps between a mesh's local space and world space.
// The zero value is not usable; build one with NewTransform or Identity.
type Transform struct {
	toWorld mgl64.Mat4
	toLocal mgl64.Mat4
}

// NewTransform validates m and precomputes its inverse.
func NewTransform(m mgl64.Mat4) (Transform, error) {
	det := m.Det()
	if math.IsNaN(det) || math.IsInf(det, 0) || math.Abs(det) < singularEpsilon {
		return Transform{}, errors.Wrapf(ErrSingularTransform, "determinant %g", det)
	}
	return Transform{toWorld: m, toLocal: m.Inv()}, nil
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{toWorld: mgl64.Ident4(), toLocal: mgl64.Ident4()}
}

// Matrix returns the local-to-world matrix.
func (t Transform) Matrix() mgl64.Mat4 { return t.toWorld }

// Inverse returns the world-to-local matrix.
func (t Transform) Inverse() mgl64.Mat4 { return t.toLocal }

// PointToWorld transforms a local position to world space.
func (t Transform) PointToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, t.toWorld)
}

// PointToLocal transforms a world position to local space.
func (t Transform) PointToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, t.toLocal)
}

// VectorToWorld transforms a local direction or offset to world space.
// Translation is ignored.
func (t Transform) VectorToWorld(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, t.toWorld)
}

// VectorToLocal transforms a world direction or offset to local space.
func (t Transform) VectorToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, t.toLocal)
}
