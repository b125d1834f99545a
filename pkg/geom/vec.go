package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// IsZero reports whether v is shorter than Epsilon.
func IsZero(v mgl64.Vec3) bool {
	return v.Len() < Epsilon
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Angle returns the unsigned angle in radians between a and b.
// Zero-length inputs yield 0.
func Angle(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	return math.Acos(mgl64.Clamp(c, -1, 1))
}

// Min returns the component-wise minimum of a and b.
func Min(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

// Max returns the component-wise maximum of a and b.
func Max(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

// EulerDegrees returns the rotation applying x, then y, then z degrees about
// the corresponding axes.
func EulerDegrees(x, y, z float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DZ(mgl64.DegToRad(z)).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(y))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(x)))
}
