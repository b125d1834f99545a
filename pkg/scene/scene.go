// Package scene defines the data produced by evaluating a scene script: the
// deformable target shape, the collider shape, and the deformer settings.
// A scene is never mutated after evaluation; each evaluation produces a new
// one.
package scene

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/curve"
	"github.com/chazu/dent/pkg/geom"
)

// ShapeKind enumerates the nodes of a shape tree.
type ShapeKind int

const (
	ShapeBox          ShapeKind = iota // axis-aligned box centered on the origin
	ShapeSphere                        // sphere centered on the origin
	ShapeCylinder                      // cylinder along Z centered on the origin
	ShapeGrid                          // open plane in XZ, target only
	ShapeTranslate                     // moves its child
	ShapeRotate                        // rotates its child, Euler degrees
	ShapeUnion                         // union of all children
	ShapeDifference                    // first child minus the rest
	ShapeIntersection                  // intersection of all children
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	case ShapeGrid:
		return "grid"
	case ShapeTranslate:
		return "translate"
	case ShapeRotate:
		return "rotate"
	case ShapeUnion:
		return "union"
	case ShapeDifference:
		return "difference"
	case ShapeIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// IsBoolean reports whether the kind combines several children.
func (k ShapeKind) IsBoolean() bool {
	return k == ShapeUnion || k == ShapeDifference || k == ShapeIntersection
}

// IsTransform reports whether the kind wraps exactly one child.
func (k ShapeKind) IsTransform() bool {
	return k == ShapeTranslate || k == ShapeRotate
}

// Shape is one node of a shape tree. Which fields are meaningful depends on
// Kind.
type Shape struct {
	Kind ShapeKind `json:"kind"`

	Size   mgl64.Vec3 `json:"size"`             // box extents; grid width and depth in X and Z
	Radius float64    `json:"radius,omitempty"` // sphere, cylinder
	Height float64    `json:"height,omitempty"` // cylinder
	Cols   int        `json:"cols,omitempty"`   // grid
	Rows   int        `json:"rows,omitempty"`   // grid

	Offset mgl64.Vec3 `json:"offset"` // translation, or rotation in degrees

	Children []*Shape `json:"children,omitempty"`
}

// Box returns a box shape.
func Box(x, y, z float64) *Shape {
	return &Shape{Kind: ShapeBox, Size: mgl64.Vec3{x, y, z}}
}

// Sphere returns a sphere shape.
func Sphere(radius float64) *Shape {
	return &Shape{Kind: ShapeSphere, Radius: radius}
}

// Cylinder returns a cylinder shape.
func Cylinder(height, radius float64) *Shape {
	return &Shape{Kind: ShapeCylinder, Height: height, Radius: radius}
}

// Grid returns a width×depth plane with cols×rows quads.
func Grid(width, depth float64, cols, rows int) *Shape {
	return &Shape{Kind: ShapeGrid, Size: mgl64.Vec3{width, 0, depth}, Cols: cols, Rows: rows}
}

// Translate wraps child in a translation.
func Translate(child *Shape, by mgl64.Vec3) *Shape {
	return &Shape{Kind: ShapeTranslate, Offset: by, Children: []*Shape{child}}
}

// Rotate wraps child in a rotation given as Euler degrees.
func Rotate(child *Shape, degrees mgl64.Vec3) *Shape {
	return &Shape{Kind: ShapeRotate, Offset: degrees, Children: []*Shape{child}}
}

// Combine builds a boolean node over children.
func Combine(kind ShapeKind, children ...*Shape) *Shape {
	return &Shape{Kind: kind, Children: children}
}

// Matrix returns the local transform of a translate or rotate node and the
// identity for every other kind.
func (s *Shape) Matrix() mgl64.Mat4 {
	switch s.Kind {
	case ShapeTranslate:
		return mgl64.Translate3D(s.Offset.X(), s.Offset.Y(), s.Offset.Z())
	case ShapeRotate:
		return geom.EulerDegrees(s.Offset.X(), s.Offset.Y(), s.Offset.Z())
	}
	return mgl64.Ident4()
}

// Walk visits s and its descendants depth first. fn receives the slash
// separated path of each node; returning false skips the node's children.
func (s *Shape) Walk(path string, fn func(path string, s *Shape) bool) {
	if s == nil {
		return
	}
	if path == "" {
		path = s.Kind.String()
	}
	if !fn(path, s) {
		return
	}
	for i, c := range s.Children {
		if c == nil {
			fn(childPath(path, i, nil), nil)
			continue
		}
		c.Walk(childPath(path, i, c), fn)
	}
}

func childPath(parent string, i int, c *Shape) string {
	name := "nil"
	if c != nil {
		name = c.Kind.String()
	}
	return parent + "/" + strconv.Itoa(i) + ":" + name
}

// Target is the deformable object and its placement in world space.
type Target struct {
	Name     string     `json:"name"`
	Shape    *Shape     `json:"shape"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"` // Euler degrees
}

// Matrix returns the local-to-world matrix of the target.
func (t *Target) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(geom.EulerDegrees(t.Rotation.X(), t.Rotation.Y(), t.Rotation.Z()))
}

// ColliderMode selects how the deformer queries the collider.
type ColliderMode string

const (
	// ColliderSDF queries the solid's distance field. It is the default.
	ColliderSDF ColliderMode = "sdf"
	// ColliderMesh queries the tessellated collider surface.
	ColliderMesh ColliderMode = "mesh"
)

// ParseColliderMode converts a name such as "mesh" to a ColliderMode.
func ParseColliderMode(s string) (ColliderMode, error) {
	switch m := ColliderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColliderSDF, ColliderMesh:
		return m, nil
	}
	return "", errors.Errorf("unknown collider mode %q, expected sdf or mesh", s)
}

// Scene is the result of evaluating a scene script.
type Scene struct {
	Target   *Target `json:"target,omitempty"`
	Collider *Shape  `json:"collider,omitempty"`
	// ColliderMode is empty for the default distance field queries.
	ColliderMode ColliderMode   `json:"colliderMode,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Ramp         []curve.Entry  `json:"ramp,omitempty"`
	Version      uint64         `json:"version"`
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{Attributes: make(map[string]any)}
}

// BulgeShape returns the scene's falloff ramp, or nil when the script did
// not define one.
func (s *Scene) BulgeShape() *curve.Ramp {
	if len(s.Ramp) == 0 {
		return nil
	}
	return curve.NewRamp(s.Ramp...)
}
