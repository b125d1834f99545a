package scene

import (
	"fmt"
	"strconv"
)

// ValidationSeverity indicates whether a finding blocks evaluation or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string             // shape path, empty for scene-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Path, e.Message)
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking finding was made.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate checks the scene for problems that would stop it from being
// built, and for settings that make the deformer idle. It never mutates
// the scene.
func Validate(s *Scene) ValidationResult {
	var all []ValidationError
	all = append(all, validateTarget(s)...)
	all = append(all, validateCollider(s)...)
	all = append(all, validateRamp(s)...)

	var res ValidationResult
	for _, e := range all {
		if e.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, e)
		} else {
			res.Errors = append(res.Errors, e)
		}
	}
	return res
}

func validateTarget(s *Scene) []ValidationError {
	if s.Target == nil || s.Target.Shape == nil {
		return []ValidationError{{Message: "scene has no target", Severity: SeverityError}}
	}
	return validateShape("target", s.Target.Shape, true)
}

func validateCollider(s *Scene) []ValidationError {
	if s.Collider == nil {
		return []ValidationError{{
			Message:  "scene has no collider, the target will pass through unchanged",
			Severity: SeverityWarning,
		}}
	}
	errs := validateShape("collider", s.Collider, false)
	switch s.ColliderMode {
	case "", ColliderSDF, ColliderMesh:
	default:
		errs = append(errs, ValidationError{
			Path:     "collider",
			Message:  fmt.Sprintf("unknown collider mode %q, expected sdf or mesh", s.ColliderMode),
			Severity: SeverityError,
		})
	}
	return errs
}

// validateShape checks dimensions and arity. Grids are open surfaces and
// may only appear under transforms at the top of a target tree.
func validateShape(root string, shape *Shape, gridAllowed bool) []ValidationError {
	var errs []ValidationError
	fail := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	// Grids are only legal while every ancestor is a transform.
	openChain := map[*Shape]bool{}
	if gridAllowed {
		openChain[shape] = true
	}

	shape.Walk(root+"/"+shape.Kind.String(), func(path string, n *Shape) bool {
		if n == nil {
			fail(path, "missing shape")
			return false
		}
		if n.Kind.IsTransform() && openChain[n] {
			for _, c := range n.Children {
				openChain[c] = true
			}
		}

		switch n.Kind {
		case ShapeBox:
			if n.Size.X() <= 0 || n.Size.Y() <= 0 || n.Size.Z() <= 0 {
				fail(path, "box size %v must be positive", n.Size)
			}
		case ShapeSphere:
			if n.Radius <= 0 {
				fail(path, "sphere radius %g must be positive", n.Radius)
			}
		case ShapeCylinder:
			if n.Radius <= 0 || n.Height <= 0 {
				fail(path, "cylinder height %g and radius %g must be positive", n.Height, n.Radius)
			}
		case ShapeGrid:
			if !openChain[n] {
				fail(path, "grid is an open surface and can only be a target")
			}
			if n.Size.X() <= 0 || n.Size.Z() <= 0 {
				fail(path, "grid width %g and depth %g must be positive", n.Size.X(), n.Size.Z())
			}
			if n.Cols < 1 || n.Rows < 1 {
				fail(path, "grid needs at least one column and row, got %dx%d", n.Cols, n.Rows)
			}
		case ShapeTranslate, ShapeRotate:
			if len(n.Children) != 1 {
				fail(path, "%s takes exactly one shape, got %d", n.Kind, len(n.Children))
			}
		case ShapeUnion, ShapeDifference, ShapeIntersection:
			if len(n.Children) < 2 {
				fail(path, "%s needs at least two shapes, got %d", n.Kind, len(n.Children))
			}
		default:
			fail(path, "unknown shape kind %d", int(n.Kind))
		}
		return true
	})
	return errs
}

func validateRamp(s *Scene) []ValidationError {
	var warns []ValidationError
	for i, e := range s.Ramp {
		if e.Position < 0 || e.Position > 1 {
			warns = append(warns, ValidationError{
				Path:     "ramp/" + strconv.Itoa(i),
				Message:  fmt.Sprintf("entry position %g outside [0, 1] is only reached by clamping", e.Position),
				Severity: SeverityWarning,
			})
		}
	}
	return warns
}
