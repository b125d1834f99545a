package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/curve"
	"github.com/chazu/dent/pkg/scene"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector built by (vec3 ...).
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a shape tree node so shapes can nest.
type sexpShape struct {
	shape *scene.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", s.shape.Kind)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a keyword rewritten by preprocessSource and
// returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A keyword
// directly followed by another keyword, or at the end, is a flag.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i++
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
	}
	return result
}

// colliderMode reads :mode from collider arguments. The value may be a
// string or a keyword; a keyword value parses as a flag of its own, so
// :mode :mesh arrives as two flags.
func colliderMode(pa kwArgs) (scene.ColliderMode, error) {
	v, ok := pa.kw["mode"]
	if !ok {
		return "", nil
	}
	if v != zygo.SexpNull {
		str, err := toKeywordString(v)
		if err != nil {
			return "", errors.Wrap(err, "mode")
		}
		return scene.ParseColliderMode(str)
	}
	var found []scene.ColliderMode
	for _, m := range []scene.ColliderMode{scene.ColliderSDF, scene.ColliderMesh} {
		if _, ok := pa.kw[string(m)]; ok {
			found = append(found, m)
		}
	}
	if len(found) != 1 {
		return "", errors.New("mode expects one of :sdf or :mesh")
	}
	return found[0], nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func describe(s zygo.Sexp) string {
	if s == nil {
		return "nil"
	}
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, errors.Errorf("expected number, got %s", describe(s))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, errors.Errorf("expected integer, got %s", describe(s))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", errors.Errorf("expected string, got %s", describe(s))
}

// toKeywordString accepts both a keyword (:spline) and a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", errors.Errorf("expected keyword or string, got %s", describe(s))
	}
	return str, nil
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, errors.Errorf("expected vec3, got %s", describe(s))
}

func toShape(s zygo.Sexp) (*scene.Shape, error) {
	if v, ok := s.(*sexpShape); ok {
		return v.shape, nil
	}
	return nil, errors.Errorf("expected shape, got %s", describe(s))
}

// floatArg reads a number given either positionally at index i or as the
// keyword kw, falling back to def.
func floatArg(pa kwArgs, i int, kw string, def float64) (float64, error) {
	if v, ok := pa.kw[kw]; ok {
		return toFloat64(v)
	}
	if i < len(pa.positional) {
		return toFloat64(pa.positional[i])
	}
	return def, nil
}

func intArg(pa kwArgs, i int, kw string, def int) (int, error) {
	if v, ok := pa.kw[kw]; ok {
		return toInt(v)
	}
	if i < len(pa.positional) {
		return toInt(pa.positional[i])
	}
	return def, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// Grid resolution used when a script leaves it out.
const defaultGridDivisions = 16

// deformerKeywords maps script keywords to deformer attribute names.
var deformerKeywords = map[string]string{
	"envelope":         "envelope",
	"bulge-multiplier": "bulgeMultiplier",
	"bulge":            "bulgeMultiplier",
	"levels":           "levels",
}

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins into a zygomys environment.
// They populate s while the script runs.
//
// Source must go through preprocessSource first so that :keyword tokens
// are recognisable.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {
	shape := func(sh *scene.Shape) (zygo.Sexp, error) { return &sexpShape{shape: sh}, nil }

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, errors.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "vec3: component %d", i)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (box 2 1 2) or (box :size (vec3 2 1 2))
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["size"]; ok {
			size, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "box: size")
			}
			return shape(scene.Box(size.X(), size.Y(), size.Z()))
		}
		if len(pa.positional) != 3 {
			return zygo.SexpNull, errors.New("box requires three extents or :size")
		}
		var size [3]float64
		for i := range size {
			f, err := toFloat64(pa.positional[i])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "box")
			}
			size[i] = f
		}
		return shape(scene.Box(size[0], size[1], size[2]))
	})

	// (sphere 1) or (sphere :radius 1)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		r, err := floatArg(parseArgs(args), 0, "radius", 1)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "sphere: radius")
		}
		return shape(scene.Sphere(r))
	})

	// (cylinder :height 2 :radius 0.5)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := floatArg(pa, 0, "height", 1)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cylinder: height")
		}
		r, err := floatArg(pa, 1, "radius", 0.5)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cylinder: radius")
		}
		return shape(scene.Cylinder(h, r))
	})

	// (grid :width 4 :depth 4 :cols 32 :rows 32)
	env.AddFunction("grid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		w, err := floatArg(pa, 0, "width", 1)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "grid: width")
		}
		d, err := floatArg(pa, 1, "depth", w)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "grid: depth")
		}
		cols, err := intArg(pa, 2, "cols", defaultGridDivisions)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "grid: cols")
		}
		rows, err := intArg(pa, 3, "rows", cols)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "grid: rows")
		}
		return shape(scene.Grid(w, d, cols, rows))
	})

	// (translate shape :by (vec3 0 1 0)) and (rotate shape :by (vec3 0 0 90))
	transform := func(label string, build func(*scene.Shape, mgl64.Vec3) *scene.Shape) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 1 {
				return zygo.SexpNull, errors.Errorf("%s requires exactly one shape", label)
			}
			child, err := toShape(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, label)
			}
			v, ok := pa.kw["by"]
			if !ok {
				return zygo.SexpNull, errors.Errorf("%s requires :by", label)
			}
			by, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "%s: by", label)
			}
			return shape(build(child, by))
		}
	}
	env.AddFunction("translate", transform("translate", scene.Translate))
	env.AddFunction("rotate", transform("rotate", scene.Rotate))

	// (union a b ...), (difference a b ...), (intersection a b ...)
	boolean := func(kind scene.ShapeKind) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			children := make([]*scene.Shape, 0, len(args))
			for i, a := range args {
				c, err := toShape(a)
				if err != nil {
					return zygo.SexpNull, errors.Wrapf(err, "%s: shape %d", kind, i)
				}
				children = append(children, c)
			}
			return shape(scene.Combine(kind, children...))
		}
	}
	env.AddFunction("union", boolean(scene.ShapeUnion))
	env.AddFunction("difference", boolean(scene.ShapeDifference))
	env.AddFunction("intersection", boolean(scene.ShapeIntersection))

	// (target shape :name "sheet" :at (vec3 0 0 0) :rotate (vec3 0 0 0))
	env.AddFunction("target", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if s.Target != nil {
			return zygo.SexpNull, errors.New("target is already defined")
		}
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, errors.New("target requires exactly one shape")
		}
		sh, err := toShape(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "target")
		}
		t := &scene.Target{Name: "target", Shape: sh}
		if v, ok := pa.kw["name"]; ok {
			if t.Name, err = toString(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "target: name")
			}
		}
		if v, ok := pa.kw["at"]; ok {
			if t.Position, err = toVec3(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "target: at")
			}
		}
		if v, ok := pa.kw["rotate"]; ok {
			if t.Rotation, err = toVec3(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "target: rotate")
			}
		}
		s.Target = t
		return pa.positional[0], nil
	})

	// (collider shape :mode :mesh)
	env.AddFunction("collider", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if s.Collider != nil {
			return zygo.SexpNull, errors.New("collider is already defined")
		}
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, errors.New("collider requires exactly one shape")
		}
		sh, err := toShape(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "collider")
		}
		mode, err := colliderMode(pa)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "collider")
		}
		s.Collider = sh
		s.ColliderMode = mode
		return pa.positional[0], nil
	})

	// (deformer :envelope 1 :bulge-multiplier 0.5 :levels 3)
	env.AddFunction("deformer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, errors.New("deformer takes keyword arguments only")
		}
		for kw, v := range pa.kw {
			attr, ok := deformerKeywords[kw]
			if !ok {
				return zygo.SexpNull, errors.Errorf("deformer: unknown attribute :%s", kw)
			}
			switch n := v.(type) {
			case *zygo.SexpInt:
				s.Attributes[attr] = n.Val
			case *zygo.SexpFloat:
				s.Attributes[attr] = n.Val
			default:
				return zygo.SexpNull, errors.Errorf("deformer: %s: expected number, got %s", kw, describe(v))
			}
		}
		return zygo.SexpNull, nil
	})

	// (ramp-entry 0.5 1.0 :spline)
	env.AddFunction("ramp_entry", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 || len(args) > 3 {
			return zygo.SexpNull, errors.Errorf("ramp-entry requires a position, a value and an optional interpolation, got %d arguments", len(args))
		}
		pos, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "ramp-entry: position")
		}
		val, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "ramp-entry: value")
		}
		kind := curve.Linear
		if len(args) == 3 {
			str, err := toKeywordString(args[2])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "ramp-entry: interpolation")
			}
			if kind, err = curve.ParseInterp(str); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "ramp-entry")
			}
		}
		s.Ramp = append(s.Ramp, curve.Entry{Position: pos, Value: val, Interp: kind})
		return zygo.SexpNull, nil
	})
}
