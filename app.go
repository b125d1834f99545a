package main

import (
	"math"

	"go.uber.org/zap"

	"github.com/chazu/dent/pkg/collider"
	"github.com/chazu/dent/pkg/engine"
	"github.com/chazu/dent/pkg/host"
	"github.com/chazu/dent/pkg/kernel"
	"github.com/chazu/dent/pkg/kernel/sdfx"
	"github.com/chazu/dent/pkg/scene"
	"github.com/chazu/dent/pkg/tessellate"
)

// colorPalette assigns display colors by role: target first, collider second.
var colorPalette = []string{"#4A90D9", "#E67E22"}

// defaultColliderCells is the marching cubes resolution of the collider
// preview mesh.
const defaultColliderCells = 48

// App runs the scene pipeline: script, scene, meshes, deformer.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	node   *host.Node
	logger *zap.Logger

	// Overrides are applied on top of the attributes the script sets.
	Overrides host.AttributeMap
	// Cells is the tessellation resolution of solid targets; zero selects
	// the kernel default.
	Cells int
	// MeshCollider queries the tessellated collider surface even when the
	// scene asks for the distance field.
	MeshCollider bool
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices  []float64 `json:"vertices"`
	Normals   []float64 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	PartName  string    `json:"partName"`
	Color     string    `json:"color"`
	Displaced int       `json:"displaced,omitempty"`
}

// EvalErrorData is a JSON-serializable pipeline error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Version  uint64          `json:"version"`
}

// NewApp creates an App backed by the sdfx kernel. A nil logger discards
// all output.
func NewApp(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		engine: engine.NewEngine(logger.Named("engine")),
		kernel: sdfx.New(),
		node:   host.NewNode(logger.Named("deformer")),
		logger: logger,
	}
}

// Evaluate takes scene source and returns the deformed target and the
// collider as meshes, plus any errors.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	fail := func(msg string, err error) EvalResult {
		a.logger.Warn(msg, zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: msg + ": " + err.Error()})
		return result
	}

	// Step 1: run the script.
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Warn("evaluate fatal error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	result.Version = s.Version

	// An empty script describes nothing to show.
	if s.Target == nil && s.Collider == nil {
		return result
	}

	// Step 2: validate the scene.
	vr := scene.Validate(s)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Path: w.Path, Message: w.Message})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Path: e.Path, Message: e.Message})
		}
		return result
	}

	// Step 3: build the target mesh and the collider.
	mesh, err := tessellate.Target(s.Target.Shape, a.kernel, a.Cells)
	if err != nil {
		return fail("tessellation failed", err)
	}
	mesh.PartName = s.Target.Name

	var preview *kernel.Mesh
	if s.Collider != nil {
		c, err := tessellate.Collider(s.Collider, a.kernel)
		if err != nil {
			return fail("collider failed", err)
		}
		if preview, err = tessellate.ColliderMesh(c, a.kernel, defaultColliderCells); err != nil {
			return fail("collider tessellation failed", err)
		}
		if a.MeshCollider || s.ColliderMode == scene.ColliderMesh {
			tm, err := collider.NewTriMesh(preview)
			if err != nil {
				return fail("mesh collider failed", err)
			}
			a.node.BindCollider(tm)
		} else {
			a.node.BindCollider(c)
		}
	} else {
		a.node.UnbindCollider()
	}

	// Step 4: configure and run the deformer node. Attributes the script
	// leaves out revert to their defaults.
	attrs := host.DefaultAttributes()
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	for k, v := range a.Overrides {
		attrs[k] = v
	}
	if err := a.node.SetAttrs(attrs); err != nil {
		return fail("deformer attributes", err)
	}
	a.node.SetRamp(s.BulgeShape())

	deformed, err := a.node.Compute(mesh, s.Target.Matrix())
	if err != nil {
		return fail("deformer failed", err)
	}

	// Step 5: report world-space geometry.
	out := toWorld(deformed, s.Target)
	result.Meshes = append(result.Meshes, meshData(out, colorPalette[0], displaced(mesh, deformed)))
	if preview != nil {
		result.Meshes = append(result.Meshes, meshData(preview, colorPalette[1], 0))
	}
	a.logger.Debug("evaluated scene",
		zap.Uint64("version", s.Version),
		zap.Int("vertices", deformed.VertexCount()),
		zap.Int("displaced", result.Meshes[0].Displaced))
	return result
}

// toWorld returns a copy of m placed by the target matrix, with
// normals recomputed from the deformed triangles.
func toWorld(m *kernel.Mesh, t *scene.Target) *kernel.Mesh {
	out := m.Clone()
	mat := t.Matrix()
	for i := 0; i < out.VertexCount(); i++ {
		out.SetPosition(i, mat.Mul4x1(out.Position(i).Vec4(1)).Vec3())
	}
	out.ComputeNormals()
	return out
}

func displaced(before, after *kernel.Mesh) int {
	const eps = 1e-12
	n := 0
	for i := 0; i < before.VertexCount(); i++ {
		d := after.Position(i).Sub(before.Position(i))
		if math.Abs(d.X()) > eps || math.Abs(d.Y()) > eps || math.Abs(d.Z()) > eps {
			n++
		}
	}
	return n
}

func meshData(m *kernel.Mesh, color string, moved int) MeshData {
	return MeshData{
		Vertices:  m.Vertices,
		Normals:   m.Normals,
		Indices:   m.Indices,
		PartName:  m.PartName,
		Color:     color,
		Displaced: moved,
	}
}
