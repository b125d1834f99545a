package kernel

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
//
// Mesh satisfies deform.Mesh. Adjacency is derived from the triangles the
// first time Neighbors is called; call BuildAdjacency up front before
// sharing a mesh between goroutines.
type Mesh struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float64 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which scene part this came from

	adjacency [][]int
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Position returns vertex i.
func (m *Mesh) Position(i int) mgl64.Vec3 {
	return mgl64.Vec3{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// SetPosition overwrites vertex i.
func (m *Mesh) SetPosition(i int, p mgl64.Vec3) {
	m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2] = p[0], p[1], p[2]
}

// Normal returns the normal of vertex i, or zero when the mesh has none.
func (m *Mesh) Normal(i int) mgl64.Vec3 {
	if 3*i+2 >= len(m.Normals) {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{m.Normals[3*i], m.Normals[3*i+1], m.Normals[3*i+2]}
}

// Triangle returns the corner positions of triangle t.
func (m *Mesh) Triangle(t int) (a, b, c mgl64.Vec3) {
	return m.Position(int(m.Indices[3*t])), m.Position(int(m.Indices[3*t+1])), m.Position(int(m.Indices[3*t+2]))
}

// Neighbors returns the vertices sharing a triangle edge with vertex i.
func (m *Mesh) Neighbors(i int) []int {
	if m.adjacency == nil {
		m.BuildAdjacency()
	}
	if i < 0 || i >= len(m.adjacency) {
		return nil
	}
	return m.adjacency[i]
}

// BuildAdjacency derives the vertex adjacency from the triangles.
func (m *Mesh) BuildAdjacency() {
	sets := make([]map[int]struct{}, m.VertexCount())
	link := func(a, b int) {
		if a == b {
			return
		}
		if sets[a] == nil {
			sets[a] = make(map[int]struct{})
		}
		sets[a][b] = struct{}{}
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := int(m.Indices[3*t]), int(m.Indices[3*t+1]), int(m.Indices[3*t+2])
		link(a, b)
		link(b, a)
		link(b, c)
		link(c, b)
		link(c, a)
		link(a, c)
	}

	m.adjacency = make([][]int, len(sets))
	for i, set := range sets {
		adj := make([]int, 0, len(set))
		for n := range set {
			adj = append(adj, n)
		}
		sort.Ints(adj)
		m.adjacency[i] = adj
	}
}

// ComputeNormals replaces the normals with area-weighted averages of the
// adjacent face normals. Vertices on no triangle get a zero normal.
func (m *Mesh) ComputeNormals() {
	acc := make([]mgl64.Vec3, m.VertexCount())
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		// Unnormalised: length is twice the triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		for k := 0; k < 3; k++ {
			v := m.Indices[3*t+k]
			acc[v] = acc[v].Add(n)
		}
	}

	m.Normals = make([]float64, 0, len(acc)*3)
	for _, n := range acc {
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: append([]float64(nil), m.Vertices...),
		Normals:  append([]float64(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		PartName: m.PartName,
		// Topology is shared; only positions and normals are mutable.
		adjacency: m.adjacency,
	}
	return out
}

// Weld merges vertices closer than tolerance and drops triangles that
// collapse as a result. Marching cubes emits one vertex per triangle corner;
// welding recovers the shared topology the deformer walks. Normals are
// recomputed.
func (m *Mesh) Weld(tolerance float64) *Mesh {
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	type cell [3]int64
	key := func(p mgl64.Vec3) cell {
		return cell{
			int64(math.Round(p[0] / tolerance)),
			int64(math.Round(p[1] / tolerance)),
			int64(math.Round(p[2] / tolerance)),
		}
	}

	out := &Mesh{PartName: m.PartName}
	index := make(map[cell]uint32)
	remap := make([]uint32, m.VertexCount())
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Position(i)
		k := key(p)
		id, ok := index[k]
		if !ok {
			id = uint32(out.VertexCount())
			index[k] = id
			out.Vertices = append(out.Vertices, p[0], p[1], p[2])
		}
		remap[i] = id
	}

	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := remap[m.Indices[3*t]], remap[m.Indices[3*t+1]], remap[m.Indices[3*t+2]]
		if a == b || b == c || c == a {
			continue
		}
		out.Indices = append(out.Indices, a, b, c)
	}

	out.ComputeNormals()
	out.BuildAdjacency()
	return out
}

// Grid returns a flat width×depth grid in the XZ plane centered on the
// origin, with cols×rows quads and +Y normals.
func Grid(width, depth float64, cols, rows int) *Mesh {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	m := &Mesh{PartName: "grid"}
	for r := 0; r <= rows; r++ {
		z := -depth/2 + depth*float64(r)/float64(rows)
		for c := 0; c <= cols; c++ {
			x := -width/2 + width*float64(c)/float64(cols)
			m.Vertices = append(m.Vertices, x, 0, z)
			m.Normals = append(m.Normals, 0, 1, 0)
		}
	}

	at := func(c, r int) uint32 { return uint32(r*(cols+1) + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			// Wound counter-clockwise seen from +Y.
			m.Indices = append(m.Indices,
				at(c, r), at(c, r+1), at(c+1, r),
				at(c+1, r), at(c, r+1), at(c+1, r+1),
			)
		}
	}
	m.BuildAdjacency()
	return m
}
