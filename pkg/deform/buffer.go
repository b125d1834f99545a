package deform

import "github.com/go-gl/mathgl/mgl64"

// Buffer is the working copy of a mesh's positions for one evaluation.
// Passes write here; nothing reaches the mesh until Publish.
type Buffer struct {
	mesh      Mesh
	positions []mgl64.Vec3
	normals   []mgl64.Vec3
}

// NewBuffer snapshots the positions and normals of m.
func NewBuffer(m Mesh) *Buffer {
	n := m.VertexCount()
	b := &Buffer{
		mesh:      m,
		positions: make([]mgl64.Vec3, n),
		normals:   make([]mgl64.Vec3, n),
	}
	for i := 0; i < n; i++ {
		b.positions[i] = m.Position(i)
		b.normals[i] = m.Normal(i)
	}
	return b
}

// Len returns the number of vertices.
func (b *Buffer) Len() int { return len(b.positions) }

// Position returns the working local position of vertex i.
func (b *Buffer) Position(i int) mgl64.Vec3 { return b.positions[i] }

// SetPosition overwrites the working local position of vertex i.
func (b *Buffer) SetPosition(i int, p mgl64.Vec3) { b.positions[i] = p }

// Normal returns the input normal of vertex i.
func (b *Buffer) Normal(i int) mgl64.Vec3 { return b.normals[i] }

// Neighbors returns the in-range neighbours of vertex i.
func (b *Buffer) Neighbors(i int) []int {
	raw := b.mesh.Neighbors(i)
	out := make([]int, 0, len(raw))
	for _, n := range raw {
		if n >= 0 && n < len(b.positions) && n != i {
			out = append(out, n)
		}
	}
	return out
}

// Positions returns a copy of the working positions.
func (b *Buffer) Positions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(b.positions))
	copy(out, b.positions)
	return out
}

// Publish writes the working positions back to the mesh.
func (b *Buffer) Publish() {
	for i, p := range b.positions {
		b.mesh.SetPosition(i, p)
	}
}
