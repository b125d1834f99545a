package deform

import (
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/geom"
)

// ContactResult is the outcome of a contact pass.
type ContactResult struct {
	// Intersecting lists the vertices that were dented, in index order.
	Intersecting []int
	// Neighbors lists the topological neighbours of every dented vertex.
	// It may contain duplicates and dented vertices.
	Neighbors []int
	// FullyEnclosed is set when every vertex registered a contact.
	FullyEnclosed bool
}

// ContactPass dents every vertex of buf that lies inside the collider.
//
// Each vertex is probed along its inverted world normal; the mesh and the
// collider are expected to face each other. A penetrating vertex moves
// toward its contact point by the envelope fraction of the distance.
// A vertex with no usable normal counts as a miss.
func ContactPass(buf *Buffer, c Collider, xf geom.Transform, envelope float64) (ContactResult, error) {
	res := ContactResult{FullyEnclosed: buf.Len() > 0}

	for i := 0; i < buf.Len(); i++ {
		local := buf.Position(i)
		world := xf.PointToWorld(local)
		probe := xf.VectorToWorld(buf.Normal(i)).Mul(-1)
		if geom.IsZero(probe) || !geom.IsFinite(probe) {
			res.FullyEnclosed = false
			continue
		}

		contact, ok, err := InsideTest(world, probe, c)
		if err != nil {
			return ContactResult{}, errors.Wrapf(err, "contact pass: vertex %d", i)
		}
		if !ok {
			res.FullyEnclosed = false
			continue
		}

		offset := contact.Sub(world).Mul(envelope)
		buf.SetPosition(i, local.Add(xf.VectorToLocal(offset)))
		res.Intersecting = append(res.Intersecting, i)
		res.Neighbors = append(res.Neighbors, buf.Neighbors(i)...)
	}

	return res, nil
}
