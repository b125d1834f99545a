package deform

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/dent/pkg/geom"
)

// Deformer sequences the contact pass and the bulge propagation.
// It holds no state between evaluations; callers must not evaluate the same
// mesh from two goroutines at once.
type Deformer struct {
	logger *zap.Logger
}

// New returns a Deformer. A nil logger discards output.
func New(logger *zap.Logger) *Deformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deformer{logger: logger}
}

// Evaluate deforms m against collider using the local-to-world matrix.
//
// Invalid parameters and a singular matrix are returned as errors and leave
// m untouched. A nil collider, an empty mesh, a collider that cannot be
// queried, and a mesh fully enclosed by the collider all leave m untouched
// without error. Otherwise every new position is written to m once the whole
// evaluation has completed.
func (d *Deformer) Evaluate(m Mesh, collider Collider, matrix mgl64.Mat4, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	xf, err := geom.NewTransform(matrix)
	if err != nil {
		return errors.Wrap(err, "deform")
	}
	if collider == nil || m == nil {
		d.logger.Debug("no collider bound, skipping")
		return nil
	}

	buf := NewBuffer(m)
	if buf.Len() == 0 {
		return nil
	}

	res, err := ContactPass(buf, collider, xf, p.Envelope)
	if err != nil {
		d.logger.Warn("collider unavailable, leaving mesh unchanged", zap.Error(err))
		return nil
	}
	if res.FullyEnclosed {
		d.logger.Debug("mesh fully enclosed by collider, restoring input", zap.Int("vertices", buf.Len()))
		return nil
	}

	var layers []int
	if p.Levels > 0 && p.BulgeMultiplier != 0 {
		layers, err = PropagateBulge(buf, collider, xf, BulgeParams{
			Start:      subtract(res.Neighbors, toSet(res.Intersecting)),
			Visited:    res.Intersecting,
			Curve:      p.Falloff,
			Levels:     p.Levels,
			MaxLevels:  p.Levels,
			Multiplier: p.BulgeMultiplier * p.Envelope,
		})
		if err != nil {
			d.logger.Warn("collider unavailable, leaving mesh unchanged", zap.Error(err))
			return nil
		}
	}

	buf.Publish()
	d.logger.Debug("deformed mesh",
		zap.Int("vertices", buf.Len()),
		zap.Int("intersecting", len(res.Intersecting)),
		zap.Ints("layers", layers),
	)
	return nil
}
