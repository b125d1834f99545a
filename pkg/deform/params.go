package deform

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrInvalidParams is matched by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid deformer parameters")

// Params are the per-evaluation inputs read from the host.
type Params struct {
	// Envelope blends the whole deformation, in [0, 1].
	Envelope float64
	// BulgeMultiplier scales the outward bulge. Any sign; zero disables it.
	BulgeMultiplier float64
	// Levels bounds how many vertex rings the bulge spreads over.
	Levels int
	// Falloff shapes the bulge per ring. May be nil.
	Falloff Curve
}

// DefaultParams returns full envelope with bulging disabled.
func DefaultParams() Params {
	return Params{Envelope: 1}
}

// Validate reports every out-of-range parameter at once.
func (p Params) Validate() error {
	var violations []error
	if math.IsNaN(p.Envelope) || p.Envelope < 0 || p.Envelope > 1 {
		violations = append(violations, errors.Errorf("envelope %g outside [0, 1]", p.Envelope))
	}
	if math.IsNaN(p.BulgeMultiplier) || math.IsInf(p.BulgeMultiplier, 0) {
		violations = append(violations, errors.Errorf("bulge multiplier %g is not finite", p.BulgeMultiplier))
	}
	if p.Levels < 0 {
		violations = append(violations, errors.Errorf("levels %d is negative", p.Levels))
	}
	if len(violations) == 0 {
		return nil
	}
	return multierr.Combine(append([]error{ErrInvalidParams}, violations...)...)
}
