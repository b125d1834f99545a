// Package host stands in for the node framework a deformer runs inside:
// it owns the attribute values, the collider connection and the falloff
// ramp, and caches the deformed output until something it depends on
// changes.
package host

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/dent/pkg/curve"
	"github.com/chazu/dent/pkg/deform"
	"github.com/chazu/dent/pkg/kernel"
)

// Node is a collision deformer node. All methods are safe for concurrent
// use; evaluations are serialised.
type Node struct {
	mu       sync.Mutex
	logger   *zap.Logger
	deformer *deform.Deformer

	attrs    AttributeMap
	ramp     *curve.Ramp
	collider deform.Collider

	dirty     bool
	inputGen  uint64
	lastInput *kernel.Mesh
	lastGen   uint64
	lastXform mgl64.Mat4
	output    *kernel.Mesh
	computes  int
}

// NewNode creates a node with default attributes, the default bulge shape
// and no collider.
func NewNode(logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{
		logger:   logger,
		deformer: deform.New(logger),
		attrs:    DefaultAttributes(),
		ramp:     curve.DefaultBulgeShape(),
		dirty:    true,
	}
}

// SetAttr sets one attribute. The value is rejected, and the previous
// value kept, if the resulting attribute set does not decode.
func (n *Node) SetAttr(name string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := n.attrs.clone()
	next[name] = value
	if _, err := next.Decode(); err != nil {
		return errors.Wrapf(err, "setting %q", name)
	}
	n.attrs = next
	n.dirty = true
	return nil
}

// SetAttrs applies several attributes at once, all or nothing.
func (n *Node) SetAttrs(values AttributeMap) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := n.attrs.clone()
	for k, v := range values {
		next[k] = v
	}
	if _, err := next.Decode(); err != nil {
		return err
	}
	n.attrs = next
	n.dirty = true
	return nil
}

// Attr returns the raw value of an attribute.
func (n *Node) Attr(name string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.attrs[name]
	return v, ok
}

// Params returns the decoded deformer parameters, including the ramp.
func (n *Node) Params() (deform.Params, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params()
}

func (n *Node) params() (deform.Params, error) {
	p, err := n.attrs.Decode()
	if err != nil {
		return deform.Params{}, err
	}
	if n.ramp != nil {
		p.Falloff = n.ramp
	}
	return p, nil
}

// SetRamp replaces the bulge shape with a copy of r; later edits to r do
// not reach the node. A nil ramp falls back to the built-in quadratic
// falloff.
func (n *Node) SetRamp(r *curve.Ramp) {
	var own *curve.Ramp
	if r != nil {
		own = curve.NewRamp(r.Entries()...)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ramp = own
	n.dirty = true
}

// AddRampEntry inserts one entry into the bulge shape, creating the ramp if
// the node has none.
func (n *Node) AddRampEntry(e curve.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ramp == nil {
		n.ramp = curve.NewRamp(e)
	} else {
		n.ramp = curve.NewRamp(append(n.ramp.Entries(), e)...)
	}
	n.dirty = true
}

// Ramp returns a copy of the bulge shape, or nil when the node uses the
// built-in falloff.
func (n *Node) Ramp() *curve.Ramp {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ramp == nil {
		return nil
	}
	return curve.NewRamp(n.ramp.Entries()...)
}

// BindCollider connects the collider surface.
func (n *Node) BindCollider(c deform.Collider) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.collider = c
	n.dirty = true
}

// UnbindCollider disconnects the collider; later evaluations pass the
// input through.
func (n *Node) UnbindCollider() {
	n.BindCollider(nil)
}

// InputChanged marks the input geometry as modified in place.
func (n *Node) InputChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inputGen++
}

// Dirty reports whether the next Compute will re-run the deformer for the
// same input and matrix as the last one.
func (n *Node) Dirty() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty || n.output == nil
}

// Computes returns how many times the deformer has actually run.
func (n *Node) Computes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.computes
}

// Compute returns the deformed copy of input placed by matrix. The input is
// never modified. The result is cached and returned as is while nothing
// the output depends on changes; callers must not modify it.
func (n *Node) Compute(input *kernel.Mesh, matrix mgl64.Mat4) (*kernel.Mesh, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if input == nil {
		return nil, errors.New("host: no input geometry")
	}
	if !n.dirty && n.output != nil && input == n.lastInput &&
		n.inputGen == n.lastGen && matrix == n.lastXform {
		return n.output, nil
	}

	p, err := n.params()
	if err != nil {
		return nil, err
	}
	out := input.Clone()
	if err := n.deformer.Evaluate(out, n.collider, matrix, p); err != nil {
		return nil, err
	}

	n.output = out
	n.lastInput = input
	n.lastGen = n.inputGen
	n.lastXform = matrix
	n.dirty = false
	n.computes++
	n.logger.Debug("computed deformer output", zap.Int("computes", n.computes))
	return out, nil
}
