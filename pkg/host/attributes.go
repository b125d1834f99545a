package host

import (
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/chazu/dent/pkg/deform"
)

// Attribute names understood by the node.
const (
	AttrEnvelope        = "envelope"
	AttrBulgeMultiplier = "bulgeMultiplier"
	AttrLevels          = "levels"
)

// AttributeMap holds raw attribute values as they arrive from scripts,
// JSON or flags.
type AttributeMap map[string]any

// DefaultAttributes returns the attribute values of a freshly created node.
func DefaultAttributes() AttributeMap {
	return AttributeMap{
		AttrEnvelope:        1.0,
		AttrBulgeMultiplier: 0.0,
		AttrLevels:          0,
	}
}

type attrConfig struct {
	Envelope        float64 `json:"envelope"`
	BulgeMultiplier float64 `json:"bulgeMultiplier"`
	Levels          int     `json:"levels"`
}

// Decode converts the attributes to deformer parameters. Numeric values
// are accepted in any representation, but integer attributes must hold
// whole numbers; unknown attribute names are an error.
func (a AttributeMap) Decode() (deform.Params, error) {
	var conf attrConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.DecodeHookFuncKind(wholeNumbers),
	})
	if err != nil {
		return deform.Params{}, err
	}
	if err := decoder.Decode(map[string]any(a)); err != nil {
		return deform.Params{}, errors.Wrap(err, "decoding deformer attributes")
	}
	p := deform.Params{
		Envelope:        conf.Envelope,
		BulgeMultiplier: conf.BulgeMultiplier,
		Levels:          conf.Levels,
	}
	return p, p.Validate()
}

// wholeNumbers refuses to truncate a fractional float into an int field.
func wholeNumbers(from, to reflect.Kind, data any) (any, error) {
	if to != reflect.Int || (from != reflect.Float32 && from != reflect.Float64) {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, errors.Errorf("%g is not a whole number", f)
	}
	return data, nil
}

func (a AttributeMap) clone() AttributeMap {
	out := make(AttributeMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
