package field

import (
	"fmt"
	"slices"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
)

// Resolver looks up field values by name; nil means missing
type Resolver interface {
	Resolve(name string) *Value
}

// Record holds the typed inputs of one evaluation
type Record map[string]*Value

// Resolve implements Resolver
func (r Record) Resolve(name string) *Value {
	return r[name]
}

// InvalidTreatment decides what happens to values outside a field's domain
type InvalidTreatment string

const (
	ReturnInvalid InvalidTreatment = "returnInvalid"
	AsMissing     InvalidTreatment = "asMissing"
	AsIs          InvalidTreatment = "asIs"
)

// Definition declares an input field
type Definition struct {
	Name             string           `json:"name" yaml:"name" validate:"required"`
	DataType         DataType         `json:"dataType" yaml:"dataType" validate:"required,oneof=string integer float double boolean"`
	OpType           OpType           `json:"opType" yaml:"opType" validate:"required,oneof=categorical ordinal continuous"`
	Values           []string         `json:"values,omitempty" yaml:"values,omitempty"`
	MissingValues    []string         `json:"missingValues,omitempty" yaml:"missingValues,omitempty"`
	InvalidTreatment InvalidTreatment `json:"invalidTreatment,omitempty" yaml:"invalidTreatment,omitempty" validate:"omitempty,oneof=returnInvalid asMissing asIs"`
}

// Preparer turns raw decoded inputs into a typed Record
type Preparer struct {
	definitions []Definition
}

// NewPreparer creates a preparer for the declared fields
func NewPreparer(definitions []Definition) *Preparer {
	return &Preparer{definitions: definitions}
}

// Prepare coerces every declared field present in raw. Undeclared keys are
// ignored, absent and missing-marker values stay missing, and values that fail
// coercion or fall outside the declared categories follow the field's invalid
// treatment (returnInvalid by default). asIs only keeps out-of-domain values
// that still coerce to the declared type.
func (p *Preparer) Prepare(raw map[string]any) (Record, error) {
	record := make(Record, len(p.definitions))
	invalid := make(map[string]string)

	for _, def := range p.definitions {
		input, ok := raw[def.Name]
		if !ok || input == nil || p.isMissingMarker(def, input) {
			continue
		}

		v, err := NewValue(def.DataType, def.OpType, input)
		if err == nil && def.OpType != Continuous && len(def.Values) > 0 && !slices.ContainsFunc(def.Values, v.Equals) {
			if def.InvalidTreatment != AsIs {
				err = fmt.Errorf("value %q is not a declared category", v.String())
			}
		}

		if err != nil {
			if def.InvalidTreatment != AsMissing {
				invalid[def.Name] = err.Error()
			}
			continue
		}

		record[def.Name] = v
	}

	if len(invalid) > 0 {
		return nil, apperrors.NewValidationErrorWithMap(invalid)
	}

	return record, nil
}

func (p *Preparer) isMissingMarker(def Definition, input any) bool {
	if len(def.MissingValues) == 0 {
		return false
	}
	return slices.Contains(def.MissingValues, toString(input))
}
