package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
)

// DataType is the storage type of a field value
type DataType string

const (
	String  DataType = "string"
	Integer DataType = "integer"
	Float   DataType = "float"
	Double  DataType = "double"
	Boolean DataType = "boolean"
)

// Numeric reports whether values of this type convert to float64 without parsing
func (dt DataType) Numeric() bool {
	return dt == Integer || dt == Float || dt == Double
}

// OpType is the operational type of a field
type OpType string

const (
	Categorical OpType = "categorical"
	Ordinal     OpType = "ordinal"
	Continuous  OpType = "continuous"
)

// Value is a typed, non-missing field value. Missing values are represented
// by absence (a nil *Value).
type Value struct {
	dataType DataType
	opType   OpType
	str      string
	num      float64
	flag     bool
}

// NewValue coerces raw into the declared data type
func NewValue(dataType DataType, opType OpType, raw any) (*Value, error) {
	v := &Value{dataType: dataType, opType: opType}

	switch dataType {
	case String:
		v.str = toString(raw)
	case Integer, Float, Double:
		num, err := toNumber(raw)
		if err != nil {
			return nil, err
		}
		if dataType == Integer && num != math.Trunc(num) {
			return nil, apperrors.NewValidationError("value is not an integer", raw)
		}
		if dataType == Float {
			num = float64(float32(num))
		}
		v.num = num
	case Boolean:
		flag, err := toBool(raw)
		if err != nil {
			return nil, err
		}
		v.flag = flag
	default:
		return nil, apperrors.NewUnsupportedError("data type", dataType)
	}

	return v, nil
}

// FromFloat creates a continuous double value
func FromFloat(x float64) *Value {
	return &Value{dataType: Double, opType: Continuous, num: x}
}

// FromString creates a categorical string value
func FromString(s string) *Value {
	return &Value{dataType: String, opType: Categorical, str: s}
}

// DataType returns the storage type
func (v *Value) DataType() DataType {
	return v.dataType
}

// OpType returns the operational type
func (v *Value) OpType() OpType {
	return v.opType
}

// Float64 returns the numeric value. Booleans map to 1 and 0; strings are parsed.
func (v *Value) Float64() (float64, error) {
	switch v.dataType {
	case Integer, Float, Double:
		return v.num, nil
	case Boolean:
		if v.flag {
			return 1, nil
		}
		return 0, nil
	default:
		num, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, apperrors.NewValidationError("value is not numeric", v.str)
		}
		return num, nil
	}
}

// Interface returns the value as a plain Go value
func (v *Value) Interface() any {
	switch v.dataType {
	case Integer:
		return int64(v.num)
	case Float, Double:
		return v.num
	case Boolean:
		return v.flag
	default:
		return v.str
	}
}

func (v *Value) String() string {
	switch v.dataType {
	case Integer:
		return strconv.FormatInt(int64(v.num), 10)
	case Float:
		return strconv.FormatFloat(v.num, 'g', -1, 32)
	case Double:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.flag)
	default:
		return v.str
	}
}

// Equals reports whether the value equals literal parsed as the value's own type
func (v *Value) Equals(literal string) bool {
	cmp, err := v.CompareTo(literal)
	return err == nil && cmp == 0
}

// CompareTo orders the value against literal parsed as the value's own type
func (v *Value) CompareTo(literal string) (int, error) {
	other, err := NewValue(v.dataType, v.opType, literal)
	if err != nil {
		return 0, err
	}

	switch v.dataType {
	case Integer, Float, Double:
		return compareFloat(v.num, other.num), nil
	case Boolean:
		return compareFloat(boolToFloat(v.flag), boolToFloat(other.flag)), nil
	default:
		return strings.Compare(v.str, other.str), nil
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func toString(raw any) string {
	switch x := raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func toNumber(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		num, err := x.Float64()
		if err != nil {
			return 0, apperrors.NewValidationError("value is not numeric", x)
		}
		return num, nil
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, apperrors.NewValidationError("value is not numeric", x)
		}
		return num, nil
	case bool:
		return boolToFloat(x), nil
	default:
		return 0, apperrors.NewValidationError("value is not numeric", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case string:
		flag, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, apperrors.NewValidationError("value is not a boolean", x)
		}
		return flag, nil
	default:
		num, err := toNumber(raw)
		if err != nil {
			return false, apperrors.NewValidationError("value is not a boolean", raw)
		}
		return num != 0, nil
	}
}
