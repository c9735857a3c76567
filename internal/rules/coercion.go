// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/querybuilder/internal/types"
	"github.com/spf13/cast"
)

/*
 * Type coercion for rule evaluation.
 *
 * Query trees carry no field types, so the expected type of a rule is
 * inferred from its operator and value when it is compiled (InferFieldType),
 * and payload values are coerced to that type before comparison.
 *
 * Null values and coercion failures are kept apart: a null payload value is
 * handled like a missing field, a value that cannot be coerced (e.g. "abc"
 * against a numeric rule) fails the comparison.
 *
 * Type modes:
 *   - NUMERIC: Strict - coerce strings to float64, reject booleans
 *   - TEXT: Lenient - auto-coerce all types to string
 *   - BOOLEAN: Strict - boolean only, reject strings/numbers
 *   - ANY: Lenient - preserve original type, cross-type comparison allowed
 */

// FieldType is the type a rule compares payload values as.
type FieldType int

const (
	FieldTypeUnspecified FieldType = iota
	FieldTypeNumeric
	FieldTypeText
	FieldTypeBoolean
	FieldTypeAny
)

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // coerced value (valid only if !IsNull)
	IsNull bool // true if input was nil/null
}

type coercer func(value any) (any, error)

// Numbers and booleans are strict, text and any are lenient. Numeric
// coercion never turns a boolean into 0/1, boolean coercion never parses
// "true"; both are ambiguous in payloads built by hand.
var coercers = map[FieldType]coercer{
	FieldTypeUnspecified: passThrough,
	FieldTypeAny:         passThrough,
	FieldTypeNumeric:     toNumber,
	FieldTypeText:        toText,
	FieldTypeBoolean:     toBool,
}

// Coerce converts value to fieldType. A nil value yields IsNull;
// impossible conversions yield ErrCoercionFailed.
func Coerce(value any, fieldType FieldType) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}
	coerce, ok := coercers[fieldType]
	if !ok {
		return CoercionResult{}, types.ErrCoercionFailed
	}
	v, err := coerce(value)
	if err != nil {
		return CoercionResult{}, types.ErrCoercionFailed
	}
	return CoercionResult{Value: v}, nil
}

func passThrough(value any) (any, error) {
	return value, nil
}

// toNumber accepts every Go number type and numeric strings, surrounding
// blanks ignored.
func toNumber(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return nil, fmt.Errorf("boolean %v is not a number", v)
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("blank string is not a number")
		}
		return strconv.ParseFloat(v, 64)
	}
	return cast.ToFloat64E(value)
}

// toText renders scalars the way they are written in JSON; composite values
// fall back to their %v form.
func toText(value any) (any, error) {
	if s, err := cast.ToStringE(value); err == nil {
		return s, nil
	}
	return fmt.Sprintf("%v", value), nil
}

func toBool(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("%T is not a boolean", value)
}

// InferFieldType picks the comparison type of a rule from its operator and
// compiled value:
//   - substring operators compare as text
//   - ordering operators compare numerically when the value is a number or a
//     numeric string, as text otherwise
//   - booleans compare as booleans
//   - everything else (equality, sets, presence) compares leniently
func InferFieldType(op Operator, value any) FieldType {
	switch op {
	case OpContains, OpNotContains, OpPrefix, OpNotPrefix, OpSuffix, OpNotSuffix:
		return FieldTypeText
	case OpLt, OpLte, OpGt, OpGte:
		if _, ok := toFloat64(value); ok {
			return FieldTypeNumeric
		}
		if _, ok := parseNumber(value); ok {
			return FieldTypeNumeric
		}
		return FieldTypeText
	}
	if _, ok := value.(bool); ok && (op == OpEq || op == OpNeq) {
		return FieldTypeBoolean
	}
	return FieldTypeAny
}
