// internal/rules/operators.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Operators are addressed by the names used in query trees and compiled to
 * an enum once. Values should already be coerced via Coerce() before reaching
 * Compare().
 *
 *   null / notNull               : presence checks
 *   = / !=                       : equality with numeric tolerance
 *   < <= > >=                    : numeric comparison, string fallback
 *   contains / beginsWith / endsWith and their negations : substring tests
 *   in / notIn                   : membership with equality semantics
 *
 * Numeric comparison handles float64/int/int64 mixing for JSON compatibility,
 * and a numeric string compares numerically against a number.
 */

// Operator identifies a compiled comparison.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpContains
	OpNotContains
	OpPrefix
	OpNotPrefix
	OpSuffix
	OpNotSuffix
	OpIn
	OpNotIn
	OpNotNull
	OpIsNull
)

var operatorNames = map[string]Operator{
	"=":                OpEq,
	"!=":               OpNeq,
	"<":                OpLt,
	"<=":               OpLte,
	">":                OpGt,
	">=":               OpGte,
	"contains":         OpContains,
	"doesNotContain":   OpNotContains,
	"beginsWith":       OpPrefix,
	"doesNotBeginWith": OpNotPrefix,
	"endsWith":         OpSuffix,
	"doesNotEndWith":   OpNotSuffix,
	"in":               OpIn,
	"notIn":            OpNotIn,
	"notNull":          OpNotNull,
	"null":             OpIsNull,
}

// ParseOperator maps an operator name to its compiled form.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[name]
	if !ok {
		return OpUnspecified, fmt.Errorf("%w: %q", types.ErrInvalidOperator, name)
	}
	return op, nil
}

// String returns the operator's name in query trees.
func (op Operator) String() string {
	for name, o := range operatorNames {
		if o == op {
			return name
		}
	}
	return "unspecified"
}

// IsPresenceCheck reports whether op tests presence rather than a value.
func (op Operator) IsPresenceCheck() bool {
	return op == OpIsNull || op == OpNotNull
}

// IsSetCheck reports whether op compares against a list.
func (op Operator) IsSetCheck() bool {
	return op == OpIn || op == OpNotIn
}

// Compare applies the operator to compare value against target.
func Compare(op Operator, value, target any) bool {
	switch op {
	case OpNotNull:
		return value != nil
	case OpIsNull:
		return value == nil
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpLt:
		c, ok := compareOrdered(value, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareOrdered(value, target)
		return ok && c <= 0
	case OpGt:
		c, ok := compareOrdered(value, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareOrdered(value, target)
		return ok && c >= 0
	case OpContains:
		return compareStrings(value, target, strings.Contains)
	case OpNotContains:
		return !compareStrings(value, target, strings.Contains)
	case OpPrefix:
		return compareStrings(value, target, strings.HasPrefix)
	case OpNotPrefix:
		return !compareStrings(value, target, strings.HasPrefix)
	case OpSuffix:
		return compareStrings(value, target, strings.HasSuffix)
	case OpNotSuffix:
		return !compareStrings(value, target, strings.HasSuffix)
	case OpIn:
		return compareIn(value, target)
	case OpNotIn:
		return !compareIn(value, target)
	default:
		return false
	}
}

// compareEqual performs equality comparison with numeric type coercion.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	switch a.(type) {
	case string, bool, nil:
	default:
		return false
	}
	return a == b
}

// compareOrdered performs a three-way comparison (-1/0/1): numeric when both
// sides are numbers, lexical when both are strings. ok is false for operands
// that have no order.
func compareOrdered(a, b any) (c int, ok bool) {
	if na, nb, isNum := asNumbers(a, b); isNum {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, oka := a.(string)
	sb, okb := b.(string)
	if oka && okb {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

// asNumbers converts both values to float64. A numeric string converts only
// when the other side is a genuine number.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	switch {
	case oka && okb:
		return na, nb, true
	case oka:
		nb, okb = parseNumber(b)
	case okb:
		na, oka = parseNumber(a)
	}
	return na, nb, oka && okb
}

// toFloat64 converts value to float64 if it's a numeric type.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseNumber(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// compareStrings applies fn when both sides are strings. Returns false for
// non-string types.
func compareStrings(value, target any, fn func(s, sub string) bool) bool {
	vs, ok1 := value.(string)
	ts, ok2 := target.(string)
	if !ok1 || !ok2 {
		return false
	}
	return fn(vs, ts)
}

// compareIn checks if value exists in set using equality semantics.
func compareIn(value, set any) bool {
	arr, ok := set.([]any)
	if !ok {
		return false
	}
	for _, elem := range arr {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}
