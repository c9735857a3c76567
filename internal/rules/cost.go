// internal/rules/cost.go
package rules

import "github.com/solatis/querybuilder/internal/types"

/*
 * Cost model for query evaluation.
 *
 * Estimates the worst-case work of evaluating a compiled query so that
 * callers (the session service, the CLI) can bound or report it. The model
 * never reorders anything: evaluation order is tree order.
 *
 * Rule cost:  lookup_cost + (operator_cost * type_multiplier * 8^wildcards)
 * Group cost: sum of child costs + CostGroup
 *
 * Wildcard execution multiplier: 8^n reflects worst-case fanout per wildcard.
 * With MaxNestedWildcards=2, ceiling is 64x cost.
 */

const (
	// Operator base costs
	CostPresence  = 1
	CostEq        = 5
	CostOrdered   = 7
	CostIn        = 8
	CostSubstring = 10

	// Field lookup cost per key segment
	CostLookupPerSegment = 128

	// Per-group overhead
	CostGroup = 16

	// Field type multipliers
	MultiplierBool   = 1
	MultiplierFloat  = 4
	MultiplierString = 48
	MultiplierAny    = 128
)

// RuleCost computes the cost of a single compiled rule.
func RuleCost(r *CompiledRule) int {
	return PathOpCost(r.Path, r.Operator, r.FieldType)
}

// PathOpCost computes lookup_cost + (operator_cost * type_multiplier * 8^wildcards).
func PathOpCost(path []types.PathSegment, op Operator, fieldType FieldType) int {
	lookupCost := 0
	wildcardCount := 0
	for _, seg := range path {
		if seg.Key != "" {
			lookupCost += CostLookupPerSegment
		}
		if seg.Wildcard {
			wildcardCount++
		}
	}

	execMult := 1
	for i := 0; i < wildcardCount; i++ {
		execMult *= 8
	}

	return lookupCost + (operatorCost(op) * typeMultiplier(fieldType) * execMult)
}

// QueryCost sums rule and group costs over a compiled query.
func QueryCost(g *CompiledGroup) int {
	if g == nil {
		return 0
	}
	total := CostGroup
	for _, child := range g.Children {
		if child.Group != nil {
			total += QueryCost(child.Group)
			continue
		}
		total += RuleCost(child.Rule)
	}
	return total
}

func operatorCost(op Operator) int {
	switch op {
	case OpNotNull, OpIsNull:
		return CostPresence
	case OpEq, OpNeq:
		return CostEq
	case OpLt, OpLte, OpGt, OpGte:
		return CostOrdered
	case OpIn, OpNotIn:
		return CostIn
	case OpContains, OpNotContains, OpPrefix, OpNotPrefix, OpSuffix, OpNotSuffix:
		return CostSubstring
	default:
		return CostEq
	}
}

// typeMultiplier: string/any comparisons cost more than numeric/boolean.
func typeMultiplier(ft FieldType) int {
	switch ft {
	case FieldTypeNumeric:
		return MultiplierFloat
	case FieldTypeBoolean:
		return MultiplierBool
	case FieldTypeText:
		return MultiplierString
	default:
		return MultiplierAny
	}
}
