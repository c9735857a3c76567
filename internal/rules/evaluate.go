// internal/rules/evaluate.go
package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Query evaluation.
 *
 * Evaluates a CompiledGroup against a JSON payload.
 *
 * Evaluation flow:
 *   1. Decode the payload once
 *   2. Groups: "and" needs every child, "or" any child; an empty group
 *      matches; Not inverts the group's result
 *   3. Rules: resolve path -> coerce type -> compare operator
 *   4. Record per-node results and the first matching rule for diagnostics
 *
 * Policy handling:
 *   - null/notNull treat a missing field as null
 *   - other operators on a missing or null field defer to OnMissing
 *   - a payload value that cannot be coerced fails the rule
 *
 * Short-circuit semantics: within "and" the first non-matching child stops
 * the group, within "or" the first matching child does. Children are visited
 * in tree order, so Results holds only nodes that were actually evaluated.
 */

// MatchResult contains the outcome of query evaluation.
type MatchResult struct {
	Matched      bool
	MatchedRule  string              // first rule that matched, if any
	MatchedField []types.PathSegment // resolved path of MatchedRule
	MatchedValue any                 // payload value of MatchedRule
	Results      map[string]bool     // node id -> result, for evaluated nodes
}

// Evaluate checks whether the query matches the given payload.
func Evaluate(root *CompiledGroup, payload json.RawMessage) (MatchResult, error) {
	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return MatchResult{}, fmt.Errorf("decode payload: %w", err)
	}
	return EvaluateValue(root, parsed)
}

// EvaluateValue is Evaluate over an already decoded payload.
func EvaluateValue(root *CompiledGroup, data any) (MatchResult, error) {
	ev := &evaluation{data: data}
	ev.result.Results = make(map[string]bool)

	matched, err := ev.group(root)
	if err != nil {
		return MatchResult{}, err
	}
	ev.result.Matched = matched
	return ev.result, nil
}

type evaluation struct {
	data   any
	result MatchResult
}

// group evaluates children in order with short-circuit on the deciding one.
func (e *evaluation) group(g *CompiledGroup) (bool, error) {
	matched := true
	if len(g.Children) > 0 {
		matched = g.Combinator == CombinatorAnd
		for _, child := range g.Children {
			var ok bool
			var err error
			if child.Group != nil {
				ok, err = e.group(child.Group)
			} else {
				ok, err = e.rule(child.Rule)
			}
			if err != nil {
				return false, err
			}
			if g.Combinator == CombinatorAnd && !ok {
				matched = false
				break
			}
			if g.Combinator == CombinatorOr && ok {
				matched = true
				break
			}
		}
	}

	if g.Not {
		matched = !matched
	}
	e.result.Results[g.ID] = matched
	return matched, nil
}

// rule resolves, coerces and compares a single rule against the payload.
func (e *evaluation) rule(r *CompiledRule) (bool, error) {
	resolved, err := ResolveValue(r.Path, e.data)
	if err != nil && !errors.Is(err, types.ErrFieldNotFound) {
		return false, fmt.Errorf("rule %s: %w", r.ID, err)
	}

	matched := false
	switch {
	case r.Operator.IsPresenceCheck():
		matched = Compare(r.Operator, resolved.Value, nil)
	case !resolved.Found || resolved.Value == nil:
		matched = applyMissingPolicy(r.OnMissing)
	default:
		coerced, err := Coerce(resolved.Value, r.FieldType)
		if err != nil {
			break
		}
		target := r.Value
		if r.Operator.IsSetCheck() {
			target = r.Values
		}
		matched = Compare(r.Operator, coerced.Value, target)
	}

	e.result.Results[r.ID] = matched
	if matched && e.result.MatchedRule == "" {
		e.result.MatchedRule = r.ID
		e.result.MatchedField = resolved.ResolvedPath
		e.result.MatchedValue = resolved.Value
	}
	return matched, nil
}

// applyMissingPolicy converts OnMissingField policy to boolean match result.
// SKIP/FAIL -> false, MATCH -> true.
func applyMissingPolicy(policy OnMissingField) bool {
	return policy == OnMissingMatch
}
