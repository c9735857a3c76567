// internal/rules/compile.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Query compilation and validation.
 *
 * Compiles a query tree into CompiledGroup: field names parsed into paths,
 * operator names mapped to the Operator enum, comparison types inferred and
 * in/notIn lists expanded. Child order is kept exactly; evaluation order is
 * display order.
 *
 * Compilation workflow:
 *   1. Validate combinators (and/or only)
 *   2. Skip rules without a usable field (empty or the "none selected" sentinel)
 *   3. Parse the field path and enforce depth/wildcard limits
 *   4. Resolve the operator and infer the comparison type
 *   5. Expand list values for in/notIn and enforce MaxInOperatorValues
 *
 * Errors carry the offending node id; all limits are checked here so that
 * evaluation never fails on the query's account.
 */

// Combinator is a compiled group joiner.
type Combinator int

const (
	CombinatorAnd Combinator = iota
	CombinatorOr
)

// ParseCombinator maps a combinator name (case-insensitive) to its compiled
// form.
func ParseCombinator(name string) (Combinator, error) {
	switch strings.ToLower(name) {
	case "and":
		return CombinatorAnd, nil
	case "or":
		return CombinatorOr, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidCombinator, name)
	}
}

// OnMissingField policy for missing field handling.
type OnMissingField int

const (
	OnMissingSkip OnMissingField = iota
	OnMissingMatch
	OnMissingFail
)

// ParseOnMissing maps "skip", "match" or "fail" to a policy.
func ParseOnMissing(name string) (OnMissingField, error) {
	switch name {
	case "", "skip":
		return OnMissingSkip, nil
	case "match":
		return OnMissingMatch, nil
	case "fail":
		return OnMissingFail, nil
	default:
		return 0, fmt.Errorf("unknown missing-field policy %q", name)
	}
}

// CompiledRule is a leaf ready for evaluation.
type CompiledRule struct {
	ID        string
	Field     string
	Path      []types.PathSegment
	Operator  Operator
	FieldType FieldType
	Value     any   // comparison value (nil for null/notNull)
	Values    []any // for in/notIn
	OnMissing OnMissingField
}

// CompiledNode is either a rule or a group.
type CompiledNode struct {
	Rule  *CompiledRule
	Group *CompiledGroup
}

// CompiledGroup is a group ready for evaluation. Children keep tree order.
type CompiledGroup struct {
	ID         string
	Combinator Combinator
	Not        bool
	Children   []CompiledNode
}

// CompileOptions tunes compilation.
type CompileOptions struct {
	OnMissing OnMissingField
}

// Compile validates and pre-processes a query for evaluation.
func Compile(root *types.RuleGroup) (*CompiledGroup, error) {
	return CompileWith(root, CompileOptions{})
}

// CompileWith is Compile with explicit options.
func CompileWith(root *types.RuleGroup, opts CompileOptions) (*CompiledGroup, error) {
	if root == nil {
		return &CompiledGroup{}, nil
	}
	return compileGroup(root, opts)
}

func compileGroup(g *types.RuleGroup, opts CompileOptions) (*CompiledGroup, error) {
	comb, err := ParseCombinator(g.Combinator)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", g.ID, err)
	}

	out := &CompiledGroup{
		ID:         g.ID,
		Combinator: comb,
		Not:        g.Not,
		Children:   make([]CompiledNode, 0, len(g.Rules)),
	}

	for _, child := range g.Rules {
		switch n := child.(type) {
		case *types.RuleGroup:
			cg, err := compileGroup(n, opts)
			if err != nil {
				return nil, err
			}
			out.Children = append(out.Children, CompiledNode{Group: cg})
		case *types.Rule:
			if n.Field == "" || n.Field == types.NoFieldName {
				continue
			}
			cr, err := compileRule(n, opts)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", n.ID, err)
			}
			out.Children = append(out.Children, CompiledNode{Rule: cr})
		}
	}
	return out, nil
}

// compileRule parses the field path, resolves the operator and expands the
// value for one rule.
func compileRule(r *types.Rule, opts CompileOptions) (*CompiledRule, error) {
	path, err := ParsePath(r.Field)
	if err != nil {
		return nil, err
	}

	op, err := ParseOperator(r.Operator)
	if err != nil {
		return nil, err
	}

	cr := &CompiledRule{
		ID:        r.ID,
		Field:     r.Field,
		Path:      path,
		Operator:  op,
		OnMissing: opts.OnMissing,
	}

	switch {
	case op.IsPresenceCheck():
		cr.FieldType = FieldTypeAny
	case op.IsSetCheck():
		cr.Values = ListValues(r.Value)
		if len(cr.Values) > types.MaxInOperatorValues {
			return nil, types.ErrTooManyInValues
		}
		cr.FieldType = FieldTypeAny
	default:
		cr.FieldType = InferFieldType(op, r.Value)
		coerced, err := Coerce(r.Value, cr.FieldType)
		if err != nil || coerced.IsNull {
			// nil or uncoercible rule values compare as the empty string
			coerced = CoercionResult{Value: ""}
			cr.FieldType = FieldTypeAny
		}
		cr.Value = coerced.Value
	}
	return cr, nil
}

// ListValues expands an in/notIn value: a slice is taken element-wise, a
// string is split on commas with surrounding spaces trimmed, anything else
// is a single-element list.
func ListValues(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return append([]any(nil), x...)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case string:
		if strings.TrimSpace(x) == "" {
			return []any{}
		}
		parts := strings.Split(x, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	default:
		return []any{x}
	}
}
