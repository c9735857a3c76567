// internal/format/expr.go
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * expr-lang rendering.
 *
 * A query becomes a boolean expr-lang expression over the payload:
 *
 *   status == "active" and (priority?.level > 5 or not (tags == nil))
 *
 * Field access uses optional chaining so absent intermediates yield nil, and
 * every comparison except the null checks is guarded by "!= nil" so a
 * missing field fails the rule, the evaluator's default policy. A wildcard
 * segment becomes any(collection, {predicate on #}).
 *
 * Unlike the native evaluator, expr does not coerce: comparing text to a
 * number is a runtime error reported by MatchExpr.
 */

// ToExpr renders q as an expr-lang expression.
func ToExpr(q *types.RuleGroup) (string, error) {
	compiled, err := rules.Compile(q)
	if err != nil {
		return "", err
	}
	return exprGroup(compiled), nil
}

// CompileExpr renders and compiles q into a program returning bool.
func CompileExpr(q *types.RuleGroup) (*vm.Program, error) {
	code, err := ToExpr(q)
	if err != nil {
		return nil, err
	}
	program, err := expr.Compile(code, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", code, err)
	}
	return program, nil
}

// MatchExpr runs a compiled program against env, typically a decoded JSON
// object.
func MatchExpr(program *vm.Program, env any) (bool, error) {
	if env == nil {
		env = map[string]any{}
	}
	out, err := vm.Run(program, env)
	if err != nil {
		return false, err
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out)
	}
	return matched, nil
}

func exprGroup(g *rules.CompiledGroup) string {
	body := "true"
	if len(g.Children) > 0 {
		joiner := " and "
		if g.Combinator == rules.CombinatorOr {
			joiner = " or "
		}
		parts := make([]string, len(g.Children))
		for i, child := range g.Children {
			if child.Group != nil {
				parts[i] = exprGroup(child.Group)
			} else {
				parts[i] = exprRule(child.Rule)
			}
		}
		body = "(" + strings.Join(parts, joiner) + ")"
	}
	if g.Not {
		return "not " + body
	}
	return body
}

func exprRule(r *rules.CompiledRule) string {
	return exprPath(r.Path, "", func(ref string) string {
		return exprPredicate(r, ref)
	})
}

// exprPath renders access along path starting at base ("" for the payload
// root, "#" inside a predicate) and applies pred to the final reference.
func exprPath(path []types.PathSegment, base string, pred func(ref string) string) string {
	ref := base
	for i, seg := range path {
		if seg.Wildcard {
			collection := ref
			if collection == "" {
				collection = "$env"
			}
			return fmt.Sprintf("(%s != nil and any(%s, {%s}))",
				collection, collection, exprPath(path[i+1:], "#", pred))
		}
		ref = accessor(ref, seg)
	}
	return pred(ref)
}

func accessor(ref string, seg types.PathSegment) string {
	if seg.IsIndex {
		if ref == "" {
			ref = "$env"
		}
		return fmt.Sprintf("%s?.[%d]", ref, seg.Index)
	}
	if ref == "" {
		if isIdent(seg.Key) {
			return seg.Key
		}
		return "$env[" + strconv.Quote(seg.Key) + "]"
	}
	if isIdent(seg.Key) {
		return ref + "?." + seg.Key
	}
	return ref + "?.[" + strconv.Quote(seg.Key) + "]"
}

func exprPredicate(r *rules.CompiledRule, ref string) string {
	switch r.Operator {
	case rules.OpIsNull:
		return ref + " == nil"
	case rules.OpNotNull:
		return ref + " != nil"
	case rules.OpIn, rules.OpNotIn:
		items := make([]string, len(r.Values))
		for i, v := range r.Values {
			items[i] = literal(v)
		}
		keyword := "in"
		if r.Operator == rules.OpNotIn {
			keyword = "not in"
		}
		return fmt.Sprintf("(%s != nil and %s %s [%s])", ref, ref, keyword, strings.Join(items, ", "))
	}

	var cmp string
	switch r.Operator {
	case rules.OpContains:
		cmp = fmt.Sprintf("string(%s) contains %s", ref, literal(text(r.Value)))
	case rules.OpNotContains:
		cmp = fmt.Sprintf("not (string(%s) contains %s)", ref, literal(text(r.Value)))
	case rules.OpPrefix:
		cmp = fmt.Sprintf("string(%s) startsWith %s", ref, literal(text(r.Value)))
	case rules.OpNotPrefix:
		cmp = fmt.Sprintf("not (string(%s) startsWith %s)", ref, literal(text(r.Value)))
	case rules.OpSuffix:
		cmp = fmt.Sprintf("string(%s) endsWith %s", ref, literal(text(r.Value)))
	case rules.OpNotSuffix:
		cmp = fmt.Sprintf("not (string(%s) endsWith %s)", ref, literal(text(r.Value)))
	case rules.OpNeq:
		cmp = fmt.Sprintf("%s != %s", ref, literal(r.Value))
	case rules.OpLt, rules.OpLte, rules.OpGt, rules.OpGte:
		cmp = fmt.Sprintf("%s %s %s", ref, r.Operator, literal(r.Value))
	default:
		cmp = fmt.Sprintf("%s == %s", ref, literal(r.Value))
	}
	return fmt.Sprintf("(%s != nil and %s)", ref, cmp)
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.Quote(strconv.FormatFloat(x, 'f', -1, 64))
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return strconv.Quote(fmt.Sprint(x))
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return !exprKeywords[s]
}

var exprKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "matches": true,
	"contains": true, "startsWith": true, "endsWith": true, "nil": true,
	"true": true, "false": true, "let": true, "if": true, "else": true,
}
