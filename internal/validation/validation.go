// Package validation adapts caller-supplied validators to per-node validity
// flags and an overall valid/invalid marker.
package validation

import (
	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/types"
)

// Result is the validity of one node. Reasons are free-form codes.
type Result struct {
	Valid   bool     `json:"valid" mapstructure:"valid"`
	Reasons []string `json:"reasons,omitempty" mapstructure:"reasons"`
}

// Verdict is what a validator returns: an overall flag, a per-node map, or
// nothing. The zero Verdict means no result.
type Verdict struct {
	overall *bool
	perNode map[string]Result
}

// Valid returns an overall verdict.
func Valid(ok bool) Verdict {
	return Verdict{overall: &ok}
}

// PerNode returns a per-node verdict.
func PerNode(m map[string]Result) Verdict {
	if m == nil {
		m = map[string]Result{}
	}
	return Verdict{perNode: m}
}

// Validator inspects a tree. It receives a copy and may not retain it.
type Validator func(root *types.RuleGroup) Verdict

// FromAny converts a loosely typed validator result. bool is an overall
// verdict; a map of Result, bool or result-shaped maps is per node. Anything
// else is no result.
func FromAny(v any) Verdict {
	switch x := v.(type) {
	case bool:
		return Valid(x)
	case Verdict:
		return x
	case map[string]Result:
		return PerNode(cloneMap(x))
	case map[string]bool:
		m := make(map[string]Result, len(x))
		for id, ok := range x {
			m[id] = Result{Valid: ok}
		}
		return PerNode(m)
	case map[string]any:
		m := make(map[string]Result, len(x))
		for id, raw := range x {
			switch r := raw.(type) {
			case bool:
				m[id] = Result{Valid: r}
			case Result:
				m[id] = r
			case map[string]any:
				var res Result
				if err := types.Decode(r, &res); err == nil {
					m[id] = res
				}
			}
		}
		return PerNode(m)
	default:
		return Verdict{}
	}
}

// Outcome is a verdict flattened for consumers. Map is never nil; Overall is
// set only for overall verdicts.
type Outcome struct {
	Map     map[string]Result
	Overall *bool
}

// Run applies v to a copy of root. A nil validator yields an empty outcome.
func Run(v Validator, root *types.RuleGroup) Outcome {
	if v == nil || root == nil {
		return Outcome{Map: map[string]Result{}}
	}
	verdict := v(root.Clone())
	out := Outcome{Map: map[string]Result{}}
	if verdict.overall != nil {
		ok := *verdict.overall
		out.Overall = &ok
	}
	if verdict.perNode != nil {
		out.Map = cloneMap(verdict.perNode)
	}
	return out
}

// ClassName returns the root validity marker, or "" without an overall
// verdict.
func (o Outcome) ClassName() string {
	if o.Overall == nil {
		return ""
	}
	if *o.Overall {
		return defaults.StandardClassnames.Valid
	}
	return defaults.StandardClassnames.Invalid
}

// Valid reports whether the outcome holds no failure.
func (o Outcome) Valid() bool {
	if o.Overall != nil && !*o.Overall {
		return false
	}
	for _, r := range o.Map {
		if !r.Valid {
			return false
		}
	}
	return true
}

// Reasons for Structural failures.
const (
	ReasonEmpty             = "empty"
	ReasonInvalidCombinator = "invalidCombinator"
)

// Structural returns a validator flagging groups with no children or with a
// combinator outside combinators. Every group gets an entry.
func Structural(combinators []types.Combinator) Validator {
	known := make(map[string]bool, len(combinators))
	for _, c := range combinators {
		known[c.Name] = true
	}

	return func(root *types.RuleGroup) Verdict {
		m := make(map[string]Result)
		var visit func(g *types.RuleGroup)
		visit = func(g *types.RuleGroup) {
			var reasons []string
			if len(g.Rules) == 0 {
				reasons = append(reasons, ReasonEmpty)
			}
			if len(known) > 0 && !known[g.Combinator] {
				reasons = append(reasons, ReasonInvalidCombinator)
			}
			m[g.ID] = Result{Valid: len(reasons) == 0, Reasons: reasons}
			for _, child := range g.Rules {
				if sub, ok := child.(*types.RuleGroup); ok {
					visit(sub)
				}
			}
		}
		visit(root)
		return PerNode(m)
	}
}

func cloneMap(m map[string]Result) map[string]Result {
	out := make(map[string]Result, len(m))
	for id, r := range m {
		r.Reasons = append([]string(nil), r.Reasons...)
		out[id] = r
	}
	return out
}
