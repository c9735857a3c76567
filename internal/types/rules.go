// internal/types/rules.go
package types

import (
	"bytes"
	"encoding/json"
)

/*
 * Query tree node types.
 *
 * A query is a tree whose root is always a RuleGroup. Groups hold an ordered,
 * heterogeneous list of children (rules and subgroups interleaved); order is
 * display and evaluation order and survives every edit except explicit
 * insertion or removal.
 *
 * Key types:
 *   - Node: common interface of Rule and RuleGroup
 *   - Rule: leaf testing one field with one operator against one value
 *   - RuleGroup: combinator + optional negation over child nodes
 *
 * Copy-on-write: the mutation engine never edits a tree that has been handed
 * out. Clone produces a deep, independent copy including Value payloads built
 * from []any and map[string]any (the shapes JSON decoding produces).
 */

// NodeKind distinguishes rules from rule groups.
type NodeKind string

const (
	NodeKindRule  NodeKind = "rule"
	NodeKindGroup NodeKind = "rulegroup"
)

// Node is either a *Rule or a *RuleGroup.
type Node interface {
	NodeID() string
	Kind() NodeKind
	CloneNode() Node
}

// Rule is a leaf node. ID never changes after creation.
type Rule struct {
	ID       string `json:"id" mapstructure:"id"`
	Field    string `json:"field" mapstructure:"field"`
	Operator string `json:"operator" mapstructure:"operator"`
	Value    any    `json:"value" mapstructure:"value"`
}

// RuleGroup is an internal node combining its children with Combinator,
// negated when Not is set.
type RuleGroup struct {
	ID         string `json:"id" mapstructure:"id"`
	Combinator string `json:"combinator" mapstructure:"combinator"`
	Not        bool   `json:"not" mapstructure:"not"`
	Rules      []Node `json:"rules" mapstructure:"rules"`
}

// NodeID implements Node.
func (r *Rule) NodeID() string { return r.ID }

// Kind implements Node.
func (r *Rule) Kind() NodeKind { return NodeKindRule }

// CloneNode implements Node.
func (r *Rule) CloneNode() Node { return r.Clone() }

// NodeID implements Node.
func (g *RuleGroup) NodeID() string { return g.ID }

// Kind implements Node.
func (g *RuleGroup) Kind() NodeKind { return NodeKindGroup }

// CloneNode implements Node.
func (g *RuleGroup) CloneNode() Node { return g.Clone() }

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	return &Rule{
		ID:       r.ID,
		Field:    r.Field,
		Operator: r.Operator,
		Value:    CloneValue(r.Value),
	}
}

// Clone returns a deep copy of the group and all descendants.
func (g *RuleGroup) Clone() *RuleGroup {
	if g == nil {
		return nil
	}
	out := &RuleGroup{
		ID:         g.ID,
		Combinator: g.Combinator,
		Not:        g.Not,
		Rules:      make([]Node, 0, len(g.Rules)),
	}
	for _, child := range g.Rules {
		if child == nil {
			continue
		}
		out.Rules = append(out.Rules, child.CloneNode())
	}
	return out
}

// CloneValue deep-copies JSON-shaped values. Scalars are returned as is;
// other composite types are shared.
func CloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = CloneValue(elem)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// MarshalJSON always emits "rules" as an array, never null.
func (g RuleGroup) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID         string `json:"id"`
		Combinator string `json:"combinator"`
		Not        bool   `json:"not"`
		Rules      []Node `json:"rules"`
	}
	rules := g.Rules
	if rules == nil {
		rules = []Node{}
	}
	return json.Marshal(wire{ID: g.ID, Combinator: g.Combinator, Not: g.Not, Rules: rules})
}

// UnmarshalJSON decodes children as groups when they carry a "rules" array
// and as rules otherwise.
func (g *RuleGroup) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID         string            `json:"id"`
		Combinator string            `json:"combinator"`
		Not        bool              `json:"not"`
		Rules      []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	g.ID = wire.ID
	g.Combinator = wire.Combinator
	g.Not = wire.Not
	g.Rules = make([]Node, 0, len(wire.Rules))

	for _, raw := range wire.Rules {
		if IsGroupJSON(raw) {
			child := &RuleGroup{}
			if err := json.Unmarshal(raw, child); err != nil {
				return err
			}
			g.Rules = append(g.Rules, child)
			continue
		}
		child := &Rule{}
		if err := json.Unmarshal(raw, child); err != nil {
			return err
		}
		g.Rules = append(g.Rules, child)
	}
	return nil
}

// IsGroupJSON reports whether raw is a JSON object with a "rules" array.
func IsGroupJSON(raw json.RawMessage) bool {
	var probe struct {
		Rules json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(probe.Rules)
	return len(trimmed) > 0 && trimmed[0] == '['
}
