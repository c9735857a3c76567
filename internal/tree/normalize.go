// internal/tree/normalize.go
package tree

import (
	"encoding/json"
	"reflect"

	"github.com/spf13/cast"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Query normalization.
 *
 * Coerces arbitrary input into a structurally valid query tree. Malformed
 * input is never rejected; missing pieces are synthesized:
 *   - missing id              -> fresh "r-"/"g-" prefixed id
 *   - missing/unknown combinator -> first configured combinator
 *   - missing/unparseable not -> false
 *   - node exposing a "rules" sequence -> group, anything else -> rule
 *
 * Accepted inputs: *RuleGroup, RuleGroup, *Rule, Rule, map[string]any,
 * json.RawMessage/[]byte, nil. Maps are decoded with weak typing so numbers
 * and strings interchange ("id": 5 becomes "5", "not": "true" becomes true).
 *
 * The output is always a new tree. Nodes that already have a valid shape keep
 * their ids, so normalizing a normalized tree is a no-op. A repeated id (within
 * the input, or against the tree a child is inserted into) is replaced with a
 * fresh one to keep ids unique across the whole tree.
 */

// Normalizer coerces input into valid trees for one combinator set.
type Normalizer struct {
	combinators []types.Combinator
	newGroup    func() *types.RuleGroup
}

// NewNormalizer creates a normalizer. newGroup supplies the tree used when
// there is no input at all; when nil an empty group is synthesized.
func NewNormalizer(combinators []types.Combinator, newGroup func() *types.RuleGroup) *Normalizer {
	return &Normalizer{
		combinators: append([]types.Combinator(nil), combinators...),
		newGroup:    newGroup,
	}
}

// Normalize returns a valid tree for input. The root is always a group: no
// input yields a fresh group, a bare rule is wrapped into one.
func (n *Normalizer) Normalize(input any) *types.RuleGroup {
	st := n.state(nil)
	if isNil(input) {
		if n.newGroup != nil {
			return n.newGroup()
		}
		return &types.RuleGroup{ID: st.id("", types.NodeKindGroup), Combinator: n.combinator(""), Rules: []types.Node{}}
	}

	node := st.node(input)
	if g, ok := node.(*types.RuleGroup); ok {
		return g
	}
	return &types.RuleGroup{
		ID:         st.id("", types.NodeKindGroup),
		Combinator: n.combinator(""),
		Rules:      []types.Node{node},
	}
}

// NormalizeChild normalizes input for insertion into root. Ids already used
// in root are treated as taken. Returns nil for nil input.
func (n *Normalizer) NormalizeChild(input any, root *types.RuleGroup) types.Node {
	if isNil(input) {
		return nil
	}
	return n.state(root).node(input)
}

// DefaultCombinator returns the combinator assigned to groups lacking one.
func (n *Normalizer) DefaultCombinator() string {
	return n.combinator("")
}

func (n *Normalizer) combinator(name string) string {
	if len(n.combinators) == 0 {
		if name == "" {
			return "and"
		}
		return name
	}
	for _, c := range n.combinators {
		if c.Name == name {
			return name
		}
	}
	return n.combinators[0].Name
}

func (n *Normalizer) state(taken *types.RuleGroup) *normalizeState {
	st := &normalizeState{n: n, seen: make(map[string]struct{})}
	for _, id := range IDs(taken) {
		st.seen[id] = struct{}{}
	}
	return st
}

type normalizeState struct {
	n    *Normalizer
	seen map[string]struct{}
}

// id keeps candidate unless it is empty or already used.
func (s *normalizeState) id(candidate string, kind types.NodeKind) string {
	if candidate != "" {
		if _, dup := s.seen[candidate]; !dup {
			s.seen[candidate] = struct{}{}
			return candidate
		}
	}
	id := types.NewIDFor(kind)
	s.seen[id] = struct{}{}
	return id
}

func (s *normalizeState) node(input any) types.Node {
	switch v := input.(type) {
	case *types.RuleGroup:
		if v == nil {
			return s.fromMap(nil)
		}
		return s.fromGroup(v)
	case types.RuleGroup:
		return s.fromGroup(&v)
	case *types.Rule:
		if v == nil {
			return s.fromMap(nil)
		}
		return s.fromRule(v)
	case types.Rule:
		return s.fromRule(&v)
	case map[string]any:
		return s.fromMap(v)
	case json.RawMessage:
		return s.fromJSON(v)
	case []byte:
		return s.fromJSON(v)
	default:
		return s.fromMap(nil)
	}
}

func (s *normalizeState) fromGroup(g *types.RuleGroup) *types.RuleGroup {
	out := &types.RuleGroup{
		ID:         s.id(g.ID, types.NodeKindGroup),
		Combinator: s.n.combinator(g.Combinator),
		Not:        g.Not,
		Rules:      make([]types.Node, 0, len(g.Rules)),
	}
	for _, child := range g.Rules {
		if isNil(child) {
			continue
		}
		out.Rules = append(out.Rules, s.node(child))
	}
	return out
}

func (s *normalizeState) fromRule(r *types.Rule) *types.Rule {
	return &types.Rule{
		ID:       s.id(r.ID, types.NodeKindRule),
		Field:    r.Field,
		Operator: r.Operator,
		Value:    types.CloneValue(r.Value),
	}
}

// rawNode is the loose shape decoded from maps.
type rawNode struct {
	ID         string `mapstructure:"id"`
	Field      string `mapstructure:"field"`
	Operator   string `mapstructure:"operator"`
	Value      any    `mapstructure:"value"`
	Combinator string `mapstructure:"combinator"`
	Not        any    `mapstructure:"not"`
	Rules      any    `mapstructure:"rules"`
}

func (s *normalizeState) fromMap(m map[string]any) types.Node {
	var raw rawNode
	if m != nil {
		// Decoding errors leave the offending keys at their zero value; the
		// rest of the node is still usable.
		_ = types.Decode(m, &raw)
	}

	children, isGroup := sequence(raw.Rules)
	if !isGroup {
		return &types.Rule{
			ID:       s.id(raw.ID, types.NodeKindRule),
			Field:    raw.Field,
			Operator: raw.Operator,
			Value:    types.CloneValue(raw.Value),
		}
	}

	out := &types.RuleGroup{
		ID:         s.id(raw.ID, types.NodeKindGroup),
		Combinator: s.n.combinator(raw.Combinator),
		Not:        cast.ToBool(raw.Not),
		Rules:      make([]types.Node, 0, len(children)),
	}
	for _, child := range children {
		if isNil(child) {
			continue
		}
		out.Rules = append(out.Rules, s.node(child))
	}
	return out
}

func (s *normalizeState) fromJSON(data []byte) types.Node {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return s.fromMap(nil)
	}
	m, _ := decoded.(map[string]any)
	return s.fromMap(m)
}

// sequence returns the elements of v when v is a slice or array.
func sequence(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *types.RuleGroup:
		return x == nil
	case *types.Rule:
		return x == nil
	case json.RawMessage:
		return len(x) == 0
	case []byte:
		return len(x) == 0
	default:
		return false
	}
}
