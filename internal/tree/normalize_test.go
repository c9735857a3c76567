package tree

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/querybuilder/internal/types"
)

var testCombinators = []types.Combinator{
	{Name: "and", Label: "AND"},
	{Name: "or", Label: "OR"},
}

func TestNormalize_FillsMissingPieces(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)

	input := map[string]any{
		"rules": []any{
			map[string]any{"field": "age", "operator": ">", "value": 3},
			map[string]any{
				"id":         "g-keep",
				"combinator": "or",
				"not":        "true",
				"rules":      []map[string]any{{"id": "r-keep", "field": "name"}},
			},
		},
	}

	root := n.Normalize(input)

	if !strings.HasPrefix(root.ID, types.GroupIDPrefix) {
		t.Errorf("root.ID = %s, want %s prefix", root.ID, types.GroupIDPrefix)
	}
	if root.Combinator != "and" {
		t.Errorf("root.Combinator = %s, want first configured (and)", root.Combinator)
	}
	if root.Not {
		t.Error("root.Not = true, want false")
	}
	if len(root.Rules) != 2 {
		t.Fatalf("len(root.Rules) = %d, want 2", len(root.Rules))
	}

	rule, ok := root.Rules[0].(*types.Rule)
	if !ok {
		t.Fatalf("Rules[0] = %T, want *types.Rule", root.Rules[0])
	}
	if !strings.HasPrefix(rule.ID, types.RuleIDPrefix) {
		t.Errorf("rule.ID = %s, want %s prefix", rule.ID, types.RuleIDPrefix)
	}
	if rule.Field != "age" || rule.Operator != ">" || rule.Value != 3 {
		t.Errorf("rule = %+v, want field=age operator=> value=3", rule)
	}

	sub, ok := root.Rules[1].(*types.RuleGroup)
	if !ok {
		t.Fatalf("Rules[1] = %T, want *types.RuleGroup", root.Rules[1])
	}
	if sub.ID != "g-keep" || sub.Combinator != "or" || !sub.Not {
		t.Errorf("sub = %+v, want id=g-keep combinator=or not=true", sub)
	}
	if len(sub.Rules) != 1 || sub.Rules[0].NodeID() != "r-keep" {
		t.Errorf("sub.Rules = %+v, want [r-keep]", sub.Rules)
	}
}

func TestNormalize_UnknownCombinatorReplaced(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	root := n.Normalize(&types.RuleGroup{ID: "g-1", Combinator: "xor"})
	if root.Combinator != "and" {
		t.Errorf("Combinator = %s, want and", root.Combinator)
	}
}

func TestNormalize_NilUsesGroupFactory(t *testing.T) {
	called := 0
	n := NewNormalizer(testCombinators, func() *types.RuleGroup {
		called++
		return &types.RuleGroup{ID: "g-fresh", Combinator: "or", Rules: []types.Node{}}
	})

	root := n.Normalize(nil)
	if called != 1 {
		t.Fatalf("group factory called %d times, want 1", called)
	}
	if root.ID != "g-fresh" {
		t.Errorf("root.ID = %s, want g-fresh", root.ID)
	}

	var typedNil *types.RuleGroup
	if n.Normalize(typedNil).ID != "g-fresh" {
		t.Error("Normalize(typed nil) did not use group factory")
	}
}

func TestNormalize_BareRuleWrapped(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	root := n.Normalize(&types.Rule{ID: "r-1", Field: "age"})

	if len(root.Rules) != 1 || root.Rules[0].NodeID() != "r-1" {
		t.Fatalf("Normalize(rule) = %+v, want group wrapping r-1", root)
	}
	if root.Combinator != "and" {
		t.Errorf("Combinator = %s, want and", root.Combinator)
	}
}

func TestNormalize_JSONInput(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	root := n.Normalize(json.RawMessage(`{"id":"g-1","rules":[{"id":"r-1","field":"a","operator":"=","value":"b"},{"rules":[]}]}`))

	if root.ID != "g-1" || len(root.Rules) != 2 {
		t.Fatalf("Normalize(json) = %+v", root)
	}
	if !IsRuleGroup(root.Rules[1]) {
		t.Errorf("Rules[1] = %T, want group", root.Rules[1])
	}

	garbage := n.Normalize([]byte(`{not json`))
	if garbage == nil || garbage.ID == "" || len(garbage.Rules) != 1 {
		t.Errorf("Normalize(invalid json) = %+v, want wrapped empty rule", garbage)
	}
}

func TestNormalize_DuplicateIDsReplaced(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	root := n.Normalize(&types.RuleGroup{
		ID: "x",
		Rules: []types.Node{
			&types.Rule{ID: "x"},
			&types.Rule{ID: "r-1"},
			&types.Rule{ID: "r-1"},
		},
	})

	ids := IDs(root)
	if ids[0] != "x" || ids[2] != "r-1" {
		t.Errorf("first occurrences not kept: %v", ids)
	}
	assertUniqueIDs(t, root)
}

func TestNormalizeChild_AvoidsTakenIDs(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	root := fixture()

	child := n.NormalizeChild(&types.Rule{ID: "r-1", Field: "age"}, root)
	if child.NodeID() == "r-1" {
		t.Errorf("NormalizeChild() kept id already present in tree")
	}

	fresh := n.NormalizeChild(&types.Rule{ID: "r-new"}, root)
	if fresh.NodeID() != "r-new" {
		t.Errorf("NormalizeChild() = %s, want r-new", fresh.NodeID())
	}

	if n.NormalizeChild(nil, root) != nil {
		t.Error("NormalizeChild(nil) != nil")
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(testCombinators, nil)
	input := &types.RuleGroup{Rules: []types.Node{&types.Rule{Field: "a", Value: []any{"x"}}}}

	out := n.Normalize(input)
	out.Rules[0].(*types.Rule).Value.([]any)[0] = "y"

	if input.ID != "" {
		t.Errorf("input.ID = %s, want untouched", input.ID)
	}
	if input.Rules[0].(*types.Rule).ID != "" {
		t.Error("input rule id mutated")
	}
	if input.Rules[0].(*types.Rule).Value.([]any)[0] != "x" {
		t.Error("input value aliased by output")
	}
}

// randomLooseTree builds a map-shaped query with missing ids, repeated ids,
// unknown combinators and loosely typed "not" flags.
func randomLooseTree(r *rand.Rand, depth int) map[string]any {
	node := map[string]any{}
	switch r.Intn(4) {
	case 0:
		node["id"] = "dup"
	case 1:
		node["id"] = "g-" + string(rune('a'+r.Intn(26)))
	}
	switch r.Intn(4) {
	case 0:
		node["combinator"] = "or"
	case 1:
		node["combinator"] = "xor"
	case 2:
		node["combinator"] = "and"
	}
	switch r.Intn(4) {
	case 0:
		node["not"] = "true"
	case 1:
		node["not"] = 1
	case 2:
		node["not"] = false
	}

	children := make([]any, 0)
	for i := r.Intn(4); i > 0; i-- {
		if depth > 0 && r.Intn(3) == 0 {
			children = append(children, randomLooseTree(r, depth-1))
			continue
		}
		rule := map[string]any{"field": "f", "operator": "=", "value": r.Intn(10)}
		if r.Intn(2) == 0 {
			rule["id"] = "dup"
		}
		children = append(children, rule)
	}
	node["rules"] = children
	return node
}

func assertUniqueIDs(t *testing.T, root *types.RuleGroup) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range IDs(root) {
		if id == "" {
			t.Errorf("empty id in tree")
		}
		if seen[id] {
			t.Errorf("duplicate id %s in tree", id)
		}
		seen[id] = true
	}
}

func validTree(root *types.RuleGroup) bool {
	seen := make(map[string]bool)
	ok := true
	Walk(root, func(n types.Node, _ int) bool {
		id := n.NodeID()
		if id == "" || seen[id] {
			ok = false
		}
		seen[id] = true
		if g, isGroup := n.(*types.RuleGroup); isGroup {
			if g.Combinator != "and" && g.Combinator != "or" {
				ok = false
			}
		}
		return true
	})
	return ok
}

// Property-based test: normalized trees satisfy the structural invariants
func TestNormalize_PropertyValidTree(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	n := NewNormalizer(testCombinators, nil)

	properties.Property("unique non-empty ids and configured combinators", prop.ForAll(
		func(seed int64, depth int) bool {
			input := randomLooseTree(rand.New(rand.NewSource(seed)), depth)
			return validTree(n.Normalize(input))
		},
		gen.Int64(),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// Property-based test: normalizing a normalized tree changes nothing
func TestNormalize_PropertyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	n := NewNormalizer(testCombinators, nil)

	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(seed int64, depth int) bool {
			once := n.Normalize(randomLooseTree(rand.New(rand.NewSource(seed)), depth))
			twice := n.Normalize(once)
			return reflect.DeepEqual(once, twice)
		},
		gen.Int64(),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// Property-based test: every id in a normalized tree is found at its level
func TestFindNode_PropertyLocatesEveryNode(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	n := NewNormalizer(testCombinators, nil)

	properties.Property("FindNode and GetLevel agree with Walk", prop.ForAll(
		func(seed int64, depth int) bool {
			root := n.Normalize(randomLooseTree(rand.New(rand.NewSource(seed)), depth))
			ok := true
			Walk(root, func(node types.Node, level int) bool {
				found := FindNode(node.NodeID(), root)
				if found != node {
					ok = false
				}
				if GetLevel(node.NodeID(), 0, root) != level {
					ok = false
				}
				return true
			})
			return ok && FindNode("absent", root) == nil
		},
		gen.Int64(),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
