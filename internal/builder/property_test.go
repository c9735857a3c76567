package builder

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/querybuilder/internal/tree"
	"github.com/solatis/querybuilder/internal/types"
)

func groupIDs(root *types.RuleGroup) []string {
	var out []string
	tree.Walk(root, func(n types.Node, _ int) bool {
		if g, ok := n.(*types.RuleGroup); ok {
			out = append(out, g.ID)
		}
		return true
	})
	return out
}

// parentOf returns the id of the group directly holding id.
func parentOf(root *types.RuleGroup, id string) string {
	parent := ""
	tree.Walk(root, func(n types.Node, _ int) bool {
		if g, ok := n.(*types.RuleGroup); ok && tree.IndexOf(g, id) >= 0 {
			parent = g.ID
		}
		return true
	})
	return parent
}

func uniqueIDs(root *types.RuleGroup) bool {
	seen := make(map[string]bool)
	for _, id := range tree.IDs(root) {
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// applyRandomEdit performs one random edit and checks its postcondition.
func applyRandomEdit(b *Builder, r *rand.Rand) bool {
	before := b.Query()
	groups := groupIDs(before)
	all := tree.IDs(before)

	switch r.Intn(5) {
	case 0:
		parent := groups[r.Intn(len(groups))]
		size := len(tree.FindGroup(parent, before).Rules)
		if !b.AddRule(nil, parent) {
			return false
		}
		return len(tree.FindGroup(parent, b.Query()).Rules) == size+1
	case 1:
		parent := groups[r.Intn(len(groups))]
		return b.AddGroup(nil, parent)
	case 2:
		id := all[r.Intn(len(all))]
		if id == before.ID {
			return true
		}
		n := tree.FindNode(id, before)
		if !b.RemoveNode(id, parentOf(before, id), n.Kind()) {
			return false
		}
		return tree.FindNode(id, b.Query()) == nil
	case 3:
		id := all[r.Intn(len(all))]
		if id == before.ID {
			return true
		}
		return b.CloneNode(id, parentOf(before, id))
	default:
		id := all[r.Intn(len(all))]
		if tree.IsRuleGroup(tree.FindNode(id, before)) {
			b.UpdateProperty(PropNot, r.Intn(2) == 0, id)
			return true
		}
		field := testFields[r.Intn(len(testFields))].Name
		b.UpdateProperty(PropField, field, id)
		got := tree.FindNode(id, b.Query()).(*types.Rule)
		probe := &types.Rule{Field: field, Operator: b.Resolver().DefaultOperator(field)}
		return got.Operator == probe.Operator &&
			reflect.DeepEqual(got.Value, b.Resolver().DefaultValue(probe))
	}
}

// Property-based test: every edit keeps ids unique and meets its postcondition
func TestBuilder_PropertyEditsPreserveInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("random edit sequences", prop.ForAll(
		func(seed int64, steps int) bool {
			r := rand.New(rand.NewSource(seed))
			opts := DefaultOptions()
			opts.Fields = testFields
			b := New(opts)

			for i := 0; i < steps; i++ {
				if !applyRandomEdit(b, r) {
					return false
				}
				if !uniqueIDs(b.Query()) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// Property-based test: a vetoing interceptor leaves the tree deep-equal
func TestBuilder_PropertyVetoIsNoOp(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("vetoed edits change nothing", prop.ForAll(
		func(seed int64, steps int) bool {
			r := rand.New(rand.NewSource(seed))
			notified := 0
			opts := DefaultOptions()
			opts.Fields = testFields
			opts.OnAddRule = func(*types.Rule, string, *types.RuleGroup) Decision[*types.Rule] {
				return Abort[*types.Rule]()
			}
			opts.OnAddGroup = func(*types.RuleGroup, string, *types.RuleGroup) Decision[*types.RuleGroup] {
				return Abort[*types.RuleGroup]()
			}
			opts.OnRemove = func(types.Node, *types.RuleGroup, types.NodeKind) bool { return false }
			opts.OnQueryChange = func(*types.RuleGroup) { notified++ }
			opts.Query = startingQuery()
			b := New(opts)

			before := b.Query()
			for i := 0; i < steps; i++ {
				all := tree.IDs(before)
				id := all[r.Intn(len(all))]
				switch r.Intn(3) {
				case 0:
					b.AddRule(nil, id)
				case 1:
					b.AddGroup(nil, id)
				default:
					b.RemoveNode(id, parentOf(before, id), "")
				}
			}
			return notified == 0 && reflect.DeepEqual(before, b.Query())
		},
		gen.Int64(),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
