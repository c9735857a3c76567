// Package tree locates, walks and normalizes query trees.
//
// All functions are read-only over their inputs except where a function
// documents that it returns a new tree.
package tree

import (
	"github.com/solatis/querybuilder/internal/types"
)

// LevelNotFound is returned by GetLevel when no node has the requested id.
const LevelNotFound = -1

// FindNode returns the node with the given id using a pre-order depth-first
// search, or nil. A group matching id is returned before its children are
// searched. IDs are unique, so at most one node matches.
func FindNode(id string, root *types.RuleGroup) types.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Rules {
		switch n := child.(type) {
		case *types.Rule:
			if n.ID == id {
				return n
			}
		case *types.RuleGroup:
			if found := FindNode(id, n); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindGroup returns the group with the given id, or nil when the id is absent
// or names a rule.
func FindGroup(id string, root *types.RuleGroup) *types.RuleGroup {
	g, _ := FindNode(id, root).(*types.RuleGroup)
	return g
}

// GetLevel returns the nesting depth of the node with the given id, counting
// from level for root. Callers pass 0 to get root-relative depth.
// Returns LevelNotFound when absent.
func GetLevel(id string, level int, root *types.RuleGroup) int {
	if root == nil {
		return LevelNotFound
	}
	if root.ID == id {
		return level
	}
	for _, child := range root.Rules {
		switch n := child.(type) {
		case *types.Rule:
			if n.ID == id {
				return level + 1
			}
		case *types.RuleGroup:
			if l := GetLevel(id, level+1, n); l != LevelNotFound {
				return l
			}
		}
	}
	return LevelNotFound
}

// IndexOf returns the position of the direct child with the given id, or -1.
func IndexOf(group *types.RuleGroup, id string) int {
	if group == nil {
		return -1
	}
	for i, child := range group.Rules {
		if child != nil && child.NodeID() == id {
			return i
		}
	}
	return -1
}

// IsRuleGroup reports whether n is a rule group.
func IsRuleGroup(n types.Node) bool {
	_, ok := n.(*types.RuleGroup)
	return ok
}

// Walk visits root and every descendant in pre-order together with its depth.
// Returning false from fn skips the children of the visited group.
func Walk(root *types.RuleGroup, fn func(n types.Node, level int) bool) {
	walk(root, 0, fn)
}

func walk(g *types.RuleGroup, level int, fn func(types.Node, int) bool) {
	if g == nil || !fn(g, level) {
		return
	}
	for _, child := range g.Rules {
		switch n := child.(type) {
		case *types.Rule:
			fn(n, level+1)
		case *types.RuleGroup:
			walk(n, level+1, fn)
		}
	}
}

// IDs returns the ids of all nodes in pre-order.
func IDs(root *types.RuleGroup) []string {
	var ids []string
	Walk(root, func(n types.Node, _ int) bool {
		ids = append(ids, n.NodeID())
		return true
	})
	return ids
}

// RegenerateIDs returns a deep copy of n in which every node has a fresh id.
func RegenerateIDs(n types.Node) types.Node {
	switch v := n.(type) {
	case *types.Rule:
		cp := v.Clone()
		cp.ID = types.NewRuleID()
		return cp
	case *types.RuleGroup:
		cp := &types.RuleGroup{
			ID:         types.NewGroupID(),
			Combinator: v.Combinator,
			Not:        v.Not,
			Rules:      make([]types.Node, 0, len(v.Rules)),
		}
		for _, child := range v.Rules {
			if child == nil {
				continue
			}
			cp.Rules = append(cp.Rules, RegenerateIDs(child))
		}
		return cp
	default:
		return nil
	}
}
