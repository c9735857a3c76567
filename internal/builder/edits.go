// internal/builder/edits.go
package builder

import (
	"fmt"

	"github.com/solatis/querybuilder/internal/types"
)

// Edit operation names.
const (
	EditAddRule  = "addRule"
	EditAddGroup = "addGroup"
	EditRemove   = "remove"
	EditUpdate   = "update"
	EditClone    = "clone"
	EditSet      = "set"
)

// Edit is one serialized builder operation, as read from edit scripts and
// session requests. Which fields matter depends on Op:
//
//	addRule   parentId, rule (optional, default rule when absent)
//	addGroup  parentId, group (optional, default group when absent)
//	remove    id, parentId, kind (optional)
//	update    id, prop, value
//	clone     id, parentId
//	set       query
//
// An empty parentId on add and clone targets the root group.
type Edit struct {
	Op       string         `json:"op" yaml:"op" mapstructure:"op"`
	ID       string         `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	ParentID string         `json:"parentId,omitempty" yaml:"parentId,omitempty" mapstructure:"parentId"`
	Kind     string         `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Prop     string         `json:"prop,omitempty" yaml:"prop,omitempty" mapstructure:"prop"`
	Value    any            `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Rule     map[string]any `json:"rule,omitempty" yaml:"rule,omitempty" mapstructure:"rule"`
	Group    map[string]any `json:"group,omitempty" yaml:"group,omitempty" mapstructure:"group"`
	Query    any            `json:"query,omitempty" yaml:"query,omitempty" mapstructure:"query"`
}

// DecodeEdits converts loosely typed input (a decoded JSON or YAML list, a
// gRPC list value) into edits.
func DecodeEdits(raw any) ([]Edit, error) {
	if raw == nil {
		return nil, nil
	}
	var edits []Edit
	if err := types.Decode(raw, &edits); err != nil {
		return nil, fmt.Errorf("decode edits: %w", err)
	}
	return edits, nil
}

// Apply performs e. The result reports whether the tree changed; only an
// unknown operation or a payload of the wrong node kind is an error, every
// other failed edit is a no-op as with the direct methods.
func (b *Builder) Apply(e Edit) (bool, error) {
	parentID := e.ParentID
	if parentID == "" {
		parentID = b.root.ID
	}

	switch e.Op {
	case EditAddRule:
		if e.Rule == nil {
			return b.AddRule(nil, parentID), nil
		}
		r, ok := b.normalizer.NormalizeChild(e.Rule, b.root).(*types.Rule)
		if !ok {
			return false, fmt.Errorf("%w: addRule payload is a group", types.ErrUnknownEdit)
		}
		return b.AddRule(r, parentID), nil
	case EditAddGroup:
		if e.Group == nil {
			return b.AddGroup(nil, parentID), nil
		}
		g, ok := b.normalizer.NormalizeChild(e.Group, b.root).(*types.RuleGroup)
		if !ok {
			return false, fmt.Errorf("%w: addGroup payload has no rules list", types.ErrUnknownEdit)
		}
		return b.AddGroup(g, parentID), nil
	case EditRemove:
		return b.RemoveNode(e.ID, e.ParentID, editKind(e.Kind)), nil
	case EditUpdate:
		return b.UpdateProperty(Property(e.Prop), e.Value, e.ID), nil
	case EditClone:
		return b.CloneNode(e.ID, parentID), nil
	case EditSet:
		b.SetQuery(e.Query)
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", types.ErrUnknownEdit, e.Op)
	}
}

func editKind(kind string) types.NodeKind {
	switch kind {
	case "rule":
		return types.NodeKindRule
	case "group", "rulegroup", "ruleGroup":
		return types.NodeKindGroup
	default:
		return ""
	}
}
