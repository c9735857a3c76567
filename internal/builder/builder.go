// Package builder holds a live query tree and applies edits to it.
package builder

import (
	"log/slog"

	"github.com/spf13/cast"

	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/tree"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/solatis/querybuilder/internal/validation"
)

/*
 * Mutation engine.
 *
 * Every edit follows the same steps:
 *   1. consult the interceptor (with copies) and stop on abort/veto
 *   2. deep-copy the live tree
 *   3. locate the target in the copy and edit it
 *   4. swap the copy in, recompute validation and schema
 *   5. notify with another independent copy
 *
 * The live tree is never edited in place and never handed out, so readers
 * holding an earlier snapshot are unaffected by later edits. Missing parents,
 * missing nodes and vetoes leave the state untouched and are logged at debug
 * level; they are not errors.
 *
 * A Builder is not safe for concurrent use. Edits apply in call order.
 */

// Property names a settable node attribute.
type Property string

const (
	PropField      Property = "field"
	PropOperator   Property = "operator"
	PropValue      Property = "value"
	PropCombinator Property = "combinator"
	PropNot        Property = "not"
)

// Builder owns one query tree.
type Builder struct {
	opts       Options
	logger     *slog.Logger
	resolver   *defaults.Resolver
	normalizer *tree.Normalizer

	root       *types.RuleGroup
	external   *types.RuleGroup
	validation validation.Outcome
	schema     Schema
}

// New creates a builder holding the normalized form of opts.Query. No
// notification is sent until Mount.
func New(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fields := defaults.PrepareFields(opts.Fields, opts.AutoSelectField)
	resolver := defaults.New(defaults.Config{
		Fields:             fields,
		Operators:          opts.Operators,
		Combinators:        opts.Combinators,
		AddRuleToNewGroups: opts.AddRuleToNewGroups,
		Overrides:          opts.Overrides,
	})

	b := &Builder{
		opts:       opts,
		logger:     logger,
		resolver:   resolver,
		normalizer: tree.NewNormalizer(resolver.Combinators(), resolver.NewGroup),
	}
	b.external, _ = opts.Query.(*types.RuleGroup)
	b.root = b.normalizer.Normalize(opts.Query)
	b.refresh()
	return b
}

// Mount sends the initial notification when EnableMountQueryChange is set.
func (b *Builder) Mount() {
	if b.opts.EnableMountQueryChange {
		b.notify()
	}
}

// Query returns a deep copy of the current tree.
func (b *Builder) Query() *types.RuleGroup {
	return b.root.Clone()
}

// Level returns the nesting depth of id, or tree.LevelNotFound.
func (b *Builder) Level(id string) int {
	return tree.GetLevel(id, 0, b.root)
}

// Resolver exposes the defaults in effect for this builder.
func (b *Builder) Resolver() *defaults.Resolver {
	return b.resolver
}

// Validation returns the outcome of the validator against the current tree.
func (b *Builder) Validation() validation.Outcome {
	out := validation.Outcome{Map: make(map[string]validation.Result, len(b.validation.Map)), Overall: b.validation.Overall}
	for id, r := range b.validation.Map {
		out.Map[id] = r
	}
	return out
}

// SetQuery replaces the whole tree with the normalized form of query, dropping
// local edits. Passing the *RuleGroup most recently supplied is ignored.
// No notification is sent.
func (b *Builder) SetQuery(query any) {
	if g, ok := query.(*types.RuleGroup); ok && g != nil && g == b.external {
		b.logger.Debug("set query skipped: same query reference")
		return
	}
	b.external, _ = query.(*types.RuleGroup)
	b.root = b.normalizer.Normalize(query)
	b.refresh()
}

// AddRule appends rule to the group parentID. A nil rule is replaced by a
// default one. Returns whether the tree changed.
func (b *Builder) AddRule(rule *types.Rule, parentID string) bool {
	if rule == nil {
		rule = b.resolver.NewRule()
	}
	if b.opts.OnAddRule != nil {
		d := b.opts.OnAddRule(rule.Clone(), parentID, b.root.Clone())
		if d.Aborted() || d.Value() == nil {
			b.logger.Debug("add rule aborted by interceptor", "parent_id", parentID)
			return false
		}
		rule = d.Value()
	}
	return b.add(rule, parentID)
}

// AddGroup appends group to the group parentID. A nil group is replaced by a
// default one. Returns whether the tree changed.
func (b *Builder) AddGroup(group *types.RuleGroup, parentID string) bool {
	if group == nil {
		group = b.resolver.NewGroup()
	}
	if b.opts.OnAddGroup != nil {
		d := b.opts.OnAddGroup(group.Clone(), parentID, b.root.Clone())
		if d.Aborted() || d.Value() == nil {
			b.logger.Debug("add group aborted by interceptor", "parent_id", parentID)
			return false
		}
		group = d.Value()
	}
	return b.add(group, parentID)
}

func (b *Builder) add(node types.Node, parentID string) bool {
	next := b.root.Clone()
	parent := tree.FindGroup(parentID, next)
	if parent == nil {
		b.logger.Debug("add skipped: parent not found", "parent_id", parentID, "kind", node.Kind())
		return false
	}
	parent.Rules = append(parent.Rules, b.normalizer.NormalizeChild(node, next))
	b.commit(next)
	return true
}

// RemoveRule removes rule id from group parentID.
func (b *Builder) RemoveRule(id, parentID string) bool {
	return b.RemoveNode(id, parentID, types.NodeKindRule)
}

// RemoveGroup removes group id from group parentID.
func (b *Builder) RemoveGroup(id, parentID string) bool {
	return b.RemoveNode(id, parentID, types.NodeKindGroup)
}

// RemoveNode removes the direct child id of group parentID. OnRemove may veto
// by returning false. Returns whether the tree changed.
func (b *Builder) RemoveNode(id, parentID string, kind types.NodeKind) bool {
	parent := tree.FindGroup(parentID, b.root)
	if parent == nil {
		b.logger.Debug("remove skipped: parent not found", "id", id, "parent_id", parentID)
		return false
	}
	idx := tree.IndexOf(parent, id)
	if idx < 0 {
		b.logger.Debug("remove skipped: node not found", "id", id, "parent_id", parentID)
		return false
	}
	if kind == "" {
		kind = parent.Rules[idx].Kind()
	}

	if b.opts.OnRemove != nil && !b.opts.OnRemove(parent.Rules[idx].CloneNode(), b.root.Clone(), kind) {
		b.logger.Debug("remove vetoed by interceptor", "id", id, "kind", kind)
		return false
	}

	next := b.root.Clone()
	target := tree.FindGroup(parentID, next)
	target.Rules = append(target.Rules[:idx], target.Rules[idx+1:]...)
	b.commit(next)
	return true
}

// UpdateProperty sets prop on node nodeID. Values are coerced to the
// property's type; a value that cannot be coerced, a property that does not
// apply to the node kind, a field outside the catalog, an operator the field
// does not offer, or a combinator outside the active set leaves the tree
// unchanged. Returns whether the tree changed.
//
// On rules, a field change re-resolves operator and value when
// ResetOnFieldChange is enabled; an operator change re-resolves value when
// ResetOnOperatorChange is enabled.
func (b *Builder) UpdateProperty(prop Property, value any, nodeID string) bool {
	next := b.root.Clone()

	var ok bool
	switch n := tree.FindNode(nodeID, next).(type) {
	case *types.Rule:
		ok = b.updateRule(n, prop, value)
	case *types.RuleGroup:
		ok = b.updateGroup(n, prop, value)
	default:
		b.logger.Debug("update skipped: node not found", "id", nodeID, "prop", prop)
		return false
	}
	if !ok {
		return false
	}
	b.commit(next)
	return true
}

func (b *Builder) updateRule(r *types.Rule, prop Property, value any) bool {
	switch prop {
	case PropField:
		s, err := cast.ToStringE(value)
		if err != nil {
			b.logger.Debug("update skipped: field not a string", "id", r.ID, "error", err)
			return false
		}
		if !b.knownField(s) {
			b.logger.Debug("update skipped: unknown field", "id", r.ID, "field", s)
			return false
		}
		r.Field = s
		if policy := b.opts.ResetOnFieldChange; policy.Enabled {
			r.Operator = b.resolver.DefaultOperator(r.Field)
			r.Value = b.resolver.DefaultValue(r)
			runHook(policy, r)
		}
	case PropOperator:
		s, err := cast.ToStringE(value)
		if err != nil {
			b.logger.Debug("update skipped: operator not a string", "id", r.ID, "error", err)
			return false
		}
		if !b.knownOperator(r.Field, s) {
			b.logger.Debug("update skipped: operator not available for field", "id", r.ID, "field", r.Field, "operator", s)
			return false
		}
		r.Operator = s
		if policy := b.opts.ResetOnOperatorChange; policy.Enabled {
			r.Value = b.resolver.DefaultValue(r)
			runHook(policy, r)
		}
	case PropValue:
		r.Value = types.CloneValue(value)
	default:
		b.logger.Debug("update skipped: property does not apply to rules", "id", r.ID, "prop", prop)
		return false
	}
	return true
}

func (b *Builder) updateGroup(g *types.RuleGroup, prop Property, value any) bool {
	switch prop {
	case PropCombinator:
		s, err := cast.ToStringE(value)
		if err != nil || !b.knownCombinator(s) {
			b.logger.Debug("update skipped: unknown combinator", "id", g.ID, "combinator", value)
			return false
		}
		g.Combinator = s
	case PropNot:
		not, err := cast.ToBoolE(value)
		if err != nil {
			b.logger.Debug("update skipped: not flag not a bool", "id", g.ID, "error", err)
			return false
		}
		g.Not = not
	default:
		b.logger.Debug("update skipped: property does not apply to groups", "id", g.ID, "prop", prop)
		return false
	}
	return true
}

// runHook passes a copy of r to the policy hook and takes back only the
// editable properties, so the hook never holds a node of the live tree.
func runHook(policy ResetPolicy, r *types.Rule) {
	if policy.Hook == nil {
		return
	}
	out := policy.Hook(r.Clone())
	if out == nil {
		return
	}
	r.Field = out.Field
	r.Operator = out.Operator
	r.Value = types.CloneValue(out.Value)
}

// knownField accepts names from the field catalog, the empty name and the
// sentinel. Without a catalog every name is accepted.
func (b *Builder) knownField(name string) bool {
	if name == "" || name == types.NoFieldName {
		return true
	}
	fields := b.resolver.FieldMap()
	if len(fields) == 0 {
		return true
	}
	_, ok := fields[name]
	return ok
}

func (b *Builder) knownOperator(field, name string) bool {
	for _, op := range b.resolver.Operators(field) {
		if op.Name == name {
			return true
		}
	}
	return false
}

func (b *Builder) knownCombinator(name string) bool {
	for _, c := range b.resolver.Combinators() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CloneNode appends a copy of node id, with fresh ids, to group parentID.
// The copy goes through AddRule or AddGroup, so interceptors apply.
func (b *Builder) CloneNode(id, parentID string) bool {
	node := tree.FindNode(id, b.root)
	if node == nil {
		b.logger.Debug("clone skipped: node not found", "id", id)
		return false
	}
	switch cp := tree.RegenerateIDs(node).(type) {
	case *types.Rule:
		return b.AddRule(cp, parentID)
	case *types.RuleGroup:
		return b.AddGroup(cp, parentID)
	}
	return false
}

func (b *Builder) commit(next *types.RuleGroup) {
	b.root = next
	b.refresh()
	b.notify()
}

func (b *Builder) refresh() {
	b.validation = validation.Run(b.opts.Validator, b.root)
	b.schema = b.buildSchema()
}

func (b *Builder) notify() {
	if b.opts.OnQueryChange != nil {
		b.opts.OnQueryChange(b.root.Clone())
	}
}
