// internal/builder/schema.go
package builder

import (
	"strings"

	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/tree"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/solatis/querybuilder/internal/validation"
)

// Schema is the read-only bundle handed to renderers. It is rebuilt after
// every change to the tree; callbacks route edits back into the Builder.
type Schema struct {
	Fields        []types.Field
	FieldMap      map[string]types.Field
	Combinators   []types.Combinator
	Classnames    map[string]string
	Translations  defaults.Translations
	ValidationMap map[string]validation.Result

	ShowCombinatorsBetweenRules bool
	ShowNotToggle               bool
	ShowCloneButtons            bool
	AutoSelectField             bool

	CreateRule         func() *types.Rule
	CreateRuleGroup    func() *types.RuleGroup
	OnRuleAdd          func(rule *types.Rule, parentID string) bool
	OnGroupAdd         func(group *types.RuleGroup, parentID string) bool
	OnRuleRemove       func(id, parentID string) bool
	OnGroupRemove      func(id, parentID string) bool
	OnPropChange       func(prop Property, value any, nodeID string) bool
	OnClone            func(id, parentID string) bool
	GetLevel           func(id string) int
	GetOperators       func(field string) []types.Operator
	GetValueEditorType func(field, operator string, rule *types.Rule) string
	GetInputType       func(field, operator string, rule *types.Rule) string
	GetValues          func(field, operator string, rule *types.Rule) []types.NameLabelPair
	IsRuleGroup        func(n types.Node) bool
}

// Schema returns the bundle for the current tree. Every call returns its own
// copies of the catalogs and the validation map.
func (b *Builder) Schema() Schema {
	return b.schema.clone()
}

func (s Schema) clone() Schema {
	out := s
	out.Fields = make([]types.Field, len(s.Fields))
	for i, f := range s.Fields {
		out.Fields[i] = cloneField(f)
	}
	out.FieldMap = make(map[string]types.Field, len(s.FieldMap))
	for name, f := range s.FieldMap {
		out.FieldMap[name] = cloneField(f)
	}
	out.Combinators = append([]types.Combinator(nil), s.Combinators...)
	out.Classnames = make(map[string]string, len(s.Classnames))
	for k, v := range s.Classnames {
		out.Classnames[k] = v
	}
	out.Translations = make(defaults.Translations, len(s.Translations))
	for k, v := range s.Translations {
		out.Translations[k] = v
	}
	out.ValidationMap = make(map[string]validation.Result, len(s.ValidationMap))
	for id, r := range s.ValidationMap {
		r.Reasons = append([]string(nil), r.Reasons...)
		out.ValidationMap[id] = r
	}
	return out
}

func cloneField(f types.Field) types.Field {
	f.Operators = append([]types.Operator(nil), f.Operators...)
	f.Values = append([]types.NameLabelPair(nil), f.Values...)
	f.DefaultValue = types.CloneValue(f.DefaultValue)
	return f
}

func (b *Builder) buildSchema() Schema {
	vm := make(map[string]validation.Result, len(b.validation.Map))
	for id, r := range b.validation.Map {
		vm[id] = r
	}

	return Schema{
		Fields:        b.resolver.Fields(),
		FieldMap:      b.resolver.FieldMap(),
		Combinators:   b.resolver.Combinators(),
		Classnames:    defaults.MergeClassnames(b.opts.ControlClassnames),
		Translations:  defaults.MergeTranslations(b.opts.Translations),
		ValidationMap: vm,

		ShowCombinatorsBetweenRules: b.opts.ShowCombinatorsBetweenRules,
		ShowNotToggle:               b.opts.ShowNotToggle,
		ShowCloneButtons:            b.opts.ShowCloneButtons,
		AutoSelectField:             b.opts.AutoSelectField,

		CreateRule:         b.resolver.NewRule,
		CreateRuleGroup:    b.resolver.NewGroup,
		OnRuleAdd:          b.AddRule,
		OnGroupAdd:         b.AddGroup,
		OnRuleRemove:       b.RemoveRule,
		OnGroupRemove:      b.RemoveGroup,
		OnPropChange:       b.UpdateProperty,
		OnClone:            b.CloneNode,
		GetLevel:           b.Level,
		GetOperators:       b.resolver.Operators,
		GetValueEditorType: b.resolver.ValueEditorType,
		GetInputType:       b.resolver.InputType,
		GetValues:          b.resolver.Values,
		IsRuleGroup:        tree.IsRuleGroup,
	}
}

// ClassName returns the root marker classes: the standard builder class, the
// caller's queryBuilder class and the overall validity class, skipping empty
// ones.
func (b *Builder) ClassName() string {
	parts := []string{
		defaults.StandardClassnames.QueryBuilder,
		b.schema.Classnames["queryBuilder"],
		b.validation.ClassName(),
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
