// internal/defaults/resolver.go
package defaults

import (
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Default resolution.
 *
 * Each concern has one resolver chain with a fixed precedence; the first step
 * yielding a non-empty result wins. Overrides are optional strategy functions,
 * so a chain has the same shape whether or not they are supplied.
 *
 *   default field     : override -> first field -> ""
 *   operators(field)  : field.Operators -> override -> global operators
 *   default operator  : field.DefaultOperator -> override -> first operator -> ""
 *   editor/input type : override -> "text"
 *   values            : field.Values -> override -> none
 *   default value     : field.DefaultValue -> override -> first value name
 *                       -> false for checkbox editors -> ""
 *
 * "Empty" means "" for strings, nil for values and zero length for lists.
 */

// EditorText is the fallback value editor and input type.
const EditorText = "text"

// EditorCheckbox is the editor type whose default value is false.
const EditorCheckbox = "checkbox"

// Override strategy signatures.
type (
	FieldFunc      func(fields []types.Field) string
	OperatorFunc   func(field string) string
	OperatorsFunc  func(field string) []types.Operator
	EditorTypeFunc func(field, operator string, rule *types.Rule) string
	ValuesFunc     func(field, operator string, rule *types.Rule) []types.NameLabelPair
	ValueFunc      func(rule *types.Rule) any
)

// Overrides holds the caller-supplied strategies. Every member is optional.
type Overrides struct {
	DefaultField    FieldFunc
	DefaultOperator OperatorFunc
	DefaultValue    ValueFunc
	Operators       OperatorsFunc
	ValueEditorType EditorTypeFunc
	InputType       EditorTypeFunc
	Values          ValuesFunc
}

// ConstField returns a FieldFunc that always yields name.
func ConstField(name string) FieldFunc {
	return func([]types.Field) string { return name }
}

// ConstOperator returns an OperatorFunc that always yields name.
func ConstOperator(name string) OperatorFunc {
	return func(string) string { return name }
}

// Config is the configuration a Resolver works from. Fields are expected to
// be prepared with PrepareFields.
type Config struct {
	Fields             []types.Field
	Operators          []types.Operator
	Combinators        []types.Combinator
	AddRuleToNewGroups bool
	Overrides          Overrides
}

// Resolver computes defaults for one field/operator/combinator configuration.
type Resolver struct {
	fields             []types.Field
	fieldMap           map[string]types.Field
	operators          []types.Operator
	combinators        []types.Combinator
	addRuleToNewGroups bool
	o                  Overrides
}

// New creates a resolver. Nil operator or combinator lists fall back to
// DefaultOperators and DefaultCombinators.
func New(cfg Config) *Resolver {
	r := &Resolver{
		fields:             append([]types.Field(nil), cfg.Fields...),
		fieldMap:           make(map[string]types.Field, len(cfg.Fields)),
		operators:          cfg.Operators,
		combinators:        cfg.Combinators,
		addRuleToNewGroups: cfg.AddRuleToNewGroups,
		o:                  cfg.Overrides,
	}
	if r.operators == nil {
		r.operators = DefaultOperators
	}
	if len(r.combinators) == 0 {
		r.combinators = DefaultCombinators
	}
	for _, f := range r.fields {
		r.fieldMap[f.Name] = f
	}
	return r
}

// PrepareFields builds the active field list: the "none selected" sentinel is
// prepended when autoSelectField is false, then fields are deduplicated by
// name keeping the first occurrence.
func PrepareFields(fields []types.Field, autoSelectField bool) []types.Field {
	all := fields
	if !autoSelectField {
		all = append([]types.Field{types.NoField()}, fields...)
	}

	seen := make(map[string]bool, len(all))
	out := make([]types.Field, 0, len(all))
	for _, f := range all {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out
}

// Fields returns a copy of the active field list.
func (r *Resolver) Fields() []types.Field {
	return append([]types.Field(nil), r.fields...)
}

// FieldMap returns a copy of the name -> field index.
func (r *Resolver) FieldMap() map[string]types.Field {
	out := make(map[string]types.Field, len(r.fieldMap))
	for k, v := range r.fieldMap {
		out[k] = v
	}
	return out
}

// Field looks up a field by name.
func (r *Resolver) Field(name string) (types.Field, bool) {
	f, ok := r.fieldMap[name]
	return f, ok
}

// Combinators returns a copy of the active combinator set.
func (r *Resolver) Combinators() []types.Combinator {
	return append([]types.Combinator(nil), r.combinators...)
}

// DefaultField returns the field a new rule starts with.
func (r *Resolver) DefaultField() string {
	return firstOf(
		func() (string, bool) {
			if r.o.DefaultField == nil {
				return "", false
			}
			return nonEmpty(r.o.DefaultField(r.Fields()))
		},
		func() (string, bool) {
			if len(r.fields) == 0 {
				return "", false
			}
			return nonEmpty(r.fields[0].Name)
		},
	)
}

// Operators returns the operators available for field.
func (r *Resolver) Operators(field string) []types.Operator {
	return firstOf(
		func() ([]types.Operator, bool) {
			f, ok := r.fieldMap[field]
			return f.Operators, ok && len(f.Operators) > 0
		},
		func() ([]types.Operator, bool) {
			if r.o.Operators == nil {
				return nil, false
			}
			ops := r.o.Operators(field)
			return ops, len(ops) > 0
		},
		func() ([]types.Operator, bool) {
			return r.operators, true
		},
	)
}

// DefaultOperator returns the operator a rule on field starts with.
func (r *Resolver) DefaultOperator(field string) string {
	return firstOf(
		func() (string, bool) {
			return nonEmpty(r.fieldMap[field].DefaultOperator)
		},
		func() (string, bool) {
			if r.o.DefaultOperator == nil {
				return "", false
			}
			return nonEmpty(r.o.DefaultOperator(field))
		},
		func() (string, bool) {
			ops := r.Operators(field)
			if len(ops) == 0 {
				return "", false
			}
			return nonEmpty(ops[0].Name)
		},
	)
}

// ValueEditorType returns the editor kind for a (field, operator) pair.
func (r *Resolver) ValueEditorType(field, operator string, rule *types.Rule) string {
	return editorType(r.o.ValueEditorType, field, operator, rule)
}

// InputType returns the input kind for a (field, operator) pair.
func (r *Resolver) InputType(field, operator string, rule *types.Rule) string {
	return editorType(r.o.InputType, field, operator, rule)
}

func editorType(override EditorTypeFunc, field, operator string, rule *types.Rule) string {
	return firstOf(
		func() (string, bool) {
			if override == nil {
				return "", false
			}
			return nonEmpty(override(field, operator, rule))
		},
		func() (string, bool) {
			return EditorText, true
		},
	)
}

// Values returns the candidate values for a (field, operator) pair.
func (r *Resolver) Values(field, operator string, rule *types.Rule) []types.NameLabelPair {
	return firstOf(
		func() ([]types.NameLabelPair, bool) {
			f, ok := r.fieldMap[field]
			return f.Values, ok && len(f.Values) > 0
		},
		func() ([]types.NameLabelPair, bool) {
			if r.o.Values == nil {
				return nil, false
			}
			vals := r.o.Values(field, operator, rule)
			return vals, len(vals) > 0
		},
		func() ([]types.NameLabelPair, bool) {
			return []types.NameLabelPair{}, true
		},
	)
}

// DefaultValue returns the value a rule starts with for its current field
// and operator.
func (r *Resolver) DefaultValue(rule *types.Rule) any {
	return firstOf(
		func() (any, bool) {
			v := r.fieldMap[rule.Field].DefaultValue
			return v, v != nil
		},
		func() (any, bool) {
			if r.o.DefaultValue == nil {
				return nil, false
			}
			v := r.o.DefaultValue(rule)
			return v, v != nil
		},
		func() (any, bool) {
			vals := r.Values(rule.Field, rule.Operator, rule)
			if len(vals) == 0 {
				return nil, false
			}
			return vals[0].Name, true
		},
		func() (any, bool) {
			if r.ValueEditorType(rule.Field, rule.Operator, rule) == EditorCheckbox {
				return false, true
			}
			return "", true
		},
	)
}

// NewRule creates a rule with a fresh id: field, then operator for that
// field, then value for the (field, operator) pair.
func (r *Resolver) NewRule() *types.Rule {
	field := r.DefaultField()
	rule := &types.Rule{
		ID:       types.NewRuleID(),
		Field:    field,
		Operator: r.DefaultOperator(field),
		Value:    "",
	}
	rule.Value = r.DefaultValue(rule)
	return rule
}

// NewGroup creates an empty group with a fresh id and the first combinator,
// holding one default rule when configured to.
func (r *Resolver) NewGroup() *types.RuleGroup {
	g := &types.RuleGroup{
		ID:         types.NewGroupID(),
		Combinator: r.combinators[0].Name,
		Rules:      []types.Node{},
	}
	if r.addRuleToNewGroups {
		g.Rules = append(g.Rules, r.NewRule())
	}
	return g
}

// firstOf returns the result of the first step that applies, or the zero
// value when none does.
func firstOf[T any](steps ...func() (T, bool)) T {
	for _, step := range steps {
		if v, ok := step(); ok {
			return v
		}
	}
	var zero T
	return zero
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}
