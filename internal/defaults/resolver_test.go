package defaults

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/querybuilder/internal/types"
)

func TestPrepareFields_Dedupe(t *testing.T) {
	fields := PrepareFields([]types.Field{
		{Name: "age", Label: "Age"},
		{Name: "age", Label: "Age again"},
		{Name: "name", Label: "Name"},
	}, true)

	if len(fields) != 2 {
		t.Fatalf("len(PrepareFields()) = %d, want 2", len(fields))
	}
	if fields[0].Label != "Age" {
		t.Errorf("fields[0].Label = %s, want first occurrence (Age)", fields[0].Label)
	}
}

func TestPrepareFields_Sentinel(t *testing.T) {
	fields := PrepareFields([]types.Field{{Name: "age"}}, false)

	if len(fields) != 2 {
		t.Fatalf("len(PrepareFields()) = %d, want 2", len(fields))
	}
	first := fields[0]
	if first.ID != "~" || first.Name != "~" || first.Label != "------" {
		t.Errorf("fields[0] = %+v, want sentinel {~ ~ ------}", first)
	}

	// A caller-supplied "~" field collides with the sentinel and loses.
	fields = PrepareFields([]types.Field{{Name: "~", Label: "mine"}}, false)
	if len(fields) != 1 || fields[0].Label != types.NoFieldLabel {
		t.Errorf("PrepareFields() = %+v, want only the sentinel", fields)
	}
}

func TestResolver_DefaultField(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no fields", Config{}, ""},
		{"first field", Config{Fields: []types.Field{{Name: "a"}, {Name: "b"}}}, "a"},
		{
			"override wins",
			Config{Fields: []types.Field{{Name: "a"}, {Name: "b"}}, Overrides: Overrides{DefaultField: ConstField("b")}},
			"b",
		},
		{
			"empty override falls through",
			Config{Fields: []types.Field{{Name: "a"}}, Overrides: Overrides{DefaultField: ConstField("")}},
			"a",
		},
		{
			"override sees fields",
			Config{
				Fields: []types.Field{{Name: "a"}, {Name: "b"}},
				Overrides: Overrides{DefaultField: func(fs []types.Field) string {
					return fs[len(fs)-1].Name
				}},
			},
			"b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.cfg).DefaultField(); got != tt.want {
				t.Errorf("DefaultField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_Operators(t *testing.T) {
	own := []types.Operator{{Name: "between"}}
	custom := []types.Operator{{Name: "near"}}

	r := New(Config{
		Fields: []types.Field{{Name: "own", Operators: own}, {Name: "plain"}},
		Overrides: Overrides{Operators: func(field string) []types.Operator {
			if field == "geo" {
				return custom
			}
			return nil
		}},
	})

	if got := r.Operators("own"); len(got) != 1 || got[0].Name != "between" {
		t.Errorf("Operators(own) = %v, want field operators", got)
	}
	if got := r.Operators("geo"); len(got) != 1 || got[0].Name != "near" {
		t.Errorf("Operators(geo) = %v, want override operators", got)
	}
	if got := r.Operators("plain"); len(got) != len(DefaultOperators) {
		t.Errorf("Operators(plain) = %d operators, want global list", len(got))
	}
}

func TestResolver_DefaultOperator(t *testing.T) {
	fields := []types.Field{
		{Name: "withDefault", DefaultOperator: "contains"},
		{Name: "withList", Operators: []types.Operator{{Name: "in"}, {Name: "notIn"}}},
		{Name: "plain"},
	}

	tests := []struct {
		name  string
		o     Overrides
		field string
		want  string
	}{
		{"field default", Overrides{DefaultOperator: ConstOperator(">")}, "withDefault", "contains"},
		{"override", Overrides{DefaultOperator: ConstOperator(">")}, "plain", ">"},
		{"first of field list", Overrides{}, "withList", "in"},
		{"first of global list", Overrides{}, "plain", "="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{Fields: fields, Overrides: tt.o})
			if got := r.DefaultOperator(tt.field); got != tt.want {
				t.Errorf("DefaultOperator(%s) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}

	empty := New(Config{Operators: []types.Operator{}})
	if got := empty.DefaultOperator("x"); got != "" {
		t.Errorf("DefaultOperator() with no operators = %q, want empty", got)
	}
}

func TestResolver_EditorTypes(t *testing.T) {
	r := New(Config{})
	if got := r.ValueEditorType("a", "=", nil); got != EditorText {
		t.Errorf("ValueEditorType() = %q, want %q", got, EditorText)
	}
	if got := r.InputType("a", "=", nil); got != EditorText {
		t.Errorf("InputType() = %q, want %q", got, EditorText)
	}

	r = New(Config{Overrides: Overrides{
		ValueEditorType: func(field, _ string, _ *types.Rule) string {
			if field == "flag" {
				return EditorCheckbox
			}
			return ""
		},
		InputType: func(string, string, *types.Rule) string { return "number" },
	}})
	if got := r.ValueEditorType("flag", "=", nil); got != EditorCheckbox {
		t.Errorf("ValueEditorType(flag) = %q, want checkbox", got)
	}
	if got := r.ValueEditorType("other", "=", nil); got != EditorText {
		t.Errorf("ValueEditorType(other) = %q, want fallback text", got)
	}
	if got := r.InputType("a", "=", nil); got != "number" {
		t.Errorf("InputType() = %q, want number", got)
	}
}

func TestResolver_DefaultValue(t *testing.T) {
	fields := []types.Field{
		{Name: "letters", Values: []types.NameLabelPair{{Name: "a"}, {Name: "b"}}},
		{Name: "fixed", DefaultValue: 42, Values: []types.NameLabelPair{{Name: "a"}}},
		{Name: "flag"},
		{Name: "plain"},
	}
	o := Overrides{
		ValueEditorType: func(field, _ string, _ *types.Rule) string {
			if field == "flag" {
				return EditorCheckbox
			}
			return ""
		},
	}

	tests := []struct {
		field string
		want  any
	}{
		{"letters", "a"},
		{"fixed", 42},
		{"flag", false},
		{"plain", ""},
	}

	r := New(Config{Fields: fields, Overrides: o})
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := r.DefaultValue(&types.Rule{Field: tt.field, Operator: "="})
			if got != tt.want {
				t.Errorf("DefaultValue(%s) = %v (%T), want %v", tt.field, got, got, tt.want)
			}
		})
	}

	withOverride := New(Config{Fields: fields, Overrides: Overrides{
		DefaultValue: func(rule *types.Rule) any {
			if rule.Field == "plain" {
				return "override"
			}
			return nil
		},
	}})
	if got := withOverride.DefaultValue(&types.Rule{Field: "plain"}); got != "override" {
		t.Errorf("DefaultValue(plain) = %v, want override", got)
	}
	if got := withOverride.DefaultValue(&types.Rule{Field: "letters"}); got != "a" {
		t.Errorf("DefaultValue(letters) = %v, want nil override to fall through to a", got)
	}
}

func TestResolver_Values(t *testing.T) {
	r := New(Config{
		Fields: []types.Field{{Name: "own", Values: []types.NameLabelPair{{Name: "x"}}}, {Name: "plain"}},
		Overrides: Overrides{Values: func(field, _ string, _ *types.Rule) []types.NameLabelPair {
			return []types.NameLabelPair{{Name: "from-override"}}
		}},
	})
	if got := r.Values("own", "=", nil); len(got) != 1 || got[0].Name != "x" {
		t.Errorf("Values(own) = %v, want field values", got)
	}
	if got := r.Values("plain", "=", nil); len(got) != 1 || got[0].Name != "from-override" {
		t.Errorf("Values(plain) = %v, want override values", got)
	}
	if got := New(Config{}).Values("plain", "=", nil); got == nil || len(got) != 0 {
		t.Errorf("Values() = %v, want empty non-nil list", got)
	}
}

func TestResolver_NewRule(t *testing.T) {
	r := New(Config{Fields: PrepareFields([]types.Field{
		{Name: "letters", Values: []types.NameLabelPair{{Name: "a"}, {Name: "b"}}},
	}, true)})

	rule := r.NewRule()
	if !strings.HasPrefix(rule.ID, types.RuleIDPrefix) {
		t.Errorf("rule.ID = %s, want %s prefix", rule.ID, types.RuleIDPrefix)
	}
	if rule.Field != "letters" || rule.Operator != "=" || rule.Value != "a" {
		t.Errorf("NewRule() = %+v, want letters = a", rule)
	}

	if other := r.NewRule(); other.ID == rule.ID {
		t.Error("NewRule() reused an id")
	}
}

func TestResolver_NewRule_SentinelField(t *testing.T) {
	r := New(Config{Fields: PrepareFields([]types.Field{{Name: "age"}}, false)})
	rule := r.NewRule()
	if rule.Field != types.NoFieldName {
		t.Errorf("NewRule().Field = %s, want sentinel", rule.Field)
	}
}

func TestResolver_NewGroup(t *testing.T) {
	r := New(Config{Combinators: []types.Combinator{{Name: "or"}, {Name: "and"}}})
	g := r.NewGroup()
	if !strings.HasPrefix(g.ID, types.GroupIDPrefix) {
		t.Errorf("group.ID = %s, want %s prefix", g.ID, types.GroupIDPrefix)
	}
	if g.Combinator != "or" || g.Not || g.Rules == nil || len(g.Rules) != 0 {
		t.Errorf("NewGroup() = %+v, want empty or-group", g)
	}

	r = New(Config{Fields: []types.Field{{Name: "age"}}, AddRuleToNewGroups: true})
	g = r.NewGroup()
	if g.Combinator != "and" {
		t.Errorf("NewGroup().Combinator = %s, want default and", g.Combinator)
	}
	if len(g.Rules) != 1 || g.Rules[0].(*types.Rule).Field != "age" {
		t.Errorf("NewGroup() = %+v, want one default rule", g)
	}
}

func TestMergeTranslations(t *testing.T) {
	tr := MergeTranslations(Translations{
		"addRule": {Label: "Add"},
		"custom":  {Title: "Custom"},
	})
	if tr["addRule"].Label != "Add" || tr["addRule"].Title != "Add rule" {
		t.Errorf("addRule = %+v, want custom label and default title", tr["addRule"])
	}
	if tr["custom"].Title != "Custom" {
		t.Errorf("custom = %+v", tr["custom"])
	}
	if DefaultTranslations()["addRule"].Label != "+Rule" {
		t.Error("MergeTranslations() mutated the defaults")
	}
}

func TestMergeClassnames(t *testing.T) {
	cls := MergeClassnames(map[string]string{"rule": "my-rule"})
	if cls["rule"] != "my-rule" {
		t.Errorf("rule = %q, want my-rule", cls["rule"])
	}
	if v, ok := cls["ruleGroup"]; !ok || v != "" {
		t.Errorf("ruleGroup = %q (present %v), want empty default", v, ok)
	}
}

// Property-based test: the default operator is always one of the operators
// resolved for the field when the field declares any
func TestResolver_PropertyDefaultOperatorResolvable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("DefaultOperator is in Operators", prop.ForAll(
		func(nOps int, pick int) bool {
			ops := make([]types.Operator, nOps)
			for i := range ops {
				ops[i] = types.Operator{Name: "op" + string(rune('a'+i))}
			}
			field := types.Field{Name: "f", Operators: ops}
			if pick < nOps {
				field.DefaultOperator = ops[pick].Name
			}
			r := New(Config{Fields: []types.Field{field}})

			got := r.DefaultOperator("f")
			for _, op := range r.Operators("f") {
				if op.Name == got {
					return true
				}
			}
			return false
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
