// internal/types/rules_test.go
package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleTree() *RuleGroup {
	return &RuleGroup{
		ID:         "g-root",
		Combinator: "and",
		Rules: []Node{
			&Rule{ID: "r-1", Field: "age", Operator: ">", Value: "21"},
			&RuleGroup{
				ID:         "g-sub",
				Combinator: "or",
				Not:        true,
				Rules: []Node{
					&Rule{ID: "r-2", Field: "tags", Operator: "in", Value: []any{"a", map[string]any{"k": "v"}}},
				},
			},
		},
	}
}

func TestClone_DeepIndependence(t *testing.T) {
	orig := sampleTree()
	cp := orig.Clone()

	if !reflect.DeepEqual(orig, cp) {
		t.Fatalf("Clone() not deep-equal to original")
	}

	cp.Combinator = "or"
	cp.Rules[0].(*Rule).Field = "name"
	sub := cp.Rules[1].(*RuleGroup)
	sub.Rules[0].(*Rule).Value.([]any)[1].(map[string]any)["k"] = "changed"
	sub.Rules = append(sub.Rules, &Rule{ID: "r-3"})

	if orig.Combinator != "and" {
		t.Errorf("original Combinator = %v, want and", orig.Combinator)
	}
	if got := orig.Rules[0].(*Rule).Field; got != "age" {
		t.Errorf("original rule Field = %v, want age", got)
	}
	origSub := orig.Rules[1].(*RuleGroup)
	if len(origSub.Rules) != 1 {
		t.Errorf("len(original sub.Rules) = %d, want 1", len(origSub.Rules))
	}
	if got := origSub.Rules[0].(*Rule).Value.([]any)[1].(map[string]any)["k"]; got != "v" {
		t.Errorf("original nested value = %v, want v", got)
	}
}

func TestRuleGroup_JSONClassifiesChildren(t *testing.T) {
	data, err := json.Marshal(sampleTree())
	if err != nil {
		t.Fatalf("Marshal() error = %v, want nil", err)
	}

	var decoded RuleGroup
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v, want nil", err)
	}

	if len(decoded.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(decoded.Rules))
	}
	if decoded.Rules[0].Kind() != NodeKindRule {
		t.Errorf("Rules[0].Kind() = %v, want rule", decoded.Rules[0].Kind())
	}
	sub, ok := decoded.Rules[1].(*RuleGroup)
	if !ok {
		t.Fatalf("Rules[1] = %T, want *RuleGroup", decoded.Rules[1])
	}
	if !sub.Not || sub.Combinator != "or" {
		t.Errorf("sub group = %+v, want not=true combinator=or", sub)
	}
}

func TestRuleGroup_MarshalEmptyRules(t *testing.T) {
	data, err := json.Marshal(&RuleGroup{ID: "g-1", Combinator: "and"})
	if err != nil {
		t.Fatalf("Marshal() error = %v, want nil", err)
	}
	want := `{"id":"g-1","combinator":"and","not":false,"rules":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestIsGroupJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"group", `{"rules": []}`, true},
		{"rule", `{"field": "age"}`, false},
		{"null rules", `{"rules": null}`, false},
		{"rules not array", `{"rules": "x"}`, false},
		{"not an object", `42`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGroupJSON(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("IsGroupJSON(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	raw := []any{
		map[string]any{
			"name":            "status",
			"label":           "Status",
			"defaultoperator": "=",
			"values": []any{
				map[string]any{"name": "open", "label": "Open"},
			},
		},
		map[string]any{"name": "age", "label": 7},
	}

	fields, err := DecodeFields(raw)
	if err != nil {
		t.Fatalf("DecodeFields() error = %v, want nil", err)
	}
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2", len(fields))
	}
	if fields[0].DefaultOperator != "=" {
		t.Errorf("DefaultOperator = %q, want =", fields[0].DefaultOperator)
	}
	if len(fields[0].Values) != 1 || fields[0].Values[0].Name != "open" {
		t.Errorf("Values = %+v, want [open]", fields[0].Values)
	}
	if fields[1].Label != "7" {
		t.Errorf("weakly typed Label = %q, want 7", fields[1].Label)
	}
}

func TestDecode_RuleAndGroupScalars(t *testing.T) {
	var g RuleGroup
	if err := Decode(map[string]any{"id": "g-1", "combinator": "or", "not": "true", "rules": []any{}}, &g); err != nil {
		t.Fatalf("Decode(group) error = %v, want nil", err)
	}
	if g.ID != "g-1" || g.Combinator != "or" || !g.Not || len(g.Rules) != 0 {
		t.Errorf("Decode(group) = %+v", g)
	}

	var r Rule
	if err := Decode(map[string]any{"id": "r-1", "field": "age", "operator": ">", "value": 3}, &r); err != nil {
		t.Fatalf("Decode(rule) error = %v, want nil", err)
	}
	if r.ID != "r-1" || r.Field != "age" || r.Operator != ">" || r.Value != 3 {
		t.Errorf("Decode(rule) = %+v", r)
	}
}
