// Package defaults resolves default fields, operators, editor types and
// values for new or edited rules, and carries the built-in catalogs
// (operators, combinators, translations, classnames).
package defaults

import (
	"github.com/solatis/querybuilder/internal/types"
)

// DefaultOperators is the global operator list used when neither the field
// nor an override supplies one.
var DefaultOperators = []types.Operator{
	{Name: "=", Label: "="},
	{Name: "!=", Label: "!="},
	{Name: "<", Label: "<"},
	{Name: ">", Label: ">"},
	{Name: "<=", Label: "<="},
	{Name: ">=", Label: ">="},
	{Name: "contains", Label: "contains"},
	{Name: "beginsWith", Label: "begins with"},
	{Name: "endsWith", Label: "ends with"},
	{Name: "doesNotContain", Label: "does not contain"},
	{Name: "doesNotBeginWith", Label: "does not begin with"},
	{Name: "doesNotEndWith", Label: "does not end with"},
	{Name: "null", Label: "is null"},
	{Name: "notNull", Label: "is not null"},
	{Name: "in", Label: "in"},
	{Name: "notIn", Label: "not in"},
}

// DefaultCombinators is the combinator set used when none is configured.
var DefaultCombinators = []types.Combinator{
	{Name: "and", Label: "AND"},
	{Name: "or", Label: "OR"},
}

// Translation is the label/title pair of one control.
type Translation struct {
	Label string `json:"label,omitempty" mapstructure:"label"`
	Title string `json:"title,omitempty" mapstructure:"title"`
}

// Translations maps control names to their strings.
type Translations map[string]Translation

// DefaultTranslations returns a fresh copy of the built-in control strings.
func DefaultTranslations() Translations {
	return Translations{
		"fields":         {Title: "Fields"},
		"operators":      {Title: "Operators"},
		"value":          {Title: "Value"},
		"removeRule":     {Label: "x", Title: "Remove rule"},
		"removeGroup":    {Label: "x", Title: "Remove group"},
		"addRule":        {Label: "+Rule", Title: "Add rule"},
		"addGroup":       {Label: "+Group", Title: "Add group"},
		"combinators":    {Title: "Combinators"},
		"notToggle":      {Label: "Not", Title: "Invert this group"},
		"cloneRule":      {Label: "⧉", Title: "Clone rule"},
		"cloneRuleGroup": {Label: "⧉", Title: "Clone group"},
	}
}

// MergeTranslations overlays custom on the defaults. Empty strings in custom
// keep the default.
func MergeTranslations(custom Translations) Translations {
	out := DefaultTranslations()
	for name, tr := range custom {
		base := out[name]
		if tr.Label != "" {
			base.Label = tr.Label
		}
		if tr.Title != "" {
			base.Title = tr.Title
		}
		out[name] = base
	}
	return out
}

// StandardClassnames are the fixed markers applied regardless of caller
// classnames.
var StandardClassnames = struct {
	QueryBuilder string
	Valid        string
	Invalid      string
}{
	QueryBuilder: "queryBuilder",
	Valid:        "queryBuilder-valid",
	Invalid:      "queryBuilder-invalid",
}

// ControlNames lists the controls a renderer may attach classnames to.
var ControlNames = []string{
	"queryBuilder", "ruleGroup", "header", "body", "combinators", "addRule",
	"addGroup", "cloneRule", "cloneGroup", "removeGroup", "notToggle", "rule",
	"fields", "operators", "value", "removeRule",
}

// DefaultControlClassnames returns an empty classname for every control.
func DefaultControlClassnames() map[string]string {
	out := make(map[string]string, len(ControlNames))
	for _, name := range ControlNames {
		out[name] = ""
	}
	return out
}

// MergeClassnames overlays custom on DefaultControlClassnames.
func MergeClassnames(custom map[string]string) map[string]string {
	out := DefaultControlClassnames()
	for name, cls := range custom {
		out[name] = cls
	}
	return out
}
