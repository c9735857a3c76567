// Package types provides the query-tree data model shared across querybuilder
// components.
//
// The structs here double as the wire format: JSON tags mirror the shape
// exchanged with renderers and host applications, mapstructure tags let
// loosely typed inputs (config files, gRPC structs, edit scripts) decode into
// the same types. ID utilities in ids.go import uuid and are isolated from the
// rest of the model.
package types

// NameLabelPair is a selectable option, e.g. a candidate value for a field.
type NameLabelPair struct {
	Name  string `json:"name" mapstructure:"name"`
	Label string `json:"label" mapstructure:"label"`
}

// Operator names a comparison available for a field.
// Name is unique within the operator list it belongs to.
type Operator struct {
	Name  string `json:"name" mapstructure:"name"`
	Label string `json:"label" mapstructure:"label"`
}

// Combinator names the logical joiner applied across a group's children.
// "and" and "or" are the defaults; callers may define others.
type Combinator struct {
	Name  string `json:"name" mapstructure:"name"`
	Label string `json:"label" mapstructure:"label"`
}

// Field describes a queryable attribute. Name is unique within the active
// field set; duplicates are dropped on intake, first occurrence wins.
type Field struct {
	ID              string          `json:"id,omitempty" mapstructure:"id"`
	Name            string          `json:"name" mapstructure:"name"`
	Label           string          `json:"label" mapstructure:"label"`
	Operators       []Operator      `json:"operators,omitempty" mapstructure:"operators"`
	Values          []NameLabelPair `json:"values,omitempty" mapstructure:"values"`
	DefaultOperator string          `json:"defaultOperator,omitempty" mapstructure:"defaultOperator"`
	DefaultValue    any             `json:"defaultValue,omitempty" mapstructure:"defaultValue"`
	Placeholder     string          `json:"placeholder,omitempty" mapstructure:"placeholder"`
}

// Sentinel "none selected" field injected when automatic field selection is
// disabled.
const (
	NoFieldName  = "~"
	NoFieldLabel = "------"
)

// NoField returns the "none selected" pseudo-field.
func NoField() Field {
	return Field{ID: NoFieldName, Name: NoFieldName, Label: NoFieldLabel}
}

// Resource limits enforced by the query evaluator.
const (
	// MaxPathDepth bounds recursion when resolving dotted field names.
	MaxPathDepth = 16

	// MaxNestedWildcards limits [*] segments in one field name.
	MaxNestedWildcards = 2

	// MaxInOperatorValues caps the candidate list of in/notIn rules.
	MaxInOperatorValues = 64
)

// PathSegment is one step of a parsed field name.
type PathSegment struct {
	Key      string // object key (mutually exclusive with Index/Wildcard)
	Index    int    // array index (mutually exclusive with Key/Wildcard)
	IsIndex  bool   // disambiguates Index=0 from unset
	Wildcard bool   // true = wildcard segment
}
