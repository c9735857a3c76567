// internal/builder/options.go
package builder

import (
	"log/slog"

	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/solatis/querybuilder/internal/validation"
)

// Decision is an interceptor's answer: proceed with a (possibly substituted)
// value, or abort the edit.
type Decision[T any] struct {
	value T
	abort bool
}

// Proceed continues the edit with v.
func Proceed[T any](v T) Decision[T] {
	return Decision[T]{value: v}
}

// Abort cancels the edit with no observable state change.
func Abort[T any]() Decision[T] {
	return Decision[T]{abort: true}
}

// Aborted reports whether the edit was cancelled.
func (d Decision[T]) Aborted() bool { return d.abort }

// Value returns the value to proceed with.
func (d Decision[T]) Value() T { return d.value }

// ResetPolicy controls a cascade on rule edits. Hook, when set, runs after
// the cascade with a copy of the updated rule. A non-nil result replaces the
// rule's field, operator and value; its id is ignored.
type ResetPolicy struct {
	Enabled bool
	Hook    func(rule *types.Rule) *types.Rule
}

// Reset returns a plain on/off policy.
func Reset(enabled bool) ResetPolicy {
	return ResetPolicy{Enabled: enabled}
}

// ResetWith returns an enabled policy running hook after the cascade.
func ResetWith(hook func(rule *types.Rule) *types.Rule) ResetPolicy {
	return ResetPolicy{Enabled: true, Hook: hook}
}

// Interceptor and notification signatures. Every tree argument is a copy.
type (
	AddRuleFunc     func(rule *types.Rule, parentID string, query *types.RuleGroup) Decision[*types.Rule]
	AddGroupFunc    func(group *types.RuleGroup, parentID string, query *types.RuleGroup) Decision[*types.RuleGroup]
	RemoveFunc      func(node types.Node, query *types.RuleGroup, kind types.NodeKind) bool
	QueryChangeFunc func(query *types.RuleGroup)
)

// Options configures a Builder. Start from DefaultOptions; the zero value
// disables every boolean option.
type Options struct {
	// Query is the initial tree in any shape Normalize accepts. Nil starts
	// from a fresh group.
	Query any

	Fields            []types.Field
	Operators         []types.Operator
	Combinators       []types.Combinator
	Translations      defaults.Translations
	ControlClassnames map[string]string

	Overrides defaults.Overrides

	OnAddRule     AddRuleFunc
	OnAddGroup    AddGroupFunc
	OnRemove      RemoveFunc
	OnQueryChange QueryChangeFunc
	Validator     validation.Validator

	EnableMountQueryChange      bool
	ShowCombinatorsBetweenRules bool
	ShowNotToggle               bool
	ShowCloneButtons            bool
	ResetOnFieldChange          ResetPolicy
	ResetOnOperatorChange       ResetPolicy
	AutoSelectField             bool
	AddRuleToNewGroups          bool

	// Logger receives debug records for skipped edits. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the documented defaults: mount notification on,
// reset on field change on, reset on operator change off, automatic field
// selection on, the default operator and combinator catalogs.
func DefaultOptions() Options {
	return Options{
		Operators:              defaults.DefaultOperators,
		Combinators:            defaults.DefaultCombinators,
		EnableMountQueryChange: true,
		ResetOnFieldChange:     Reset(true),
		ResetOnOperatorChange:  Reset(false),
		AutoSelectField:        true,
	}
}
