// Package config provides configuration management for querybuilder services
// and tools.
package config

import (
	"log/slog"
	"time"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/solatis/querybuilder/internal/validation"
)

// Config is the complete querybuilder configuration.
type Config struct {
	Builder  BuilderConfig
	Server   ServerConfig
	Database DatabaseConfig
	Eval     EvalConfig
}

// BuilderConfig holds the declarative builder options. Callbacks and
// overrides are code-only and live in builder.Options.
type BuilderConfig struct {
	Fields            []types.Field
	Operators         []types.Operator
	Combinators       []types.Combinator
	Translations      defaults.Translations
	ControlClassnames map[string]string

	EnableMountQueryChange      bool
	ShowCombinatorsBetweenRules bool
	ShowNotToggle               bool
	ShowCloneButtons            bool
	ResetOnFieldChange          bool
	ResetOnOperatorChange       bool
	AutoSelectField             bool
	AddRuleToNewGroups          bool

	// StructuralValidation installs validation.Structural as the validator.
	StructuralValidation bool
}

// ServerConfig holds configuration for the gRPC session service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxSessions    int
	RequestTimeout time.Duration
	// MaxQueryCost rejects edits whose resulting query exceeds this
	// evaluation cost. Zero disables the check.
	MaxQueryCost int
}

// DatabaseConfig locates the saved-query store.
type DatabaseConfig struct {
	URL string
}

// EvalConfig tunes query evaluation.
type EvalConfig struct {
	// OnMissing is the missing-field policy: skip, match or fail.
	OnMissing string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Builder: BuilderConfig{
			EnableMountQueryChange: true,
			ResetOnFieldChange:     true,
			AutoSelectField:        true,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			MaxSessions:    1000,
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "sqlite://./data/querybuilder.db",
		},
		Eval: EvalConfig{
			OnMissing: "skip",
		},
	}
}

// Options converts the declarative settings into builder options. The
// result carries no initial query and no callbacks.
func (c BuilderConfig) Options(logger *slog.Logger) builder.Options {
	opts := builder.DefaultOptions()
	opts.Fields = c.Fields
	if len(c.Operators) > 0 {
		opts.Operators = c.Operators
	}
	if len(c.Combinators) > 0 {
		opts.Combinators = c.Combinators
	}
	opts.Translations = c.Translations
	opts.ControlClassnames = c.ControlClassnames

	opts.EnableMountQueryChange = c.EnableMountQueryChange
	opts.ShowCombinatorsBetweenRules = c.ShowCombinatorsBetweenRules
	opts.ShowNotToggle = c.ShowNotToggle
	opts.ShowCloneButtons = c.ShowCloneButtons
	opts.ResetOnFieldChange = builder.Reset(c.ResetOnFieldChange)
	opts.ResetOnOperatorChange = builder.Reset(c.ResetOnOperatorChange)
	opts.AutoSelectField = c.AutoSelectField
	opts.AddRuleToNewGroups = c.AddRuleToNewGroups

	if c.StructuralValidation {
		opts.Validator = validation.Structural(opts.Combinators)
	}
	opts.Logger = logger
	return opts
}

// CompileOptions converts the evaluation settings. The policy name has
// already been checked by LoadConfig.
func (c EvalConfig) CompileOptions() rules.CompileOptions {
	policy, _ := rules.ParseOnMissing(c.OnMissing)
	return rules.CompileOptions{OnMissing: policy}
}
