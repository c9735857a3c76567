package config

import (
	"fmt"
	"strings"

	"github.com/solatis/querybuilder/internal/defaults"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned Config.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	// Bind environment variables with QB_ prefix
	v.SetEnvPrefix("QB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Builder: BuilderConfig{
			EnableMountQueryChange:      v.GetBool("builder.enable_mount_query_change"),
			ShowCombinatorsBetweenRules: v.GetBool("builder.show_combinators_between_rules"),
			ShowNotToggle:               v.GetBool("builder.show_not_toggle"),
			ShowCloneButtons:            v.GetBool("builder.show_clone_buttons"),
			ResetOnFieldChange:          v.GetBool("builder.reset_on_field_change"),
			ResetOnOperatorChange:       v.GetBool("builder.reset_on_operator_change"),
			AutoSelectField:             v.GetBool("builder.auto_select_field"),
			AddRuleToNewGroups:          v.GetBool("builder.add_rule_to_new_groups"),
			StructuralValidation:        v.GetBool("builder.structural_validation"),
			ControlClassnames:           canonicalKeys(v.GetStringMapString("builder.control_classnames"), defaults.ControlNames),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxSessions:    v.GetInt("server.max_sessions"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxQueryCost:   v.GetInt("server.max_query_cost"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Eval: EvalConfig{
			OnMissing: v.GetString("eval.on_missing"),
		},
	}

	if err := decodeCatalogs(v, &cfg.Builder); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("builder.enable_mount_query_change", d.Builder.EnableMountQueryChange)
	v.SetDefault("builder.show_combinators_between_rules", d.Builder.ShowCombinatorsBetweenRules)
	v.SetDefault("builder.show_not_toggle", d.Builder.ShowNotToggle)
	v.SetDefault("builder.show_clone_buttons", d.Builder.ShowCloneButtons)
	v.SetDefault("builder.reset_on_field_change", d.Builder.ResetOnFieldChange)
	v.SetDefault("builder.reset_on_operator_change", d.Builder.ResetOnOperatorChange)
	v.SetDefault("builder.auto_select_field", d.Builder.AutoSelectField)
	v.SetDefault("builder.add_rule_to_new_groups", d.Builder.AddRuleToNewGroups)
	v.SetDefault("builder.structural_validation", d.Builder.StructuralValidation)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_query_cost", d.Server.MaxQueryCost)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("eval.on_missing", d.Eval.OnMissing)
}

// decodeCatalogs reads the list-valued sections. They only come from a
// config file, so they are decoded from viper's raw values with the same
// loose rules used for query input.
func decodeCatalogs(v *viper.Viper, b *BuilderConfig) error {
	var err error
	if b.Fields, err = types.DecodeFields(v.Get("fields")); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if b.Operators, err = types.DecodeOperators(v.Get("operators")); err != nil {
		return fmt.Errorf("operators: %w", err)
	}
	if b.Combinators, err = types.DecodeCombinators(v.Get("combinators")); err != nil {
		return fmt.Errorf("combinators: %w", err)
	}
	if raw := v.Get("builder.translations"); raw != nil {
		tr := defaults.Translations{}
		if err := types.Decode(raw, &tr); err != nil {
			return fmt.Errorf("builder.translations: %w", err)
		}
		known := make([]string, 0, len(defaults.DefaultTranslations()))
		for name := range defaults.DefaultTranslations() {
			known = append(known, name)
		}
		b.Translations = canonicalKeys(tr, known)
	}
	return nil
}

// canonicalKeys restores the camelCase spelling of known keys; viper
// lowercases every key it reads. Unknown keys are kept as read.
func canonicalKeys[V any](m map[string]V, known []string) map[string]V {
	if len(m) == 0 {
		return nil
	}
	byLower := make(map[string]string, len(known))
	for _, k := range known {
		byLower[strings.ToLower(k)] = k
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if canon, ok := byLower[strings.ToLower(k)]; ok {
			k = canon
		}
		out[k] = v
	}
	return out
}

// validateConfig checks the port range, positive limits and catalog
// uniqueness.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", cfg.Server.MaxSessions)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxQueryCost < 0 {
		return fmt.Errorf("max_query_cost must not be negative, got %d", cfg.Server.MaxQueryCost)
	}
	if _, err := rules.ParseOnMissing(cfg.Eval.OnMissing); err != nil {
		return fmt.Errorf("eval.on_missing: %w", err)
	}
	for i, f := range cfg.Builder.Fields {
		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
	}
	seen := make(map[string]bool, len(cfg.Builder.Combinators))
	for _, c := range cfg.Builder.Combinators {
		if c.Name == "" || seen[c.Name] {
			return fmt.Errorf("combinators: empty or duplicate name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
