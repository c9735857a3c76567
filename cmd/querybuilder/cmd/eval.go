package cmd

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr/vm"
	"github.com/solatis/querybuilder/internal/format"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval PAYLOAD_FILE...",
	Short: "Evaluate a query against JSON or YAML payloads",
	Long: `Eval matches every payload against the input query and prints one result
per payload.

The native engine coerces values to the rule's inferred type and applies the
configured missing-field policy (eval.on_missing). The expr engine compiles
the query to an expr-lang program; it does not coerce and always fails rules
on missing fields.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	addQueryFlags(evalCmd)
	evalCmd.Flags().String("engine", "native", "evaluation engine (native, expr)")
}

type evalResult struct {
	Payload      string          `json:"payload"`
	Matched      bool            `json:"matched"`
	MatchedRule  string          `json:"matchedRule,omitempty"`
	MatchedField string          `json:"matchedField,omitempty"`
	MatchedValue any             `json:"matchedValue,omitempty"`
	Results      map[string]bool `json:"results,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	b, err := newBuilder(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	q := b.Query()

	var match func(payload any) evalResult
	engineName, _ := cmd.Flags().GetString("engine")
	switch engineName {
	case "native":
		engine, err := rules.NewEngine(q, cfg.Eval.CompileOptions())
		if err != nil {
			return err
		}
		logger.Debug("query compiled", "engine", engineName, "cost", engine.Cost())
		match = func(payload any) evalResult {
			res, err := engine.MatchValue(payload)
			if err != nil {
				return evalResult{Error: err.Error()}
			}
			out := evalResult{Matched: res.Matched, Results: res.Results}
			if res.MatchedRule != "" {
				out.MatchedRule = res.MatchedRule
				out.MatchedField = rules.FormatPath(res.MatchedField)
				out.MatchedValue = res.MatchedValue
			}
			return out
		}
	case "expr":
		var program *vm.Program
		if program, err = format.CompileExpr(q); err != nil {
			return err
		}
		match = func(payload any) evalResult {
			matched, err := format.MatchExpr(program, payload)
			if err != nil {
				return evalResult{Error: err.Error()}
			}
			return evalResult{Matched: matched}
		}
	default:
		return fmt.Errorf("unknown engine %q", engineName)
	}

	results := make([]evalResult, 0, len(args))
	matched := 0
	for _, path := range args {
		payload, err := readDocument(path)
		if err != nil {
			return err
		}
		res := match(payload)
		res.Payload = path
		if res.Matched {
			matched++
		}
		results = append(results, res)
	}
	logger.Info("evaluation finished", "engine", engineName, "payloads", len(results), "matched", matched)
	return writeOutput(cmd.OutOrStdout(), results)
}
