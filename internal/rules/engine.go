package rules

import (
	"encoding/json"

	"github.com/solatis/querybuilder/internal/types"
)

// Engine evaluates one compiled query against many payloads. Safe for
// concurrent use; the compiled query is never modified.
type Engine struct {
	compiled *CompiledGroup
	cost     int
}

// NewEngine compiles q.
func NewEngine(q *types.RuleGroup, opts CompileOptions) (*Engine, error) {
	compiled, err := CompileWith(q, opts)
	if err != nil {
		return nil, err
	}
	return &Engine{compiled: compiled, cost: QueryCost(compiled)}, nil
}

// Match evaluates a JSON payload.
func (e *Engine) Match(payload json.RawMessage) (MatchResult, error) {
	return Evaluate(e.compiled, payload)
}

// MatchValue evaluates a decoded payload.
func (e *Engine) MatchValue(data any) (MatchResult, error) {
	return EvaluateValue(e.compiled, data)
}

// Cost returns the estimated evaluation cost of the compiled query.
func (e *Engine) Cost() int {
	return e.cost
}
