// internal/format/sql.go

// Package format renders query trees into other query languages: a
// parameterized SQL WHERE clause and an expr-lang boolean expression.
//
// Both renderers go through rules.Compile, so they accept exactly what the
// evaluator accepts and skip the same unselected rules.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/types"
)

// Placeholder selects the bind parameter syntax.
type Placeholder int

const (
	// Question renders "?" (sqlite, mysql).
	Question Placeholder = iota
	// Dollar renders "$1", "$2", ... (postgres).
	Dollar
)

// SQLOptions tunes SQL rendering.
type SQLOptions struct {
	Placeholder Placeholder

	// QuoteIdent quotes a field name for use as a column. Defaults to
	// double-quoting the whole name.
	QuoteIdent func(field string) string
}

// ToSQL renders q as a WHERE clause body with bind parameters. An empty
// group renders as "(1 = 1)".
func ToSQL(q *types.RuleGroup, opts SQLOptions) (string, []any, error) {
	compiled, err := rules.Compile(q)
	if err != nil {
		return "", nil, err
	}
	if opts.QuoteIdent == nil {
		opts.QuoteIdent = quoteIdent
	}

	w := &sqlWriter{opts: opts}
	w.group(compiled)
	return w.sb.String(), w.args, nil
}

type sqlWriter struct {
	opts SQLOptions
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) bind(v any) string {
	w.args = append(w.args, v)
	if w.opts.Placeholder == Dollar {
		return "$" + strconv.Itoa(len(w.args))
	}
	return "?"
}

func (w *sqlWriter) group(g *rules.CompiledGroup) {
	if g.Not {
		w.sb.WriteString("NOT ")
	}
	if len(g.Children) == 0 {
		w.sb.WriteString("(1 = 1)")
		return
	}

	joiner := " AND "
	if g.Combinator == rules.CombinatorOr {
		joiner = " OR "
	}

	w.sb.WriteByte('(')
	for i, child := range g.Children {
		if i > 0 {
			w.sb.WriteString(joiner)
		}
		if child.Group != nil {
			w.group(child.Group)
			continue
		}
		w.rule(child.Rule)
	}
	w.sb.WriteByte(')')
}

func (w *sqlWriter) rule(r *rules.CompiledRule) {
	col := w.opts.QuoteIdent(r.Field)

	switch r.Operator {
	case rules.OpIsNull:
		fmt.Fprintf(&w.sb, "%s IS NULL", col)
	case rules.OpNotNull:
		fmt.Fprintf(&w.sb, "%s IS NOT NULL", col)
	case rules.OpIn, rules.OpNotIn:
		w.set(col, r)
	case rules.OpContains:
		fmt.Fprintf(&w.sb, "%s LIKE %s", col, w.bind("%"+text(r.Value)+"%"))
	case rules.OpNotContains:
		fmt.Fprintf(&w.sb, "%s NOT LIKE %s", col, w.bind("%"+text(r.Value)+"%"))
	case rules.OpPrefix:
		fmt.Fprintf(&w.sb, "%s LIKE %s", col, w.bind(text(r.Value)+"%"))
	case rules.OpNotPrefix:
		fmt.Fprintf(&w.sb, "%s NOT LIKE %s", col, w.bind(text(r.Value)+"%"))
	case rules.OpSuffix:
		fmt.Fprintf(&w.sb, "%s LIKE %s", col, w.bind("%"+text(r.Value)))
	case rules.OpNotSuffix:
		fmt.Fprintf(&w.sb, "%s NOT LIKE %s", col, w.bind("%"+text(r.Value)))
	default:
		fmt.Fprintf(&w.sb, "%s %s %s", col, sqlComparison(r.Operator), w.bind(r.Value))
	}
}

func (w *sqlWriter) set(col string, r *rules.CompiledRule) {
	if len(r.Values) == 0 {
		// IN () is not valid SQL
		if r.Operator == rules.OpIn {
			w.sb.WriteString("(1 = 0)")
		} else {
			w.sb.WriteString("(1 = 1)")
		}
		return
	}

	keyword := "IN"
	if r.Operator == rules.OpNotIn {
		keyword = "NOT IN"
	}
	marks := make([]string, len(r.Values))
	for i, v := range r.Values {
		marks[i] = w.bind(v)
	}
	fmt.Fprintf(&w.sb, "%s %s (%s)", col, keyword, strings.Join(marks, ", "))
}

func sqlComparison(op rules.Operator) string {
	switch op {
	case rules.OpNeq:
		return "<>"
	case rules.OpLt:
		return "<"
	case rules.OpLte:
		return "<="
	case rules.OpGt:
		return ">"
	case rules.OpGte:
		return ">="
	default:
		return "="
	}
}

func quoteIdent(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
