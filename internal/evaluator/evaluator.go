// Package evaluator wraps the expr-lang expression engine as the
// calculator's arithmetic collaborator. The grammar is whatever expr
// accepts; this package only pins down the environment (the scientific
// function names the input surfaces insert) and the display formatting.
package evaluator

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
)

// errUndefined marks a run that produced NaN or an infinity, e.g.
// sqrt(-1) or division by zero.
var errUndefined = errors.New("result is undefined")

// env holds the names the scientific surface inserts into the buffer.
// expr's own `^` operator covers exponentiation.
var env = map[string]any{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"sqrt":  math.Sqrt,
	"log":   math.Log,
	"log10": math.Log10,
	"abs":   math.Abs,
	"exp":   math.Exp,
	"pi":    math.Pi,
	"e":     math.E,
}

// floatLiterals rewrites integer literals to floats at compile time so
// the whole expression runs in float64. Without it 7/2 would truncate to
// 3, which is not what a display calculator shows.
type floatLiterals struct{}

func (floatLiterals) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.IntegerNode); ok {
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	}
}

// Evaluator is stateless and safe for concurrent use.
type Evaluator struct{}

func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate compiles and runs expression, returning its display value. An
// error means the expression is syntactically invalid or mathematically
// undefined; the caller decides presentation policy.
func (e *Evaluator) Evaluate(expression string) (string, error) {
	program, err := expr.Compile(expression, expr.Env(env), expr.Patch(floatLiterals{}))
	if err != nil {
		return "", fmt.Errorf("compile expression: %w", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return "", fmt.Errorf("run expression: %w", err)
	}

	return formatValue(out)
}

func formatValue(v any) (string, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", errUndefined
		}
		return formatFloat(n), nil
	case int:
		return strconv.Itoa(n), nil
	default:
		return "", fmt.Errorf("non-numeric result %T", v)
	}
}

// formatFloat prefers plain decimal notation; exponent form only kicks
// in past the range where float64 holds exact integers.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
