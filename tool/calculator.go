package tool

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// allowedExpr whitelists arithmetic characters plus lowercase letters for
// the named math functions. Anything else is stripped before evaluation so
// shell metacharacters and identifiers can never reach the evaluator.
var (
	allowedExpr = regexp.MustCompile(`^[0-9\s+\-*/%().,^a-z]*$`)
	disallowed  = regexp.MustCompile(`[^0-9\s+\-*/%().,^a-z]`)
	exprWord    = regexp.MustCompile(`[a-z]+`)
	exprFuncSet = map[string]struct{}{"sqrt": {}, "abs": {}, "log": {}, "round": {}, "floor": {}, "ceil": {}, "min": {}, "max": {}, "pow": {}, "e": {}, "pi": {}}
	exprFuncs   = mathFunctions()
	constPi     = regexp.MustCompile(`\bpi\b`)
	constE      = regexp.MustCompile(`\be\b`)
)

func mathFunctions() map[string]govaluate.ExpressionFunction {
	unary := func(fn func(float64) float64) govaluate.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
			}
			v, ok := args[0].(float64)
			if !ok {
				return nil, fmt.Errorf("non-numeric argument")
			}
			return fn(v), nil
		}
	}
	binary := func(fn func(float64, float64) float64) govaluate.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
			}
			a, aok := args[0].(float64)
			b, bok := args[1].(float64)
			if !aok || !bok {
				return nil, fmt.Errorf("non-numeric argument")
			}
			return fn(a, b), nil
		}
	}
	return map[string]govaluate.ExpressionFunction{
		"sqrt":  unary(math.Sqrt),
		"abs":   unary(math.Abs),
		"log":   unary(math.Log),
		"round": unary(math.Round),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"min":   binary(math.Min),
		"max":   binary(math.Max),
		"pow":   binary(math.Pow),
	}
}

// calculate evaluates an arithmetic expression restricted to the character
// whitelist and the named math functions. Malformed or non-numeric input
// yields an inline error string with ok=false.
func (d *Dispatcher) calculate(expression string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(expression))
	if cleaned == "" {
		return "[Invalid expression]", false
	}

	if !allowedExpr.MatchString(cleaned) {
		cleaned = disallowed.ReplaceAllString(cleaned, "")
		if strings.TrimSpace(cleaned) == "" {
			return "[Invalid expression]", false
		}
	}

	for _, word := range exprWord.FindAllString(cleaned, -1) {
		if _, ok := exprFuncSet[word]; !ok {
			return fmt.Sprintf("[Invalid expression: unknown name %q]", word), false
		}
	}

	// Map the conventional caret exponent and named constants.
	cleaned = strings.ReplaceAll(cleaned, "^", "**")
	cleaned = constPi.ReplaceAllString(cleaned, strconv.FormatFloat(math.Pi, 'f', -1, 64))
	cleaned = constE.ReplaceAllString(cleaned, strconv.FormatFloat(math.E, 'f', -1, 64))

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(cleaned, exprFuncs)
	if err != nil {
		return fmt.Sprintf("[Calc error: %v]", err), false
	}
	value, err := expr.Evaluate(nil)
	if err != nil {
		return fmt.Sprintf("[Calc error: %v]", err), false
	}

	result, ok := value.(float64)
	if !ok {
		return fmt.Sprintf("[Calc error: non-numeric result %v]", value), false
	}
	return strconv.FormatFloat(math.Round(result*1e6)/1e6, 'f', -1, 64), true
}
