// Package trigger evaluates strategy conditions against an evaluation context.
package trigger

import (
	"strings"

	"github.com/okian/courtside/internal/domain/evaluation"
	"github.com/okian/courtside/internal/domain/model"
)

// Result is the outcome of one trigger evaluation.
type Result struct {
	Passed  bool
	Matched []model.ConditionResult
	Failed  []model.ConditionResult
}

// EvaluateCondition applies c to ctx. It never errors: unknown fields, null
// values and operand type mismatches all fail closed.
func EvaluateCondition(c model.Condition, ctx *evaluation.Context) model.ConditionResult {
	actual := ctx.Lookup(c.Field)
	return model.ConditionResult{Condition: c, Actual: actual, Passed: compare(c, actual)}
}

// EvaluateTrigger passes iff t has at least one condition and all pass. Every
// condition is evaluated so the result lists both sets.
func EvaluateTrigger(t model.Trigger, ctx *evaluation.Context) Result {
	var r Result
	for _, c := range t.Conditions {
		cr := EvaluateCondition(c, ctx)
		if cr.Passed {
			r.Matched = append(r.Matched, cr)
		} else {
			r.Failed = append(r.Failed, cr)
		}
	}
	r.Passed = len(t.Conditions) > 0 && len(r.Failed) == 0
	return r
}

func compare(c model.Condition, actual model.Value) bool {
	if !c.Field.Supported() || actual.IsNull() {
		return false
	}

	switch c.Operator {
	case model.OpEquals:
		return equal(c.Field, actual, c.Value)
	case model.OpNotEquals:
		if c.Value.IsNull() {
			return false
		}
		return !equal(c.Field, actual, c.Value)
	case model.OpGreaterThan:
		return ordered(actual, c.Value, func(a, b float64) bool { return a > b })
	case model.OpLessThan:
		return ordered(actual, c.Value, func(a, b float64) bool { return a < b })
	case model.OpGreaterThanOrEqual:
		return ordered(actual, c.Value, func(a, b float64) bool { return a >= b })
	case model.OpLessThanOrEqual:
		return ordered(actual, c.Value, func(a, b float64) bool { return a <= b })
	case model.OpBetween:
		return between(actual, c.Value, c.Value2)
	case model.OpContains:
		a, ok := actual.Str()
		if !ok {
			return false
		}
		sub, ok := c.Value.Str()
		return ok && strings.Contains(a, sub)
	default:
		return false
	}
}

// equal is strict except that a string operand is parsed when the field is numeric.
func equal(f model.Field, actual, operand model.Value) bool {
	if f.Kind() == model.KindNumber && operand.Kind() == model.KindString {
		n, ok := operand.AsNumber()
		if !ok {
			return false
		}
		operand = model.Number(n)
	}
	return actual.Equal(operand)
}

// ordered requires both sides to already be numbers.
func ordered(actual, operand model.Value, cmp func(a, b float64) bool) bool {
	a, ok := actual.Num()
	if !ok {
		return false
	}
	b, ok := operand.Num()
	if !ok {
		return false
	}
	return cmp(a, b)
}

// between is inclusive; bounds given high-first are swapped.
func between(actual, lo, hi model.Value) bool {
	a, ok := actual.Num()
	if !ok {
		return false
	}
	l, ok := lo.Num()
	if !ok {
		return false
	}
	h, ok := hi.Num()
	if !ok {
		return false
	}
	if l > h {
		l, h = h, l
	}
	return a >= l && a <= h
}
