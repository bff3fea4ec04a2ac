package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/machina/pkg/api"
)

// compiledCondition is a guard with its named-method form already resolved
// against the Target, so evaluation never does a per-call lookup.
type compiledCondition struct {
	unless bool
	pred   api.PredicateFunc
}

// compileConditions resolves every condition of a rule. Named methods are
// looked up on target once, here; a missing method or a target-less machine
// is a configuration error.
func compileConditions(conds []api.Condition, target api.Target) ([]compiledCondition, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	out := make([]compiledCondition, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.Predicate != nil && c.Method != "":
			return nil, fmt.Errorf("machina: condition has both a predicate and method %q", c.Method)
		case c.Predicate != nil:
			out = append(out, compiledCondition{unless: c.Unless, pred: c.Predicate})
		case c.Method != "":
			if target == nil {
				return nil, fmt.Errorf("machina: condition method %q requires a target", c.Method)
			}
			fn, ok := target.Method(c.Method)
			if !ok {
				return nil, fmt.Errorf("machina: target has no method %q", c.Method)
			}
			out = append(out, compiledCondition{unless: c.Unless, pred: methodPredicate(fn)})
		default:
			return nil, fmt.Errorf("machina: condition has neither a predicate nor a method")
		}
	}
	return out, nil
}

func methodPredicate(fn api.MethodFunc) api.PredicateFunc {
	return func(ctx context.Context, _ api.Target, args ...any) (bool, error) {
		v, err := fn(ctx, args...)
		if err != nil {
			return false, err
		}
		return api.Truthy(v), nil
	}
}

// evalGuards evaluates conditions in list order. The transition proceeds iff
// every "if" condition holds and every "unless" condition does not; the
// first decisive condition short-circuits. A predicate error aborts
// evaluation and is returned as-is.
func evalGuards(ctx context.Context, conds []compiledCondition, target api.Target, args []any) (bool, error) {
	for _, c := range conds {
		ok, err := c.pred(ctx, target, args...)
		if err != nil {
			return false, err
		}
		if ok == c.unless {
			return false, nil
		}
	}
	return true, nil
}
