package api

import "context"

// PredicateFunc is a guard predicate. target is the machine's configured
// Target (possibly nil); args are the arguments forwarded from Trigger.
type PredicateFunc func(ctx context.Context, target Target, args ...any) (bool, error)

// Condition is one guard of a transition rule: either an affirmative "if"
// or a negative "unless", backed by a predicate function or by a named
// method on the Target. Exactly one of Predicate and Method is set.
//
// A transition proceeds iff every "if" condition holds and every "unless"
// condition does not. An empty condition list always passes.
type Condition struct {
	Unless    bool
	Predicate PredicateFunc
	Method    string
}

// If builds an affirmative predicate condition.
func If(fn PredicateFunc) Condition { return Condition{Predicate: fn} }

// Unless builds a negative predicate condition.
func Unless(fn PredicateFunc) Condition { return Condition{Unless: true, Predicate: fn} }

// IfMethod builds an affirmative condition backed by a named Target method.
// The method is resolved once, when the rule is defined.
func IfMethod(name string) Condition { return Condition{Method: name} }

// UnlessMethod builds a negative condition backed by a named Target method.
func UnlessMethod(name string) Condition { return Condition{Unless: true, Method: name} }

// MethodFunc is a named capability exposed by a Target. For guard use the
// returned value is reduced to a boolean via Truthy; for error-handler
// redirects the value is ignored.
type MethodFunc func(ctx context.Context, args ...any) (any, error)

// Target is the capability interface an external context object implements
// to receive named-method guards and error-handler redirects. Lookups happen
// at configuration time, not per trigger.
type Target interface {
	Method(name string) (MethodFunc, bool)
}

// MethodMap is the simplest Target: a lookup table of named methods.
type MethodMap map[string]MethodFunc

func (m MethodMap) Method(name string) (MethodFunc, bool) {
	fn, ok := m[name]
	return fn, ok
}

// Truthy reduces a method result to a guard boolean: nil and false are
// falsy, everything else is truthy.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
