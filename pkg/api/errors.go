package api

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Kind classifies an error for handler resolution. Kinds form an explicit
// tree via Definition.KindParents; resolution walks from the exact kind up
// through its ancestors and picks the first registered handler.
type Kind string

const (
	// KindInvalidState classifies InvalidStateError: an event was triggered
	// from a state with no matching rule, exact or wildcard.
	KindInvalidState Kind = "machina.invalid_state"

	// KindTransition classifies TransitionError: an error escaped the
	// exclusive section without a matching handler.
	KindTransition Kind = "machina.transition"
)

// ErrorHandler is invoked when an error raised inside the exclusive section
// (or a validation failure) resolves to its kind. A handled error is
// swallowed; the remaining notification passes still run.
type ErrorHandler func(ctx context.Context, t Transition, err error)

// kinder is implemented by errors that carry a Kind.
type kinder interface {
	ErrorKind() Kind
}

// KindOf reports the kind of err, walking wrapped errors. It returns the
// empty Kind for unclassified errors.
func KindOf(err error) Kind {
	var k kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ""
}

type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string   { return e.err.Error() }
func (e *kindedError) Unwrap() error   { return e.err }
func (e *kindedError) ErrorKind() Kind { return e.kind }

// Kinded attaches a kind to err so it can be matched by a registered
// handler. A nil err yields nil.
func Kinded(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, err: err}
}

// NewError builds a new kinded error from a format string.
func NewError(kind Kind, format string, args ...any) error {
	return &kindedError{kind: kind, err: fmt.Errorf(format, args...)}
}

// InvalidStateError reports an event triggered from a state the transition
// table has no rule for.
type InvalidStateError struct {
	Event Event
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("machina: event %q cannot be triggered from state %q", e.Event, e.State)
}

func (e *InvalidStateError) ErrorKind() Kind { return KindInvalidState }

// TransitionError wraps an error that escaped a transition body or a
// notification callback with no handler registered for its kind. It carries
// the original kind, message, and stack trace.
type TransitionError struct {
	Transition Transition
	Kind       Kind // kind of the wrapped error; empty if unclassified
	Err        error
	Stack      []byte
}

// WrapTransition builds a TransitionError around err for transition t.
func WrapTransition(t Transition, err error) *TransitionError {
	return &TransitionError{
		Transition: t,
		Kind:       KindOf(err),
		Err:        err,
		Stack:      debug.Stack(),
	}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("machina: transition %s (%s -> %s) failed: %v",
		e.Transition.Event, e.Transition.From, e.Transition.To, e.Err)
}

func (e *TransitionError) Unwrap() error   { return e.Err }
func (e *TransitionError) ErrorKind() Kind { return KindTransition }
