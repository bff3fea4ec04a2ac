package api

import "context"

// State is an opaque, comparable state identifier.
type State string

// Event names a transition rule set.
type Event string

const (
	// None is the default starting state of a machine with no configured
	// initial state. It is the zero value of State.
	None State = ""

	// Any is the wildcard. As a transition source it matches every current
	// state when no exact rule exists; as a subscription selector it matches
	// every dispatch of its stage. It is never an actual current state.
	Any = "*"

	// AnyState is Any typed as a State, for use in TransitionDef.From.
	AnyState State = Any

	// InitEvent is the reserved event the constructor fires to enter the
	// configured initial state. It is excluded from States and Events.
	InitEvent Event = "machina.init"
)

// Transition describes one attempted state change. It is passed to every
// subscriber callback, action, and error handler.
type Transition struct {
	Event Event
	From  State
	To    State
}

// ActionFunc is the domain-level transition body attached to a rule. It runs
// inside the exclusive section, after the pre-mutation notification passes
// and immediately before the new state is committed.
type ActionFunc func(ctx context.Context, t Transition, args ...any) error

// Callback is a notification subscriber. It receives the transition context
// followed by the arguments forwarded from Trigger. An error returned from a
// callback propagates like an action error and is offered to the machine's
// error handlers.
type Callback func(ctx context.Context, t Transition, args ...any) error

// TriggerFunc is a trigger bound to one event name, the moral equivalent of
// a generated per-event trigger method.
type TriggerFunc func(ctx context.Context, args ...any) (Result, error)

// TransitionDef is one rule of an event: every state in From (or the
// wildcard AnyState) may transition to To, provided Guards pass.
type TransitionDef struct {
	From   []State
	To     State
	Guards []Condition
	Action ActionFunc
}

// EventDef groups the rules of one named event.
type EventDef struct {
	Name        Event
	Transitions []TransitionDef
}

// Definition is the complete static configuration of a machine.
type Definition struct {
	// Name identifies the machine in logs, metrics, and the journal.
	Name string

	// Initial, when set, is entered through the normal trigger pipeline
	// (via InitEvent) at construction time, or on Machine.Init if
	// DeferInitial is true.
	Initial      State
	DeferInitial bool

	// Terminal lists the states Finished reports true for.
	Terminal []State

	Events []EventDef

	// KindParents is the explicit is-a table for error-handler resolution:
	// child kind to parent kind.
	KindParents map[Kind]Kind

	// Target receives named-method guard conditions and error-handler
	// redirects. May be nil if neither is used.
	Target Target
}
