package api

import "context"

// Result is the per-call outcome of a trigger.
type Result string

const (
	// Succeeded: the transition ran and the new state was committed.
	Succeeded Result = "SUCCEEDED"

	// Cancelled: a guard declined the transition, or a registered handler
	// absorbed the validation failure. Nothing fired, nothing mutated.
	Cancelled Result = "CANCELLED"

	// NoTransition: the resolved destination equals the current state.
	// Self-transitions are not notified.
	NoTransition Result = "NO_TRANSITION"
)

// Stage is a notification stage. Combined with the dispatch points of the
// trigger pipeline the three stages yield six ordered dispatch passes:
// exit-by-source and enter-by-event before the mutation; transition-by-event,
// transition-by-new-state, enter-by-new-state, and exit-by-event after it.
type Stage string

const (
	StageEnter      Stage = "enter"
	StageTransition Stage = "transition"
	StageExit       Stage = "exit"
)

// Subscription is the opaque handle returned by Subscribe, usable to
// unsubscribe.
type Subscription string

// Machine is a single-process state holder. All methods are safe for
// concurrent use; see Trigger for the locking discipline.
type Machine interface {
	// Current returns the current state.
	Current() State

	// Is reports whether the current state is one of states.
	Is(states ...State) bool

	// Can reports whether event resolves to a destination from the current
	// state, exactly or via a wildcard rule.
	Can(event Event) bool

	// Cannot is the negation of Can.
	Cannot(event Event) bool

	// States returns every state mentioned as a rule source or destination,
	// sorted. The wildcard and the reserved init rule are excluded.
	States() []State

	// Events returns every configured event name, sorted, excluding the
	// reserved init event.
	Events() []Event

	// Finished reports whether the current state is one of the configured
	// terminal states. Reaching a terminal state does not block triggers.
	Finished() bool

	// Trigger attempts event from the current state with the given
	// forwarded arguments. On error the returned Result is empty.
	Trigger(ctx context.Context, event Event, args ...any) (Result, error)

	// TriggerFunc returns a trigger bound to event.
	TriggerFunc(event Event) TriggerFunc

	// Init fires the implicit initial transition. It is called by the
	// constructor unless the definition defers it to the caller.
	Init(ctx context.Context) (Result, error)

	// Define appends rules for an event. Redefining an existing
	// (event, source) pair silently replaces the destination.
	Define(def EventDef) error

	// Subscribe registers cb for a stage and a selector (a state name, an
	// event name, or Any) and returns a handle for Unsubscribe. Callbacks
	// fire in registration order, specific selectors before Any.
	Subscribe(stage Stage, selector string, cb Callback) Subscription

	// Unsubscribe removes a previously registered callback.
	Unsubscribe(sub Subscription)

	// OnError registers a handler for an error kind.
	OnError(kind Kind, handler ErrorHandler)

	// OnErrorMethod registers a handler that redirects to a named method on
	// the configured Target. The method is resolved immediately.
	OnErrorMethod(kind Kind, method string) error
}
