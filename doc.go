// Package machina provides a lightweight, embeddable finite-state-machine
// engine for Go.
//
// Machina is designed for backend services that need a well-behaved state
// holder: a static transition table, guard conditions, exclusive state
// mutation, ordered observer notification, and error-handler dispatch, all
// in-process, with no wire protocol and no persisted state.
//
// # Core Concepts
//
// The machina programming model is intentionally small:
//
//  1. Machine
//  2. MachineBuilder
//  3. Condition
//  4. Subscribe
//  5. Error handlers
//
// # Machine
//
// A Machine owns one current-state value. Triggering an event resolves the
// destination through the transition table (exact source first, wildcard as
// fallback), evaluates the rule's guards, and, inside an exclusive section
// serialized per instance, dispatches the pre-mutation notification passes,
// runs the rule's action, commits the new state, and dispatches the
// post-mutation passes. A trigger returns one of three results:
//
//   - Succeeded: the state changed.
//   - Cancelled: a guard declined, or a registered error handler absorbed a
//     validation failure. Nothing fired, nothing changed.
//   - NoTransition: the destination equals the current state. No callbacks
//     fire.
//
// Queries (Current, Is, Can, Cannot, States, Events, Finished) are safe to
// call from any goroutine and never block a transition from completing.
//
// # MachineBuilder
//
// The builder is the declarative front-end:
//
//	m, err := machina.New("traffic-light").
//	    Initial("red").
//	    Event("ready", machina.From("red").To("yellow")).
//	    Event("go", machina.From("yellow").To("green")).
//	    Event("stop", machina.From("green").To("red")).
//	    Build()
//
// Definitions can also be loaded from YAML (LoadDefinition) or from a plain
// map (DefinitionFromMap).
//
// # Conditions
//
// Guards are affirmative ("if") or negative ("unless") conditions, backed by
// a predicate function or by a named method on the machine's Target context.
// Named methods are resolved once, when the rule is defined.
//
// # Subscriptions
//
// Subscribe registers a callback for a stage (enter, transition, exit) and a
// selector: a state name, an event name, or the wildcard Any. Around every
// committed transition the engine runs six dispatch passes in a fixed order;
// within each pass, specific-selector callbacks fire before wildcard ones,
// in registration order.
//
// # Error handlers
//
// Errors raised by actions and callbacks inside the exclusive section are
// offered to handlers registered by error kind; kinds form an explicit
// parent tree and the most specific match wins. Unhandled errors are wrapped
// into a TransitionError carrying the original kind, message, and stack.
//
// An optional Observer (logging via log/slog, basic metrics, or a SQLite
// transition journal) can be attached for visibility into every trigger.
package machina
