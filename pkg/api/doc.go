// Package api defines the public types of the machina state machine engine:
// states, events, transition definitions, guard conditions, the Machine
// interface, result codes, error kinds, and the Observer used for logging
// and metrics.
//
// Most users import the root machina package, which re-exports everything
// here; api exists so that internal packages and user code share one set of
// types without import cycles.
package api
