package engine

import (
	"slices"

	"github.com/petrijr/machina/pkg/api"
)

// rule is one compiled entry of the transition table: the destination for a
// given (event, source) pair plus the guards and action of the defining
// TransitionDef.
type rule struct {
	to     api.State
	guards []compiledCondition
	action api.ActionFunc
}

// transitionTable maps event name -> source state -> rule. The wildcard
// source api.AnyState is stored like any other key and consulted as a
// fallback when no exact-source rule exists.
//
// The table carries no lock of its own; the owning core serializes access.
type transitionTable struct {
	rules map[api.Event]map[api.State]rule
}

func newTransitionTable() *transitionTable {
	return &transitionTable{rules: make(map[api.Event]map[api.State]rule)}
}

// define records a rule for every listed source state. Re-defining an
// existing (event, source) pair silently replaces the destination: last
// write wins.
func (t *transitionTable) define(event api.Event, from []api.State, r rule) {
	sources := t.rules[event]
	if sources == nil {
		sources = make(map[api.State]rule)
		t.rules[event] = sources
	}
	for _, src := range from {
		sources[src] = r
	}
}

// resolve returns the rule for (event, current): the exact match if one
// exists, else the wildcard rule, else nothing.
func (t *transitionTable) resolve(event api.Event, current api.State) (rule, bool) {
	sources, ok := t.rules[event]
	if !ok {
		return rule{}, false
	}
	if r, ok := sources[current]; ok {
		return r, true
	}
	r, ok := sources[api.AnyState]
	return r, ok
}

// states returns the sorted union of every source and destination across
// every event, excluding the wildcard and the rules of skipEvent.
func (t *transitionTable) states(skipEvent api.Event) []api.State {
	seen := make(map[api.State]struct{})
	for event, sources := range t.rules {
		if event == skipEvent {
			continue
		}
		for src, r := range sources {
			if src != api.AnyState {
				seen[src] = struct{}{}
			}
			seen[r.to] = struct{}{}
		}
	}
	out := make([]api.State, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// events returns the sorted event names, excluding skipEvent.
func (t *transitionTable) events(skipEvent api.Event) []api.Event {
	out := make([]api.Event, 0, len(t.rules))
	for event := range t.rules {
		if event == skipEvent {
			continue
		}
		out = append(out, event)
	}
	slices.Sort(out)
	return out
}
