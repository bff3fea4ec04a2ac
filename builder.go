package machina

import (
	"fmt"

	"github.com/petrijr/machina/pkg/api"
)

// MachineBuilder provides a fluent API for defining machines:
//
//	m, err := machina.New("traffic-light").
//	    Initial("red").
//	    Event("ready", machina.From("red").To("yellow")).
//	    Event("go", machina.From("yellow").To("green")).
//	    Event("stop", machina.From("green").To("red")).
//	    Build()
type MachineBuilder struct {
	def Definition
}

// New creates a new machine builder with the given name.
func New(name string) *MachineBuilder {
	return &MachineBuilder{
		def: Definition{
			Name:   name,
			Events: make([]api.EventDef, 0),
		},
	}
}

// Name returns the machine name.
func (b *MachineBuilder) Name() string {
	return b.def.Name
}

// Definition returns the underlying Definition.
// Typically used when interacting with lower-level APIs.
func (b *MachineBuilder) Definition() Definition {
	return b.def
}

// Initial sets the initial state, entered at Build time through the normal
// trigger pipeline.
func (b *MachineBuilder) Initial(s State) *MachineBuilder {
	b.def.Initial = s
	return b
}

// DeferInitial keeps the machine in the None state at Build time; the
// caller enters the initial state explicitly via Machine.Init.
func (b *MachineBuilder) DeferInitial() *MachineBuilder {
	b.def.DeferInitial = true
	return b
}

// Terminal designates the states Finished reports true for.
func (b *MachineBuilder) Terminal(states ...State) *MachineBuilder {
	b.def.Terminal = append(b.def.Terminal, states...)
	return b
}

// Target sets the external context object used by named-method conditions
// and error-handler redirects.
func (b *MachineBuilder) Target(t Target) *MachineBuilder {
	b.def.Target = t
	return b
}

// KindParent records kind ancestry for error-handler resolution: an error of
// kind child also matches a handler registered for parent.
func (b *MachineBuilder) KindParent(child, parent Kind) *MachineBuilder {
	if b.def.KindParents == nil {
		b.def.KindParents = make(map[Kind]Kind)
	}
	b.def.KindParents[child] = parent
	return b
}

// Event appends an event with the given transition clauses.
func (b *MachineBuilder) Event(name Event, clauses ...*TransitionClause) *MachineBuilder {
	if name == "" {
		panic("machina: event name must not be empty")
	}
	if len(clauses) == 0 {
		panic(fmt.Sprintf("machina: event %q has no transitions", name))
	}

	defs := make([]api.TransitionDef, 0, len(clauses))
	for _, c := range clauses {
		defs = append(defs, c.def)
	}
	b.def.Events = append(b.def.Events, api.EventDef{
		Name:        name,
		Transitions: defs,
	})
	return b
}

// Build constructs the Machine.
func (b *MachineBuilder) Build() (Machine, error) {
	return NewMachine(b.def)
}

// BuildWithObserver constructs the Machine with the given Observer attached.
func (b *MachineBuilder) BuildWithObserver(obs Observer) (Machine, error) {
	return NewMachineWithObserver(b.def, obs)
}

// MustBuild is like Build but panics on error.
// Useful for initialization in main().
func (b *MachineBuilder) MustBuild() Machine {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// TransitionClause is one source-set -> destination rule of an event, built
// with From(...).To(...).
type TransitionClause struct {
	def api.TransitionDef
}

// From starts a transition clause with the given source states. Use
// machina.AnyState for a wildcard rule.
func From(states ...State) *TransitionClause {
	return &TransitionClause{def: api.TransitionDef{From: states}}
}

// To sets the destination state of the clause.
func (c *TransitionClause) To(s State) *TransitionClause {
	c.def.To = s
	return c
}

// If adds an affirmative guard predicate.
func (c *TransitionClause) If(fn PredicateFunc) *TransitionClause {
	c.def.Guards = append(c.def.Guards, api.If(fn))
	return c
}

// Unless adds a negative guard predicate.
func (c *TransitionClause) Unless(fn PredicateFunc) *TransitionClause {
	c.def.Guards = append(c.def.Guards, api.Unless(fn))
	return c
}

// IfMethod adds an affirmative guard backed by a named Target method.
func (c *TransitionClause) IfMethod(name string) *TransitionClause {
	c.def.Guards = append(c.def.Guards, api.IfMethod(name))
	return c
}

// UnlessMethod adds a negative guard backed by a named Target method.
func (c *TransitionClause) UnlessMethod(name string) *TransitionClause {
	c.def.Guards = append(c.def.Guards, api.UnlessMethod(name))
	return c
}

// Action sets the domain-level transition body of the clause, run inside
// the exclusive section immediately before the new state is committed.
func (c *TransitionClause) Action(fn ActionFunc) *TransitionClause {
	c.def.Action = fn
	return c
}
