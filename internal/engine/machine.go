package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petrijr/machina/pkg/api"
)

// ErrNoInitialState is returned by Init when the definition configured no
// initial state.
var ErrNoInitialState = errors.New("machina: no initial state configured")

// Core is the state machine engine. It owns the single current-state cell
// and orchestrates the trigger pipeline: table lookup, guard evaluation,
// exclusive mutation, staged notification, and error-handler dispatch.
//
// Locking discipline: queries take the read half of stateMu; the
// notification+mutation sequence of a trigger holds execMu, so at most one
// such sequence runs at a time per instance. Lookup and guard evaluation
// deliberately run outside execMu as an optimistic pre-check: two callers
// may both pass the check against the same pre-transition state, and the
// second to acquire execMu commits from a now-stale source. This race is
// part of the engine's contract.
type Core struct {
	name     string
	target   api.Target
	observer api.Observer
	terminal map[api.State]struct{}
	initial  api.State

	stateMu sync.RWMutex
	current api.State

	execMu sync.Mutex

	tableMu sync.RWMutex
	table   *transitionTable

	bus      *notificationBus
	handlers *handlerRegistry
}

var _ api.Machine = (*Core)(nil)

// New builds a Core from def. Unless def.DeferInitial is set, a configured
// initial state is entered immediately through the normal trigger pipeline.
func New(def api.Definition, obs api.Observer) (*Core, error) {
	if def.Name == "" {
		return nil, errors.New("machina: machine name is required")
	}
	if def.DeferInitial && def.Initial == api.None {
		return nil, errors.New("machina: DeferInitial requires an initial state")
	}
	if obs == nil {
		obs = api.NoopObserver{}
	}

	c := &Core{
		name:     def.Name,
		target:   def.Target,
		observer: obs,
		terminal: make(map[api.State]struct{}, len(def.Terminal)),
		initial:  def.Initial,
		current:  api.None,
		table:    newTransitionTable(),
		bus:      newNotificationBus(),
		handlers: newHandlerRegistry(def.KindParents),
	}
	for _, s := range def.Terminal {
		c.terminal[s] = struct{}{}
	}

	for _, e := range def.Events {
		if err := c.Define(e); err != nil {
			return nil, err
		}
	}

	if def.Initial != api.None {
		if err := c.Define(api.EventDef{
			Name: api.InitEvent,
			Transitions: []api.TransitionDef{
				{From: []api.State{api.None}, To: def.Initial},
			},
		}); err != nil {
			return nil, err
		}
		if !def.DeferInitial {
			if _, err := c.Init(context.Background()); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Init fires the implicit initial transition. With a deferred definition the
// caller invokes it explicitly; otherwise the constructor already has.
func (c *Core) Init(ctx context.Context) (api.Result, error) {
	if c.initial == api.None {
		return "", ErrNoInitialState
	}
	return c.Trigger(ctx, api.InitEvent)
}

// Define appends the rules of an event to the transition table, compiling
// guards against the configured target.
func (c *Core) Define(def api.EventDef) error {
	if def.Name == "" {
		return errors.New("machina: event name is required")
	}
	compiled := make([]rule, 0, len(def.Transitions))
	for _, td := range def.Transitions {
		if len(td.From) == 0 {
			return fmt.Errorf("machina: event %q has a rule with no source states", def.Name)
		}
		if td.To == api.AnyState {
			return fmt.Errorf("machina: event %q has the wildcard as a destination", def.Name)
		}
		guards, err := compileConditions(td.Guards, c.target)
		if err != nil {
			return err
		}
		compiled = append(compiled, rule{to: td.To, guards: guards, action: td.Action})
	}

	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	for i, td := range def.Transitions {
		c.table.define(def.Name, td.From, compiled[i])
	}
	return nil
}

// Trigger runs the transition pipeline for event. The forwarded args are
// passed to guards, the rule action, and every subscriber callback.
func (c *Core) Trigger(ctx context.Context, event api.Event, args ...any) (api.Result, error) {
	start := time.Now()
	src := c.Current()

	c.observer.OnTriggerStart(ctx, c.name, api.Transition{Event: event, From: src})

	r, ok := c.lookup(event, src)
	if !ok {
		err := &api.InvalidStateError{Event: event, State: src}
		t := api.Transition{Event: event, From: src}
		if h, found := c.handlers.resolve(err); found {
			h(ctx, t, err)
			c.observer.OnTriggerCompleted(ctx, c.name, t, api.Cancelled, time.Since(start))
			return api.Cancelled, nil
		}
		c.observer.OnTriggerFailed(ctx, c.name, t, err)
		return "", err
	}

	t := api.Transition{Event: event, From: src, To: r.to}

	// Optimistic pre-check, outside the exclusive section.
	pass, err := evalGuards(ctx, r.guards, c.target, args)
	if err != nil {
		// Guard errors propagate immediately and are never offered to
		// the handler registry.
		c.observer.OnTriggerFailed(ctx, c.name, t, err)
		return "", err
	}
	if !pass {
		c.observer.OnTriggerCompleted(ctx, c.name, t, api.Cancelled, time.Since(start))
		return api.Cancelled, nil
	}

	if r.to == src {
		// Self-transitions are silent: no notification, no mutation.
		c.observer.OnTriggerCompleted(ctx, c.name, t, api.NoTransition, time.Since(start))
		return api.NoTransition, nil
	}

	if err := c.runExclusive(ctx, t, r, args); err != nil {
		c.observer.OnTriggerFailed(ctx, c.name, t, err)
		return "", err
	}

	c.observer.OnTriggerCompleted(ctx, c.name, t, api.Succeeded, time.Since(start))
	return api.Succeeded, nil
}

// runExclusive is step 4 of the pipeline: both notification phases and the
// mutation, serialized per instance by execMu.
//
// Dispatch order around the mutation is fixed: exit by source state and
// enter by event name before the commit; transition by event name,
// transition by new state, enter by new state, and exit by event name after
// it. Each pass matches specific-selector subscribers before wildcard ones,
// in registration order.
//
// Any error from a callback or the rule action is offered to the handler
// registry. A handled error is swallowed and the remaining passes (and the
// commit) still run; an unhandled one is escalated to a TransitionError,
// aborting the rest of the section.
func (c *Core) runExclusive(ctx context.Context, t api.Transition, r rule, args []any) error {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	prePasses := []busKey{
		{stage: api.StageExit, selector: string(t.From)},
		{stage: api.StageEnter, selector: string(t.Event)},
	}
	for _, p := range prePasses {
		if err := c.bus.dispatch(ctx, p.stage, p.selector, t, args); err != nil {
			if !c.offer(ctx, t, err) {
				return api.WrapTransition(t, err)
			}
		}
	}

	if r.action != nil {
		if err := r.action(ctx, t, args...); err != nil {
			if !c.offer(ctx, t, err) {
				// Unhandled action error: the commit never happens.
				return api.WrapTransition(t, err)
			}
		}
	}

	c.stateMu.Lock()
	c.current = t.To
	c.stateMu.Unlock()

	postPasses := []busKey{
		{stage: api.StageTransition, selector: string(t.Event)},
		{stage: api.StageTransition, selector: string(t.To)},
		{stage: api.StageEnter, selector: string(t.To)},
		{stage: api.StageExit, selector: string(t.Event)},
	}
	for _, p := range postPasses {
		if err := c.bus.dispatch(ctx, p.stage, p.selector, t, args); err != nil {
			if !c.offer(ctx, t, err) {
				return api.WrapTransition(t, err)
			}
		}
	}

	return nil
}

// offer hands err to the most specific registered handler and reports
// whether it was handled.
func (c *Core) offer(ctx context.Context, t api.Transition, err error) bool {
	h, ok := c.handlers.resolve(err)
	if !ok {
		return false
	}
	h(ctx, t, err)
	return true
}

func (c *Core) lookup(event api.Event, current api.State) (rule, bool) {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.table.resolve(event, current)
}

// Current returns the current state.
func (c *Core) Current() api.State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.current
}

// Is reports whether the current state is one of states.
func (c *Core) Is(states ...api.State) bool {
	cur := c.Current()
	for _, s := range states {
		if s == cur {
			return true
		}
	}
	return false
}

// Can reports whether event resolves from the current state.
func (c *Core) Can(event api.Event) bool {
	_, ok := c.lookup(event, c.Current())
	return ok
}

// Cannot is the negation of Can.
func (c *Core) Cannot(event api.Event) bool {
	return !c.Can(event)
}

// States returns every rule source and destination, sorted, excluding the
// wildcard and the reserved init rule.
func (c *Core) States() []api.State {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.table.states(api.InitEvent)
}

// Events returns the configured event names, sorted, excluding the reserved
// init event.
func (c *Core) Events() []api.Event {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.table.events(api.InitEvent)
}

// Finished reports whether the current state is a terminal state.
func (c *Core) Finished() bool {
	if len(c.terminal) == 0 {
		return false
	}
	_, ok := c.terminal[c.Current()]
	return ok
}

// TriggerFunc returns a trigger bound to event.
func (c *Core) TriggerFunc(event api.Event) api.TriggerFunc {
	return func(ctx context.Context, args ...any) (api.Result, error) {
		return c.Trigger(ctx, event, args...)
	}
}

// Subscribe registers cb for a stage and selector; see api.Machine.
func (c *Core) Subscribe(stage api.Stage, selector string, cb api.Callback) api.Subscription {
	return c.bus.subscribe(stage, selector, cb)
}

// Unsubscribe removes a previously registered callback.
func (c *Core) Unsubscribe(sub api.Subscription) {
	c.bus.unsubscribe(sub)
}

// OnError registers a handler for an error kind.
func (c *Core) OnError(kind api.Kind, handler api.ErrorHandler) {
	c.handlers.register(kind, handler)
}

// OnErrorMethod registers a handler that redirects to a named method on the
// configured target. The error instance is passed as the method's argument.
func (c *Core) OnErrorMethod(kind api.Kind, method string) error {
	if c.target == nil {
		return fmt.Errorf("machina: error handler method %q requires a target", method)
	}
	fn, ok := c.target.Method(method)
	if !ok {
		return fmt.Errorf("machina: target has no method %q", method)
	}
	c.handlers.register(kind, func(ctx context.Context, t api.Transition, err error) {
		_, _ = fn(ctx, err)
	})
	return nil
}
