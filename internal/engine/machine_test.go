package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/machina/pkg/api"
)

func trafficLightDef() api.Definition {
	return api.Definition{
		Name:    "traffic-light",
		Initial: "red",
		Events: []api.EventDef{
			{Name: "ready", Transitions: []api.TransitionDef{{From: []api.State{"red"}, To: "yellow"}}},
			{Name: "go", Transitions: []api.TransitionDef{{From: []api.State{"yellow"}, To: "green"}}},
			{Name: "stop", Transitions: []api.TransitionDef{{From: []api.State{"green"}, To: "red"}}},
		},
	}
}

func mustCore(t *testing.T, def api.Definition) *Core {
	t.Helper()
	c, err := New(def, nil)
	require.NoError(t, err)
	return c
}

func TestTrafficLight(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	assert.Equal(t, api.State("red"), c.Current())

	var gotArgs []any
	c.Subscribe(api.StageEnter, "go", func(ctx context.Context, tr api.Transition, args ...any) error {
		gotArgs = args
		return nil
	})

	res, err := c.Trigger(ctx, "ready")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("yellow"), c.Current())

	res, err = c.Trigger(ctx, "go", "P")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("green"), c.Current())
	assert.Equal(t, []any{"P"}, gotArgs)
}

func TestTerminalState(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:     "terminal",
		Initial:  "green",
		Terminal: []api.State{"red"},
		Events: []api.EventDef{
			{Name: "slow", Transitions: []api.TransitionDef{{From: []api.State{"green"}, To: "yellow"}}},
			{Name: "stop", Transitions: []api.TransitionDef{{From: []api.State{"yellow"}, To: "red"}}},
		},
	})

	assert.False(t, c.Finished())

	_, err := c.Trigger(ctx, "slow")
	require.NoError(t, err)
	assert.False(t, c.Finished())

	_, err = c.Trigger(ctx, "stop")
	require.NoError(t, err)
	assert.True(t, c.Finished())

	// Terminal is observational only; triggers keep working.
	res, err := c.Trigger(ctx, "slow")
	require.Error(t, err)
	assert.Empty(t, res)
}

func TestGuardedTransitionCancels(t *testing.T) {
	ctx := context.Background()
	target := api.MethodMap{
		"ready": func(ctx context.Context, args ...any) (any, error) { return false, nil },
	}
	c := mustCore(t, api.Definition{
		Name:    "guarded",
		Initial: "neutral",
		Target:  target,
		Events: []api.EventDef{
			{Name: "start", Transitions: []api.TransitionDef{{
				From:   []api.State{"neutral"},
				To:     "one",
				Guards: []api.Condition{api.IfMethod("ready")},
			}}},
		},
	})

	fired := 0
	c.Subscribe(api.StageEnter, api.Any, func(ctx context.Context, tr api.Transition, args ...any) error {
		fired++
		return nil
	})
	c.Subscribe(api.StageExit, api.Any, func(ctx context.Context, tr api.Transition, args ...any) error {
		fired++
		return nil
	})

	res, err := c.Trigger(ctx, "start")
	require.NoError(t, err)
	assert.Equal(t, api.Cancelled, res)
	assert.Equal(t, api.State("neutral"), c.Current())
	assert.Zero(t, fired, "a cancelled transition fires no subscriber")
}

func TestMultiSourceGrouping(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:    "grouped",
		Initial: "two",
		Events: []api.EventDef{
			{Name: "slow", Transitions: []api.TransitionDef{{
				From: []api.State{"one", "two", "three"},
				To:   "one",
			}}},
		},
	})

	res, err := c.Trigger(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("one"), c.Current())
}

func TestSelfTransitionIsSilent(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:    "self",
		Initial: "one",
		Events: []api.EventDef{
			{Name: "slow", Transitions: []api.TransitionDef{{
				From: []api.State{"one", "two"},
				To:   "one",
			}}},
		},
	})

	fired := 0
	for _, stage := range []api.Stage{api.StageEnter, api.StageTransition, api.StageExit} {
		c.Subscribe(stage, api.Any, func(ctx context.Context, tr api.Transition, args ...any) error {
			fired++
			return nil
		})
	}

	res, err := c.Trigger(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, api.NoTransition, res)
	assert.Equal(t, api.State("one"), c.Current())
	assert.Zero(t, fired)
}

func TestInvalidState(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	res, err := c.Trigger(ctx, "stop") // only legal from green
	require.Error(t, err)
	assert.Empty(t, res)

	var ise *api.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, api.Event("stop"), ise.Event)
	assert.Equal(t, api.State("red"), ise.State)

	assert.Equal(t, api.State("red"), c.Current())
}

func TestInvalidStateWithHandler(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	handled := 0
	c.OnError(api.KindInvalidState, func(ctx context.Context, tr api.Transition, err error) {
		handled++
		var ise *api.InvalidStateError
		assert.ErrorAs(t, err, &ise)
	})

	res, err := c.Trigger(ctx, "stop")
	require.NoError(t, err)
	assert.Equal(t, api.Cancelled, res)
	assert.Equal(t, 1, handled, "the handler runs exactly once")
	assert.Equal(t, api.State("red"), c.Current())
}

func TestWildcardRule(t *testing.T) {
	ctx := context.Background()
	def := trafficLightDef()
	def.Events = append(def.Events, api.EventDef{
		Name:        "panic",
		Transitions: []api.TransitionDef{{From: []api.State{api.AnyState}, To: "red"}},
	})
	c := mustCore(t, def)

	_, err := c.Trigger(ctx, "ready")
	require.NoError(t, err)
	require.Equal(t, api.State("yellow"), c.Current())

	res, err := c.Trigger(ctx, "panic")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("red"), c.Current())

	// From red the destination equals the current state.
	res, err = c.Trigger(ctx, "panic")
	require.NoError(t, err)
	assert.Equal(t, api.NoTransition, res)
}

func TestNotificationPassOrdering(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:    "ordering",
		Initial: "a",
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{From: []api.State{"a"}, To: "b"}}},
		},
	})

	var log []string
	record := func(token string) api.Callback {
		return func(ctx context.Context, tr api.Transition, args ...any) error {
			log = append(log, token)
			return nil
		}
	}

	c.Subscribe(api.StageExit, "a", record("exit:a#1"))
	c.Subscribe(api.StageExit, "a", record("exit:a#2"))
	c.Subscribe(api.StageExit, api.Any, record("exit:*"))
	c.Subscribe(api.StageEnter, "advance", record("enter:advance"))
	c.Subscribe(api.StageTransition, "advance", record("transition:advance"))
	c.Subscribe(api.StageTransition, "b", record("transition:b"))
	c.Subscribe(api.StageEnter, "b", record("enter:b"))
	c.Subscribe(api.StageExit, "advance", record("exit:advance"))

	res, err := c.Trigger(ctx, "advance")
	require.NoError(t, err)
	require.Equal(t, api.Succeeded, res)

	assert.Equal(t, []string{
		// pre-mutation: exit by source state, then enter by event name.
		"exit:a#1", "exit:a#2", "exit:*",
		"enter:advance",
		// post-mutation: transition by event, transition by new state,
		// enter by new state, exit by event.
		"transition:advance",
		"transition:b",
		"enter:b",
		"exit:advance", "exit:*",
	}, log)
}

func TestSameKindCallbackOrdering(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	var log []string
	c.Subscribe(api.StageEnter, "yellow", func(ctx context.Context, tr api.Transition, args ...any) error {
		log = append(log, "first")
		return nil
	})
	c.Subscribe(api.StageEnter, "yellow", func(ctx context.Context, tr api.Transition, args ...any) error {
		log = append(log, "second")
		return nil
	})

	_, err := c.Trigger(ctx, "ready")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, log)
}

func TestActionRunsBeforeCommit(t *testing.T) {
	ctx := context.Background()
	var observed api.State
	def := api.Definition{
		Name:    "action",
		Initial: "a",
	}
	c := mustCore(t, def)

	require.NoError(t, c.Define(api.EventDef{
		Name: "advance",
		Transitions: []api.TransitionDef{{
			From: []api.State{"a"},
			To:   "b",
			Action: func(ctx context.Context, tr api.Transition, args ...any) error {
				observed = tr.From
				return nil
			},
		}},
	}))

	_, err := c.Trigger(ctx, "advance")
	require.NoError(t, err)
	assert.Equal(t, api.State("a"), observed)
	assert.Equal(t, api.State("b"), c.Current())
}

func TestActionErrorUnhandled(t *testing.T) {
	ctx := context.Background()
	boom := api.NewError("explode", "action failed")
	c := mustCore(t, api.Definition{
		Name:    "action-err",
		Initial: "a",
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{
				From: []api.State{"a"},
				To:   "b",
				Action: func(ctx context.Context, tr api.Transition, args ...any) error {
					return boom
				},
			}}},
		},
	})

	var pre, post int
	c.Subscribe(api.StageExit, "a", func(ctx context.Context, tr api.Transition, args ...any) error {
		pre++
		return nil
	})
	c.Subscribe(api.StageEnter, "b", func(ctx context.Context, tr api.Transition, args ...any) error {
		post++
		return nil
	})

	res, err := c.Trigger(ctx, "advance")
	require.Error(t, err)
	assert.Empty(t, res)

	var terr *api.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, api.Kind("explode"), terr.Kind)
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, terr.Stack)

	assert.Equal(t, api.State("a"), c.Current(), "unhandled action error aborts before commit")
	assert.Equal(t, 1, pre)
	assert.Zero(t, post, "remaining passes are aborted")
}

func TestActionErrorHandled(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:    "action-handled",
		Initial: "a",
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{
				From: []api.State{"a"},
				To:   "b",
				Action: func(ctx context.Context, tr api.Transition, args ...any) error {
					return api.NewError("explode", "action failed")
				},
			}}},
		},
	})

	handled := 0
	c.OnError("explode", func(ctx context.Context, tr api.Transition, err error) {
		handled++
	})

	post := 0
	c.Subscribe(api.StageEnter, "b", func(ctx context.Context, tr api.Transition, args ...any) error {
		post++
		return nil
	})

	res, err := c.Trigger(ctx, "advance")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, 1, handled)
	assert.Equal(t, api.State("b"), c.Current(), "a handled error still commits")
	assert.Equal(t, 1, post, "remaining passes still run")
}

func TestCallbackErrorUnhandled(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	c.Subscribe(api.StageExit, "red", func(ctx context.Context, tr api.Transition, args ...any) error {
		return api.NewError("explode", "callback failed")
	})

	res, err := c.Trigger(ctx, "ready")
	require.Error(t, err)
	assert.Empty(t, res)

	var terr *api.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, api.State("red"), c.Current(), "pre-mutation failure leaves the state alone")
}

func TestCallbackErrorHandled(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	c.Subscribe(api.StageExit, "red", func(ctx context.Context, tr api.Transition, args ...any) error {
		return api.NewError("explode", "callback failed")
	})
	handled := 0
	c.OnError("explode", func(ctx context.Context, tr api.Transition, err error) {
		handled++
	})

	res, err := c.Trigger(ctx, "ready")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, 1, handled)
	assert.Equal(t, api.State("yellow"), c.Current())
}

func TestGuardErrorPropagatesUnwrapped(t *testing.T) {
	ctx := context.Background()
	boom := api.NewError("guard.fail", "guard exploded")
	c := mustCore(t, api.Definition{
		Name:    "guard-err",
		Initial: "a",
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{
				From: []api.State{"a"},
				To:   "b",
				Guards: []api.Condition{api.If(func(ctx context.Context, target api.Target, args ...any) (bool, error) {
					return false, boom
				})},
			}}},
		},
	})

	// Even a handler registered for the error's exact kind is not consulted
	// for guard errors.
	c.OnError("guard.fail", func(ctx context.Context, tr api.Transition, err error) {
		t.Error("guard errors must not be offered to handlers")
	})

	_, err := c.Trigger(ctx, "advance")
	require.ErrorIs(t, err, boom)

	var terr *api.TransitionError
	assert.False(t, errors.As(err, &terr), "guard errors are not wrapped")
	assert.Equal(t, api.State("a"), c.Current())
}

func TestDeferredInit(t *testing.T) {
	ctx := context.Background()
	def := trafficLightDef()
	def.DeferInitial = true
	c := mustCore(t, def)

	assert.Equal(t, api.None, c.Current())
	assert.True(t, c.Cannot("ready"), "nothing resolves from None before Init")

	entered := 0
	c.Subscribe(api.StageEnter, "red", func(ctx context.Context, tr api.Transition, args ...any) error {
		entered++
		return nil
	})

	res, err := c.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("red"), c.Current())
	assert.Equal(t, 1, entered, "the init transition runs the normal pipeline")
}

func TestInitWithoutInitialState(t *testing.T) {
	c := mustCore(t, api.Definition{Name: "bare"})
	_, err := c.Init(context.Background())
	assert.ErrorIs(t, err, ErrNoInitialState)
}

func TestQueries(t *testing.T) {
	c := mustCore(t, trafficLightDef())

	assert.Equal(t, []api.State{"green", "red", "yellow"}, c.States())
	assert.Equal(t, []api.Event{"go", "ready", "stop"}, c.Events())

	assert.True(t, c.Can("ready"))
	assert.False(t, c.Can("go"))
	assert.True(t, c.Cannot("go"))

	assert.True(t, c.Is("red"))
	assert.True(t, c.Is("green", "red"))
	assert.False(t, c.Is("green", "yellow"))

	// Idempotence: no trigger in between, same answer.
	assert.Equal(t, c.Current(), c.Current())
}

func TestTriggerFunc(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	ready := c.TriggerFunc("ready")
	res, err := ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	assert.Equal(t, api.State("yellow"), c.Current())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, trafficLightDef())

	fired := 0
	sub := c.Subscribe(api.StageEnter, "yellow", func(ctx context.Context, tr api.Transition, args ...any) error {
		fired++
		return nil
	})
	c.Unsubscribe(sub)

	_, err := c.Trigger(ctx, "ready")
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestOnErrorMethodRedirect(t *testing.T) {
	ctx := context.Background()
	var redirected error
	target := api.MethodMap{
		"recover": func(ctx context.Context, args ...any) (any, error) {
			if len(args) == 1 {
				redirected, _ = args[0].(error)
			}
			return nil, nil
		},
	}

	def := api.Definition{
		Name:    "redirect",
		Initial: "a",
		Target:  target,
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{
				From: []api.State{"a"},
				To:   "b",
				Action: func(ctx context.Context, tr api.Transition, args ...any) error {
					return api.NewError("explode", "action failed")
				},
			}}},
		},
	}
	c := mustCore(t, def)

	require.Error(t, c.OnErrorMethod("explode", "missing"))
	require.NoError(t, c.OnErrorMethod("explode", "recover"))

	res, err := c.Trigger(ctx, "advance")
	require.NoError(t, err)
	assert.Equal(t, api.Succeeded, res)
	require.Error(t, redirected)
	assert.Equal(t, api.Kind("explode"), api.KindOf(redirected))
}

func TestDefineValidation(t *testing.T) {
	c := mustCore(t, api.Definition{Name: "validate"})

	err := c.Define(api.EventDef{Name: "", Transitions: []api.TransitionDef{{From: []api.State{"a"}, To: "b"}}})
	assert.ErrorContains(t, err, "event name is required")

	err = c.Define(api.EventDef{Name: "advance", Transitions: []api.TransitionDef{{To: "b"}}})
	assert.ErrorContains(t, err, "no source states")

	err = c.Define(api.EventDef{Name: "advance", Transitions: []api.TransitionDef{{From: []api.State{"a"}, To: api.AnyState}}})
	assert.ErrorContains(t, err, "wildcard as a destination")
}

func TestNewValidation(t *testing.T) {
	_, err := New(api.Definition{}, nil)
	assert.ErrorContains(t, err, "name is required")

	_, err = New(api.Definition{Name: "m", DeferInitial: true}, nil)
	assert.ErrorContains(t, err, "DeferInitial requires an initial state")
}

func TestRedefinitionReplacesDestination(t *testing.T) {
	ctx := context.Background()
	c := mustCore(t, api.Definition{
		Name:    "redefine",
		Initial: "a",
		Events: []api.EventDef{
			{Name: "advance", Transitions: []api.TransitionDef{{From: []api.State{"a"}, To: "b"}}},
		},
	})

	require.NoError(t, c.Define(api.EventDef{
		Name:        "advance",
		Transitions: []api.TransitionDef{{From: []api.State{"a"}, To: "c"}}},
	))

	_, err := c.Trigger(ctx, "advance")
	require.NoError(t, err)
	assert.Equal(t, api.State("c"), c.Current())
}
