package machina

import (
	"database/sql"

	"github.com/petrijr/machina/internal/engine"
	"github.com/petrijr/machina/internal/journal"
	"github.com/petrijr/machina/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Machine              = api.Machine
	State                = api.State
	Event                = api.Event
	Transition           = api.Transition
	TransitionDef        = api.TransitionDef
	EventDef             = api.EventDef
	Definition           = api.Definition
	Result               = api.Result
	Stage                = api.Stage
	Subscription         = api.Subscription
	Condition            = api.Condition
	PredicateFunc        = api.PredicateFunc
	ActionFunc           = api.ActionFunc
	Callback             = api.Callback
	TriggerFunc          = api.TriggerFunc
	Target               = api.Target
	MethodMap            = api.MethodMap
	MethodFunc           = api.MethodFunc
	Kind                 = api.Kind
	ErrorHandler         = api.ErrorHandler
	InvalidStateError    = api.InvalidStateError
	TransitionError      = api.TransitionError
	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	LoggingObserver      = api.LoggingObserver
	CompositeObserver    = api.CompositeObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
)

// Re-export result, stage, and sentinel values for convenience.

const (
	Succeeded    = api.Succeeded
	Cancelled    = api.Cancelled
	NoTransition = api.NoTransition

	StageEnter      = api.StageEnter
	StageTransition = api.StageTransition
	StageExit       = api.StageExit

	None     = api.None
	Any      = api.Any
	AnyState = api.AnyState

	KindInvalidState = api.KindInvalidState
	KindTransition   = api.KindTransition
)

// Re-export condition constructors and error helpers.

var (
	If           = api.If
	Unless       = api.Unless
	IfMethod     = api.IfMethod
	UnlessMethod = api.UnlessMethod

	Kinded   = api.Kinded
	NewError = api.NewError
	KindOf   = api.KindOf

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// ErrNoInitialState is returned by Machine.Init when no initial state was
// configured.
var ErrNoInitialState = engine.ErrNoInitialState

// Machine constructors
// These wrap the internal/engine package so external callers never need to
// import internal packages.

// NewMachine builds a Machine from a complete Definition.
func NewMachine(def Definition) (Machine, error) {
	return engine.New(def, nil)
}

// NewMachineWithObserver builds a Machine from def with the given Observer
// attached.
func NewMachineWithObserver(def Definition, obs Observer) (Machine, error) {
	return engine.New(def, obs)
}

// NewSQLiteJournal returns an Observer that records one row per completed
// trigger in the given SQLite database. The caller is responsible for
// importing a driver, e.g.:
//
//	import _ "modernc.org/sqlite"
func NewSQLiteJournal(db *sql.DB) (*journal.SQLite, error) {
	return journal.NewSQLite(db)
}
