package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives engine-level callbacks around every trigger, for logging
// and metrics. It is separate from the Subscribe surface: observers see the
// whole call (including cancellations and failures), subscribers see only
// the notification passes of committed transitions.
//
// Implementations should be fast and non-blocking; the completed/failed
// callbacks run outside the exclusive section but still on the caller's
// thread.
type Observer interface {
	// OnTriggerStart is called once per Trigger call, before validation.
	// t.To is empty when the event does not resolve.
	OnTriggerStart(ctx context.Context, machine string, t Transition)

	// OnTriggerCompleted is called when a trigger returns a Result
	// (Succeeded, Cancelled, or NoTransition).
	OnTriggerCompleted(ctx context.Context, machine string, t Transition, result Result, d time.Duration)

	// OnTriggerFailed is called when a trigger returns an error.
	OnTriggerFailed(ctx context.Context, machine string, t Transition, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTriggerStart(ctx context.Context, machine string, t Transition) {}
func (NoopObserver) OnTriggerCompleted(ctx context.Context, machine string, t Transition, r Result, d time.Duration) {
}
func (NoopObserver) OnTriggerFailed(ctx context.Context, machine string, t Transition, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTriggerStart(ctx context.Context, machine string, t Transition) {
	for _, o := range c.observers {
		o.OnTriggerStart(ctx, machine, t)
	}
}

func (c *CompositeObserver) OnTriggerCompleted(ctx context.Context, machine string, t Transition, r Result, d time.Duration) {
	for _, o := range c.observers {
		o.OnTriggerCompleted(ctx, machine, t, r, d)
	}
}

func (c *CompositeObserver) OnTriggerFailed(ctx context.Context, machine string, t Transition, err error) {
	for _, o := range c.observers {
		o.OnTriggerFailed(ctx, machine, t, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs trigger lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnTriggerStart(ctx context.Context, machine string, t Transition) {
	o.Logger.DebugContext(ctx, "trigger_start",
		slog.String("machine", machine),
		slog.String("event", string(t.Event)),
		slog.String("from", string(t.From)),
	)
}

func (o *LoggingObserver) OnTriggerCompleted(ctx context.Context, machine string, t Transition, r Result, d time.Duration) {
	o.Logger.InfoContext(ctx, "trigger_completed",
		slog.String("machine", machine),
		slog.String("event", string(t.Event)),
		slog.String("from", string(t.From)),
		slog.String("to", string(t.To)),
		slog.String("result", string(r)),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnTriggerFailed(ctx context.Context, machine string, t Transition, err error) {
	o.Logger.ErrorContext(ctx, "trigger_failed",
		slog.String("machine", machine),
		slog.String("event", string(t.Event)),
		slog.String("from", string(t.From)),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate trigger durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	triggersStarted atomic.Int64
	succeeded       atomic.Int64
	cancelled       atomic.Int64
	noTransitions   atomic.Int64
	failed          atomic.Int64
	totalDuration   atomic.Int64 // nanoseconds, successful triggers only
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	TriggersStarted int64
	Succeeded       int64
	Cancelled       int64
	NoTransitions   int64
	Failed          int64

	AvgTriggerDuration time.Duration
}

func (m *BasicMetrics) OnTriggerStart(ctx context.Context, machine string, t Transition) {
	m.triggersStarted.Add(1)
}

func (m *BasicMetrics) OnTriggerCompleted(ctx context.Context, machine string, t Transition, r Result, d time.Duration) {
	switch r {
	case Succeeded:
		m.succeeded.Add(1)
		m.totalDuration.Add(d.Nanoseconds())
	case Cancelled:
		m.cancelled.Add(1)
	case NoTransition:
		m.noTransitions.Add(1)
	}
}

func (m *BasicMetrics) OnTriggerFailed(ctx context.Context, machine string, t Transition, err error) {
	m.failed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	succeeded := m.succeeded.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if succeeded > 0 {
		avg = time.Duration(totalNs / succeeded)
	}

	return BasicMetricsSnapshot{
		TriggersStarted:    m.triggersStarted.Load(),
		Succeeded:          succeeded,
		Cancelled:          m.cancelled.Load(),
		NoTransitions:      m.noTransitions.Load(),
		Failed:             m.failed.Load(),
		AvgTriggerDuration: avg,
	}
}
