// Package clock implements the Clock actor: a long-lived controller that
// owns a priority event queue, advances virtual time, and exposes an
// asynchronous, message-style command surface to its clients. Its control
// loop is the task-plus-channel reinterpretation of the source engine's
// tagged-tuple receive loop (see clock_scheduler.go in the source engine for
// the select-over-channels shape this generalizes).
package clock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/deschron/clockcfg"
	"github.com/lixenwraith/deschron/clockfsm"
	"github.com/lixenwraith/deschron/corex"
	"github.com/lixenwraith/deschron/peq"
	"github.com/lixenwraith/deschron/telemetry"
)

// Action is an opaque callable scheduled against a Clock. It receives the
// Clock handle — from inside an action, a client may call any of the
// synchronous wrapper functions (Event, Update, Now, ...) to schedule
// further work, since the control loop is never blocked waiting on actions.
type Action func(c *Clock) any

// runMode distinguishes a step's single-batch completion from a run's
// multi-batch completion inside the shared completion handler.
type runMode int

const (
	modeNone runMode = iota
	modeStep
	modeRun
)

// Clock is the control-loop handle. Its loop-owned fields (t, eq, fsm,
// evcount, tend, mode, client, pending) are touched only by the goroutine
// running loop — every other access goes through reqCh.
type Clock struct {
	reqCh chan request
	log   *slog.Logger
	cfg   clockcfg.Config
	tel   *telemetry.Registry

	t       time.Duration
	eq      *peq.Queue[*Clock]
	fsm     *clockfsm.Machine[*Clock]
	evcount int
	tend    time.Duration
	client  uuid.UUID

	mode      runMode
	pending   chan response
	stopReply chan response
}

// SentinelTime is the PEQ's "nothing to do" marker, re-exported here since
// it is also the time value reported on an empty step (spec §8 scenario 6).
const SentinelTime = peq.SentinelTime

var emptyClient uuid.UUID

// Option configures a Clock at construction.
type Option func(*Clock)

// WithConfig overrides the default tunables (timeouts, buffer sizes).
func WithConfig(cfg clockcfg.Config) Option {
	return func(c *Clock) { c.cfg = cfg }
}

// WithLogger overrides the default tint-backed logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Clock) { c.log = log }
}

// WithRegistry overrides the default telemetry registry, letting callers
// share one registry across multiple Clocks.
func WithRegistry(reg *telemetry.Registry) Option {
	return func(c *Clock) { c.tel = reg }
}

// New constructs a Clock at virtual time t0 and starts its control loop.
// The loop runs until ctx is cancelled — "the Clock lives until its hosting
// task is torn down externally" (spec: terminal state is none).
func New(ctx context.Context, t0 time.Duration, opts ...Option) *Clock {
	c := &Clock{
		cfg: clockcfg.Default(),
		tel: telemetry.NewRegistry(),
		t:   t0,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = corex.FromContext(ctx)
	}

	c.reqCh = make(chan request, c.cfg.CommandBuffer)
	c.eq = peq.New[*Clock]()
	c.fsm = newMachine()
	c.tel.State.Store(string(clockfsm.Idle))

	go c.loop(ctx)
	return c
}

func newMachine() *clockfsm.Machine[*Clock] {
	m := clockfsm.New[*Clock](clockfsm.Idle)

	m.AddTransition(clockfsm.Transition[*Clock]{
		From: clockfsm.Idle, Trigger: clockfsm.TriggerStep, To: clockfsm.Idle,
	})
	m.AddTransition(clockfsm.Transition[*Clock]{
		From: clockfsm.Idle, Trigger: clockfsm.TriggerRun, To: clockfsm.Running,
	})
	m.AddTransition(clockfsm.Transition[*Clock]{
		From: clockfsm.Running, Trigger: clockfsm.TriggerStop, To: clockfsm.Stopped,
	})
	// Completion while running: stay running if there's more to do, else idle.
	m.AddTransition(clockfsm.Transition[*Clock]{
		From:    clockfsm.Running,
		Trigger: clockfsm.TriggerComplete,
		Guard:   func(c *Clock) bool { return c.t < c.tend && !c.eq.Empty() },
		To:      clockfsm.Running,
	})
	m.AddTransition(clockfsm.Transition[*Clock]{
		From: clockfsm.Running, Trigger: clockfsm.TriggerComplete, To: clockfsm.Idle,
	})
	// Completion while stopped: always return to idle.
	m.AddTransition(clockfsm.Transition[*Clock]{
		From: clockfsm.Stopped, Trigger: clockfsm.TriggerComplete, To: clockfsm.Idle,
	})

	return m
}

// loop is the Clock's single control goroutine: it processes exactly one
// request at a time from reqCh and never blocks on event execution.
func (c *Clock) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.reqCh:
			c.handle(ctx, req)
		}
	}
}

func (c *Clock) publishState() {
	c.tel.State.Store(string(c.fsm.State()))
	c.tel.Ints.Get(telemetry.MetricQueueLen).Store(int64(c.eq.Len()))
	c.tel.Ints.Get(telemetry.MetricEvCount).Store(int64(c.evcount))
}

// recordDispatch publishes the size of a just-dispatched batch and bumps the
// cumulative dispatch-pass counter (telemetry.MetricBatchSize/MetricSteps) —
// one step/run cycle pops and dispatches at most one batch at a time.
func (c *Clock) recordDispatch(batchSize int) {
	c.tel.Ints.Get(telemetry.MetricBatchSize).Store(int64(batchSize))
	c.tel.Ints.Get(telemetry.MetricSteps).Add(1)
}
