package clock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/deschron/clockfsm"
	"github.com/lixenwraith/deschron/peq"
	"github.com/lixenwraith/deschron/telemetry"
)

// StateSnapshot is the reply to query(:state) (spec §6).
type StateSnapshot struct {
	Client  uuid.UUID
	EvCount int
	State   clockfsm.StateID
	Tend    time.Duration
}

// StepResult is the reply shape common to step, run, and stop.
type StepResult struct {
	Events int
	Time   time.Duration
}

// Now returns the Clock's current virtual time.
func (c *Clock) Now(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	resp, err := c.send(ctx, timeout, request{kind: kindNow})
	if err != nil {
		return 0, err
	}
	return resp.t, nil
}

// Events returns a read-only snapshot of every live scheduled event.
func (c *Clock) Events(ctx context.Context, timeout time.Duration) ([]peq.Snapshot, error) {
	resp, err := c.send(ctx, timeout, request{kind: kindEvents})
	if err != nil {
		return nil, err
	}
	return resp.events, nil
}

// State returns {client, evcount, state, tend} (spec §6).
func (c *Clock) State(ctx context.Context, timeout time.Duration) (StateSnapshot, error) {
	resp, err := c.send(ctx, timeout, request{kind: kindState})
	if err != nil {
		return StateSnapshot{}, err
	}
	return resp.state, nil
}

// Metrics returns a snapshot of every published telemetry counter — a
// supplemented query beyond the three the source spec names, backed by the
// Clock's telemetry registry. query(:state) does not read the registry; it
// reports the control loop's own fields.
func (c *Clock) Metrics(ctx context.Context, timeout time.Duration) (telemetry.Snapshot, error) {
	resp, err := c.send(ctx, timeout, request{kind: kindMetrics})
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	return resp.metrics, nil
}

func (c *Clock) handleNow(req request) {
	reply(req, response{t: c.t})
}

func (c *Clock) handleEvents(req request) {
	reply(req, response{events: c.eq.Events()})
}

func (c *Clock) handleState(req request) {
	reply(req, response{state: StateSnapshot{
		Client:  c.client,
		EvCount: c.evcount,
		State:   c.fsm.State(),
		Tend:    c.tend,
	}})
}

func (c *Clock) handleMetrics(req request) {
	reply(req, response{metrics: c.tel.Snapshot()})
}
