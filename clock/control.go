package clock

import (
	"context"
	"math"
	"time"

	"github.com/lixenwraith/deschron/clockfsm"
	"github.com/lixenwraith/deschron/peq"
)

// Step pops and executes a single due batch and stays idle. Requires the
// Clock to currently be idle. timeout <= 0 uses the configured default.
func (c *Clock) Step(ctx context.Context, timeout time.Duration) (StepResult, error) {
	if timeout <= 0 {
		timeout = c.cfg.StepTimeout
	}
	resp, err := c.send(ctx, timeout, request{kind: kindStep})
	if err != nil {
		return StepResult{}, err
	}
	return resp.step, nil
}

// Run drives batches until virtual time reaches now+dt or the queue
// drains, whichever comes first. Requires the Clock to currently be idle.
func (c *Clock) Run(ctx context.Context, dt time.Duration, timeout time.Duration) (StepResult, error) {
	if timeout <= 0 {
		timeout = c.cfg.RunTimeout
	}
	resp, err := c.send(ctx, timeout, request{kind: kindRun, dur: dt})
	if err != nil {
		return StepResult{}, err
	}
	return resp.step, nil
}

// RunUntilEmpty runs until the queue drains entirely, ignoring any time
// horizon. It is a supplemented convenience over Run: the source's command
// table has no "run forever" verb, so this pins tend far enough in the
// future that the PSQ-empty completion branch is what actually stops it.
func (c *Clock) RunUntilEmpty(ctx context.Context, timeout time.Duration) (StepResult, error) {
	return c.Run(ctx, time.Duration(math.MaxInt64/2), timeout)
}

// Stop requests a graceful stop at the next batch boundary of an in-flight
// run. It blocks until that boundary is reached and returns the same
// {events, time} result the in-flight Run call itself resolves with; the
// result carries no marker that the run was stopped. The Clock has only one
// "client" recipient at a time (spec §3.3),
// so both the run's and the stop's callers observe the same completion.
func (c *Clock) Stop(ctx context.Context, timeout time.Duration) (StepResult, error) {
	if timeout <= 0 {
		timeout = c.cfg.RunTimeout
	}
	resp, err := c.send(ctx, timeout, request{kind: kindStop})
	if err != nil {
		return StepResult{}, err
	}
	return resp.step, nil
}

// Reset rebuilds the Clock as an empty queue at t0. Requires idle.
func (c *Clock) Reset(ctx context.Context, t0 time.Duration, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.StepTimeout
	}
	_, err := c.send(ctx, timeout, request{kind: kindReset, t0: t0})
	return err
}

func (c *Clock) handle(ctx context.Context, req request) {
	switch req.kind {
	case kindEvent:
		c.handleEvent(req)
	case kindUpdate:
		c.handleUpdate(req)
	case kindCancel:
		c.handleCancel(req)
	case kindNow:
		c.handleNow(req)
	case kindEvents:
		c.handleEvents(req)
	case kindState:
		c.handleState(req)
	case kindMetrics:
		c.handleMetrics(req)
	case kindStep:
		c.handleStep(ctx, req)
	case kindRun:
		c.handleRun(ctx, req)
	case kindStop:
		c.handleStopReq(req)
	case kindReset:
		c.handleReset(req)
	case kindComplete:
		c.handleComplete(ctx, req)
	default:
		c.log.Warn("unknown command ignored", "kind", req.kind, "req", req.reqID)
	}
}

func (c *Clock) handleStep(ctx context.Context, req request) {
	if c.fsm.State() != clockfsm.Idle {
		reply(req, response{err: ErrNotIdle})
		return
	}
	c.client = req.reqID
	c.mode = modeStep
	c.pending = req.reply

	tDue, actions, ok := c.eq.Next()
	if ok {
		c.t = tDue
	}
	c.recordDispatch(len(actions))
	c.publishState()
	c.dispatchBatch(ctx, actions, tDue)
}

func (c *Clock) handleRun(ctx context.Context, req request) {
	if c.fsm.State() != clockfsm.Idle {
		reply(req, response{err: ErrNotIdle})
		return
	}
	c.client = req.reqID
	c.mode = modeRun
	c.pending = req.reply
	c.evcount = 0
	c.tend = c.t + req.dur

	c.fsm.Fire(c, clockfsm.TriggerRun)
	c.publishState()

	tDue, actions, ok := c.eq.Next()
	if ok {
		c.t = tDue
	}
	c.recordDispatch(len(actions))
	c.publishState()
	c.dispatchBatch(ctx, actions, tDue)
}

func (c *Clock) handleStopReq(req request) {
	if c.fsm.State() != clockfsm.Running {
		reply(req, response{err: ErrNotRunning})
		return
	}
	c.fsm.Fire(c, clockfsm.TriggerStop)
	c.stopReply = req.reply
	c.publishState()
}

func (c *Clock) handleReset(req request) {
	if c.fsm.State() != clockfsm.Idle {
		reply(req, response{err: ErrNotIdle})
		return
	}
	c.eq = peq.New[*Clock]()
	c.t = req.t0
	c.evcount = 0
	c.tend = req.t0
	c.client = emptyClient
	c.fsm.SetState(clockfsm.Idle)
	c.publishState()
	reply(req, response{})
}

func (c *Clock) handleComplete(ctx context.Context, req request) {
	if req.dueTime != SentinelTime {
		c.t = req.dueTime
	}

	switch c.mode {
	case modeStep:
		result := StepResult{Events: req.batchSize, Time: req.dueTime}
		if c.pending != nil {
			c.pending <- response{step: result}
		}
		c.clearPending()
		c.publishState()
		return

	case modeRun:
		c.evcount += req.batchSize

		if c.fsm.State() == clockfsm.Stopped {
			c.fsm.Fire(c, clockfsm.TriggerComplete)
			result := StepResult{Events: c.evcount, Time: c.t}
			c.deliverRunCompletion(result, true)
			c.publishState()
			return
		}

		c.fsm.Fire(c, clockfsm.TriggerComplete)
		if c.fsm.State() == clockfsm.Idle {
			tFinal := c.tend
			if c.t > tFinal {
				tFinal = c.t
			}
			result := StepResult{Events: c.evcount, Time: tFinal}
			c.deliverRunCompletion(result, false)
			c.publishState()
			return
		}

		tDue, actions, ok := c.eq.Next()
		if ok {
			c.t = tDue
		}
		c.recordDispatch(len(actions))
		c.publishState()
		c.dispatchBatch(ctx, actions, tDue)
	}
}

// deliverRunCompletion replies to both the run's and (if a stop was
// requested mid-run) the stop's caller with the same result.
func (c *Clock) deliverRunCompletion(result StepResult, stopped bool) {
	if c.pending != nil {
		c.pending <- response{step: result, stopped: stopped}
	}
	if c.stopReply != nil {
		c.stopReply <- response{step: result, stopped: stopped}
	}
	c.clearPending()
}

func (c *Clock) clearPending() {
	c.mode = modeNone
	c.pending = nil
	c.stopReply = nil
}
