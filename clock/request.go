package clock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/deschron/peq"
	"github.com/lixenwraith/deschron/telemetry"
)

type kind int

const (
	kindEvent kind = iota
	kindUpdate
	kindCancel
	kindNow
	kindEvents
	kindState
	kindMetrics
	kindStep
	kindRun
	kindStop
	kindReset
	kindComplete // internal: self-delivered by the batch worker
)

// request is the single envelope every command is carried in, mirroring
// the tagged-tuple messages the control loop this generalizes used to
// receive. Only the fields relevant to kind are populated.
type request struct {
	reqID uuid.UUID
	kind  kind

	spec  EventSpec
	id    peq.ID
	field Field
	value any
	ids   []peq.ID
	dur   time.Duration
	t0    time.Duration

	// kindComplete only
	dueTime   time.Duration
	batchSize int

	reply chan response
}

// response is the unified reply envelope; callers read only the fields
// meaningful to the request kind they issued.
type response struct {
	err     error
	id      peq.ID
	t       time.Duration
	events  []peq.Snapshot
	state   StateSnapshot
	metrics telemetry.Snapshot
	step    StepResult
	stopped bool
}

// send delivers req (synthesizing a reply channel and request id) and waits
// for its reply, bounded by ctx and the supplied timeout. It is the one
// choke point every public wrapper funnels through.
func (c *Clock) send(ctx context.Context, timeout time.Duration, req request) (response, error) {
	req.reqID = uuid.New()
	req.reply = make(chan response, 1)

	select {
	case c.reqCh <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-req.reply:
		return resp, resp.err
	case <-timer.C:
		return response{}, ErrTimeout
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func reply(req request, resp response) {
	if req.reply != nil {
		req.reply <- resp
	}
}
