package clock

import (
	"context"
	"time"

	"github.com/lixenwraith/deschron/peq"
)

// Timing selects how EventSpec.T is interpreted.
type Timing int

const (
	// At schedules the event at the absolute virtual time T.
	At Timing = iota
	// After schedules the event at now + T.
	After
)

// EventSpec describes an event to schedule.
type EventSpec struct {
	Action Action
	Timing Timing
	T      time.Duration
	Cycle  *time.Duration // nil means non-cyclic
}

// Field selects which part of a scheduled event Update overwrites.
type Field int

const (
	FieldCycle Field = iota
	FieldFunc
	FieldTime
)

// Event schedules spec and returns its assigned id. Timing must be At or
// After; anything else is rejected before a message is sent (spec §7).
func (c *Clock) Event(ctx context.Context, spec EventSpec, timeout time.Duration) (peq.ID, error) {
	if spec.Timing != At && spec.Timing != After {
		return 0, ErrBadArgument
	}
	resp, err := c.send(ctx, timeout, request{kind: kindEvent, spec: spec})
	if err != nil {
		return 0, err
	}
	return resp.id, nil
}

// Update overwrites one field of a scheduled event. value must be:
//   - *time.Duration for FieldCycle (nil clears the cycle)
//   - Action for FieldFunc
//   - time.Duration for FieldTime
//
// An id absent from the queue is silently a no-op (spec §7); field/value
// type mismatches are rejected before a message is sent.
func (c *Clock) Update(ctx context.Context, id peq.ID, field Field, value any, timeout time.Duration) (peq.ID, error) {
	switch field {
	case FieldCycle:
		if value != nil {
			if _, ok := value.(*time.Duration); !ok {
				return 0, ErrBadArgument
			}
		}
	case FieldFunc:
		if _, ok := value.(Action); !ok {
			return 0, ErrBadArgument
		}
	case FieldTime:
		if _, ok := value.(time.Duration); !ok {
			return 0, ErrBadArgument
		}
	default:
		return 0, ErrBadArgument
	}
	resp, err := c.send(ctx, timeout, request{kind: kindUpdate, id: id, field: field, value: value})
	if err != nil {
		return 0, err
	}
	return resp.id, nil
}

// Cancel deletes ids from the queue. This exposes the PEQ's delete
// operation on the Clock's control surface — a supplemented command; the
// source's command table never names one, but §8's delete-suppresses-
// execution property requires callers to be able to invoke it. Unknown ids
// are silently ignored, same as Update.
func (c *Clock) Cancel(ctx context.Context, timeout time.Duration, ids ...peq.ID) error {
	_, err := c.send(ctx, timeout, request{kind: kindCancel, ids: ids})
	return err
}

func (c *Clock) handleEvent(req request) {
	t := req.spec.T
	if req.spec.Timing == After {
		t = c.t + req.spec.T
	}
	action := func(owner *Clock) any { return req.spec.Action(owner) }
	id := c.eq.Add(action, t, req.spec.Cycle)
	c.publishState()
	reply(req, response{id: id})
}

func (c *Clock) handleUpdate(req request) {
	var id peq.ID
	switch req.field {
	case FieldCycle:
		var cycle *time.Duration
		if req.value != nil {
			cycle = req.value.(*time.Duration)
		}
		if c.eq.SetCycle(req.id, cycle) {
			id = req.id
		}
	case FieldFunc:
		f := req.value.(Action)
		if c.eq.SetFunc(req.id, func(owner *Clock) any { return f(owner) }) {
			id = req.id
		}
	case FieldTime:
		t := req.value.(time.Duration)
		if c.eq.SetTime(req.id, t) {
			id = req.id
		}
	}
	reply(req, response{id: id})
}

func (c *Clock) handleCancel(req request) {
	c.eq.Delete(req.ids...)
	c.publishState()
	reply(req, response{})
}
