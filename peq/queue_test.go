package peq

import (
	"testing"
	"time"
)

type ctx struct{}

func durp(d time.Duration) *time.Duration { return &d }

func TestAddAssignsMonotonicIDs(t *testing.T) {
	q := New[ctx]()
	id1 := q.Add(func(ctx) any { return nil }, 0, nil)
	id2 := q.Add(func(ctx) any { return nil }, time.Second, nil)
	if id1 != 1 || id2 != 2 {
		t.Fatalf("got ids %d, %d want 1, 2", id1, id2)
	}
	if q.LastID() != 2 {
		t.Fatalf("LastID = %d, want 2", q.LastID())
	}
}

func TestNextOnEmptyReturnsSentinel(t *testing.T) {
	q := New[ctx]()
	tDue, actions, ok := q.Next()
	if ok {
		t.Fatal("expected ok=false on empty queue")
	}
	if tDue != SentinelTime {
		t.Fatalf("tDue = %v, want SentinelTime", tDue)
	}
	if actions != nil {
		t.Fatalf("expected nil actions, got %v", actions)
	}
}

func TestNextBatchesSameBucketInFIFOOrder(t *testing.T) {
	q := New[ctx]()
	var order []int
	q.Add(func(ctx) any { order = append(order, 1); return nil }, time.Millisecond*10, nil)
	q.Add(func(ctx) any { order = append(order, 2); return nil }, time.Millisecond*10, nil)
	q.Add(func(ctx) any { order = append(order, 3); return nil }, time.Millisecond*10, nil)

	_, actions, ok := q.Next()
	if !ok || len(actions) != 3 {
		t.Fatalf("expected 3 batched actions, got %d (ok=%v)", len(actions), ok)
	}
	for _, a := range actions {
		a(ctx{})
	}
	if order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("batch order = %v, want FIFO [1 2 3]", order)
	}
}

func TestNextOrdersAcrossBuckets(t *testing.T) {
	q := New[ctx]()
	q.Add(func(ctx) any { return "late" }, time.Second, nil)
	q.Add(func(ctx) any { return "early" }, time.Millisecond, nil)

	tDue, actions, ok := q.Next()
	if !ok || len(actions) != 1 {
		t.Fatalf("expected a single early action, got %d (ok=%v)", len(actions), ok)
	}
	if got := actions[0](ctx{}); got != "early" {
		t.Fatalf("first batch = %v, want early", got)
	}
	if tDue != time.Millisecond {
		t.Fatalf("tDue = %v, want 1ms", tDue)
	}
}

func TestDeleteBeforeExtractionSuppressesExecution(t *testing.T) {
	q := New[ctx]()
	ran := false
	id := q.Add(func(ctx) any { ran = true; return nil }, time.Millisecond, nil)
	q.Delete(id)

	// The stale bucket is still extracted, but it yields no live actions.
	_, actions, ok := q.Next()
	if !ok || len(actions) != 0 {
		t.Fatalf("expected the dangling bucket to yield no actions, got %d actions (ok=%v)", len(actions), ok)
	}
	if ran {
		t.Fatal("deleted event's action must not run")
	}
}

func TestDeleteIsNoOpForUnknownID(t *testing.T) {
	q := New[ctx]()
	id := q.Add(func(ctx) any { return nil }, 0, nil)
	q.Delete(id + 100)
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (delete of unknown id must be a no-op)", q.Len())
	}
}

func TestCyclicEventPersistsWithoutRefreshingRecordedTime(t *testing.T) {
	q := New[ctx]()
	cycle := time.Millisecond * 5
	id := q.Add(func(ctx) any { return nil }, time.Millisecond, &cycle)

	q.Next() // first firing, re-inserted at t=6ms

	snap := q.Events()
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("expected the cyclic event to persist, got %v", snap)
	}
	// Quirk: the event's own recorded time field is never refreshed to t_due+c.
	if snap[0].Time != time.Millisecond {
		t.Fatalf("evts[id].t = %v, want unchanged 1ms (re-insertion quirk)", snap[0].Time)
	}

	tDue, _, ok := q.Next()
	if !ok {
		t.Fatal("expected the cyclic event to fire again")
	}
	if tDue != time.Millisecond*6 {
		t.Fatalf("second firing tDue = %v, want 6ms", tDue)
	}
}

func TestSetTimeRehomesBucketAndRewritesOldBucketTime(t *testing.T) {
	q := New[ctx]()
	id1 := q.Add(func(ctx) any { return 1 }, time.Millisecond, nil)
	q.Add(func(ctx) any { return 2 }, time.Millisecond, nil)

	if ok := q.SetTime(id1, time.Millisecond*50); !ok {
		t.Fatal("SetTime on live id must succeed")
	}

	// id2's bucket still exists (id2 remains); the quirk rewrites its
	// recorded time to the moved event's new time even though id2's own
	// time is untouched.
	tDue, actions, ok := q.Next()
	if !ok || len(actions) != 1 {
		t.Fatalf("expected id2 alone in its original bucket, got %d actions (ok=%v)", len(actions), ok)
	}
	if tDue != time.Millisecond*50 {
		t.Fatalf("old bucket's rewritten recorded time = %v, want 50ms (re-home quirk)", tDue)
	}

	tDue2, actions2, ok2 := q.Next()
	if !ok2 || len(actions2) != 1 {
		t.Fatalf("expected id1's new bucket, got %d actions (ok=%v)", len(actions2), ok2)
	}
	if tDue2 != time.Millisecond*50 {
		t.Fatalf("new bucket tDue = %v, want 50ms", tDue2)
	}
}

func TestSetTimeUnknownIDIsNoOp(t *testing.T) {
	q := New[ctx]()
	if q.SetTime(999, time.Second) {
		t.Fatal("SetTime on unknown id must return false")
	}
}

func TestSetCycleAndSetFunc(t *testing.T) {
	q := New[ctx]()
	id := q.Add(func(ctx) any { return "old" }, time.Millisecond, nil)

	if !q.SetFunc(id, func(ctx) any { return "new" }) {
		t.Fatal("SetFunc on live id must succeed")
	}
	if !q.SetCycle(id, durp(time.Millisecond*2)) {
		t.Fatal("SetCycle on live id must succeed")
	}

	_, actions, ok := q.Next()
	if !ok || len(actions) != 1 {
		t.Fatalf("expected one action, got %d (ok=%v)", len(actions), ok)
	}
	if got := actions[0](ctx{}); got != "new" {
		t.Fatalf("action = %v, want new (SetFunc must take effect)", got)
	}

	snap := q.Events()
	if len(snap) != 1 || snap[0].Cycle == nil || *snap[0].Cycle != time.Millisecond*2 {
		t.Fatalf("expected cycle 2ms to stick, got %+v", snap)
	}
}

func TestEventsSnapshotIsOrderedAndIndependentCopy(t *testing.T) {
	q := New[ctx]()
	q.Add(func(ctx) any { return nil }, time.Millisecond*3, nil)
	q.Add(func(ctx) any { return nil }, time.Millisecond*1, nil)

	snap := q.Events()
	if len(snap) != 2 || snap[0].ID != 1 || snap[1].ID != 2 {
		t.Fatalf("Events must be ordered by id, got %+v", snap)
	}
	snap[0].Time = time.Hour // mutate the copy
	if q.Events()[0].Time == time.Hour {
		t.Fatal("Events must return independent copies")
	}
}
