// Package peq implements the priority event queue: an indexed, time-priority
// store that backs a Clock's scheduled events. It is not safe for concurrent
// use — a Queue is exclusively owned by the single goroutine driving its
// Clock, which serializes all access through its command loop.
package peq

import (
	"container/heap"
	"sort"
	"time"
)

// Resolution is the bucket-key quantization granularity: events are grouped
// into priority buckets by trunc(t / Resolution). With t represented as a
// time.Duration this is millisecond-granularity bucketing, the
// "1/1000 unit" the original source calls a millisecond-equivalent.
const Resolution = time.Millisecond

// SentinelTime is returned by Next when the queue is empty. It mirrors the
// -9999 sentinel the source engine leaks out of its own empty-queue case
// (see spec §4.1, §9); kept verbatim rather than replaced with a cleaner
// "ok bool" alone, since Next already returns an ok flag for callers that
// prefer not to special-case the literal.
const SentinelTime time.Duration = -9999

// ID uniquely identifies a scheduled event. IDs are assigned by Add, increase
// strictly monotonically for the lifetime of a Queue, and are never recycled.
type ID uint64

// Action is an opaque callable associated with an event. ctx is the handle
// the owning Clock passes through untouched; the returned value is discarded
// by the engine but may be produced for client observation.
type Action[T any] func(ctx T) any

// entry is the authoritative record for one scheduled event.
type entry[T any] struct {
	t time.Duration
	f Action[T]
	c *time.Duration // cycle length; nil means non-cyclic
}

// bucket holds every event quantized to the same priority key, in insertion
// order, plus the heap index container/heap needs to support Remove.
type bucket struct {
	key   int64
	time  time.Duration // recorded bucket time; see SetTime and removeFromBucket
	ids   []ID
	index int
}

type bucketHeap []*bucket

func (h bucketHeap) Len() int            { return len(h) }
func (h bucketHeap) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h bucketHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *bucketHeap) Push(x any)         { b := x.(*bucket); b.index = len(*h); *h = append(*h, b) }
func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	b.index = -1
	*h = old[:n-1]
	return b
}

// Queue is the priority event queue described in spec §4.1.
type Queue[T any] struct {
	no      ID
	evts    map[ID]*entry[T]
	buckets map[int64]*bucket
	order   bucketHeap
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		evts:    make(map[ID]*entry[T]),
		buckets: make(map[int64]*bucket),
	}
}

func bucketKey(t time.Duration) int64 {
	return int64(t / Resolution)
}

// LastID returns the id of the most recently inserted event (no in spec §3.2).
func (q *Queue[T]) LastID() ID { return q.no }

// Len returns the number of live (non-deleted) events.
func (q *Queue[T]) Len() int { return len(q.evts) }

// Empty reports whether the PSQ holds no buckets at all — distinct from Len,
// which tracks live events and can be zero while dangling buckets remain.
func (q *Queue[T]) Empty() bool { return q.order.Len() == 0 }

func (q *Queue[T]) bucketFor(t time.Duration) *bucket {
	key := bucketKey(t)
	b, ok := q.buckets[key]
	if !ok {
		b = &bucket{key: key, time: t}
		q.buckets[key] = b
		heap.Push(&q.order, b)
	}
	return b
}

// Add assigns the next id, stores the event, and inserts it into its
// time bucket, appending to the bucket's id list in insertion order.
func (q *Queue[T]) Add(f Action[T], t time.Duration, cycle *time.Duration) ID {
	q.no++
	id := q.no
	q.evts[id] = &entry[T]{t: t, f: f, c: cycle}
	b := q.bucketFor(t)
	b.ids = append(b.ids, id)
	return id
}

// removeFromBucket removes id from the bucket at key. If the bucket becomes
// empty it is dropped from both the map and the heap. Otherwise the bucket's
// recorded time is overwritten with newTime — the quirk spec §4.1/§9
// documents and preserves rather than "fixes": the old bucket's recorded
// time is rewritten even though the other events remaining in it keep their
// own true times in evts.
func (q *Queue[T]) removeFromBucket(key int64, id ID, newTime time.Duration) {
	b, ok := q.buckets[key]
	if !ok {
		return
	}
	out := b.ids[:0]
	for _, existing := range b.ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	b.ids = out
	if len(b.ids) == 0 {
		delete(q.buckets, key)
		heap.Remove(&q.order, b.index)
		return
	}
	b.time = newTime
}

// SetTime updates an event's scheduled time and re-homes it in the bucket
// index. Returns false if id is not present (update is a no-op per spec §7).
func (q *Queue[T]) SetTime(id ID, t time.Duration) bool {
	e, ok := q.evts[id]
	if !ok {
		return false
	}
	oldKey := bucketKey(e.t)
	q.removeFromBucket(oldKey, id, t)
	e.t = t
	nb := q.bucketFor(t)
	nb.ids = append(nb.ids, id)
	return true
}

// SetCycle overwrites an event's cycle length without touching the PSQ.
func (q *Queue[T]) SetCycle(id ID, cycle *time.Duration) bool {
	e, ok := q.evts[id]
	if !ok {
		return false
	}
	e.c = cycle
	return true
}

// SetFunc overwrites an event's action without touching the PSQ.
func (q *Queue[T]) SetFunc(id ID, f Action[T]) bool {
	e, ok := q.evts[id]
	if !ok {
		return false
	}
	e.f = f
	return true
}

// Delete removes ids from the authoritative store only. Stale references
// left behind in PSQ buckets are tolerated and filtered lazily by Next —
// this intentionally avoids a bucket scan on every delete (spec §4.1, §9).
func (q *Queue[T]) Delete(ids ...ID) {
	for _, id := range ids {
		delete(q.evts, id)
	}
}

// Next extracts the lowest-keyed bucket and returns the due time and the
// live actions in it, in insertion order. Cyclic events are re-inserted at
// t_due+c (their evts[id].t field is deliberately left unrefreshed — the
// second documented quirk, preserved per spec §4.1/§9). Non-cyclic events
// are consumed. ok is false (with SentinelTime as the time) when the queue
// holds nothing.
func (q *Queue[T]) Next() (tDue time.Duration, actions []Action[T], ok bool) {
	if q.order.Len() == 0 {
		return SentinelTime, nil, false
	}

	b := heap.Pop(&q.order).(*bucket)
	delete(q.buckets, b.key)
	tDue = b.time

	live := make([]ID, 0, len(b.ids))
	for _, id := range b.ids {
		if _, exists := q.evts[id]; exists {
			live = append(live, id)
		}
	}

	actions = make([]Action[T], 0, len(live))
	for _, id := range live {
		actions = append(actions, q.evts[id].f)
	}

	for _, id := range live {
		e := q.evts[id]
		if e.c == nil {
			delete(q.evts, id)
			continue
		}
		nb := q.bucketFor(tDue + *e.c)
		nb.ids = append(nb.ids, id)
	}

	return tDue, actions, true
}

// Snapshot is a read-only copy of one live event, returned by Events.
type Snapshot struct {
	ID    ID
	Time  time.Duration
	Cycle *time.Duration
}

// Events returns a read-only snapshot of every live event, ordered by id for
// determinism. Callers must treat the result as a copy (spec §5).
func (q *Queue[T]) Events() []Snapshot {
	out := make([]Snapshot, 0, len(q.evts))
	for id, e := range q.evts {
		var cycle *time.Duration
		if e.c != nil {
			c := *e.c
			cycle = &c
		}
		out = append(out, Snapshot{ID: id, Time: e.t, Cycle: cycle})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
