// Package eventloop drives the timer wheel that sits above internal/vm's
// microtask queue (promises), implementing the macrotask half of spec.md
// §4.6: setTimeout/setInterval/clearTimeout/clearInterval, with the
// microtask queue always drained to exhaustion between macrotasks.
package eventloop

import (
	"container/heap"
	"time"

	"github.com/google/uuid"

	"jsvm/internal/logging"
)

// Callback is invoked when a timer fires. args are the extra arguments a
// script passed to setTimeout/setInterval after the delay.
type Callback func(args []interface{})

// DrainMicrotasks is supplied by the host VM — the loop always drains
// microtasks before and after running a macrotask, per spec.md's ordering
// guarantee that promise reactions never interleave with timer callbacks.
type DrainMicrotasks func()

type timer struct {
	id       int64
	uid      uuid.UUID
	deadline time.Time
	interval time.Duration // zero for a one-shot setTimeout
	cb       Callback
	args     []interface{}
	canceled bool
}

// timerHeap orders pending timers by deadline; container/heap gives the
// loop O(log n) "what fires next" without a busy-poll.
type timerHeap []*timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Loop is one runtime's macrotask scheduler. It is not safe for concurrent
// use from multiple goroutines — a single Interpreter's event loop is
// meant to be pumped from one driving goroutine, matching spec.md's "one
// runtime, one heap, one loop" model.
type Loop struct {
	timers      timerHeap
	byID        map[int64]*timer
	nextID      int64
	drain       DrainMicrotasks
	hasMicro    func() bool
	log         *logging.Logger
}

// New builds a Loop. drain runs queued microtasks to exhaustion; hasMicro
// reports whether any are currently queued (used to decide whether an
// otherwise-idle loop should keep pumping).
func New(drain DrainMicrotasks, hasMicro func() bool) *Loop {
	return &Loop{byID: map[int64]*timer{}, drain: drain, hasMicro: hasMicro, log: logging.Get(logging.CategoryEventLoop)}
}

// SetTimeout schedules cb to run once after delay, returning a handle for
// ClearTimeout.
func (l *Loop) SetTimeout(delay time.Duration, cb Callback, args ...interface{}) int64 {
	return l.schedule(delay, 0, cb, args)
}

// SetInterval schedules cb to run every interval, returning a handle for
// ClearInterval.
func (l *Loop) SetInterval(interval time.Duration, cb Callback, args ...interface{}) int64 {
	return l.schedule(interval, interval, cb, args)
}

func (l *Loop) schedule(delay, interval time.Duration, cb Callback, args []interface{}) int64 {
	l.nextID++
	t := &timer{id: l.nextID, uid: uuid.New(), deadline: time.Now().Add(delay), interval: interval, cb: cb, args: args}
	l.byID[t.id] = t
	heap.Push(&l.timers, t)
	l.log.Debug("scheduled timer %s id=%d delay=%s interval=%s", t.uid, t.id, delay, interval)
	return t.id
}

// ClearTimeout and ClearInterval are the same operation: mark the handle
// canceled so it's skipped (and, if still in the heap, dropped) whenever
// it would otherwise fire.
func (l *Loop) ClearTimeout(id int64)  { l.clear(id) }
func (l *Loop) ClearInterval(id int64) { l.clear(id) }

func (l *Loop) clear(id int64) {
	if t, ok := l.byID[id]; ok {
		t.canceled = true
		delete(l.byID, id)
	}
}

// Pending reports whether any live timer or microtask remains — a host
// uses this to decide whether Run should keep blocking.
func (l *Loop) Pending() bool {
	return len(l.byID) > 0 || (l.hasMicro != nil && l.hasMicro())
}

// RunOnce drains microtasks, then fires every timer whose deadline has
// passed (re-queuing intervals), then drains microtasks again. Returns
// whether anything fired, so a caller doing a bounded "tick until idle"
// loop knows when to stop without sleeping.
func (l *Loop) RunOnce() bool {
	if l.drain != nil {
		l.drain()
	}
	fired := false
	now := time.Now()
	for l.timers.Len() > 0 && l.timers[0].deadline.Before(now) {
		t := heap.Pop(&l.timers).(*timer)
		if t.canceled {
			continue
		}
		fired = true
		l.log.Debug("firing timer %s id=%d", t.uid, t.id)
		t.cb(t.args)
		if t.interval > 0 && !t.canceled {
			t.deadline = time.Now().Add(t.interval)
			heap.Push(&l.timers, t)
		} else {
			delete(l.byID, t.id)
		}
		if l.drain != nil {
			l.drain()
		}
	}
	return fired
}

// Run pumps RunOnce until no timer or microtask remains, sleeping until
// the next deadline between ticks rather than busy-spinning.
func (l *Loop) Run() {
	for l.Pending() {
		if l.RunOnce() {
			continue
		}
		if l.timers.Len() == 0 {
			return
		}
		wait := time.Until(l.timers[0].deadline)
		if wait > 0 {
			time.Sleep(wait)
		}
	}
}
