// Package host defines the cooperative task queue the engine runs on, and a
// deterministic, virtual-clock implementation of it.
package host

import (
	"container/heap"
	"time"
)

// Host is a single-threaded cooperative task queue. Every function it runs,
// posted or timed, runs on the same logical thread, one at a time.
type Host interface {
	// Post enqueues fn to run after the currently running task. It returns
	// false if the host is no longer accepting work.
	Post(fn func()) bool
	// AfterFunc runs fn on the host after d. The returned function cancels
	// it, if it has not yet run.
	AfterFunc(d time.Duration, fn func()) (cancel func())
	// Now returns the host's current time.
	Now() time.Time
}

type timer struct {
	at        time.Time
	seq       uint64
	fn        func()
	cancelled bool
	index     int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	t.index = -1
	return t
}

// Queue is a Host driven explicitly by its owner: nothing runs until
// RunUntilIdle or Advance is called, and time only moves through Advance.
// It backs the headless simulate command and the engine tests.
type Queue struct {
	now    time.Time
	tasks  []func()
	timers timerHeap
	seq    uint64
	closed bool
}

var _ Host = (*Queue)(nil)

// NewQueue returns a Queue whose clock starts at start.
func NewQueue(start time.Time) *Queue {
	return &Queue{now: start}
}

// Post implements Host.
func (q *Queue) Post(fn func()) bool {
	if q.closed || fn == nil {
		return false
	}
	q.tasks = append(q.tasks, fn)
	return true
}

// AfterFunc implements Host.
func (q *Queue) AfterFunc(d time.Duration, fn func()) func() {
	if q.closed || fn == nil {
		return func() {}
	}
	if d < 0 {
		d = 0
	}
	q.seq++
	t := &timer{at: q.now.Add(d), seq: q.seq, fn: fn}
	heap.Push(&q.timers, t)
	return func() {
		if t.index >= 0 && !t.cancelled {
			t.cancelled = true
			heap.Remove(&q.timers, t.index)
		}
	}
}

// Now implements Host.
func (q *Queue) Now() time.Time { return q.now }

// Pending returns the number of posted tasks waiting to run.
func (q *Queue) Pending() int { return len(q.tasks) }

// Timers returns the number of armed timers.
func (q *Queue) Timers() int { return len(q.timers) }

// NextTimer returns the deadline of the earliest armed timer.
func (q *Queue) NextTimer() (time.Time, bool) {
	if len(q.timers) == 0 {
		return time.Time{}, false
	}
	return q.timers[0].at, true
}

// RunOnce runs the oldest posted task, reporting whether there was one.
func (q *Queue) RunOnce() bool {
	if len(q.tasks) == 0 {
		return false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	fn()
	return true
}

// RunUntilIdle runs posted tasks, including any they post, until none
// remain or limit tasks have run (limit <= 0 means no limit). Timers are not
// fired. It returns the number of tasks run.
func (q *Queue) RunUntilIdle(limit int) int {
	n := 0
	for (limit <= 0 || n < limit) && q.RunOnce() {
		n++
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and draining posted tasks before and after each one.
func (q *Queue) Advance(d time.Duration) {
	q.RunUntilIdle(0)
	end := q.now.Add(d)
	for len(q.timers) > 0 && !q.timers[0].at.After(end) {
		t := heap.Pop(&q.timers).(*timer)
		if t.at.After(q.now) {
			q.now = t.at
		}
		t.fn()
		q.RunUntilIdle(0)
	}
	q.now = end
}

// Skip moves the clock forward by d, firing due timers in deadline order.
// Unlike Advance, posted tasks stay queued, including those the timers post.
func (q *Queue) Skip(d time.Duration) {
	end := q.now.Add(d)
	for len(q.timers) > 0 && !q.timers[0].at.After(end) {
		t := heap.Pop(&q.timers).(*timer)
		if t.at.After(q.now) {
			q.now = t.at
		}
		t.fn()
	}
	q.now = end
}

// Close stops the queue from accepting work and drops anything pending.
func (q *Queue) Close() {
	q.closed = true
	q.tasks = nil
	q.timers = nil
}
