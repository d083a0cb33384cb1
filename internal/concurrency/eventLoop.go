package concurrency

import (
	"container/heap"
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// EventLoop is a single-threaded cooperative dispatcher.
// Timer callbacks and posted functions always run on the goroutine that drives the loop
// (Run in production, Advance in tests), never concurrently with each other.
type EventLoop struct {
	logger  *log.Logger
	queue   timerQueue
	posts   chan func()
	now     time.Duration
	seq     uint64
	started time.Time
}

// Timer is a one-shot callback handle. At most one deadline is pending per timer.
type Timer struct {
	loop     *EventLoop
	name     string
	fn       func()
	deadline time.Duration
	seq      uint64
	index    int
}

func NewEventLoop(logger *log.Logger) *EventLoop {
	return &EventLoop{
		logger: logger,
		posts:  make(chan func(), 64),
	}
}

func (l *EventLoop) NewTimer(name string, fn func()) *Timer {
	return &Timer{loop: l, name: name, fn: fn, index: -1}
}

// Now returns the loop's elapsed time since it started.
func (l *EventLoop) Now() time.Duration {
	return l.now
}

// Arm schedules the callback d from now, replacing any pending deadline.
func (t *Timer) Arm(d time.Duration) {
	l := t.loop
	l.seq++
	t.deadline = l.now + d
	t.seq = l.seq
	if t.index >= 0 {
		heap.Fix(&l.queue, t.index)
		return
	}
	heap.Push(&l.queue, t)
}

func (t *Timer) Cancel() {
	if t.index < 0 {
		return
	}
	heap.Remove(&t.loop.queue, t.index)
}

func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) Active() bool {
	return t.index >= 0
}

// Remaining returns the time until the pending deadline, or zero if inactive.
func (t *Timer) Remaining() time.Duration {
	if !t.Active() {
		return 0
	}
	return t.deadline - t.loop.now
}

// Post queues fn to run on the loop. Safe to call from any goroutine.
func (l *EventLoop) Post(fn func()) {
	l.posts <- fn
}

// Do posts fn and waits for it to complete, or for ctx to be cancelled.
// Must not be called from the loop itself.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.posts <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dispatches timers in real time until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	l.logger.Debug("EventLoop.Run")
	l.started = time.Now().Add(-l.now)

	for {
		l.now = time.Since(l.started)
		l.dispatchDue()

		wait := time.Hour
		if next := l.queue.peek(); next != nil {
			wait = next.deadline - l.now
		}

		wake := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			wake.Stop()
			l.logger.Info("EventLoop.Run: stop signal received")
			return ctx.Err()
		case fn := <-l.posts:
			wake.Stop()
			l.now = time.Since(l.started)
			fn()
		case <-wake.C:
		}
	}
}

// Advance moves virtual time forward by d, running everything that falls due in order.
// Pending posts are drained first and after each callback.
func (l *EventLoop) Advance(d time.Duration) {
	target := l.now + d
	l.drainPosts()
	for {
		next := l.queue.peek()
		if next == nil || next.deadline > target {
			break
		}
		heap.Pop(&l.queue)
		if next.deadline > l.now {
			l.now = next.deadline
		}
		next.fn()
		l.drainPosts()
	}
	l.now = target
}

func (l *EventLoop) dispatchDue() {
	for {
		next := l.queue.peek()
		if next == nil || next.deadline > l.now {
			return
		}
		heap.Pop(&l.queue)
		next.fn()
	}
}

func (l *EventLoop) drainPosts() {
	for {
		select {
		case fn := <-l.posts:
			fn()
		default:
			return
		}
	}
}

type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].deadline == q[j].deadline {
		return q[i].seq < q[j].seq
	}
	return q[i].deadline < q[j].deadline
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (q timerQueue) peek() *Timer {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
