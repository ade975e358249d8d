package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock for tests. Callbacks run synchronously on
// the goroutine calling Advance or Jump, in due-time order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*fakeTask
}

type fakeTask struct {
	clock  *Fake
	at     time.Time
	period time.Duration
	seq    uint64
	fn     func()
	// stopped and fired are guarded by clock.mu.
	stopped bool
	fired   bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (clock *Fake) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

// AfterFunc schedules f at now+d. A non-positive d runs f immediately.
func (clock *Fake) AfterFunc(d time.Duration, f func()) Timer {
	if d <= 0 {
		f()
		return &fakeTask{clock: clock}
	}
	return clock.schedule(d, 0, f)
}

// Every schedules f every d, starting at now+d.
func (clock *Fake) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return clock.schedule(d, d, f)
}

func (clock *Fake) schedule(d, period time.Duration, f func()) *fakeTask {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.seq++
	task := &fakeTask{
		clock:  clock,
		at:     clock.now.Add(d),
		period: period,
		seq:    clock.seq,
		fn:     f,
	}
	clock.tasks = append(clock.tasks, task)
	return task
}

// Advance moves the clock forward by d, firing every callback that falls due
// on the way at its scheduled instant.
func (clock *Fake) Advance(d time.Duration) {
	clock.mu.Lock()
	target := clock.now.Add(d)
	clock.mu.Unlock()

	for {
		clock.mu.Lock()
		task := clock.nextDueLocked(target)
		if task == nil {
			clock.now = target
			clock.mu.Unlock()
			return
		}
		clock.now = task.at
		clock.rescheduleLocked(task, task.at)
		clock.mu.Unlock()

		task.fn()
	}
}

// Jump moves the clock forward by d without firing intermediate ticks, the
// way a suspended machine misses them. Each overdue callback fires once after
// the jump; periodic ones are rescheduled from the new time.
func (clock *Fake) Jump(d time.Duration) {
	clock.mu.Lock()
	clock.now = clock.now.Add(d)
	now := clock.now
	var due []*fakeTask
	for {
		task := clock.nextDueLocked(now)
		if task == nil {
			break
		}
		clock.rescheduleLocked(task, now)
		due = append(due, task)
	}
	clock.mu.Unlock()

	for _, task := range due {
		if task.stillWanted() {
			task.fn()
		}
	}
}

// Pending returns the number of scheduled callbacks.
func (clock *Fake) Pending() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return len(clock.tasks)
}

func (clock *Fake) nextDueLocked(target time.Time) *fakeTask {
	var next *fakeTask
	for _, task := range clock.tasks {
		if task.at.After(target) {
			continue
		}
		if next == nil || task.at.Before(next.at) || (task.at.Equal(next.at) && task.seq < next.seq) {
			next = task
		}
	}
	return next
}

func (clock *Fake) rescheduleLocked(task *fakeTask, from time.Time) {
	if task.period > 0 {
		task.at = from.Add(task.period)
		clock.seq++
		task.seq = clock.seq
		return
	}
	task.fired = true
	clock.removeLocked(task)
}

func (clock *Fake) removeLocked(target *fakeTask) bool {
	for i, task := range clock.tasks {
		if task == target {
			clock.tasks = append(clock.tasks[:i], clock.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (task *fakeTask) stillWanted() bool {
	task.clock.mu.Lock()
	defer task.clock.mu.Unlock()
	return !task.stopped
}

func (task *fakeTask) Stop() bool {
	if task.clock == nil || task.fn == nil {
		return false
	}
	task.clock.mu.Lock()
	defer task.clock.mu.Unlock()
	wasPending := !task.stopped && !task.fired
	task.stopped = true
	task.clock.removeLocked(task)
	return wasPending
}
