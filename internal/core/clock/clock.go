package clock

import (
	"sync"
	"time"
)

// Timer is a cancellable handle for a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the callback was still pending.
	Stop() bool
}

// Clock supplies the current time and scheduled callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once after d.
	AfterFunc(d time.Duration, f func()) Timer
	// Every calls f every d until the returned Timer is stopped.
	Every(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

// NewReal returns the system clock.
func NewReal() Real {
	return Real{}
}

// Now returns time.Now.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every runs f on a dedicated goroutine driven by a time.Ticker.
// Missed ticks are dropped, as with time.Ticker.
func (Real) Every(d time.Duration, f func()) Timer {
	ticker := &realTicker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go ticker.run(f)
	return ticker
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (ticker *realTicker) run(f func()) {
	for {
		select {
		case <-ticker.done:
			return
		case <-ticker.ticker.C:
			select {
			case <-ticker.done:
				return
			default:
			}
			f()
		}
	}
}

func (ticker *realTicker) Stop() bool {
	stopped := false
	ticker.once.Do(func() {
		ticker.ticker.Stop()
		close(ticker.done)
		stopped = true
	})
	return stopped
}
