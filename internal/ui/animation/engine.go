package animation

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Range defines a duration range with random sampling.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a random duration within the range.
func (value Range) Random(rng *rand.Rand) time.Duration {
	if value.Max <= value.Min {
		return value.Min
	}
	delta := value.Max - value.Min
	return value.Min + time.Duration(rng.Int63n(int64(delta)))
}

// Config contains flash timing values.
type Config struct {
	OnDuration  Range
	OffDuration Range
	// Cycles is the number of highlight pulses per flash, scaled by urgency.
	Cycles int
}

// Engine pulses a highlight on and off, one sequence at a time.
type Engine struct {
	// startMu serializes replacing one sequence with the next.
	startMu   sync.Mutex
	mu        sync.Mutex
	config    Config
	highlight func(on bool)
	cancel    context.CancelFunc
	done      chan struct{}
	rng       *rand.Rand
}

// New creates a flash engine calling highlight for every transition.
func New(config Config, highlight func(on bool)) *Engine {
	return &Engine{
		config:    config,
		highlight: highlight,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Flash starts a sequence of cycles*Config.Cycles pulses, replacing any
// running one. The highlight always ends switched off.
func (engine *Engine) Flash(ctx context.Context, cycles int) {
	if cycles < 1 {
		cycles = 1
	}
	engine.start(ctx, func(runCtx context.Context) {
		defer engine.highlight(false)
		for i := 0; i < cycles*engine.config.Cycles; i++ {
			engine.highlight(true)
			if !sleepWithContext(runCtx, engine.config.OnDuration.Random(engine.rng)) {
				return
			}
			engine.highlight(false)
			if !sleepWithContext(runCtx, engine.config.OffDuration.Random(engine.rng)) {
				return
			}
		}
	})
}

// Stop terminates any active sequence and waits for it to switch off.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	cancel, done := engine.cancel, engine.done
	engine.cancel, engine.done = nil, nil
	engine.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the active sequence finishes.
func (engine *Engine) Wait() {
	engine.mu.Lock()
	done := engine.done
	engine.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (engine *Engine) start(parent context.Context, run func(context.Context)) {
	engine.startMu.Lock()
	defer engine.startMu.Unlock()
	engine.Stop()

	runCtx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	engine.mu.Lock()
	engine.cancel = cancel
	engine.done = done
	engine.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		run(runCtx)
	}()
}

func sleepWithContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
