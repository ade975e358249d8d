package animation

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []bool
}

func (r *recorder) highlight(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, on)
}

func (r *recorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func quickConfig() Config {
	return Config{
		OnDuration:  Range{Min: time.Millisecond, Max: time.Millisecond},
		OffDuration: Range{Min: time.Millisecond, Max: time.Millisecond},
		Cycles:      2,
	}
}

func TestRangeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	fixed := Range{Min: time.Second, Max: time.Second}
	assert.Equal(t, time.Second, fixed.Random(rng))

	spread := Range{Min: time.Second, Max: 2 * time.Second}
	for i := 0; i < 20; i++ {
		value := spread.Random(rng)
		assert.GreaterOrEqual(t, value, time.Second)
		assert.Less(t, value, 2*time.Second)
	}
}

func TestFlashPulsesAndEndsOff(t *testing.T) {
	rec := &recorder{}
	engine := New(quickConfig(), rec.highlight)

	engine.Flash(context.Background(), 2)
	engine.Wait()

	states := rec.snapshot()
	require.Len(t, states, 9)
	for i := 0; i < 8; i++ {
		assert.Equal(t, i%2 == 0, states[i])
	}
	assert.False(t, states[8])
}

func TestStopSwitchesOff(t *testing.T) {
	rec := &recorder{}
	config := quickConfig()
	config.OnDuration = Range{Min: time.Hour, Max: time.Hour}
	engine := New(config, rec.highlight)

	engine.Flash(context.Background(), 1)
	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, time.Second, time.Millisecond)
	engine.Stop()

	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestConcurrentFlashesLeaveOneSequence(t *testing.T) {
	rec := &recorder{}
	config := quickConfig()
	config.Cycles = 1000
	engine := New(config, rec.highlight)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Flash(context.Background(), 1)
		}()
	}
	wg.Wait()
	engine.Stop()

	stopped := rec.snapshot()
	require.NotEmpty(t, stopped)
	assert.False(t, stopped[len(stopped)-1])

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, rec.snapshot(), "no sequence keeps pulsing after Stop")
}
