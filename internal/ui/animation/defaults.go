package animation

import "time"

// DefaultConfig returns a short, noticeable pulse.
func DefaultConfig() Config {
	return Config{
		OnDuration: Range{
			Min: 180 * time.Millisecond,
			Max: 220 * time.Millisecond,
		},
		OffDuration: Range{
			Min: 120 * time.Millisecond,
			Max: 160 * time.Millisecond,
		},
		Cycles: 2,
	}
}
