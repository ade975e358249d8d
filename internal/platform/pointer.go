package platform

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"autotimer/internal/core/activity"
)

// NewPointerSource returns a platform-specific pointer position source.
func NewPointerSource() activity.PointerSource {
	return newPointerSource()
}

type unsupportedPointerSource struct{}

func (unsupportedPointerSource) CursorPosition() (activity.Point, error) {
	return activity.Point{}, activity.ErrSignalUnavailable
}

// parseXdotoolLocation parses `xdotool getmouselocation --shell` output.
func parseXdotoolLocation(output string) (activity.Point, error) {
	var point activity.Point
	var haveX, haveY bool
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "X", "Y":
			n, err := strconv.Atoi(value)
			if err != nil {
				return activity.Point{}, fmt.Errorf("parse pointer %s: %w", key, err)
			}
			if key == "X" {
				point.X, haveX = n, true
			} else {
				point.Y, haveY = n, true
			}
		}
	}
	if !haveX || !haveY {
		return activity.Point{}, fmt.Errorf("pointer position missing from %q", output)
	}
	return point, nil
}

// idlePointerSource derives pseudo positions from an input idle counter:
// every drop in idle time moves the reported point.
type idlePointerSource struct {
	mu    sync.Mutex
	idle  IdleProvider
	last  time.Duration
	moves int
}

func (source *idlePointerSource) CursorPosition() (activity.Point, error) {
	idleFor, err := source.idle.IdleDuration()
	if err != nil {
		return activity.Point{}, err
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if idleFor < source.last {
		source.moves++
	}
	source.last = idleFor
	return activity.Point{X: source.moves}, nil
}
