package platform

import "autotimer/internal/core/activity"

// Reading the cursor on macOS needs CoreGraphics through cgo; keyboard and
// pointer presence come from the ioreg idle time instead.
func newPointerSource() activity.PointerSource {
	return &idlePointerSource{idle: newIdleProvider()}
}
