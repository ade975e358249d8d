package platform

import (
	"context"
	"fmt"
	"os/exec"

	"autotimer/internal/core/activity"
)

type xdotoolPointerSource struct {
	path string
}

// newPointerSource prefers xdotool on X11 and otherwise infers movement from
// drops in the input idle time: xprintidle on X11, the GNOME idle monitor
// under Wayland, which hides the cursor from other clients.
func newPointerSource() activity.PointerSource {
	if !isWayland() {
		if path, err := exec.LookPath("xdotool"); err == nil {
			return &xdotoolPointerSource{path: path}
		}
		if path, err := exec.LookPath("xprintidle"); err == nil {
			return &idlePointerSource{idle: &idleProvider{xprintidlePath: path}}
		}
	}
	if mutter := newMutterIdleProvider(); mutter != nil {
		return &idlePointerSource{idle: mutter}
	}
	return unsupportedPointerSource{}
}

func (source *xdotoolPointerSource) CursorPosition() (activity.Point, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, source.path, "getmouselocation", "--shell").Output()
	if err != nil {
		return activity.Point{}, fmt.Errorf("xdotool: %w", err)
	}
	return parseXdotoolLocation(string(output))
}
