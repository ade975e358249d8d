package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"autotimer/internal/core/activity"
)

const (
	mutterIdleDestination = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath        = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterIdleMethod      = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

type idleProvider struct {
	xprintidlePath string
}

func newIdleProvider() IdleProvider {
	if !isWayland() {
		if path, err := exec.LookPath("xprintidle"); err == nil {
			return &idleProvider{xprintidlePath: path}
		}
	}
	if mutter := newMutterIdleProvider(); mutter != nil {
		return mutter
	}
	return unsupportedIdleProvider{}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, provider.xprintidlePath).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(string(output))
}

// mutterIdleProvider asks GNOME Shell for the input idle time, which also
// works under Wayland.
type mutterIdleProvider struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// newMutterIdleProvider returns nil when the IdleMonitor is not reachable.
func newMutterIdleProvider() *mutterIdleProvider {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil
	}
	provider := &mutterIdleProvider{conn: conn}
	if _, err := provider.IdleDuration(); err != nil {
		conn.Close()
		return nil
	}
	return provider
}

func (provider *mutterIdleProvider) IdleDuration() (time.Duration, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	var idleMillis uint64
	err := provider.conn.Object(mutterIdleDestination, dbus.ObjectPath(mutterIdlePath)).
		CallWithContext(ctx, mutterIdleMethod, 0).
		Store(&idleMillis)
	if err != nil {
		if !provider.conn.Connected() {
			return 0, fmt.Errorf("mutter idle monitor: %w", activity.ErrSignalUnavailable)
		}
		return 0, fmt.Errorf("mutter idle monitor: %w", err)
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

func isWayland() bool {
	return strings.ToLower(os.Getenv("XDG_SESSION_TYPE")) == "wayland"
}
