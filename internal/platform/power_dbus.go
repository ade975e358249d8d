package platform

import (
	"time"

	"github.com/godbus/dbus/v5"

	"autotimer/internal/core/activity"
)

const (
	login1Manager     = "org.freedesktop.login1.Manager"
	login1Session     = "org.freedesktop.login1.Session"
	screenSaverIface  = "org.freedesktop.ScreenSaver"
	prepareForSleep   = login1Manager + ".PrepareForSleep"
	sessionLock       = login1Session + ".Lock"
	sessionUnlock     = login1Session + ".Unlock"
	screenSaverActive = screenSaverIface + ".ActiveChanged"
)

// translateSignal maps logind and screensaver signals to power events.
func translateSignal(signal *dbus.Signal, now time.Time) (activity.PowerEvent, bool) {
	if signal == nil {
		return activity.PowerEvent{}, false
	}
	switch signal.Name {
	case prepareForSleep:
		sleeping, ok := firstBool(signal)
		if !ok {
			return activity.PowerEvent{}, false
		}
		if sleeping {
			return activity.PowerEvent{Kind: activity.PowerSuspend, At: now}, true
		}
		return activity.PowerEvent{Kind: activity.PowerResume, At: now}, true
	case sessionLock:
		return activity.PowerEvent{Kind: activity.ScreenLock, At: now}, true
	case sessionUnlock:
		return activity.PowerEvent{Kind: activity.ScreenUnlock, At: now}, true
	case screenSaverActive:
		active, ok := firstBool(signal)
		if !ok {
			return activity.PowerEvent{}, false
		}
		if active {
			return activity.PowerEvent{Kind: activity.ScreenLock, At: now}, true
		}
		return activity.PowerEvent{Kind: activity.ScreenUnlock, At: now}, true
	}
	return activity.PowerEvent{}, false
}

func firstBool(signal *dbus.Signal) (bool, bool) {
	if len(signal.Body) == 0 {
		return false, false
	}
	value, ok := signal.Body[0].(bool)
	return value, ok
}
