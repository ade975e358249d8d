//go:build !linux

package platform

import "log/slog"

func newPowerMonitor(logger *slog.Logger) PowerMonitor {
	return NewSleepDetector(nil, logger)
}
