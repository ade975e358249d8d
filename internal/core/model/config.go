package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Settings bounds.
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 120

	MinInactivityThresholdSeconds = 10
	MaxInactivityThresholdSeconds = 300

	MinSoundVolume = 0
	MaxSoundVolume = 100
)

// ErrInvalidSettings is matched by every ConfigurationError.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the user configuration consumed by the timer core.
type Settings struct {
	DurationMinutes            int    `json:"duration_minutes" yaml:"duration_minutes"`
	InactivityThresholdSeconds int    `json:"inactivity_threshold_seconds" yaml:"inactivity_threshold_seconds"`
	SoundEnabled               bool   `json:"sound_enabled" yaml:"sound_enabled"`
	PushNotificationEnabled    bool   `json:"push_notification_enabled" yaml:"push_notification_enabled"`
	FlashEnabled               bool   `json:"flash_enabled" yaml:"flash_enabled"`
	AutoStart                  bool   `json:"auto_start" yaml:"auto_start"`
	ActivityMonitoring         bool   `json:"activity_monitoring" yaml:"activity_monitoring"`
	SoundVolume                int    `json:"sound_volume" yaml:"sound_volume"`
	CustomSoundPath            string `json:"custom_sound_path,omitempty" yaml:"custom_sound_path,omitempty"`
}

// DefaultSettings returns the settings used on first launch.
func DefaultSettings() Settings {
	return Settings{
		DurationMinutes:            25,
		InactivityThresholdSeconds: 30,
		SoundEnabled:               true,
		PushNotificationEnabled:    true,
		FlashEnabled:               true,
		AutoStart:                  false,
		ActivityMonitoring:         true,
		SoundVolume:                50,
	}
}

// Duration returns the session length.
func (s Settings) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// DurationSeconds returns the session length in whole seconds.
func (s Settings) DurationSeconds() int {
	return s.DurationMinutes * 60
}

// InactivityThreshold returns the idle time after which a running timer pauses.
func (s Settings) InactivityThreshold() time.Duration {
	return time.Duration(s.InactivityThresholdSeconds) * time.Second
}

// Validate reports every out-of-range field. The returned error matches
// ErrInvalidSettings and unwraps to *ConfigurationError values.
func (s Settings) Validate() error {
	var result *multierror.Error
	check := func(field string, value, min, max int) {
		if value < min || value > max {
			result = multierror.Append(result, &ConfigurationError{Field: field, Value: value, Min: min, Max: max})
		}
	}
	check("duration_minutes", s.DurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	check("inactivity_threshold_seconds", s.InactivityThresholdSeconds, MinInactivityThresholdSeconds, MaxInactivityThresholdSeconds)
	check("sound_volume", s.SoundVolume, MinSoundVolume, MaxSoundVolume)
	return result.ErrorOrNil()
}

// ConfigurationError describes a settings value outside its allowed range.
type ConfigurationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %d is outside %d..%d", err.Field, err.Value, err.Min, err.Max)
}

func (err *ConfigurationError) Unwrap() error {
	return ErrInvalidSettings
}

// ConfigurationErrors flattens err into its ConfigurationError parts.
func ConfigurationErrors(err error) []*ConfigurationError {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*ConfigurationError
		for _, inner := range merr.WrappedErrors() {
			out = append(out, ConfigurationErrors(inner)...)
		}
		return out
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return []*ConfigurationError{cfgErr}
	}
	return nil
}

// SettingsSource supplies a consistent snapshot of the live settings.
type SettingsSource interface {
	Snapshot() Settings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() Settings

// Snapshot calls fn.
func (fn SettingsFunc) Snapshot() Settings {
	return fn()
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

// Snapshot returns the wrapped settings.
func (s StaticSettings) Snapshot() Settings {
	return Settings(s)
}
