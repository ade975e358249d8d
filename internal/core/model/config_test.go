package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	settings := DefaultSettings()
	require.NoError(t, settings.Validate())
	assert.Equal(t, 25*time.Minute, settings.Duration())
	assert.Equal(t, 1500, settings.DurationSeconds())
	assert.Equal(t, 30*time.Second, settings.InactivityThreshold())
	assert.True(t, settings.ActivityMonitoring)
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		fields []string
	}{
		{"minimum duration", func(s *Settings) { s.DurationMinutes = 1 }, nil},
		{"maximum duration", func(s *Settings) { s.DurationMinutes = 120 }, nil},
		{"zero duration", func(s *Settings) { s.DurationMinutes = 0 }, []string{"duration_minutes"}},
		{"long duration", func(s *Settings) { s.DurationMinutes = 121 }, []string{"duration_minutes"}},
		{"short threshold", func(s *Settings) { s.InactivityThresholdSeconds = 9 }, []string{"inactivity_threshold_seconds"}},
		{"long threshold", func(s *Settings) { s.InactivityThresholdSeconds = 301 }, []string{"inactivity_threshold_seconds"}},
		{"silent", func(s *Settings) { s.SoundVolume = 0 }, nil},
		{"loud", func(s *Settings) { s.SoundVolume = 101 }, []string{"sound_volume"}},
		{"several", func(s *Settings) {
			s.DurationMinutes = -1
			s.SoundVolume = -5
		}, []string{"duration_minutes", "sound_volume"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(&settings)
			err := settings.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSettings))

			var fields []string
			for _, cfgErr := range ConfigurationErrors(err) {
				fields = append(fields, cfgErr.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Field: "sound_volume", Value: 140, Min: 0, Max: 100}
	assert.Equal(t, "sound_volume: 140 is outside 0..100", err.Error())

	var target *ConfigurationError
	require.True(t, errors.As(DefaultSettings().withVolume(140).Validate(), &target))
	assert.Equal(t, 140, target.Value)
}

func (s Settings) withVolume(volume int) Settings {
	s.SoundVolume = volume
	return s
}

func TestSettingsSources(t *testing.T) {
	settings := DefaultSettings()
	settings.DurationMinutes = 7

	assert.Equal(t, 7, StaticSettings(settings).Snapshot().DurationMinutes)
	assert.Equal(t, 7, SettingsFunc(func() Settings { return settings }).Snapshot().DurationMinutes)
}
