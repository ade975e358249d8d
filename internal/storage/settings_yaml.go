package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"autotimer/internal/core/model"
)

const settingsFileName = "settings.yaml"

// yamlSettings mirrors model.Settings with optional fields so that keys
// missing from the file keep their defaults.
type yamlSettings struct {
	DurationMinutes            *int    `yaml:"duration_minutes,omitempty"`
	InactivityThresholdSeconds *int    `yaml:"inactivity_threshold_seconds,omitempty"`
	SoundEnabled               *bool   `yaml:"sound_enabled,omitempty"`
	PushNotificationEnabled    *bool   `yaml:"push_notification_enabled,omitempty"`
	FlashEnabled               *bool   `yaml:"flash_enabled,omitempty"`
	AutoStart                  *bool   `yaml:"auto_start,omitempty"`
	ActivityMonitoring         *bool   `yaml:"activity_monitoring,omitempty"`
	SoundVolume                *int    `yaml:"sound_volume,omitempty"`
	CustomSoundPath            *string `yaml:"custom_sound_path,omitempty"`
}

// ResolveSettingsPath returns the settings file location under the user config dir.
func ResolveSettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettingsFile reads settings from path on top of base.
// A missing file yields base unchanged. Out-of-range values are skipped and
// reported as configuration errors alongside the usable settings.
func LoadSettingsFile(path string, base model.Settings) (model.Settings, error) {
	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return base, fmt.Errorf("read settings file: %w", err)
	}
	return decodeSettings(rawData, base)
}

func decodeSettings(rawData []byte, base model.Settings) (model.Settings, error) {
	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return base, fmt.Errorf("parse settings yaml: %w", err)
	}
	return applyYamlSettings(base, fileData)
}

// SaveSettingsFile writes settings to path, replacing the file atomically.
func SaveSettingsFile(path string, settings model.Settings) error {
	serialized, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), settingsFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

func encodeSettings(settings model.Settings) ([]byte, error) {
	fileData := yamlSettings{
		DurationMinutes:            &settings.DurationMinutes,
		InactivityThresholdSeconds: &settings.InactivityThresholdSeconds,
		SoundEnabled:               &settings.SoundEnabled,
		PushNotificationEnabled:    &settings.PushNotificationEnabled,
		FlashEnabled:               &settings.FlashEnabled,
		AutoStart:                  &settings.AutoStart,
		ActivityMonitoring:         &settings.ActivityMonitoring,
		SoundVolume:                &settings.SoundVolume,
	}
	if settings.CustomSoundPath != "" {
		fileData.CustomSoundPath = &settings.CustomSoundPath
	}
	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return nil, fmt.Errorf("marshal settings yaml: %w", err)
	}
	return serialized, nil
}

func applyYamlSettings(settings model.Settings, fileData yamlSettings) (model.Settings, error) {
	var problems *multierror.Error
	applyInt := func(target *int, value *int, field string, min, max int) {
		if value == nil {
			return
		}
		if *value < min || *value > max {
			problems = multierror.Append(problems, &model.ConfigurationError{Field: field, Value: *value, Min: min, Max: max})
			return
		}
		*target = *value
	}
	applyBool := func(target *bool, value *bool) {
		if value != nil {
			*target = *value
		}
	}

	applyInt(&settings.DurationMinutes, fileData.DurationMinutes, "duration_minutes",
		model.MinDurationMinutes, model.MaxDurationMinutes)
	applyInt(&settings.InactivityThresholdSeconds, fileData.InactivityThresholdSeconds, "inactivity_threshold_seconds",
		model.MinInactivityThresholdSeconds, model.MaxInactivityThresholdSeconds)
	applyInt(&settings.SoundVolume, fileData.SoundVolume, "sound_volume",
		model.MinSoundVolume, model.MaxSoundVolume)

	applyBool(&settings.SoundEnabled, fileData.SoundEnabled)
	applyBool(&settings.PushNotificationEnabled, fileData.PushNotificationEnabled)
	applyBool(&settings.FlashEnabled, fileData.FlashEnabled)
	applyBool(&settings.AutoStart, fileData.AutoStart)
	applyBool(&settings.ActivityMonitoring, fileData.ActivityMonitoring)
	if fileData.CustomSoundPath != nil {
		settings.CustomSoundPath = *fileData.CustomSoundPath
	}
	return settings, problems.ErrorOrNil()
}
