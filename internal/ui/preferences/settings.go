package preferences

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"autotimer/internal/core/model"
)

// FormValues holds the raw contents of the preferences form.
type FormValues struct {
	DurationMinutes            string
	InactivityThresholdSeconds string
	SoundVolume                string
	CustomSoundPath            string

	SoundEnabled            bool
	PushNotificationEnabled bool
	FlashEnabled            bool
	AutoStart               bool
	ActivityMonitoring      bool
}

// ValuesFromSettings renders settings into form values.
func ValuesFromSettings(settings model.Settings) FormValues {
	return FormValues{
		DurationMinutes:            strconv.Itoa(settings.DurationMinutes),
		InactivityThresholdSeconds: strconv.Itoa(settings.InactivityThresholdSeconds),
		SoundVolume:                strconv.Itoa(settings.SoundVolume),
		CustomSoundPath:            settings.CustomSoundPath,
		SoundEnabled:               settings.SoundEnabled,
		PushNotificationEnabled:    settings.PushNotificationEnabled,
		FlashEnabled:               settings.FlashEnabled,
		AutoStart:                  settings.AutoStart,
		ActivityMonitoring:         settings.ActivityMonitoring,
	}
}

// Parse converts form values into validated settings. Every malformed or
// out-of-range field is reported.
func (values FormValues) Parse() (model.Settings, error) {
	var problems *multierror.Error
	parseInt := func(raw, field string) int {
		parsed, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			problems = multierror.Append(problems, fmt.Errorf("%s: %q is not a whole number", field, raw))
		}
		return parsed
	}

	settings := model.Settings{
		DurationMinutes:            parseInt(values.DurationMinutes, "duration_minutes"),
		InactivityThresholdSeconds: parseInt(values.InactivityThresholdSeconds, "inactivity_threshold_seconds"),
		SoundVolume:                parseInt(values.SoundVolume, "sound_volume"),
		CustomSoundPath:            strings.TrimSpace(values.CustomSoundPath),
		SoundEnabled:               values.SoundEnabled,
		PushNotificationEnabled:    values.PushNotificationEnabled,
		FlashEnabled:               values.FlashEnabled,
		AutoStart:                  values.AutoStart,
		ActivityMonitoring:         values.ActivityMonitoring,
	}
	if err := problems.ErrorOrNil(); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}
