package model

import "time"

// Urgency grades a notification request.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// NotificationRequest asks the collaborator to show a push notification.
type NotificationRequest struct {
	Title   string
	Body    string
	Urgency Urgency
	// Step is the 1-based position in an escalation, 0 for a test notification.
	Step int
}

// Tone is one note of a sound burst.
type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
}

// SoundRequest asks the collaborator to play a short burst.
type SoundRequest struct {
	Tones         []Tone
	VolumePercent int
	// CustomPath, when set, replaces the synthesized tones.
	CustomPath string
}

// AttentionRequest asks the collaborator to flash or focus the window.
type AttentionRequest struct {
	Urgency Urgency
	// Repeat is the 1-based flash number within an escalation.
	Repeat int
}
