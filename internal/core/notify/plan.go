package notify

import (
	"fmt"
	"sort"
	"time"

	"autotimer/internal/core/model"
)

// Channel names a notification output.
type Channel string

const (
	ChannelPush      Channel = "push"
	ChannelSound     Channel = "sound"
	ChannelAttention Channel = "attention"
	ChannelBeep      Channel = "beep"
)

// Escalation timing, relative to completion.
var (
	PushOffsets      = []time.Duration{0, 2 * time.Second, 5 * time.Second}
	SoundOffsets     = []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second}
	AttentionOffsets = []time.Duration{0, 1500 * time.Millisecond, 3 * time.Second}
)

// BurstTones is the rising three-note chime of one sound burst.
var BurstTones = []model.Tone{
	{FrequencyHz: 880, Duration: 120 * time.Millisecond},
	{FrequencyHz: 1318.5, Duration: 120 * time.Millisecond},
	{FrequencyHz: 1760, Duration: 180 * time.Millisecond},
}

var pushUrgency = []model.Urgency{model.UrgencyNormal, model.UrgencyHigh, model.UrgencyCritical}

type step struct {
	offset  time.Duration
	channel Channel
	// index is the 1-based position within the channel.
	index int
}

// escalationPlan merges the channel offsets into one schedule ordered by
// offset, then by channel order push, sound, attention.
func escalationPlan() []step {
	var plan []step
	add := func(channel Channel, offsets []time.Duration) {
		for i, offset := range offsets {
			plan = append(plan, step{offset: offset, channel: channel, index: i + 1})
		}
	}
	add(ChannelPush, PushOffsets)
	add(ChannelSound, SoundOffsets)
	add(ChannelAttention, AttentionOffsets)
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].offset < plan[j].offset })
	return plan
}

func pushRequest(index int, durationMinutes int) model.NotificationRequest {
	urgency := pushUrgency[len(pushUrgency)-1]
	if index-1 < len(pushUrgency) {
		urgency = pushUrgency[index-1]
	}
	request := model.NotificationRequest{Urgency: urgency, Step: index}
	switch index {
	case 1:
		request.Title = "Timer complete"
		request.Body = fmt.Sprintf("Your %d-minute session has finished. Time for a break!", durationMinutes)
	case 2:
		request.Title = "Reminder: timer complete"
		request.Body = fmt.Sprintf("Your %d-minute session ended a moment ago.", durationMinutes)
	default:
		request.Title = "Break time"
		request.Body = "Your session is over. Step away from the screen."
	}
	return request
}

func testRequest() model.NotificationRequest {
	return model.NotificationRequest{
		Title:   "Test notification",
		Body:    "Notifications are working.",
		Urgency: model.UrgencyNormal,
	}
}

func soundRequest(settings model.Settings) model.SoundRequest {
	return model.SoundRequest{
		Tones:         append([]model.Tone(nil), BurstTones...),
		VolumePercent: settings.SoundVolume,
		CustomPath:    settings.CustomSoundPath,
	}
}

func attentionRequest(index int) model.AttentionRequest {
	urgency := model.UrgencyNormal
	if index > 1 {
		urgency = model.UrgencyHigh
	}
	return model.AttentionRequest{Urgency: urgency, Repeat: index}
}
