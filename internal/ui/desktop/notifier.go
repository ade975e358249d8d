package desktop

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"

	"autotimer/internal/core/model"
	"autotimer/internal/core/notify"
)

// Sounds plays audio on the host.
type Sounds interface {
	PlaySound(ctx context.Context, request model.SoundRequest) error
	Beep(ctx context.Context) error
}

// Attention raises and flashes the timer window.
type Attention interface {
	RequestAttention(request model.AttentionRequest)
}

// Notifier delivers escalation requests through the fyne app, the timer
// panel and the host sound player. It implements notify.Notifier.
type Notifier struct {
	app       fyne.App
	attention Attention
	sounds    Sounds
}

// NewNotifier wires the collaborators. Any of them may be nil, which makes
// the matching channel unavailable.
func NewNotifier(app fyne.App, attention Attention, sounds Sounds) *Notifier {
	return &Notifier{app: app, attention: attention, sounds: sounds}
}

// Notify shows a system notification.
func (notifier *Notifier) Notify(ctx context.Context, request model.NotificationRequest) error {
	if notifier.app == nil {
		return notify.ErrChannelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	title := request.Title
	if request.Urgency == model.UrgencyCritical {
		title = fmt.Sprintf("%s!", title)
	}
	notifier.app.SendNotification(fyne.NewNotification(title, request.Body))
	return nil
}

// PlaySound plays a burst or the custom sound file.
func (notifier *Notifier) PlaySound(ctx context.Context, request model.SoundRequest) error {
	if notifier.sounds == nil {
		return notify.ErrChannelUnavailable
	}
	return notifier.sounds.PlaySound(ctx, request)
}

// RequestAttention raises and flashes the timer panel.
func (notifier *Notifier) RequestAttention(ctx context.Context, request model.AttentionRequest) error {
	if notifier.attention == nil {
		return notify.ErrChannelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	notifier.attention.RequestAttention(request)
	return nil
}

// Beep emits the system alert sound.
func (notifier *Notifier) Beep(ctx context.Context) error {
	if notifier.sounds == nil {
		return notify.ErrChannelUnavailable
	}
	return notifier.sounds.Beep(ctx)
}
