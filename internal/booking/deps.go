// internal/booking/deps.go
package booking

import (
	"context"
	"time"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/dialog"
	"bookings-bot/internal/notify"
	"bookings-bot/internal/scheduling"
	"bookings-bot/internal/state"
	"bookings-bot/pkg/messages"
)

// AppointmentRecorder counts created appointments.
type AppointmentRecorder interface {
	RecordAppointmentCreated(businessID string)
}

// Deps is what the booking steps share.
type Deps struct {
	Client          scheduling.Client
	Profile         *state.Property[Profile]
	Messages        *messages.Catalog
	Location        *time.Location
	DateChoiceCount int
	Now             func() time.Time
	// Notifier and Recorder are optional.
	Notifier notify.Notifier
	Recorder AppointmentRecorder
	Logger   logger.Logger
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.UTC
}

func (d *Deps) dateCount() int {
	if d.DateChoiceCount > 0 {
		return d.DateChoiceCount
	}
	return 6
}

func (d *Deps) profile(ctx context.Context, sc *dialog.StepContext[Values]) (*Profile, error) {
	return d.Profile.Get(ctx, sc.Turn(), func() *Profile { return &Profile{} })
}

func (d *Deps) log() logger.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.NewNoOpLogger()
}

func toOptions(entities []scheduling.Entity, entity string) ([]Option, error) {
	if len(entities) == 0 {
		return nil, errors.NewEntityNotFoundError(entity, "")
	}
	options := make([]Option, len(entities))
	for i, e := range entities {
		options[i] = Option{ID: e.ID, DisplayName: e.DisplayName}
	}
	return options, nil
}

func choicePrompt(p messages.Prompt, choices []string) dialog.PromptOptions {
	return dialog.PromptOptions{Prompt: p.Ask, RetryPrompt: p.Retry, Choices: choices}
}

func textPrompt(p messages.Prompt) dialog.PromptOptions {
	return dialog.PromptOptions{Prompt: p.Ask, RetryPrompt: p.Retry}
}
