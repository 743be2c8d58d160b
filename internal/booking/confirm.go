// internal/booking/confirm.go
package booking

import (
	"context"
	"time"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/dialog"
	"bookings-bot/internal/notify"
	"bookings-bot/internal/scheduling"
	"bookings-bot/internal/turn"
	"bookings-bot/pkg/messages"
)

type confirmStep struct {
	dialog.ConfirmStep[Values]
	deps *Deps
}

func newConfirmStep(deps *Deps) *confirmStep {
	return &confirmStep{ConfirmStep: dialog.ConfirmStep[Values]{StepID: ConfirmStepID}, deps: deps}
}

func (s *confirmStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	card := SummaryCard(profile, s.deps.Messages.Card, s.deps.location())
	if err := sc.Turn().SendActivity(ctx, turn.NewCardMessage(card)); err != nil {
		return dialog.TurnResult{}, err
	}
	return sc.Prompt(ctx, s.ID(), textPrompt(s.deps.Messages.Confirm))
}

func (s *confirmStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	confirmed, err := dialog.ConfirmResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if !confirmed {
		if err := sc.Turn().SendText(ctx, s.deps.Messages.Cancel); err != nil {
			return dialog.TurnResult{}, err
		}
		return sc.End(ctx, nil)
	}

	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	req, err := appointmentRequest(profile)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	appt, err := s.deps.Client.CreateAppointment(ctx, profile.BusinessID, req)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if appt == nil {
		return dialog.TurnResult{}, errors.NewEntityNotFoundError("appointment", profile.BusinessID)
	}
	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordAppointmentCreated(profile.BusinessID)
	}
	s.deps.log().Info("appointment created", map[string]interface{}{
		"appointmentId": appt.ID,
		"businessId":    profile.BusinessID,
		"serviceId":     profile.ServiceID,
	})
	s.notify(ctx, profile, appt.ID)

	if err := sc.Turn().SendText(ctx, s.deps.Messages.Complete); err != nil {
		return dialog.TurnResult{}, err
	}
	return sc.End(ctx, nil)
}

// notify sends the optional confirmation mail. Failures never reach the user.
func (s *confirmStep) notify(ctx context.Context, p *Profile, appointmentID string) {
	if s.deps.Notifier == nil {
		return
	}
	loc := s.deps.location()
	err := s.deps.Notifier.AppointmentBooked(ctx, notify.Confirmation{
		AppointmentID: appointmentID,
		BusinessName:  p.BusinessName,
		ServiceName:   p.ServiceName,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		Start:         formatCardTime(p.StartTime, loc),
		End:           formatCardTime(p.EndTime, loc),
	})
	if err != nil {
		s.deps.log().Warn("confirmation email failed", map[string]interface{}{
			"appointmentId": appointmentID,
			"error":         err.Error(),
		})
	}
}

func appointmentRequest(p *Profile) (scheduling.AppointmentRequest, error) {
	switch {
	case p.BusinessID == "":
		return scheduling.AppointmentRequest{}, errors.NewStateNotFoundError("bookingBusinessId")
	case p.ServiceID == "":
		return scheduling.AppointmentRequest{}, errors.NewStateNotFoundError("bookingServiceId")
	case p.StartTime == nil || p.EndTime == nil:
		return scheduling.AppointmentRequest{}, errors.NewStateNotFoundError("bookingStartTime")
	case p.StaffMemberID == "":
		return scheduling.AppointmentRequest{}, errors.NewStateNotFoundError("bookingStaffMemberId")
	case p.CustomerEmail == "":
		return scheduling.AppointmentRequest{}, errors.NewStateNotFoundError("bookingCustomerEmail")
	}
	return scheduling.AppointmentRequest{
		CustomerName:   p.CustomerName,
		CustomerEmail:  p.CustomerEmail,
		ServiceID:      p.ServiceID,
		ServiceName:    p.ServiceName,
		Start:          p.StartTime.UTC(),
		End:            p.EndTime.UTC(),
		StaffMemberIDs: []string{p.StaffMemberID},
	}, nil
}

// SummaryCard lists the profile as label/value facts.
func SummaryCard(p *Profile, labels messages.Labels, loc *time.Location) turn.Card {
	return turn.Card{
		Title: labels.Title,
		Facts: []turn.Fact{
			{Title: labels.Business, Value: p.BusinessName},
			{Title: labels.Service, Value: p.ServiceName},
			{Title: labels.StartTime, Value: formatCardTime(p.StartTime, loc)},
			{Title: labels.EndTime, Value: formatCardTime(p.EndTime, loc)},
			{Title: labels.CustomerName, Value: p.CustomerName},
			{Title: labels.CustomerEmail, Value: p.CustomerEmail},
		},
	}
}

func formatCardTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(cardTimeLayout)
}
