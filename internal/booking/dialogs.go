// internal/booking/dialogs.go
package booking

import (
	"context"

	"bookings-bot/internal/dialog"
)

const (
	MainDialogID    = "MainDialog"
	BookingDialogID = "BookingDialog"
)

// BookingSteps is the booking pipeline in order.
func BookingSteps(deps *Deps) []dialog.Step[Values] {
	return []dialog.Step[Values]{
		newBusinessStep(deps),
		newServiceStep(deps),
		newDateStep(deps),
		newTimeStep(deps),
		newStaffMemberStep(deps),
		newCustomerNameStep(deps),
		newCustomerEmailStep(deps),
		newConfirmStep(deps),
	}
}

// mainStep clears the profile and runs the booking dialog to completion.
type mainStep struct {
	dialog.DialogStep[MainValues]
	deps *Deps
}

func (s *mainStep) Before(ctx context.Context, sc *dialog.StepContext[MainValues]) (dialog.TurnResult, error) {
	if err := s.deps.Profile.Set(ctx, sc.Turn(), &Profile{}); err != nil {
		return dialog.TurnResult{}, err
	}
	return sc.Begin(ctx, s.ID(), nil)
}

func (s *mainStep) After(ctx context.Context, sc *dialog.StepContext[MainValues]) (dialog.TurnResult, error) {
	return sc.End(ctx, sc.Result)
}

// NewDialogSet registers the main dialog, the booking dialog and every prompt they use.
func NewDialogSet(deps *Deps, faults dialog.FaultHandler) (*dialog.Set, error) {
	set := dialog.NewSet()
	log := deps.log()

	booking := dialog.NewCollection(faults, log.With(map[string]interface{}{"dialog": BookingDialogID}), BookingSteps(deps)...)
	bookingDialog, err := booking.Register(set, BookingDialogID)
	if err != nil {
		return nil, err
	}

	mainFlow := dialog.NewCollection[MainValues](faults, log.With(map[string]interface{}{"dialog": MainDialogID}),
		&mainStep{DialogStep: dialog.DialogStep[MainValues]{Target: bookingDialog}, deps: deps},
	)
	if _, err := mainFlow.Register(set, MainDialogID); err != nil {
		return nil, err
	}
	return set, nil
}
