// internal/booking/steps.go
package booking

import (
	"context"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/validation"
	"bookings-bot/internal/dialog"
)

// Step ids double as the ids of the prompts persisted on the dialog stack.
const (
	BusinessStepID      = "d0f27525-35ca-455e-b87e-206a4561249b"
	ServiceStepID       = "e369e4d7-815c-4331-809d-6336cd85d9c5"
	DateStepID          = "8d896d64-7ee7-4be0-b3ff-ab7c821519e0"
	TimeStepID          = "c34e585e-940b-4815-a2c7-174918392333"
	StaffMemberStepID   = "b6cdce8e-4c10-4fc8-9493-1e9eb06f7c7a"
	CustomerNameStepID  = "3d5cfc47-596d-4558-ba85-af05014614ab"
	CustomerEmailStepID = "49a58b6a-085e-4258-9ca1-be19253f487d"
	ConfirmStepID       = "c5edb76e-35d6-456f-b06b-9a72b03e3351"
)

// ==========================
// Business
// ==========================

type businessStep struct {
	dialog.ChoiceStep[Values]
	deps *Deps
}

func newBusinessStep(deps *Deps) *businessStep {
	return &businessStep{ChoiceStep: dialog.ChoiceStep[Values]{StepID: BusinessStepID}, deps: deps}
}

func (s *businessStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	list, err := s.deps.Client.ListBusinesses(ctx)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	options, err := toOptions(list, "business")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	sc.Values.Businesses = options
	return sc.Prompt(ctx, s.ID(), choicePrompt(s.deps.Messages.Business, optionTitles(options)))
}

func (s *businessStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	choice, err := dialog.ChoiceResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	selected, err := dialog.Pick(sc.Values.Businesses, choice, "bookingBusinesses")
	if err != nil {
		return dialog.TurnResult{}, err
	}

	business, err := s.deps.Client.GetBusiness(ctx, selected.ID)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if business == nil {
		return dialog.TurnResult{}, errors.NewEntityNotFoundError("business", selected.ID)
	}
	if business.SchedulingPolicy == nil || business.SchedulingPolicy.TimeSlotInterval <= 0 {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("timeSlotInterval")
	}

	table, err := BusinessHoursTable(business.BusinessHours, business.SchedulingPolicy.TimeSlotInterval)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile.BusinessID = business.ID
	profile.BusinessName = business.DisplayName

	available := s.deps.now().Add(business.SchedulingPolicy.MinimumLeadTime)
	sc.Values.AvailableTime = &available
	sc.Values.BusinessHours = table
	return sc.Next(ctx, nil)
}

// ==========================
// Service
// ==========================

type serviceStep struct {
	dialog.ChoiceStep[Values]
	deps *Deps
}

func newServiceStep(deps *Deps) *serviceStep {
	return &serviceStep{ChoiceStep: dialog.ChoiceStep[Values]{StepID: ServiceStepID}, deps: deps}
}

func (s *serviceStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if profile.BusinessID == "" {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingBusinessId")
	}
	list, err := s.deps.Client.ListServices(ctx, profile.BusinessID)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	options, err := toOptions(list, "service")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	sc.Values.Services = options
	return sc.Prompt(ctx, s.ID(), choicePrompt(s.deps.Messages.Service, optionTitles(options)))
}

func (s *serviceStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if profile.BusinessID == "" {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingBusinessId")
	}
	choice, err := dialog.ChoiceResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	selected, err := dialog.Pick(sc.Values.Services, choice, "bookingServices")
	if err != nil {
		return dialog.TurnResult{}, err
	}

	service, err := s.deps.Client.GetService(ctx, profile.BusinessID, selected.ID)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if service == nil {
		return dialog.TurnResult{}, errors.NewEntityNotFoundError("service", selected.ID)
	}
	if service.DefaultDuration <= 0 {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingDuration")
	}

	profile.ServiceID = service.ID
	profile.ServiceName = service.DisplayName
	d := service.DefaultDuration
	sc.Values.Duration = &d
	return sc.Next(ctx, nil)
}

// ==========================
// Date
// ==========================

type dateStep struct {
	dialog.ChoiceStep[Values]
	deps *Deps
}

func newDateStep(deps *Deps) *dateStep {
	s := &dateStep{ChoiceStep: dialog.ChoiceStep[Values]{StepID: DateStepID}, deps: deps}
	s.Validate = s.hasFreeTimes
	return s
}

func (s *dateStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	if sc.Values.AvailableTime == nil {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingAvailableTime")
	}
	sc.Values.Dates = DateChoices(*sc.Values.AvailableTime, s.deps.dateCount(), s.deps.location())
	return sc.Prompt(ctx, s.ID(), choicePrompt(s.deps.Messages.Date, timeTitles(sc.Values.Dates)))
}

func (s *dateStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	choice, err := dialog.ChoiceResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	date, err := dialog.Pick(sc.Values.Dates, choice, "bookingDates")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	d := date.Value
	sc.Values.Date = &d
	return sc.Next(ctx, nil)
}

// hasFreeTimes rejects a date on which no slot remains after the available time.
func (s *dateStep) hasFreeTimes(_ context.Context, v *Values, choice dialog.FoundChoice) (bool, error) {
	date, err := dialog.Pick(v.Dates, choice, "bookingDates")
	if err != nil {
		return false, err
	}
	if v.AvailableTime == nil {
		return false, errors.NewStateNotFoundError("bookingAvailableTime")
	}
	if v.BusinessHours == nil {
		return false, errors.NewStateNotFoundError("bookingBusinessHours")
	}
	return len(TimeChoices(date.Value, v.BusinessHours, *v.AvailableTime, s.deps.location())) > 0, nil
}

// ==========================
// Time
// ==========================

type timeStep struct {
	dialog.ChoiceStep[Values]
	deps *Deps
}

func newTimeStep(deps *Deps) *timeStep {
	return &timeStep{ChoiceStep: dialog.ChoiceStep[Values]{StepID: TimeStepID}, deps: deps}
}

func (s *timeStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	v := sc.Values
	switch {
	case v.Date == nil:
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingDate")
	case v.AvailableTime == nil:
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingAvailableTime")
	case v.BusinessHours == nil:
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingBusinessHours")
	}
	v.Times = TimeChoices(*v.Date, v.BusinessHours, *v.AvailableTime, s.deps.location())
	return sc.Prompt(ctx, s.ID(), choicePrompt(s.deps.Messages.Time, timeTitles(v.Times)))
}

func (s *timeStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	choice, err := dialog.ChoiceResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	selected, err := dialog.Pick(sc.Values.Times, choice, "bookingTimes")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if sc.Values.Duration == nil {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingDuration")
	}

	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	start := selected.Value.In(s.deps.location())
	end := start.Add(*sc.Values.Duration)
	profile.StartTime = &start
	profile.EndTime = &end
	return sc.Next(ctx, nil)
}

// ==========================
// Staff member
// ==========================

type staffMemberStep struct {
	dialog.ChoiceStep[Values]
	deps *Deps
}

func newStaffMemberStep(deps *Deps) *staffMemberStep {
	return &staffMemberStep{ChoiceStep: dialog.ChoiceStep[Values]{StepID: StaffMemberStepID}, deps: deps}
}

func (s *staffMemberStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if profile.BusinessID == "" {
		return dialog.TurnResult{}, errors.NewStateNotFoundError("bookingBusinessId")
	}
	list, err := s.deps.Client.ListStaffMembers(ctx, profile.BusinessID)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	options, err := toOptions(list, "staffMember")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	sc.Values.StaffMembers = options
	return sc.Prompt(ctx, s.ID(), choicePrompt(s.deps.Messages.StaffMember, optionTitles(options)))
}

func (s *staffMemberStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	choice, err := dialog.ChoiceResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	selected, err := dialog.Pick(sc.Values.StaffMembers, choice, "bookingStaffMembers")
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile.StaffMemberID = selected.ID
	return sc.Next(ctx, nil)
}

// ==========================
// Customer name and email
// ==========================

type customerNameStep struct {
	dialog.TextStep[Values]
	deps *Deps
}

func newCustomerNameStep(deps *Deps) *customerNameStep {
	return &customerNameStep{TextStep: dialog.TextStep[Values]{StepID: CustomerNameStepID}, deps: deps}
}

func (s *customerNameStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	return sc.Prompt(ctx, s.ID(), textPrompt(s.deps.Messages.CustomerName))
}

func (s *customerNameStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	name, err := dialog.TextResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile.CustomerName = name
	return sc.Next(ctx, nil)
}

type customerEmailStep struct {
	dialog.TextStep[Values]
	deps *Deps
}

func newCustomerEmailStep(deps *Deps) *customerEmailStep {
	s := &customerEmailStep{TextStep: dialog.TextStep[Values]{StepID: CustomerEmailStepID}, deps: deps}
	s.Validate = func(_ context.Context, text string) (bool, error) {
		return validation.ValidateEmail(text), nil
	}
	return s
}

func (s *customerEmailStep) Before(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	return sc.Prompt(ctx, s.ID(), textPrompt(s.deps.Messages.CustomerEmail))
}

func (s *customerEmailStep) After(ctx context.Context, sc *dialog.StepContext[Values]) (dialog.TurnResult, error) {
	email, err := dialog.TextResult(sc.Result)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile, err := s.deps.profile(ctx, sc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	profile.CustomerEmail = email
	return sc.Next(ctx, nil)
}
