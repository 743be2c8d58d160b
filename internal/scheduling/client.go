// Package scheduling is the client of the remote booking provider: businesses, their
// services and staff, and appointment creation.
package scheduling

import (
	"context"
	"time"
)

// Client is everything the booking dialog needs from the provider. Implementations
// return errors from internal/common/errors: ENTITY_NOT_FOUND for unknown ids and
// PROVIDER_REQUEST_FAILED for transport or status failures.
type Client interface {
	ListBusinesses(ctx context.Context) ([]Entity, error)
	GetBusiness(ctx context.Context, businessID string) (*Business, error)
	ListServices(ctx context.Context, businessID string) ([]Entity, error)
	GetService(ctx context.Context, businessID, serviceID string) (*Service, error)
	ListStaffMembers(ctx context.Context, businessID string) ([]Entity, error)
	CreateAppointment(ctx context.Context, businessID string, req AppointmentRequest) (*Appointment, error)
}

// Entity is the id/display name pair every list operation returns.
type Entity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TimeSlot is an opening window, as offsets from local midnight.
type TimeSlot struct {
	Start time.Duration
	End   time.Duration
}

type BusinessHours struct {
	Day       time.Weekday
	TimeSlots []TimeSlot
}

type SchedulingPolicy struct {
	MinimumLeadTime  time.Duration
	TimeSlotInterval time.Duration
}

type Business struct {
	ID               string
	DisplayName      string
	BusinessHours    []BusinessHours
	SchedulingPolicy *SchedulingPolicy
}

type Service struct {
	ID              string
	DisplayName     string
	DefaultDuration time.Duration
}

// AppointmentRequest carries start and end as absolute instants; clients send them
// in UTC.
type AppointmentRequest struct {
	CustomerName   string
	CustomerEmail  string
	ServiceID      string
	ServiceName    string
	Start          time.Time
	End            time.Time
	StaffMemberIDs []string
}

type Appointment struct {
	ID            string
	ServiceID     string
	CustomerName  string
	CustomerEmail string
	Start         time.Time
	End           time.Time
}
