// Package booking is the appointment booking conversation: the durable profile, the
// run-scoped values and the steps that fill them.
package booking

import "time"

// Profile is the user's accumulated answers. Fields are filled in step order.
type Profile struct {
	BusinessID    string     `json:"businessId,omitempty"`
	BusinessName  string     `json:"businessName,omitempty"`
	ServiceID     string     `json:"serviceId,omitempty"`
	ServiceName   string     `json:"serviceName,omitempty"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	StaffMemberID string     `json:"staffMemberId,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
}

// ProfilePropertyName is the user state entry holding the Profile.
const ProfilePropertyName = "BookingProfile"

// Option is one entry of a choice list: the stable id and what was displayed.
type Option struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TimeOption is a date or time choice.
type TimeOption struct {
	Value       time.Time `json:"value"`
	DisplayName string    `json:"displayName"`
}

// Values is the run-scoped record of one booking dialog. Every list is the exact
// snapshot displayed by the latest prompt of that kind.
type Values struct {
	Businesses    []Option                         `json:"businesses,omitempty"`
	Services      []Option                         `json:"services,omitempty"`
	StaffMembers  []Option                         `json:"staffMembers,omitempty"`
	AvailableTime *time.Time                       `json:"availableTime,omitempty"`
	BusinessHours map[time.Weekday][]time.Duration `json:"businessHours,omitempty"`
	Dates         []TimeOption                     `json:"dates,omitempty"`
	Times         []TimeOption                     `json:"times,omitempty"`
	Date          *time.Time                       `json:"date,omitempty"`
	Duration      *time.Duration                   `json:"duration,omitempty"`
}

// MainValues is the run record of the top-level dialog, which keeps nothing.
type MainValues struct{}

func optionTitles(options []Option) []string {
	titles := make([]string, len(options))
	for i, o := range options {
		titles[i] = o.DisplayName
	}
	return titles
}

func timeTitles(options []TimeOption) []string {
	titles := make([]string, len(options))
	for i, o := range options {
		titles[i] = o.DisplayName
	}
	return titles
}
