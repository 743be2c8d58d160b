// internal/scheduling/graph.go
package scheduling

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookings-bot/internal/common/config"
	"bookings-bot/internal/common/errors"
	commonhttp "bookings-bot/internal/common/http"

	"github.com/sosodev/duration"
	"golang.org/x/oauth2/clientcredentials"
)

// GraphClient talks to the Microsoft Graph Bookings REST API
// (/solutions/bookingBusinesses).
type GraphClient struct {
	baseURL string
	http    *commonhttp.Client
}

// NewGraphClient builds a client authenticated with the OAuth2 client credentials
// grant, unless cfg.AuthDisabled.
func NewGraphClient(ctx context.Context, cfg config.SchedulingConfig) *GraphClient {
	timeout := config.GetDuration(cfg.Timeout)

	var hc *http.Client
	if cfg.AuthDisabled {
		hc = &http.Client{Timeout: timeout}
	} else {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.GetTokenURL(),
			Scopes:       cfg.Scopes,
		}
		hc = cc.Client(ctx)
		hc.Timeout = timeout
	}
	return NewGraphClientWith(cfg.BaseURL, commonhttp.NewClientWith(hc))
}

func NewGraphClientWith(baseURL string, client *commonhttp.Client) *GraphClient {
	return &GraphClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

// --- wire shapes ---

type graphList[T any] struct {
	Value []T `json:"value"`
}

type graphTimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type graphBusinessHours struct {
	Day       string          `json:"day"`
	TimeSlots []graphTimeSlot `json:"timeSlots"`
}

type graphSchedulingPolicy struct {
	MinimumLeadTime  string `json:"minimumLeadTime"`
	TimeSlotInterval string `json:"timeSlotInterval"`
}

type graphBusiness struct {
	ID               string                 `json:"id"`
	DisplayName      string                 `json:"displayName"`
	BusinessHours    []graphBusinessHours   `json:"businessHours"`
	SchedulingPolicy *graphSchedulingPolicy `json:"schedulingPolicy"`
}

type graphService struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	DefaultDuration string `json:"defaultDuration"`
}

type graphDateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphAppointment struct {
	ID                   string                `json:"id,omitempty"`
	CustomerName         string                `json:"customerName"`
	CustomerEmailAddress string                `json:"customerEmailAddress"`
	ServiceID            string                `json:"serviceId"`
	ServiceName          string                `json:"serviceName"`
	StartDateTime        graphDateTimeTimeZone `json:"startDateTime"`
	EndDateTime          graphDateTimeTimeZone `json:"endDateTime"`
	StaffMemberIDs       []string              `json:"staffMemberIds"`
}

const graphDateTimeLayout = "2006-01-02T15:04:05"

// --- operations ---

func (c *GraphClient) ListBusinesses(ctx context.Context) ([]Entity, error) {
	var resp graphList[Entity]
	if err := c.get(ctx, "ListBusinesses", "business", "", &resp, "solutions", "bookingBusinesses"); err != nil {
		return nil, err
	}
	return withIDs(resp.Value), nil
}

func (c *GraphClient) GetBusiness(ctx context.Context, businessID string) (*Business, error) {
	var resp graphBusiness
	if err := c.get(ctx, "GetBusiness", "business", businessID, &resp, "solutions", "bookingBusinesses", businessID); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.NewEntityNotFoundError("business", businessID)
	}
	return convertBusiness(resp)
}

func (c *GraphClient) ListServices(ctx context.Context, businessID string) ([]Entity, error) {
	var resp graphList[Entity]
	if err := c.get(ctx, "ListServices", "business", businessID, &resp, "solutions", "bookingBusinesses", businessID, "services"); err != nil {
		return nil, err
	}
	return withIDs(resp.Value), nil
}

func (c *GraphClient) GetService(ctx context.Context, businessID, serviceID string) (*Service, error) {
	var resp graphService
	if err := c.get(ctx, "GetService", "service", serviceID, &resp, "solutions", "bookingBusinesses", businessID, "services", serviceID); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.NewEntityNotFoundError("service", serviceID)
	}
	d, err := parseDuration(resp.DefaultDuration)
	if err != nil {
		return nil, errors.NewProviderRequestFailedError("GetService", fmt.Errorf("defaultDuration: %w", err))
	}
	return &Service{ID: resp.ID, DisplayName: resp.DisplayName, DefaultDuration: d}, nil
}

func (c *GraphClient) ListStaffMembers(ctx context.Context, businessID string) ([]Entity, error) {
	var resp graphList[Entity]
	if err := c.get(ctx, "ListStaffMembers", "business", businessID, &resp, "solutions", "bookingBusinesses", businessID, "staffMembers"); err != nil {
		return nil, err
	}
	return withIDs(resp.Value), nil
}

func (c *GraphClient) CreateAppointment(ctx context.Context, businessID string, req AppointmentRequest) (*Appointment, error) {
	body := graphAppointment{
		CustomerName:         req.CustomerName,
		CustomerEmailAddress: req.CustomerEmail,
		ServiceID:            req.ServiceID,
		ServiceName:          req.ServiceName,
		StartDateTime:        graphDateTimeTimeZone{DateTime: req.Start.UTC().Format(graphDateTimeLayout), TimeZone: "UTC"},
		EndDateTime:          graphDateTimeTimeZone{DateTime: req.End.UTC().Format(graphDateTimeLayout), TimeZone: "UTC"},
		StaffMemberIDs:       req.StaffMemberIDs,
	}

	var resp graphAppointment
	err := c.http.DoJSON(ctx, http.MethodPost, c.url("solutions", "bookingBusinesses", businessID, "appointments"), body, &resp)
	if err != nil {
		return nil, c.translate("CreateAppointment", "business", businessID, err)
	}
	if resp.ID == "" {
		return nil, errors.NewEntityNotFoundError("appointment", businessID)
	}
	return &Appointment{
		ID:            resp.ID,
		ServiceID:     resp.ServiceID,
		CustomerName:  resp.CustomerName,
		CustomerEmail: resp.CustomerEmailAddress,
		Start:         parseGraphDateTime(resp.StartDateTime, req.Start),
		End:           parseGraphDateTime(resp.EndDateTime, req.End),
	}, nil
}

// --- helpers ---

func (c *GraphClient) url(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *GraphClient) get(ctx context.Context, op, entity, id string, out interface{}, segments ...string) error {
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url(segments...), nil, out); err != nil {
		return c.translate(op, entity, id, err)
	}
	return nil
}

func (c *GraphClient) translate(op, entity, id string, err error) error {
	var statusErr *commonhttp.StatusError
	if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return errors.NewEntityNotFoundError(entity, id)
	}
	return errors.NewProviderRequestFailedError(op, err)
}

func withIDs(entities []Entity) []Entity {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}

func convertBusiness(b graphBusiness) (*Business, error) {
	out := &Business{ID: b.ID, DisplayName: b.DisplayName}

	for _, h := range b.BusinessHours {
		day, ok := parseWeekday(h.Day)
		if !ok {
			continue
		}
		hours := BusinessHours{Day: day}
		for _, s := range h.TimeSlots {
			start, err := parseTimeOfDay(s.StartTime)
			if err != nil {
				return nil, errors.NewProviderRequestFailedError("GetBusiness", err)
			}
			end, err := parseTimeOfDay(s.EndTime)
			if err != nil {
				return nil, errors.NewProviderRequestFailedError("GetBusiness", err)
			}
			hours.TimeSlots = append(hours.TimeSlots, TimeSlot{Start: start, End: end})
		}
		out.BusinessHours = append(out.BusinessHours, hours)
	}

	if b.SchedulingPolicy != nil {
		lead, err := parseDuration(b.SchedulingPolicy.MinimumLeadTime)
		if err != nil {
			return nil, errors.NewProviderRequestFailedError("GetBusiness", fmt.Errorf("minimumLeadTime: %w", err))
		}
		interval, err := parseDuration(b.SchedulingPolicy.TimeSlotInterval)
		if err != nil {
			return nil, errors.NewProviderRequestFailedError("GetBusiness", fmt.Errorf("timeSlotInterval: %w", err))
		}
		out.SchedulingPolicy = &SchedulingPolicy{MinimumLeadTime: lead, TimeSlotInterval: interval}
	}
	return out, nil
}

// parseDuration reads an ISO-8601 duration such as PT30M. Empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	return d.ToTimeDuration(), nil
}

// parseTimeOfDay reads a time of day such as 08:00:00.0000000 into an offset from
// midnight.
func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(s)]
	return d, ok
}

func parseGraphDateTime(v graphDateTimeTimeZone, fallback time.Time) time.Time {
	if v.DateTime == "" {
		return fallback
	}
	loc := time.UTC
	if v.TimeZone != "" && v.TimeZone != "UTC" {
		if l, err := time.LoadLocation(v.TimeZone); err == nil {
			loc = l
		}
	}
	// The API may append fractional seconds.
	t, err := time.ParseInLocation(graphDateTimeLayout, v.DateTime, loc)
	if err != nil {
		return fallback
	}
	return t
}
