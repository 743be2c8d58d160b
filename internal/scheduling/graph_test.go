package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookings-bot/internal/common/config"
	"bookings-bot/internal/common/errors"
	commonhttp "bookings-bot/internal/common/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const businessJSON = `{
  "id": "contoso@contoso.onmicrosoft.com",
  "displayName": "Contoso",
  "businessHours": [
    {"day": "monday", "timeSlots": [{"startTime": "09:00:00.0000000", "endTime": "12:00:00.0000000"}]},
    {"day": "tuesday", "timeSlots": [
      {"startTime": "09:00:00.0000000", "endTime": "12:00:00.0000000"},
      {"startTime": "13:00:00.0000000", "endTime": "17:30:00.0000000"}
    ]},
    {"day": "holiday", "timeSlots": []}
  ],
  "schedulingPolicy": {"minimumLeadTime": "P1DT2H", "timeSlotInterval": "PT30M"}
}`

func createTestGraphClient(t *testing.T, handler http.HandlerFunc) *GraphClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphClientWith(srv.URL+"/v1.0/", commonhttp.NewClient(5*time.Second))
}

// ==========================
// Read Operation Tests
// ==========================

func TestGraphClient_ListBusinesses(t *testing.T) {
	client := createTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1.0/solutions/bookingBusinesses", r.URL.Path)
		_, _ = w.Write([]byte(`{"value":[{"id":"a","displayName":"Alpha"},{"id":"","displayName":"Ghost"},{"id":"b","displayName":"Beta"}]}`))
	})

	got, err := client.ListBusinesses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: "a", DisplayName: "Alpha"}, {ID: "b", DisplayName: "Beta"}}, got)
}

func TestGraphClient_GetBusiness(t *testing.T) {
	client := createTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/solutions/bookingBusinesses/contoso@contoso.onmicrosoft.com", r.URL.Path)
		_, _ = w.Write([]byte(businessJSON))
	})

	b, err := client.GetBusiness(context.Background(), "contoso@contoso.onmicrosoft.com")
	require.NoError(t, err)

	assert.Equal(t, "Contoso", b.DisplayName)
	require.NotNil(t, b.SchedulingPolicy)
	assert.Equal(t, 26*time.Hour, b.SchedulingPolicy.MinimumLeadTime)
	assert.Equal(t, 30*time.Minute, b.SchedulingPolicy.TimeSlotInterval)

	require.Len(t, b.BusinessHours, 2)
	assert.Equal(t, time.Monday, b.BusinessHours[0].Day)
	assert.Equal(t, []TimeSlot{{Start: 9 * time.Hour, End: 12 * time.Hour}}, b.BusinessHours[0].TimeSlots)
	assert.Equal(t, time.Tuesday, b.BusinessHours[1].Day)
	assert.Equal(t, TimeSlot{Start: 13 * time.Hour, End: 17*time.Hour + 30*time.Minute}, b.BusinessHours[1].TimeSlots[1])
}

func TestGraphClient_GetService(t *testing.T) {
	client := createTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/solutions/bookingBusinesses/biz/services/svc", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"svc","displayName":"Haircut","defaultDuration":"PT1H15M"}`))
	})

	s, err := client.GetService(context.Background(), "biz", "svc")
	require.NoError(t, err)
	assert.Equal(t, &Service{ID: "svc", DisplayName: "Haircut", DefaultDuration: 75 * time.Minute}, s)
}

func TestGraphClient_ListServicesAndStaff(t *testing.T) {
	client := createTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/solutions/bookingBusinesses/biz/services":
			_, _ = w.Write([]byte(`{"value":[{"id":"s1","displayName":"Haircut","defaultDuration":"PT30M"}]}`))
		case "/v1.0/solutions/bookingBusinesses/biz/staffMembers":
			_, _ = w.Write([]byte(`{"value":[{"@odata.type":"#microsoft.graph.bookingStaffMember","id":"m1","displayName":"Dana"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	services, err := client.ListServices(context.Background(), "biz")
	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: "s1", DisplayName: "Haircut"}}, services)

	staff, err := client.ListStaffMembers(context.Background(), "biz")
	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: "m1", DisplayName: "Dana"}}, staff)
}

// ==========================
// Error Mapping Tests
// ==========================

func TestGraphClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected errors.ErrorCode
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":"NotFound"}}`, errors.ErrCodeEntityNotFound},
		{"server error", http.StatusInternalServerError, `oops`, errors.ErrCodeProviderRequestFailed},
		{"unauthorized", http.StatusUnauthorized, ``, errors.ErrCodeProviderRequestFailed},
		{"empty body", http.StatusOK, `{}`, errors.ErrCodeEntityNotFound},
		{"bad duration", http.StatusOK, `{"id":"x","schedulingPolicy":{"timeSlotInterval":"half an hour"}}`, errors.ErrCodeProviderRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := createTestGraphClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.GetBusiness(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.expected, errors.CodeOf(err))
		})
	}
}

// ==========================
// CreateAppointment Tests
// ==========================

func TestGraphClient_CreateAppointment(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	start := time.Date(2024, 3, 4, 10, 30, 0, 0, tokyo)

	var received map[string]interface{}
	client := createTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/solutions/bookingBusinesses/biz/appointments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"appt-1","serviceId":"svc","customerName":"Ada","customerEmailAddress":"ada@example.com",
			"startDateTime":{"dateTime":"2024-03-04T01:30:00.0000000","timeZone":"UTC"},
			"endDateTime":{"dateTime":"2024-03-04T02:00:00.0000000","timeZone":"UTC"}}`))
	})

	appt, err := client.CreateAppointment(context.Background(), "biz", AppointmentRequest{
		CustomerName:   "Ada",
		CustomerEmail:  "ada@example.com",
		ServiceID:      "svc",
		ServiceName:    "Haircut",
		Start:          start,
		End:            start.Add(30 * time.Minute),
		StaffMemberIDs: []string{"m1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "appt-1", appt.ID)
	assert.True(t, appt.Start.Equal(start))
	assert.True(t, appt.End.Equal(start.Add(30*time.Minute)))

	assert.Equal(t, "ada@example.com", received["customerEmailAddress"])
	assert.Equal(t, map[string]interface{}{"dateTime": "2024-03-04T01:30:00", "timeZone": "UTC"}, received["startDateTime"])
	assert.Equal(t, map[string]interface{}{"dateTime": "2024-03-04T02:00:00", "timeZone": "UTC"}, received["endDateTime"])
	assert.Equal(t, []interface{}{"m1"}, received["staffMemberIds"])
}

// ==========================
// Construction Tests
// ==========================

func TestNewGraphClient_AuthDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	client := NewGraphClient(context.Background(), config.SchedulingConfig{BaseURL: srv.URL, AuthDisabled: true, Timeout: 1000})
	got, err := client.ListBusinesses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewGraphClient_ClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/solutions/bookingBusinesses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value":[{"id":"a","displayName":"Alpha"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewGraphClient(context.Background(), config.SchedulingConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		Scopes:       []string{"scope/.default"},
		Timeout:      1000,
	})
	got, err := client.ListBusinesses(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseTimeOfDay(t *testing.T) {
	d, err := parseTimeOfDay("08:30:15.0000000")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute+15*time.Second, d)

	_, err = parseTimeOfDay("8am")
	assert.Error(t, err)
}
