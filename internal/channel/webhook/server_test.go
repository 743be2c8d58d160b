package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/turn"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type echoHandler struct {
	calls int
	err   error
}

func (h *echoHandler) OnTurn(ctx context.Context, tc *turn.Context) error {
	h.calls++
	if h.err != nil {
		return h.err
	}
	return tc.SendText(ctx, "echo: "+tc.Activity.Text)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func createTestServer(t *testing.T, h turn.Handler, opts Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts.Handler = h
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func postActivity(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const validActivity = `{
  "id": "a1",
  "type": "message",
  "channelId": "webchat",
  "conversation": {"id": "c1"},
  "from": {"id": "u1"},
  "recipient": {"id": "bot"},
  "text": "hi"
}`

// ==========================
// Messages Endpoint Tests
// ==========================

func TestHandleActivity_ReturnsRepliesOfTheTurn(t *testing.T) {
	h := &echoHandler{}
	s := createTestServer(t, h, Options{})

	rec := postActivity(s, validActivity)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Activities, 1)
	out := resp.Activities[0]
	assert.Equal(t, "echo: hi", out.Text)
	assert.Equal(t, "c1", out.Conversation.ID)
	assert.Equal(t, "u1", out.Recipient.ID)
	assert.Equal(t, "bot", out.From.ID)
	assert.Equal(t, "a1", out.ReplyToID)
}

func TestHandleActivity_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{"type":`},
		{name: "missing conversation", body: `{"type":"message","channelId":"webchat","from":{"id":"u1"}}`},
		{name: "empty conversation id", body: `{"type":"message","channelId":"webchat","conversation":{"id":""},"from":{"id":"u1"}}`},
		{name: "missing sender", body: `{"type":"message","channelId":"webchat","conversation":{"id":"c1"}}`},
		{name: "text is not a string", body: `{"type":"message","channelId":"webchat","conversation":{"id":"c1"},"from":{"id":"u1"},"text":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &echoHandler{}
			s := createTestServer(t, h, Options{})

			rec := postActivity(s, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), string(errors.ErrCodeInvalidActivity))
			assert.Zero(t, h.calls)
		})
	}
}

func TestHandleActivity_TurnFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "storage failure", err: errors.NewStateStorageFailedError("write", stderrors.New("down")), wantStatus: http.StatusInternalServerError},
		{name: "invalid activity", err: errors.NewInvalidActivityError("no channel"), wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, &echoHandler{err: tt.err}, Options{})

			rec := postActivity(s, validActivity)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandleActivity_RateLimitedPerConversation(t *testing.T) {
	h := &echoHandler{}
	s := createTestServer(t, h, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, postActivity(s, validActivity).Code)
	assert.Equal(t, http.StatusOK, postActivity(s, validActivity).Code)
	assert.Equal(t, http.StatusTooManyRequests, postActivity(s, validActivity).Code)

	other := `{"type":"message","channelId":"webchat","conversation":{"id":"c2"},"from":{"id":"u2"},"text":"hi"}`
	assert.Equal(t, http.StatusOK, postActivity(s, other).Code)
	assert.Equal(t, 3, h.calls)
}

func TestHandleActivity_CustomPath(t *testing.T) {
	s := createTestServer(t, &echoHandler{}, Options{Path: "/bot"})

	req := httptest.NewRequest(http.MethodPost, "/bot", bytes.NewBufferString(validActivity))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==========================
// Health Endpoint Tests
// ==========================

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		storage    Pinger
		wantStatus int
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK},
		{name: "ready without storage", path: "/ready", wantStatus: http.StatusOK},
		{name: "ready with healthy storage", path: "/ready", storage: stubPinger{}, wantStatus: http.StatusOK},
		{name: "ready with failing storage", path: "/ready", storage: stubPinger{err: stderrors.New("refused")}, wantStatus: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, &echoHandler{}, Options{Storage: tt.storage})

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestLimiterStore_DisabledWhenLimitIsZero(t *testing.T) {
	s := newLimiterStore(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, s.allow("c1"))
	}
}
