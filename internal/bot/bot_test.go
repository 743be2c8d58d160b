package bot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"bookings-bot/internal/booking"
	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/dialog"
	"bookings-bot/internal/scheduling"
	"bookings-bot/internal/state"
	"bookings-bot/internal/turn"
	"bookings-bot/pkg/messages"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubClient struct {
	mu      sync.Mutex
	created int
}

func (s *stubClient) ListBusinesses(context.Context) ([]scheduling.Entity, error) {
	return []scheduling.Entity{{ID: "contoso", DisplayName: "Contoso"}}, nil
}

func (s *stubClient) GetBusiness(_ context.Context, id string) (*scheduling.Business, error) {
	return &scheduling.Business{
		ID:          id,
		DisplayName: "Contoso",
		BusinessHours: []scheduling.BusinessHours{
			{Day: time.Monday, TimeSlots: []scheduling.TimeSlot{{Start: 9 * time.Hour, End: 12 * time.Hour}}},
		},
		SchedulingPolicy: &scheduling.SchedulingPolicy{TimeSlotInterval: time.Hour},
	}, nil
}

func (s *stubClient) ListServices(context.Context, string) ([]scheduling.Entity, error) {
	return []scheduling.Entity{{ID: "haircut", DisplayName: "Haircut"}}, nil
}

func (s *stubClient) GetService(_ context.Context, _, id string) (*scheduling.Service, error) {
	return &scheduling.Service{ID: id, DisplayName: "Haircut", DefaultDuration: 30 * time.Minute}, nil
}

func (s *stubClient) ListStaffMembers(context.Context, string) ([]scheduling.Entity, error) {
	return []scheduling.Entity{{ID: "m1", DisplayName: "Dana"}}, nil
}

func (s *stubClient) CreateAppointment(_ context.Context, _ string, req scheduling.AppointmentRequest) (*scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return &scheduling.Appointment{ID: "appt-1", Start: req.Start, End: req.End}, nil
}

type testBot struct {
	t       *testing.T
	bot     *Bot
	client  *stubClient
	catalog *messages.Catalog
	mr      *miniredis.Miniredis
}

func createTestBot(t *testing.T) *testBot {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tb := createTestBotWith(t, state.NewRedisStorage(rdb, "test", 0))
	tb.mr = mr
	return tb
}

func createTestBotWith(t *testing.T, storage state.Storage) *testBot {
	t.Helper()
	convState := state.NewConversationState(storage)
	userState := state.NewUserState(storage)

	catalog := messages.Default()
	client := &stubClient{}
	log := logger.NewTestLogger(t)
	faults := errors.NewErrorHandler(log, nil, catalog.Apology)

	// Monday 4 March 2024, 06:00 UTC.
	now := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	set, err := booking.NewDialogSet(&booking.Deps{
		Client:   client,
		Profile:  state.NewProperty[booking.Profile](userState, booking.ProfilePropertyName),
		Messages: catalog,
		Location: time.UTC,
		Now:      func() time.Time { return now },
		Logger:   log,
	}, faults)
	require.NoError(t, err)

	b := New(Options{
		ConversationState: convState,
		UserState:         userState,
		Dialogs:           set,
		Messages:          catalog,
		CancelKeyword:     "cancel",
		Faults:            faults,
		Logger:            log,
	})
	return &testBot{t: t, bot: b, client: client, catalog: catalog}
}

func message(conversation, text string) *turn.Activity {
	return &turn.Activity{
		Type:         turn.ActivityTypeMessage,
		ChannelID:    "test",
		Conversation: turn.ConversationAccount{ID: conversation},
		From:         turn.ChannelAccount{ID: "user-" + conversation},
		Recipient:    turn.ChannelAccount{ID: "bot"},
		Text:         text,
	}
}

func (tb *testBot) send(a *turn.Activity) []string {
	tb.t.Helper()
	buf := &turn.Buffer{}
	require.NoError(tb.t, tb.bot.OnTurn(context.Background(), turn.NewContext(a, buf)))
	var texts []string
	for _, out := range buf.Activities() {
		texts = append(texts, out.Text)
	}
	return texts
}

func (tb *testBot) say(text string) []string {
	return tb.send(message("c1", text))
}

func (tb *testBot) activeStack(conversation string) []string {
	tc := turn.NewContext(message(conversation, ""), nil)
	stack, err := tb.bot.dialogState.Get(context.Background(), tc, nil)
	require.NoError(tb.t, err)
	return stack.IDs()
}

// ==========================
// Routing Tests
// ==========================

func TestOnTurn_FirstMessageGreetsAndAsksForBusiness(t *testing.T) {
	tb := createTestBot(t)

	out := tb.say("hi")

	require.Len(t, out, 2)
	assert.Equal(t, tb.catalog.Hello, out[0])
	assert.Contains(t, out[1], tb.catalog.Business.Ask)
	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c1"))
	assert.True(t, tb.mr.Exists("test:test/conversations/c1"))
	assert.True(t, tb.mr.Exists("test:test/users/user-c1"))
}

func TestOnTurn_CompletesBooking(t *testing.T) {
	tb := createTestBot(t)

	for _, text := range []string{"hi", "Contoso", "Haircut", "March 4", "11:00 AM", "Dana", "Ada", "ada@example.com"} {
		tb.say(text)
	}
	out := tb.say("yes")

	assert.Equal(t, tb.catalog.Complete, out[len(out)-1])
	assert.Equal(t, 1, tb.client.created)
	assert.Empty(t, tb.activeStack("c1"))
}

func TestOnTurn_CancelAtEveryStep(t *testing.T) {
	answers := []string{"hi", "Contoso", "Haircut", "March 4", "11:00 AM", "Dana", "Ada", "ada@example.com"}

	for depth := 1; depth <= len(answers); depth++ {
		t.Run(answers[depth-1], func(t *testing.T) {
			tb := createTestBot(t)
			for _, text := range answers[:depth] {
				tb.say(text)
			}
			require.NotEmpty(t, tb.activeStack("c1"))

			out := tb.say("  cancel ")

			assert.Equal(t, []string{tb.catalog.Cancel}, out)
			assert.Empty(t, tb.activeStack("c1"))
			assert.Zero(t, tb.client.created)
		})
	}
}

func TestOnTurn_CancelKeywordIsCaseSensitive(t *testing.T) {
	tb := createTestBot(t)
	tb.say("hi")

	out := tb.say("Cancel")

	assert.NotContains(t, out, tb.catalog.Cancel)
	assert.NotEmpty(t, tb.activeStack("c1"))
}

func TestOnTurn_CancelWithoutActiveDialogStartsOver(t *testing.T) {
	tb := createTestBot(t)

	out := tb.say("cancel")

	require.NotEmpty(t, out)
	assert.Equal(t, tb.catalog.Hello, out[0])
}

func TestOnTurn_MessageAfterCancelRestarts(t *testing.T) {
	tb := createTestBot(t)
	tb.say("hi")
	tb.say("Contoso")
	tb.say("cancel")

	out := tb.say("hello again")

	assert.Equal(t, tb.catalog.Hello, out[0])
	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c1"))
}

func TestOnTurn_ConversationUpdate(t *testing.T) {
	tests := []struct {
		name      string
		members   []turn.ChannelAccount
		wantHello bool
	}{
		{name: "user joined", members: []turn.ChannelAccount{{ID: "user-c1"}}, wantHello: true},
		{name: "only the bot joined", members: []turn.ChannelAccount{{ID: "bot"}}},
		{name: "nobody joined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := createTestBot(t)
			a := message("c1", "")
			a.Type = turn.ActivityTypeConversationUpdate
			a.MembersAdded = tt.members

			out := tb.send(a)

			if tt.wantHello {
				require.Len(t, out, 2)
				assert.Equal(t, tb.catalog.Hello, out[0])
				assert.NotEmpty(t, tb.activeStack("c1"))
				return
			}
			assert.Empty(t, out)
			assert.Empty(t, tb.activeStack("c1"))
		})
	}
}

func TestOnTurn_ConversationUpdateRestartsActiveBooking(t *testing.T) {
	tb := createTestBot(t)
	tb.say("hi")
	tb.say("Contoso")
	require.Len(t, tb.activeStack("c1"), 3)

	a := message("c1", "")
	a.Type = turn.ActivityTypeConversationUpdate
	a.MembersAdded = []turn.ChannelAccount{{ID: "user-c1"}}
	tb.send(a)

	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c1"))
}

func TestOnTurn_IgnoresOtherActivityTypes(t *testing.T) {
	tb := createTestBot(t)
	a := message("c1", "")
	a.Type = "typing"

	assert.Empty(t, tb.send(a))
}

func TestOnTurn_RejectsActivityWithoutConversation(t *testing.T) {
	tb := createTestBot(t)
	a := message("", "hi")

	err := tb.bot.OnTurn(context.Background(), turn.NewContext(a, &turn.Buffer{}))

	assert.Error(t, err)
}

// ==========================
// Fault Boundary Tests
// ==========================

func TestOnTurn_FaultApologizesAndClearsState(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	storage := state.NewRedisStorage(rdb, "test", 0)
	catalog := messages.Default()

	// An empty set cannot begin the main dialog.
	b := New(Options{
		ConversationState: state.NewConversationState(storage),
		UserState:         state.NewUserState(storage),
		Dialogs:           dialog.NewSet(),
		Messages:          catalog,
		CancelKeyword:     "cancel",
		Logger:            logger.NewTestLogger(t),
	})

	buf := &turn.Buffer{}
	err := b.OnTurn(context.Background(), turn.NewContext(message("c1", "hi"), buf))
	require.NoError(t, err)

	out := buf.Activities()
	require.Len(t, out, 2)
	assert.Equal(t, catalog.Hello, out[0].Text)
	assert.Equal(t, catalog.Apology, out[1].Text)
}

// dropValidation removes one snapshot field from the innermost prompt frame
// stored for the conversation.
func (tb *testBot) dropValidation(conversation, field string) {
	tb.t.Helper()
	key := "test:test/conversations/" + conversation
	raw, err := tb.mr.Get(key)
	require.NoError(tb.t, err)

	var doc map[string]map[string][]map[string]interface{}
	require.NoError(tb.t, json.Unmarshal([]byte(raw), &doc))
	frames := doc[DialogStatePropertyName]["frames"]
	require.NotEmpty(tb.t, frames)

	prompt := frames[len(frames)-1]["state"].(map[string]interface{})
	validations := prompt["options"].(map[string]interface{})["validations"].(map[string]interface{})
	require.Contains(tb.t, validations, field)
	delete(validations, field)

	encoded, err := json.Marshal(doc)
	require.NoError(tb.t, err)
	require.NoError(tb.t, tb.mr.Set(key, string(encoded)))
}

func TestOnTurn_ValidatorFaultMidBookingClearsStack(t *testing.T) {
	tb := createTestBot(t)
	tb.say("hi")
	tb.say("Contoso")
	tb.say("Haircut")
	require.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.DateStepID}, tb.activeStack("c1"))

	tb.dropValidation("c1", "businessHours")
	out := tb.say("March 4")

	apologies := 0
	for _, text := range out {
		if text == tb.catalog.Apology {
			apologies++
		}
	}
	assert.Equal(t, 1, apologies)
	assert.Equal(t, tb.catalog.Apology, out[len(out)-1])
	assert.Empty(t, tb.activeStack("c1"))

	tb.say("hi")
	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c1"))
}

type failingWrites struct {
	state.Storage
}

func (failingWrites) Write(context.Context, map[string][]byte) error {
	return stderrors.New("disk full")
}

func TestOnTurn_SaveFailureIsReturned(t *testing.T) {
	tb := createTestBotWith(t, failingWrites{Storage: state.NewMemoryStorage()})

	buf := &turn.Buffer{}
	err := tb.bot.OnTurn(context.Background(), turn.NewContext(message("c1", "hi"), buf))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStateStorageFailed, errors.CodeOf(err))
	assert.NotEmpty(t, buf.Activities())
}

// ==========================
// Concurrency Tests
// ==========================

func TestOnTurn_SerializesTurnsPerConversation(t *testing.T) {
	tb := createTestBot(t)
	tb.say("hi")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tb.bot.OnTurn(context.Background(), turn.NewContext(message("c1", "not a business"), &turn.Buffer{}))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c1"))
	assert.Zero(t, tb.bot.locks.size())
}

func TestOnTurn_ConversationsAreIndependent(t *testing.T) {
	tb := createTestBot(t)
	tb.send(message("c1", "hi"))
	tb.send(message("c1", "Contoso"))
	tb.send(message("c2", "hi"))

	assert.Len(t, tb.activeStack("c1"), 3)
	assert.Equal(t, []string{booking.MainDialogID, booking.BookingDialogID, booking.BusinessStepID}, tb.activeStack("c2"))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}
