// Package bot routes inbound turns: cancellation, continuation of the active dialog,
// greeting and the turn-level fault boundary.
package bot

import (
	"context"
	"strings"
	"time"

	"bookings-bot/internal/booking"
	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/common/metrics"
	"bookings-bot/internal/common/observability"
	"bookings-bot/internal/dialog"
	"bookings-bot/internal/state"
	"bookings-bot/internal/turn"
	"bookings-bot/pkg/messages"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DialogStatePropertyName is the conversation state entry holding the dialog stack.
const DialogStatePropertyName = "DialogState"

// Options wires a Bot. ConversationState and UserState must be the same instances the
// dialogs bind their properties to, so one SaveChanges persists everything.
type Options struct {
	ConversationState *state.BotState
	UserState         *state.BotState
	Dialogs           *dialog.Set
	Messages          *messages.Catalog
	CancelKeyword     string
	Faults            *errors.ErrorHandler
	Observability     *observability.Observability
	Logger            logger.Logger
}

type Bot struct {
	conversationState *state.BotState
	userState         *state.BotState
	dialogState       *state.Property[dialog.Stack]
	dialogs           *dialog.Set
	messages          *messages.Catalog
	cancelKeyword     string
	faults            *errors.ErrorHandler
	obs               *observability.Observability
	locks             *keyedMutex
	logger            logger.Logger
}

func New(opts Options) *Bot {
	b := &Bot{
		conversationState: opts.ConversationState,
		userState:         opts.UserState,
		dialogState:       state.NewProperty[dialog.Stack](opts.ConversationState, DialogStatePropertyName),
		dialogs:           opts.Dialogs,
		messages:          opts.Messages,
		cancelKeyword:     opts.CancelKeyword,
		faults:            opts.Faults,
		obs:               opts.Observability,
		locks:             newKeyedMutex(),
		logger:            opts.Logger,
	}
	if b.messages == nil {
		b.messages = messages.Default()
	}
	if b.obs == nil {
		b.obs = observability.NewNoop()
	}
	if b.logger == nil {
		b.logger = logger.NewNoOpLogger()
	}
	if b.faults == nil {
		b.faults = errors.NewErrorHandler(b.logger, metrics.Recorder{}, b.messages.Apology)
	}
	return b
}

// OnTurn handles one inbound activity. Turns of one conversation never overlap. Dialog
// faults are answered with an apology and leave the conversation idle; only a failure
// to persist state is returned.
func (b *Bot) OnTurn(ctx context.Context, tc *turn.Context) error {
	a := tc.Activity
	if a == nil || a.ChannelID == "" || a.Conversation.ID == "" {
		return errors.NewInvalidActivityError("activity must carry a channel id and a conversation id")
	}

	unlock := b.locks.Lock(a.ChannelID + "/" + a.Conversation.ID)
	defer unlock()

	start := time.Now()
	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()

	ctx, span := b.obs.StartSpan(ctx, "bot.turn",
		attribute.String("conversation.id", a.Conversation.ID),
		attribute.String("channel.id", a.ChannelID),
		attribute.String("activity.type", string(a.Type)),
	)
	defer span.End()

	fields := map[string]interface{}{
		"conversationId": a.Conversation.ID,
		"channelId":      a.ChannelID,
		"activityType":   string(a.Type),
	}
	b.logger.Debug("turn received", fields)

	outcome := "ok"
	if err := b.route(ctx, tc); err != nil {
		outcome = "faulted"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.faults.HandleFault(ctx, tc, "turn", err, fields)
		if clearErr := b.dialogState.Delete(ctx, tc); clearErr != nil {
			b.logger.Error("failed to clear dialog state", map[string]interface{}{
				"conversationId": a.Conversation.ID,
				"error":          clearErr.Error(),
			})
		}
	}

	saveErr := b.save(ctx, tc)
	if saveErr != nil {
		outcome = "storage_failed"
		span.RecordError(saveErr)
		b.logger.Error("failed to save state", map[string]interface{}{
			"conversationId": a.Conversation.ID,
			"error":          saveErr.Error(),
		})
	}

	elapsed := time.Since(start)
	metrics.TurnsProcessed.WithLabelValues(string(a.Type), outcome).Inc()
	metrics.TurnDuration.WithLabelValues(string(a.Type)).Observe(elapsed.Seconds())
	b.obs.RecordTurnProcessed(ctx, string(a.Type), outcome)
	b.obs.RecordTurnDuration(ctx, elapsed, string(a.Type))
	return saveErr
}

func (b *Bot) route(ctx context.Context, tc *turn.Context) error {
	switch tc.Activity.Type {
	case turn.ActivityTypeMessage:
		return b.onMessage(ctx, tc)
	case turn.ActivityTypeConversationUpdate:
		return b.onConversationUpdate(ctx, tc)
	default:
		b.logger.Debug("ignoring activity", map[string]interface{}{"activityType": string(tc.Activity.Type)})
		return nil
	}
}

func (b *Bot) dialogContext(ctx context.Context, tc *turn.Context) (*dialog.Context, error) {
	stack, err := b.dialogState.Get(ctx, tc, nil)
	if err != nil {
		return nil, err
	}
	return b.dialogs.CreateContext(tc, stack), nil
}

func (b *Bot) onMessage(ctx context.Context, tc *turn.Context) error {
	dc, err := b.dialogContext(ctx, tc)
	if err != nil {
		return err
	}

	if dc.Stack().Len() > 0 && strings.TrimSpace(tc.Activity.Text) == b.cancelKeyword {
		if err := tc.SendText(ctx, b.messages.Cancel); err != nil {
			return err
		}
		_, err := dc.CancelAll(ctx)
		return err
	}

	res, err := dc.Continue(ctx)
	if err != nil {
		return err
	}
	if res.Status == dialog.StatusEmpty {
		return b.start(ctx, tc, dc)
	}
	return nil
}

// onConversationUpdate greets when someone other than the bot joined. A greeting
// restarts any booking in progress.
func (b *Bot) onConversationUpdate(ctx context.Context, tc *turn.Context) error {
	joined := false
	for _, m := range tc.Activity.MembersAdded {
		if m.ID != tc.Activity.Recipient.ID {
			joined = true
			break
		}
	}
	if !joined {
		return nil
	}

	dc, err := b.dialogContext(ctx, tc)
	if err != nil {
		return err
	}
	if _, err := dc.CancelAll(ctx); err != nil {
		return err
	}
	return b.start(ctx, tc, dc)
}

func (b *Bot) start(ctx context.Context, tc *turn.Context, dc *dialog.Context) error {
	if err := tc.SendText(ctx, b.messages.Hello); err != nil {
		return err
	}
	_, err := dc.Begin(ctx, booking.MainDialogID, nil)
	return err
}

func (b *Bot) save(ctx context.Context, tc *turn.Context) error {
	if err := b.conversationState.SaveChanges(ctx, tc); err != nil {
		return err
	}
	return b.userState.SaveChanges(ctx, tc)
}
