// Package discord connects the bot to a Discord gateway session. Every user talking in
// a channel gets their own conversation, so two people can book side by side.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/turn"

	"github.com/bwmarrin/discordgo"
)

// ChannelID is the channel id stamped on activities that came from Discord.
const ChannelID = "discord"

const turnTimeout = 30 * time.Second

// MessageSender is the part of *discordgo.Session used for replies.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Config struct {
	Token     string
	ChannelID string // empty accepts every channel the bot can read
}

type Adapter struct {
	session   *discordgo.Session
	sender    MessageSender
	handler   turn.Handler
	channelID string
	botID     string
	logger    logger.Logger
}

func New(cfg Config, handler turn.Handler, log logger.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	a := newAdapter(session, handler, cfg.ChannelID, log)
	a.session = session
	session.AddHandler(a.onMessageCreate)
	return a, nil
}

func newAdapter(sender MessageSender, handler turn.Handler, channelID string, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Adapter{sender: sender, handler: handler, channelID: channelID, logger: log}
}

// Start opens the gateway connection.
func (a *Adapter) Start() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	a.botID = a.session.State.User.ID
	a.logger.Info("discord channel connected", map[string]interface{}{
		"username":  a.session.State.User.Username,
		"channelId": a.channelID,
	})
	return nil
}

func (a *Adapter) Stop() error {
	return a.session.Close()
}

func (a *Adapter) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	a.handleMessage(context.Background(), m)
}

func (a *Adapter) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == a.botID {
		return
	}
	if a.channelID != "" && m.ChannelID != a.channelID {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	activity := ToActivity(m, a.botID)
	sender := turn.SenderFunc(func(_ context.Context, activities ...turn.Activity) error {
		for _, out := range activities {
			if _, err := a.sender.ChannelMessageSendComplex(m.ChannelID, ToMessageSend(out)); err != nil {
				return fmt.Errorf("discord send to %s: %w", m.ChannelID, err)
			}
		}
		return nil
	})

	if err := a.handler.OnTurn(ctx, turn.NewContext(activity, sender)); err != nil {
		a.logger.Error("discord turn failed", map[string]interface{}{
			"conversationId": activity.Conversation.ID,
			"messageId":      m.ID,
			"error":          err.Error(),
		})
	}
}

// ToActivity converts a Discord message into an inbound activity. The conversation is
// scoped to the author within the channel.
func ToActivity(m *discordgo.MessageCreate, botID string) *turn.Activity {
	timestamp := m.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	return &turn.Activity{
		ID:           m.ID,
		Type:         turn.ActivityTypeMessage,
		ChannelID:    ChannelID,
		Conversation: turn.ConversationAccount{ID: m.ChannelID + ":" + m.Author.ID},
		From:         turn.ChannelAccount{ID: m.Author.ID, Name: m.Author.Username},
		Recipient:    turn.ChannelAccount{ID: botID},
		Text:         strings.TrimSpace(stripMention(m.Content, botID)),
		Timestamp:    timestamp,
	}
}

func stripMention(content, botID string) string {
	if botID == "" {
		return content
	}
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	return strings.ReplaceAll(content, "<@!"+botID+">", "")
}

// ToMessageSend renders an outbound activity. Cards become embeds with one field per
// fact; suggested actions are already part of the text.
func ToMessageSend(a turn.Activity) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{Content: a.Text}
	for _, card := range a.Cards {
		embed := &discordgo.MessageEmbed{Title: card.Title}
		for _, f := range card.Facts {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Title, Value: f.Value})
		}
		msg.Embeds = append(msg.Embeds, embed)
	}
	return msg
}
