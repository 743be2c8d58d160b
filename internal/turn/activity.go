// Package turn models one inbound event and the messages sent back while handling it.
package turn

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityTypeMessage            ActivityType = "message"
	ActivityTypeConversationUpdate ActivityType = "conversationUpdate"
)

type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ConversationAccount struct {
	ID string `json:"id"`
}

// Fact is one label/value row of a summary card.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Card is a channel-neutral rich message. Adapters decide how to render it.
type Card struct {
	Title string `json:"title,omitempty"`
	Facts []Fact `json:"facts"`
}

// Activity is the inbound event shape accepted from channels, and also the shape of
// every outbound message.
type Activity struct {
	ID               string              `json:"id,omitempty"`
	Type             ActivityType        `json:"type"`
	ChannelID        string              `json:"channelId"`
	Conversation     ConversationAccount `json:"conversation"`
	From             ChannelAccount      `json:"from"`
	Recipient        ChannelAccount      `json:"recipient"`
	Text             string              `json:"text,omitempty"`
	MembersAdded     []ChannelAccount    `json:"membersAdded,omitempty"`
	SuggestedActions []string            `json:"suggestedActions,omitempty"`
	Cards            []Card              `json:"cards,omitempty"`
	ReplyToID        string              `json:"replyToId,omitempty"`
	Timestamp        time.Time           `json:"timestamp,omitempty"`
}

// IsMessage reports whether the activity carries user text.
func (a *Activity) IsMessage() bool {
	return a.Type == ActivityTypeMessage
}

// NewMessage builds an outbound text activity.
func NewMessage(text string) Activity {
	return Activity{Type: ActivityTypeMessage, Text: text}
}

// NewCardMessage builds an outbound activity carrying one card.
func NewCardMessage(card Card) Activity {
	return Activity{Type: ActivityTypeMessage, Cards: []Card{card}}
}

// reply addresses an outbound activity to the sender of inbound.
func reply(inbound *Activity, out Activity) Activity {
	out.ID = uuid.NewString()
	out.ChannelID = inbound.ChannelID
	out.Conversation = inbound.Conversation
	out.From = inbound.Recipient
	out.Recipient = inbound.From
	out.ReplyToID = inbound.ID
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	return out
}
