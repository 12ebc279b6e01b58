// Package mail is the inter-agent message layer: performative-typed messages
// delivered through bounded, per-agent mailboxes. Agents never call each other
// directly; everything goes through a Router.
package mail

import (
	"time"

	"github.com/google/uuid"
)

// Performative is the intent label on an inter-agent message.
type Performative string

const (
	Inform  Performative = "INFORM"
	Request Performative = "REQUEST"
	Query   Performative = "QUERY"
	Confirm Performative = "CONFIRM"
	Refuse  Performative = "REFUSE"
	Agree   Performative = "AGREE"
	Failure Performative = "FAILURE"
	Propose Performative = "PROPOSE"
	CFP     Performative = "CFP"
)

// Content is the tagged payload of a message. Kind names the info type or
// requested action ("flood_data_batch", "calculate_route", ...).
type Content struct {
	Kind string
	Data any
}

// Message is one unit of agent communication.
type Message struct {
	ID           string
	Performative Performative
	Sender       string
	Receiver     string
	Content      Content

	ConversationID string
	ReplyWith      string
	InReplyTo      string

	SentAt time.Time
}

// NewMessage builds a message with a fresh id and timestamp.
func NewMessage(p Performative, sender, receiver string, content Content) Message {
	return Message{
		ID:           uuid.NewString(),
		Performative: p,
		Sender:       sender,
		Receiver:     receiver,
		Content:      content,
		SentAt:       time.Now(),
	}
}

// Reply builds a response to m, wiring conversation bookkeeping.
func (m Message) Reply(p Performative, sender string, content Content) Message {
	r := NewMessage(p, sender, m.Sender, content)
	r.ConversationID = m.ConversationID
	r.InReplyTo = m.ReplyWith
	return r
}
