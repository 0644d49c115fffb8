// internal/domain/webhook/event.go
package webhook

import "time"

// Kind discriminates the normalized event union.
type Kind int

const (
	KindIgnored Kind = iota
	KindMessage
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindStatus:
		return "status"
	default:
		return "ignored"
	}
}

// IncomingMessage is a validated inbound message ready for ingestion.
type IncomingMessage struct {
	MessageID string
	ChatID    string
	From      string
	To        string
	Body      *string
	Timestamp time.Time
	FromMe    bool
	HasMedia  bool
	Status    string
	ReplyTo   string
	NameHint  string
}

// StatusUpdate changes the delivery status of a stored message.
type StatusUpdate struct {
	MessageID string
	Status    string
}

// Event is the normalized webhook. Exactly one of Message or Status is set for
// KindMessage and KindStatus respectively.
type Event struct {
	Kind    Kind
	Name    string
	Reason  string
	Message *IncomingMessage
	Status  *StatusUpdate
}

// Outcome describes how an accepted webhook was handled.
type Outcome string

const (
	OutcomeIngested      Outcome = "ingested"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeStatusUpdated Outcome = "status_updated"
	OutcomeIgnored       Outcome = "ignored"
)

// Result is returned to the gateway for every accepted webhook.
type Result struct {
	Event   string  `json:"event"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}
