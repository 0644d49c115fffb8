// internal/domain/webhook/dto.go
package webhook

import (
	"bytes"
	"encoding/json"
)

// Event names understood by the normalizer.
const (
	EventMessage       = "message"
	EventSessionStatus = "session.status"
)

// Envelope is the outer gateway payload. Payload stays raw until Event selects its shape.
type Envelope struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Event     string          `json:"event" validate:"required"`
	Session   string          `json:"session"`
	Payload   json.RawMessage `json:"payload"`
}

// HasPayload reports whether the envelope carried a non-null payload.
func (e *Envelope) HasPayload() bool {
	p := bytes.TrimSpace(e.Payload)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// MessagePayload is the payload of a "message" event.
type MessagePayload struct {
	ID        string       `json:"id" validate:"required"`
	Timestamp int64        `json:"timestamp" validate:"gte=0"`
	From      string       `json:"from" validate:"required"`
	FromMe    bool         `json:"fromMe"`
	To        string       `json:"to"`
	Body      *string      `json:"body"`
	HasMedia  bool         `json:"hasMedia"`
	Ack       *int         `json:"ack"`
	AckName   string       `json:"ackName"`
	ReplyTo   *ReplyRef    `json:"replyTo"`
	Data      *MessageMeta `json:"_data"`
}

// MessageMeta holds the gateway-specific extras we read.
type MessageMeta struct {
	NotifyName string `json:"notifyName"`
}

// StatusPayload is the payload of a "session.status" event.
type StatusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status" validate:"required"`
}

// ReplyRef accepts either a bare message id or an object carrying one.
type ReplyRef struct {
	ID string
}

func (r *ReplyRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		ID         string `json:"id"`
		Serialized string `json:"_serialized"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	if r.ID == "" {
		r.ID = obj.Serialized
	}
	return nil
}
