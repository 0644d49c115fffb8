// internal/service/webhook/normalizer.go
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Normalizer turns raw gateway payloads into normalized events.
type Normalizer struct {
	validate *validator.Validate
}

func NewNormalizer() *Normalizer {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Normalizer{validate: v}
}

// Normalize decodes and validates a webhook body. Structural problems are returned
// as *xerrors.ValidationError; unknown event types come back as KindIgnored.
func (n *Normalizer) Normalize(raw []byte) (*webhook.Event, error) {
	var env webhook.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, xerrors.NewValidationError("malformed webhook body: %v", err)
	}
	if err := n.check(&env, "envelope"); err != nil {
		return nil, err
	}

	switch env.Event {
	case webhook.EventMessage:
		return n.message(&env)
	case webhook.EventSessionStatus:
		return n.status(&env)
	default:
		return &webhook.Event{Kind: webhook.KindIgnored, Name: env.Event, Reason: "unsupported event"}, nil
	}
}

func requirePayload(env *webhook.Envelope) error {
	if env.HasPayload() {
		return nil
	}
	return &xerrors.ValidationError{
		Message: "invalid envelope",
		Fields:  map[string]string{"envelope.payload": "required"},
	}
}

func (n *Normalizer) message(env *webhook.Envelope) (*webhook.Event, error) {
	if err := requirePayload(env); err != nil {
		return nil, err
	}

	var p webhook.MessagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, xerrors.NewValidationError("malformed message payload: %v", err)
	}
	if err := n.check(&p, "payload"); err != nil {
		return nil, err
	}

	if p.FromMe {
		return &webhook.Event{Kind: webhook.KindIgnored, Name: env.Event, Reason: "outbound message"}, nil
	}

	ts := time.Unix(p.Timestamp, 0).UTC()
	if p.Timestamp == 0 {
		if env.Timestamp == 0 {
			return nil, &xerrors.ValidationError{
				Message: "invalid message payload",
				Fields:  map[string]string{"payload.timestamp": "required"},
			}
		}
		ts = time.UnixMilli(env.Timestamp).UTC()
	}

	msg := &webhook.IncomingMessage{
		MessageID: p.ID,
		ChatID:    p.From,
		From:      p.From,
		To:        p.To,
		Body:      p.Body,
		Timestamp: ts,
		FromMe:    p.FromMe,
		HasMedia:  p.HasMedia,
		Status:    strings.ToLower(p.AckName),
	}
	if p.ReplyTo != nil {
		msg.ReplyTo = p.ReplyTo.ID
	}
	if p.Data != nil {
		msg.NameHint = strings.TrimSpace(p.Data.NotifyName)
	}

	return &webhook.Event{Kind: webhook.KindMessage, Name: env.Event, Message: msg}, nil
}

func (n *Normalizer) status(env *webhook.Envelope) (*webhook.Event, error) {
	if err := requirePayload(env); err != nil {
		return nil, err
	}

	var p webhook.StatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, xerrors.NewValidationError("malformed status payload: %v", err)
	}
	if err := n.check(&p, "payload"); err != nil {
		return nil, err
	}

	// Without a message id the status describes the gateway session itself.
	if p.ID == "" {
		return &webhook.Event{Kind: webhook.KindIgnored, Name: env.Event, Reason: "gateway session status " + p.Status}, nil
	}

	return &webhook.Event{
		Kind:   webhook.KindStatus,
		Name:   env.Event,
		Status: &webhook.StatusUpdate{MessageID: p.ID, Status: strings.ToLower(p.Status)},
	}, nil
}

func (n *Normalizer) check(v interface{}, scope string) error {
	err := n.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return xerrors.NewValidationError("invalid %s: %v", scope, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[scope+"."+fe.Field()] = fe.Tag()
	}
	return &xerrors.ValidationError{Message: fmt.Sprintf("invalid %s", scope), Fields: fields}
}
