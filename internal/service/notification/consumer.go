package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
)

// Consumer turns booking events from the message broker into customer
// notifications. Delivery is best effort; a failed send is logged and
// the event is not replayed.
type Consumer struct {
	users  repository.UserRepository
	sender Sender
}

func NewConsumer(users repository.UserRepository, sender Sender) *Consumer {
	return &Consumer{users: users, sender: sender}
}

// Run consumes messages until the channel closes or the context is
// cancelled.
func (c *Consumer) Run(ctx context.Context, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			if err := c.handle(ctx, raw); err != nil {
				log.Error().Err(err).Msg("failed to handle booking event")
			}
		}
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Consumer) handle(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode message envelope: %w", err)
	}

	var payload model.AppointmentEventPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	subject, body, ok := compose(env.Type, &payload)
	if !ok {
		log.Debug().Str("event_type", env.Type).Msg("no notification for event type")
		return nil
	}

	user, err := c.users.Get(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up customer: %w", err)
	}

	return c.sender.Send(user.Email, subject, body)
}

func compose(eventType string, p *model.AppointmentEventPayload) (subject, body string, ok bool) {
	when := p.StartTime.Format("Monday, 2 January 2006 at 15:04")
	switch eventType {
	case model.EventAppointmentCreated:
		return "Your booking request was received",
			fmt.Sprintf("We received your booking request for %s. You will be notified once it is confirmed.", when), true
	case model.EventAppointmentConfirmed:
		return "Your appointment is confirmed",
			fmt.Sprintf("Your appointment on %s has been confirmed. See you then!", when), true
	case model.EventAppointmentRejected:
		body := fmt.Sprintf("Unfortunately your booking request for %s was declined.", when)
		if p.Reason != "" {
			body += " Reason: " + p.Reason
		}
		return "Your booking request was declined", body, true
	case model.EventAppointmentCancelled:
		body := fmt.Sprintf("Your appointment on %s has been cancelled.", when)
		if p.Reason != "" {
			body += " Reason: " + p.Reason
		}
		return "Your appointment was cancelled", body, true
	default:
		return "", "", false
	}
}
