package notification

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/salonhq/booking-api/internal/config"
)

// Sender delivers a message to a recipient. Implementations are
// best-effort: the booking engine treats delivery failures as
// log-and-continue, never as booking failures.
type Sender interface {
	Send(recipient, subject, body string) error
}

type emailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(cfg config.SMTPConfig) Sender {
	return &emailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *emailSender) Send(recipient, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NopSender drops messages; used when SMTP is not configured.
type NopSender struct{}

func (NopSender) Send(recipient, subject, body string) error {
	log.Debug().Str("recipient", recipient).Str("subject", subject).Msg("notification dropped (no sender configured)")
	return nil
}
