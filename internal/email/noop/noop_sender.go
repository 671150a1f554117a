// Package noop implements port.EmailSender by logging instead of sending,
// for development and tests.
package noop

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
)

type noopSender struct{}

// NewNoopSender creates an EmailSender that logs messages instead of
// delivering them.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) Send(ctx context.Context, msg port.EmailMessage) error {
	log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("noop email sender: message not delivered")
	return nil
}
