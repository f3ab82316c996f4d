// Package mail sends transactional mail through SendGrid. Delivery is best
// effort; callers treat failures as log-worthy, never fatal.
package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"paymanni.org/internal/session"
)

// SendGrid delivers the welcome mail for newly registered accounts.
type SendGrid struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// NewSendGrid builds the mailer. apiKey must be non-empty; the caller decides
// whether to wire a mailer at all.
func NewSendGrid(apiKey, fromName, fromAddr string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// SendWelcome greets a freshly registered user. Identities without an email
// address (phone-only sign-ups) are skipped silently.
func (s *SendGrid) SendWelcome(ctx context.Context, to session.Identity) error {
	if to.Email == "" {
		return nil
	}
	from := sgmail.NewEmail(s.fromName, s.fromAddr)
	rcpt := sgmail.NewEmail(to.Name, to.Email)
	subject := "Welcome to PayManni"
	plain := fmt.Sprintf("Hi %s,\n\nYour PayManni wallet is ready. Add money to get started.\n", to.Name)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your PayManni wallet is ready. Add money to get started.</p>", to.Name)
	message := sgmail.NewSingleEmail(from, subject, rcpt, plain, html)

	resp, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d", resp.StatusCode)
	}
	return nil
}
