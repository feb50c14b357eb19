package mailer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer defines contract for the outbound email transport.
// Sending is best-effort: callers log failures and move on, a broken
// transport must never fail the operation that triggered the email.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type sendgridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridMailer creates a SendGrid-backed Mailer from SENDGRID_API_KEY,
// MAIL_FROM_NAME and MAIL_FROM_EMAIL. Returns nil when no API key is
// configured so callers can skip email entirely (e.g. local development).
func NewSendGridMailer() Mailer {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: SENDGRID_API_KEY is not set, email notifications disabled")
		return nil
	}

	fromEmail := os.Getenv("MAIL_FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "no-reply@certhub.local"
	}

	fromName := os.Getenv("MAIL_FROM_NAME")
	if fromName == "" {
		fromName = "CertHub"
	}

	return &sendgridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *sendgridMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mailer is not initialized")
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), text, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}
