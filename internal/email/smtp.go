// Package email sends operational alert mail over the business's own SMTP
// server.
package email

import (
	"context"
	"fmt"
	"html"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"bricks_crm_backend/platform/config"
)

const subjectFailureAlert = "Call recording processing failed"

// SMTPSender delivers alert emails via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	recipient string
}

// NewSMTPSender creates the alert sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		recipient: cfg.GetAlertRecipient(),
	}
}

// SendFailureAlert notifies the operator that transcription failed for a
// recording, so someone can re-drive it manually.
func (s *SMTPSender) SendFailureAlert(ctx context.Context, recordingID, errorMessage string) error {
	if errorMessage == "" {
		errorMessage = "no error message provided"
	}
	content := fmt.Sprintf(
		"<h2>Call recording processing failed</h2>"+
			"<p>Recording <code>%s</code> could not be transcribed.</p>"+
			"<p>Error: %s</p>"+
			"<p>The sender was informed in the chat. The recording stays in the failed state until re-driven.</p>",
		html.EscapeString(recordingID), html.EscapeString(errorMessage),
	)
	return s.send(ctx, s.recipient, subjectFailureAlert, content)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
