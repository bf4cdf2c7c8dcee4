package services

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/resend/resend-go/v2"

	"famshare/internal/config"
	"famshare/internal/logging"
)

// Email represents an email to be sent.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailProvider is the interface for sending emails.
type EmailProvider interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService dispatches invitation emails. Delivery is best-effort: a
// failed send is reported as a boolean, never as an error that could
// unwind a committed invitation.
type EmailService struct {
	provider    EmailProvider
	fromAddress string
	fromName    string
}

// NewEmailService creates an email service based on configuration.
func NewEmailService(cfg *config.Email) *EmailService {
	var provider EmailProvider

	switch cfg.Provider {
	case "resend":
		provider = NewResendProvider(cfg.ResendAPIKey, cfg.FromName, cfg.FromAddress)
	case "smtp":
		provider = NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.FromName, cfg.FromAddress)
	default:
		provider = NewConsoleProvider()
	}

	return &EmailService{
		provider:    provider,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// SendInviteEmail sends the invitation deep link to the invitee. The raw
// token travels only inside the link; it is never logged.
func (s *EmailService) SendInviteEmail(ctx context.Context, toEmail, inviterEmail, familyName, shareLink string) bool {
	html, text := renderInviteEmail(inviterEmail, familyName, shareLink)

	err := s.provider.Send(ctx, &Email{
		To:      toEmail,
		Subject: fmt.Sprintf("%s invited you to join %s", inviterEmail, familyName),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		logging.Error("Failed to send invite email", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

func renderInviteEmail(inviterEmail, familyName, shareLink string) (html, text string) {
	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; font-size: 24px;">You're invited to %s</h1>

  <p>%s invited you to join their family on FamShare. Accept the invitation to see their shared activity.</p>

  <a href="%s"
     style="display: inline-block; background: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 20px 0;">
    Join Family
  </a>

  <p style="color: #666; font-size: 14px;">
    This invitation expires in 7 days and can only be used once.
  </p>

  <p style="color: #666; font-size: 14px;">
    Or copy this link: %s
  </p>

  <p style="color: #666; font-size: 14px;">
    If you weren't expecting this invitation, you can safely ignore this email.
  </p>

  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
  <p style="color: #999; font-size: 12px;">FamShare - famshare.app</p>
</body>
</html>`, familyName, inviterEmail, shareLink, shareLink)

	text = fmt.Sprintf(`You're invited to %s

%s invited you to join their family on FamShare.

Accept the invitation by visiting:
%s

This invitation expires in 7 days and can only be used once.

If you weren't expecting this invitation, you can safely ignore this email.

--
FamShare
famshare.app`, familyName, inviterEmail, shareLink)

	return html, text
}

// ResendProvider sends emails using the Resend API.
type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResendProvider(apiKey, fromName, fromAddress string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
		from:   fmt.Sprintf("%s <%s>", fromName, fromAddress),
	}
}

func (p *ResendProvider) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	_, err := p.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}

	logging.Info("Email sent via Resend", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// SMTPProvider sends emails via SMTP (for Mailpit in local dev).
type SMTPProvider struct {
	host        string
	port        int
	from        string
	fromAddress string
}

func NewSMTPProvider(host string, port int, fromName, fromAddress string) *SMTPProvider {
	return &SMTPProvider{
		host:        host,
		port:        port,
		from:        fmt.Sprintf("%s <%s>", fromName, fromAddress),
		fromAddress: fromAddress,
	}
}

func (p *SMTPProvider) Send(ctx context.Context, email *Email) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", p.from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTML)

	err := smtp.SendMail(addr, nil, p.fromAddress, []string{email.To}, buf.Bytes())
	if err != nil {
		return fmt.Errorf("sending email via SMTP: %w", err)
	}

	logging.Info("Email sent via SMTP", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// ConsoleProvider logs emails to console (for development).
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(ctx context.Context, email *Email) error {
	logging.Info("=== EMAIL (Console Provider) ===", map[string]interface{}{"to": email.To, "subject": email.Subject})
	fmt.Printf("\n=== EMAIL ===\n")
	fmt.Printf("To: %s\n", email.To)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("---\n")
	fmt.Printf("%s\n", email.Text)
	fmt.Printf("=============\n\n")
	return nil
}
