package services

import (
	"fmt"
	"log"
	"strings"

	"geo_atlas_go/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// BuildWelcomeEmail builds the registration notification mail.
func BuildWelcomeEmail(toEmail string) *Email {
	text := fmt.Sprintf("Welcome to GeoAtlas!\n\nYour account %s is ready. Log in at the API to start building your country hierarchy.\n", toEmail)
	html := fmt.Sprintf("<p>Welcome to GeoAtlas!</p><p>Your account <strong>%s</strong> is ready. Log in at the API to start building your country hierarchy.</p>", toEmail)
	return &Email{
		To:       []string{toEmail},
		Subject:  "Welcome to GeoAtlas",
		TextBody: text,
		HTMLBody: html,
	}
}

// SendEmail sends an email using the Resend API. In test mode the email is
// logged to the console instead of sent.
func SendEmail(cfg *config.Config, email *Email) error {
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %s (id: %s)", strings.Join(email.To, ", "), sent.Id)
	return nil
}

// SendEmailAsync sends an email in the background; a failure is logged and
// never fails the originating request.
func SendEmailAsync(cfg *config.Config, email *Email) {
	go func() {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("Failed to send email to %s: %v", strings.Join(email.To, ", "), err)
		}
	}()
}

func logEmailToConsole(email *Email) {
	log.Printf("---- EMAIL (test mode, not sent) ----")
	log.Printf("To: %s", strings.Join(email.To, ", "))
	log.Printf("Subject: %s", email.Subject)
	log.Printf("Body:\n%s", email.TextBody)
	log.Printf("-------------------------------------")
}
