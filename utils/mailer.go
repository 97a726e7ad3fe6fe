package utils

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"text/template"

	"github.com/jordan-wright/email"

	"restaurante-go/models"
)

// Mailer sends notification emails over SMTP. All sends are best-effort
// side channels: callers log failures and never let them fail the
// request that triggered them.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	BaseURL  string
}

// NewMailerFromEnv builds a Mailer from SMTP_* environment variables.
// Returns nil when SMTP_HOST is unset so callers can skip sending.
func NewMailerFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Println("Warning: SMTP_HOST not set, email notifications disabled")
		return nil
	}
	return &Mailer{
		Host:     host,
		Port:     getEnv("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("MAIL_FROM", "noreply@restaurante.com"),
		BaseURL:  getEnv("APP_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (m *Mailer) send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	return e.Send(m.Host+":"+m.Port, auth)
}

// SendAsync delivers in a goroutine, logging and swallowing failures.
func (m *Mailer) SendAsync(to, subject, body string) {
	if m == nil {
		return
	}
	go func() {
		if err := m.send(to, subject, body); err != nil {
			log.Printf("Failed to send email %q to %s: %v", subject, to, err)
		}
	}()
}

const orderConfirmationTemplate = `Hello {{.Username}},

Your order has been confirmed.

Order details:
- Order number: #{{.Order.ID}}
- Total: ${{.Order.Total}}
- Payment method: {{.Order.Payment}}
- Status: {{.Order.Status}}

Thank you for your purchase!
`

const reservationConfirmationTemplate = `Hello {{.Username}},

Your reservation has been received.

Reservation details:
- Reservation number: #{{.Reservation.ID}}
- Table: {{.Reservation.Table.Number}}
- Date: {{.Reservation.Date}}
- Time: {{.Reservation.StartTime}}
- Party size: {{.Reservation.PartySize}}
- Status: {{.Reservation.Status}}

We look forward to seeing you!
`

// OrderConfirmation sends the post-checkout confirmation email.
func (m *Mailer) OrderConfirmation(to, username string, order *models.Order) {
	if m == nil {
		return
	}
	body, err := renderTemplate(orderConfirmationTemplate, map[string]any{
		"Username": username,
		"Order":    order,
	})
	if err != nil {
		log.Printf("Failed to render order confirmation email: %v", err)
		return
	}
	m.SendAsync(to, fmt.Sprintf("Order Confirmation #%d", order.ID), body)
}

// ReservationConfirmation sends the post-booking confirmation email.
func (m *Mailer) ReservationConfirmation(to, username string, reservation *models.Reservation) {
	if m == nil {
		return
	}
	body, err := renderTemplate(reservationConfirmationTemplate, map[string]any{
		"Username":    username,
		"Reservation": reservation,
	})
	if err != nil {
		log.Printf("Failed to render reservation confirmation email: %v", err)
		return
	}
	m.SendAsync(to, fmt.Sprintf("Reservation Confirmation #%d", reservation.ID), body)
}

// VerificationEmail sends the account activation link.
func (m *Mailer) VerificationEmail(to, username, token string) {
	if m == nil {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nConfirm your account by visiting:\n%s/auth/verify/%s\n\nIf you did not register, ignore this email.\n", username, m.BaseURL, token)
	m.SendAsync(to, "Confirm your account", body)
}

// PasswordResetEmail sends the reset link for a requested password reset.
func (m *Mailer) PasswordResetEmail(to, username, token string) {
	if m == nil {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nReset your password by visiting:\n%s/auth/password-reset/%s\n\nIf you did not request this, ignore this email.\n", username, m.BaseURL, token)
	m.SendAsync(to, "Password reset", body)
}

func renderTemplate(text string, data any) (string, error) {
	tmpl, err := template.New("mail").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
