package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
)

// Mailer sends transactional mail over SMTP. A disabled mailer drops mail silently.
type Mailer struct {
	cfg  *config.SMTPConfig
	send func(cfg *config.SMTPConfig, from string, to []string, message string) error
}

func NewMailer(cfg *config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: deliver}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled && m.cfg.Host != ""
}

// SendWaitlistWelcome confirms a waitlist signup.
func (m *Mailer) SendWaitlistWelcome(task *WaitlistWelcomeTask) error {
	if !m.Enabled() {
		return nil
	}

	greeting := "Hi there"
	if task.Name != "" {
		greeting = "Hi " + html.EscapeString(task.Name)
	}
	label := models.Interest(task.Interest).Label()

	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<p>%s,</p>", greeting))
	sb.WriteString("<p>You're on the Creator Club waitlist. We'll email you as soon as your spot opens up.</p>")
	if label != "" {
		sb.WriteString(fmt.Sprintf("<p>You told us: <strong>%s</strong>.</p>", html.EscapeString(label)))
	}
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Creator Club</p>")
	sb.WriteString("</body></html>")

	return m.sendEmail([]string{task.Email}, "You're on the Creator Club waitlist", sb.String())
}

func (m *Mailer) sendEmail(to []string, subject, body string) error {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	headers := []struct{ k, v string }{
		{"From", from},
		{"To", strings.Join(to, ",")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h.k, h.v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	if err := m.send(m.cfg, from, to, message.String()); err != nil {
		logger.Error().Err(err).Msg("[Mailer] Failed to send email")
		return err
	}

	for _, addr := range to {
		logger.Info().Str("to", logger.RedactEmail(addr)).Str("subject", subject).Msg("[Mailer] Sent")
	}
	return nil
}

func deliver(cfg *config.SMTPConfig, from string, to []string, message string) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if !cfg.UseTLS {
		return smtp.SendMail(addr, auth, from, to, []byte(message))
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	return w.Close()
}
