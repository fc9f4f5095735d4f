// Package worker consumes email.send events and delivers transactional
// email. Without SMTP configuration it runs in mock mode and only logs.
package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/nats-io/nats.go"

	"github.com/irfandhmahudi/backend-mern/internal/config"
	"github.com/irfandhmahudi/backend-mern/internal/events"
)

type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}

	return &SMTPSender{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

type Worker struct {
	natsConn *nats.Conn
	sender   Sender
}

func (w *Worker) handleEmailSend(msg *nats.Msg) {
	var event events.EmailSendEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Error unmarshalling email event", "error", err)
		return
	}

	if w.sender == nil {
		slog.Info("Email sent (mock mode)", "to", event.To, "subject", event.Subject)
		return
	}

	if err := w.sender.Send(event.To, event.Subject, event.Body); err != nil {
		slog.Error("Failed to send email", "to", event.To, "error", err)
		return
	}

	slog.Info("Email sent", "to", event.To, "subject", event.Subject)
}

// Start connects to NATS and subscribes to the email subject. The returned
// worker keeps running until the process exits.
func Start(cfg *config.Config) (*Worker, error) {
	var sender Sender
	if cfg.SMTPHost != "" {
		sender = NewSMTPSender(cfg)
		slog.Info("SMTP configured, sending real email", "host", cfg.SMTPHost)
	} else {
		slog.Info("SMTP not configured, worker will run in MOCK mode")
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		natsConn: nc,
		sender:   sender,
	}

	if _, err := nc.Subscribe(events.SubjectEmailSend, w.handleEmailSend); err != nil {
		return nil, err
	}

	return w, nil
}
