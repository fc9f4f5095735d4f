package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectEmailSend is consumed by the notification worker.
const SubjectEmailSend = "email.send"

type EmailPublisher interface {
	PublishEmail(to, subject, body string) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

type EmailSendEvent struct {
	EventType string    `json:"event_type"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

func (p *NatsPublisher) PublishEmail(to, subject, body string) error {
	event := EmailSendEvent{
		EventType: SubjectEmailSend,
		To:        to,
		Subject:   subject,
		Body:      body,
		QueuedAt:  time.Now(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(SubjectEmailSend, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", "subject", SubjectEmailSend, "error", err)
		return err
	}

	slog.Info("Published email event", "subject", SubjectEmailSend, "to", to)

	return nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}
