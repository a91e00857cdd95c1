package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"innkeeper/internal/app/policies"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// KafkaNotifier publishes guest notifications to the messaging topics. The
// messaging consumer owns actual delivery; from the booking side a published
// message is as far as the guarantee goes.
type KafkaNotifier struct {
	Producer  Producer
	MailTopic string
	SMSTopic  string
	Logger    *slog.Logger
}

var ErrNotifierNotConfigured = errors.New("notify: producer is required")

type mailMessage struct {
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type smsMessage struct {
	To        string    `json:"to"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (n KafkaNotifier) SendMail(ctx context.Context, to, subject, text, html string) error {
	if n.Producer == nil {
		return ErrNotifierNotConfigured
	}
	payload, err := json.Marshal(mailMessage{
		To:        to,
		Subject:   subject,
		Text:      text,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	topic := n.MailTopic
	if topic == "" {
		topic = "notify.email"
	}
	if err := n.Producer.Publish(ctx, topic, to, payload, nil); err != nil {
		if n.Logger != nil {
			n.Logger.Warn("mail notification publish failed", "to", to, "error", err)
		}
		return err
	}
	return nil
}

func (n KafkaNotifier) SendSMS(ctx context.Context, to, message string) error {
	if n.Producer == nil {
		return ErrNotifierNotConfigured
	}
	payload, err := json.Marshal(smsMessage{
		To:        to,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	topic := n.SMSTopic
	if topic == "" {
		topic = "notify.sms"
	}
	if err := n.Producer.Publish(ctx, topic, to, payload, nil); err != nil {
		if n.Logger != nil {
			n.Logger.Warn("sms notification publish failed", "to", to, "error", err)
		}
		return err
	}
	return nil
}

// NoopNotifier is used when Kafka is not configured (memory mode).
type NoopNotifier struct{}

func (NoopNotifier) SendMail(context.Context, string, string, string, string) error { return nil }
func (NoopNotifier) SendSMS(context.Context, string, string) error                  { return nil }

var (
	_ policies.Notifier = KafkaNotifier{}
	_ policies.Notifier = NoopNotifier{}
)
