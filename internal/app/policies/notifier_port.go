package policies

import "context"

// Notifier delivers guest-facing messages. Fire-and-forget: a delivery
// failure never rolls back a committed booking or promo consumption.
type Notifier interface {
	SendMail(ctx context.Context, to, subject, text, html string) error
	SendSMS(ctx context.Context, to, message string) error
}
