package promo

import (
	"time"

	"innkeeper/internal/domain/shared/events"
)

type PromoApplied struct {
	events.BaseEvent
	Code       string
	CustomerID string
	BookingID  string
	Amount     float64
}

func NewPromoApplied(code, customerID, bookingID string, amount float64, at time.Time) PromoApplied {
	return PromoApplied{
		BaseEvent:  events.BaseEvent{Name: "promo.applied", Aggregate: code, Time: at},
		Code:       code,
		CustomerID: customerID,
		BookingID:  bookingID,
		Amount:     amount,
	}
}

type UsageCancelledEvent struct {
	events.BaseEvent
	Code      string
	BookingID string
	Reason    string
}

func NewUsageCancelled(code, bookingID, reason string, at time.Time) UsageCancelledEvent {
	return UsageCancelledEvent{
		BaseEvent: events.BaseEvent{Name: "promo.usage_cancelled", Aggregate: code, Time: at},
		Code:      code,
		BookingID: bookingID,
		Reason:    reason,
	}
}
