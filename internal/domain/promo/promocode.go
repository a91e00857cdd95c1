package promo

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/domain/shared/money"
)

var (
	ErrCodeNotFound      = errors.New("promo: code not found")
	ErrCodeInactive      = errors.New("promo: code is not active")
	ErrCodeNotStarted    = errors.New("promo: code is not yet valid")
	ErrCodeExpired       = errors.New("promo: code has expired")
	ErrBelowMinimum      = errors.New("promo: booking amount below minimum")
	ErrUsageLimitReached = errors.New("promo: usage limit reached")
	ErrUserLimitReached  = errors.New("promo: per-user usage limit reached")
	ErrInvalidDiscount   = errors.New("promo: discount value must be positive")
	ErrUsageNotFound     = errors.New("promo: usage record not found")
)

type DiscountType string

const (
	PercentageDiscount DiscountType = "percentage"
	FlatDiscount       DiscountType = "flat"
)

// Promocode is the structured, limit-tracked discount model. CurrentUsage is
// mutated only through the repository's conditional ConsumeOnce, never by
// read-modify-write in application code.
type Promocode struct {
	ID                string
	PropertyCode      string
	Code              string
	DiscountType      DiscountType
	DiscountValue     float64
	ValidFrom         time.Time
	ValidTo           time.Time
	MinBookingAmount  float64
	MaxDiscountAmount float64
	UseLimit          int
	UsageLimitPerUser int
	CurrentUsage      int
	UsedBy            []string
	IsActive          bool
}

type UsageStatus string

const (
	UsageApplied   UsageStatus = "applied"
	UsageCancelled UsageStatus = "cancelled"
	UsageExpired   UsageStatus = "expired"
)

// Usage is one row of the consumption ledger. Exactly one row is inserted per
// committed application, in the same transaction as the counter increment.
type Usage struct {
	ID               string
	PromoCodeID      string
	BookingID        string
	CustomerID       string
	DiscountType     DiscountType
	DiscountValue    float64
	OriginalAmount   float64
	DiscountedAmount float64
	FinalAmount      float64
	DiscountApplied  float64
	Status           UsageStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Repository interface {
	Save(ctx context.Context, p *Promocode) error
	ByCode(ctx context.Context, propertyCode, code string) (*Promocode, error)
	// ConsumeOnce increments CurrentUsage and registers the customer in a
	// single conditional update guarded by current_usage < use_limit and
	// is_active. The store enforces the limit; a failed guard surfaces as
	// ErrUsageLimitReached and leaves the document untouched.
	ConsumeOnce(ctx context.Context, propertyCode, code, customerID string) (*Promocode, error)
	InsertUsage(ctx context.Context, usage Usage) error
	UsageByBooking(ctx context.Context, bookingID string) (*Usage, error)
	// CountAppliedByCustomer counts ledger rows with status=applied for one
	// customer and code.
	CountAppliedByCustomer(ctx context.Context, promoCodeID, customerID string) (int, error)
	UpdateUsageStatus(ctx context.Context, usageID string, status UsageStatus) error
	// RestoreQuota decrements CurrentUsage, guarded by current_usage > 0.
	// Only invoked when a cancellation explicitly opts into freeing quota.
	RestoreQuota(ctx context.Context, promoCodeID string) error
}

// CalculateDiscount computes the discount a code grants on an amount.
// Percentage discounts are capped by MaxDiscountAmount when set; both kinds
// are capped at the amount itself so the discounted result is never negative.
func (p *Promocode) CalculateDiscount(amount float64) float64 {
	var discount float64
	switch p.DiscountType {
	case PercentageDiscount:
		discount = money.Percent(amount, p.DiscountValue)
		if p.MaxDiscountAmount > 0 {
			discount = money.Min(discount, p.MaxDiscountAmount)
		}
	case FlatDiscount:
		discount = money.Round2(p.DiscountValue)
	}
	return money.Min(discount, money.Round2(amount))
}

// ValidateForUse runs the read-only eligibility checks in order, stopping at
// the first failure. userApplied is the customer's count of applied ledger
// rows for this code.
func (p *Promocode) ValidateForUse(now time.Time, customerID string, bookingAmount float64, userApplied int) error {
	if !p.IsActive {
		return ErrCodeInactive
	}
	if !p.ValidFrom.IsZero() && now.Before(p.ValidFrom) {
		return ErrCodeNotStarted
	}
	if !p.ValidTo.IsZero() && now.After(p.ValidTo) {
		return ErrCodeExpired
	}
	if p.MinBookingAmount > 0 && bookingAmount < p.MinBookingAmount {
		return ErrBelowMinimum
	}
	if p.UseLimit > 0 && p.CurrentUsage >= p.UseLimit {
		return ErrUsageLimitReached
	}
	if p.UsageLimitPerUser > 0 && userApplied >= p.UsageLimitPerUser {
		return ErrUserLimitReached
	}
	return nil
}
