package promo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"innkeeper/internal/domain/shared/money"
)

// AppliedDiscount is the code-agnostic result a discount source produces.
// The pricing pipeline consumes it without knowing which ledger the code
// came from.
type AppliedDiscount struct {
	Code         string
	DiscountType DiscountType
	Value        float64
	MaxAmount    float64
	Amount       float64
}

// Source is the capability both discount models implement: the structured
// promocode ledger and the legacy coupon table.
type Source interface {
	// Validate runs read-only eligibility checks and computes the discount
	// the code would grant on bookingAmount.
	Validate(ctx context.Context, propertyCode, code, customerID string, bookingAmount float64) (AppliedDiscount, error)
	// Apply consumes the code for the booking. Must be called inside the
	// caller's transaction; the counter mutation and the ledger insert commit
	// or roll back together.
	Apply(ctx context.Context, propertyCode, code, customerID, bookingID string, bookingAmount float64) (AppliedDiscount, error)
	// Describe reports whether the code exists in this source.
	Describe(ctx context.Context, propertyCode, code string) (DiscountType, bool)
}

// PromocodeLedger adapts the structured promocode model to the Source
// capability.
type PromocodeLedger struct {
	Repo Repository
	Now  func() time.Time
}

func (l PromocodeLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

func (l PromocodeLedger) Validate(ctx context.Context, propertyCode, code, customerID string, bookingAmount float64) (AppliedDiscount, error) {
	p, err := l.Repo.ByCode(ctx, propertyCode, code)
	if err != nil {
		return AppliedDiscount{}, err
	}
	applied, err := l.Repo.CountAppliedByCustomer(ctx, p.ID, customerID)
	if err != nil {
		return AppliedDiscount{}, err
	}
	if err := p.ValidateForUse(l.now(), customerID, bookingAmount, applied); err != nil {
		return AppliedDiscount{}, err
	}
	return AppliedDiscount{
		Code:         p.Code,
		DiscountType: p.DiscountType,
		Value:        p.DiscountValue,
		MaxAmount:    p.MaxDiscountAmount,
		Amount:       p.CalculateDiscount(bookingAmount),
	}, nil
}

func (l PromocodeLedger) Apply(ctx context.Context, propertyCode, code, customerID, bookingID string, bookingAmount float64) (AppliedDiscount, error) {
	discount, err := l.Validate(ctx, propertyCode, code, customerID, bookingAmount)
	if err != nil {
		return AppliedDiscount{}, err
	}
	// The conditional update is the decision point for the shared limit; the
	// validation above only pre-screens per-user and window checks.
	p, err := l.Repo.ConsumeOnce(ctx, propertyCode, code, customerID)
	if err != nil {
		return AppliedDiscount{}, err
	}
	now := l.now()
	usage := Usage{
		ID:               uuid.NewString(),
		PromoCodeID:      p.ID,
		BookingID:        bookingID,
		CustomerID:       customerID,
		DiscountType:     p.DiscountType,
		DiscountValue:    p.DiscountValue,
		OriginalAmount:   money.Round2(bookingAmount),
		DiscountedAmount: money.Round2(bookingAmount - discount.Amount),
		FinalAmount:      money.ClampFloor(money.Round2(bookingAmount-discount.Amount), 0),
		DiscountApplied:  discount.Amount,
		Status:           UsageApplied,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.Repo.InsertUsage(ctx, usage); err != nil {
		return AppliedDiscount{}, err
	}
	return discount, nil
}

func (l PromocodeLedger) Describe(ctx context.Context, propertyCode, code string) (DiscountType, bool) {
	p, err := l.Repo.ByCode(ctx, propertyCode, code)
	if err != nil {
		return "", false
	}
	return p.DiscountType, true
}

// CouponLedger adapts the legacy single-use coupon table to the Source
// capability. Coupons are always percentage discounts with no caps.
type CouponLedger struct {
	Repo CouponRepository
}

func (l CouponLedger) Validate(ctx context.Context, _ string, code, customerID string, bookingAmount float64) (AppliedDiscount, error) {
	c, err := l.Repo.ByCode(ctx, code)
	if err != nil {
		return AppliedDiscount{}, err
	}
	if err := c.EligibleFor(customerID); err != nil {
		return AppliedDiscount{}, err
	}
	return AppliedDiscount{
		Code:         c.Code,
		DiscountType: PercentageDiscount,
		Value:        c.DiscountPercentage,
		Amount:       money.Min(money.Percent(bookingAmount, c.DiscountPercentage), money.Round2(bookingAmount)),
	}, nil
}

func (l CouponLedger) Apply(ctx context.Context, _ string, code, customerID, _ string, bookingAmount float64) (AppliedDiscount, error) {
	if _, err := l.Repo.Claim(ctx, code, customerID); err != nil {
		return AppliedDiscount{}, err
	}
	c, err := l.Repo.Consume(ctx, code, customerID)
	if err != nil {
		return AppliedDiscount{}, err
	}
	return AppliedDiscount{
		Code:         c.Code,
		DiscountType: PercentageDiscount,
		Value:        c.DiscountPercentage,
		Amount:       money.Min(money.Percent(bookingAmount, c.DiscountPercentage), money.Round2(bookingAmount)),
	}, nil
}

func (l CouponLedger) Describe(ctx context.Context, _ string, code string) (DiscountType, bool) {
	if _, err := l.Repo.ByCode(ctx, code); err != nil {
		return "", false
	}
	return PercentageDiscount, true
}

// CompositeSource resolves a code against the structured promocode ledger
// first and falls back to the legacy coupon table, so callers never need to
// know which table a code lives in.
type CompositeSource struct {
	Primary Source
	Legacy  Source
}

func (s CompositeSource) resolve(ctx context.Context, propertyCode, code string) Source {
	if _, ok := s.Primary.Describe(ctx, propertyCode, code); ok {
		return s.Primary
	}
	if s.Legacy != nil {
		if _, ok := s.Legacy.Describe(ctx, propertyCode, code); ok {
			return s.Legacy
		}
	}
	return nil
}

func (s CompositeSource) Validate(ctx context.Context, propertyCode, code, customerID string, bookingAmount float64) (AppliedDiscount, error) {
	src := s.resolve(ctx, propertyCode, code)
	if src == nil {
		return AppliedDiscount{}, ErrCodeNotFound
	}
	return src.Validate(ctx, propertyCode, code, customerID, bookingAmount)
}

func (s CompositeSource) Apply(ctx context.Context, propertyCode, code, customerID, bookingID string, bookingAmount float64) (AppliedDiscount, error) {
	src := s.resolve(ctx, propertyCode, code)
	if src == nil {
		return AppliedDiscount{}, ErrCodeNotFound
	}
	return src.Apply(ctx, propertyCode, code, customerID, bookingID, bookingAmount)
}

func (s CompositeSource) Describe(ctx context.Context, propertyCode, code string) (DiscountType, bool) {
	if t, ok := s.Primary.Describe(ctx, propertyCode, code); ok {
		return t, true
	}
	if s.Legacy != nil {
		return s.Legacy.Describe(ctx, propertyCode, code)
	}
	return "", false
}

var (
	_ Source = PromocodeLedger{}
	_ Source = CouponLedger{}
	_ Source = CompositeSource{}
)

// IsEligibilityError reports whether err is an eligibility failure rather
// than an infrastructure one, so quoting can degrade to no-discount instead
// of failing.
func IsEligibilityError(err error) bool {
	switch {
	case errors.Is(err, ErrCodeNotFound),
		errors.Is(err, ErrCodeInactive),
		errors.Is(err, ErrCodeNotStarted),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrBelowMinimum),
		errors.Is(err, ErrUsageLimitReached),
		errors.Is(err, ErrUserLimitReached),
		errors.Is(err, ErrCouponNotFound),
		errors.Is(err, ErrCouponUsed),
		errors.Is(err, ErrCouponHeld):
		return true
	}
	return false
}
