package promo

import (
	"context"
	"errors"
)

var (
	ErrCouponNotFound = errors.New("promo: coupon not found")
	ErrCouponUsed     = errors.New("promo: coupon already used")
	ErrCouponHeld     = errors.New("promo: coupon held by another customer")
)

type CouponState string

const (
	// CouponFresh means the code has never been validated.
	CouponFresh CouponState = "false"
	// CouponAvailable means the code was validated for a customer and is
	// reserved for them until consumed.
	CouponAvailable CouponState = "available"
	// CouponConsumed means the code has been redeemed.
	CouponConsumed CouponState = "true"
)

// Coupon is the legacy single-use discount model. A code binds to the first
// customer that validates it and is never reused afterwards.
type Coupon struct {
	ID                 string
	Code               string
	DiscountPercentage float64
	State              CouponState
	CustomerID         string
}

type CouponRepository interface {
	Save(ctx context.Context, c *Coupon) error
	ByCode(ctx context.Context, code string) (*Coupon, error)
	// Claim transitions a fresh coupon to available for the customer, or
	// re-reads an available one held by the same customer. Conditional on the
	// stored state so two customers cannot claim the same code.
	Claim(ctx context.Context, code, customerID string) (*Coupon, error)
	// Consume transitions an available coupon held by the customer to
	// consumed. Conditional update; a lost race surfaces as ErrCouponHeld.
	Consume(ctx context.Context, code, customerID string) (*Coupon, error)
}

// EligibleFor checks whether the coupon can discount a booking for the
// customer.
func (c *Coupon) EligibleFor(customerID string) error {
	switch c.State {
	case CouponConsumed:
		return ErrCouponUsed
	case CouponAvailable:
		if c.CustomerID != customerID {
			return ErrCouponHeld
		}
	}
	return nil
}
