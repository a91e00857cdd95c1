package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domainpromo "innkeeper/internal/domain/promo"
)

// PromoRepository keeps promocodes and their usage ledger in memory. The
// consumption guard runs under one lock, mirroring the conditional update
// the Mongo implementation pushes into the database.
type PromoRepository struct {
	mu     sync.Mutex
	codes  map[string]*domainpromo.Promocode
	usages map[string]domainpromo.Usage
}

func NewPromoRepository() *PromoRepository {
	return &PromoRepository{
		codes:  make(map[string]*domainpromo.Promocode),
		usages: make(map[string]domainpromo.Usage),
	}
}

func promoKey(propertyCode, code string) string {
	return propertyCode + "/" + strings.ToUpper(code)
}

func (r *PromoRepository) Save(ctx context.Context, p *domainpromo.Promocode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.codes[promoKey(p.PropertyCode, p.Code)] = &clone
	return nil
}

func (r *PromoRepository) ByCode(ctx context.Context, propertyCode, code string) (*domainpromo.Promocode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.codes[promoKey(propertyCode, code)]
	if !ok {
		return nil, domainpromo.ErrCodeNotFound
	}
	clone := *p
	clone.UsedBy = append([]string(nil), p.UsedBy...)
	return &clone, nil
}

func (r *PromoRepository) ConsumeOnce(ctx context.Context, propertyCode, code, customerID string) (*domainpromo.Promocode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.codes[promoKey(propertyCode, code)]
	if !ok {
		return nil, domainpromo.ErrCodeNotFound
	}
	// Guard and increment under the same lock: this is the decision point
	// for the shared limit, not the validation read that preceded it.
	if !p.IsActive {
		return nil, domainpromo.ErrCodeInactive
	}
	if p.UseLimit > 0 && p.CurrentUsage >= p.UseLimit {
		return nil, domainpromo.ErrUsageLimitReached
	}
	p.CurrentUsage++
	seen := false
	for _, id := range p.UsedBy {
		if id == customerID {
			seen = true
			break
		}
	}
	if !seen {
		p.UsedBy = append(p.UsedBy, customerID)
	}
	clone := *p
	clone.UsedBy = append([]string(nil), p.UsedBy...)
	return &clone, nil
}

func (r *PromoRepository) InsertUsage(ctx context.Context, usage domainpromo.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages[usage.ID] = usage
	return nil
}

func (r *PromoRepository) UsageByBooking(ctx context.Context, bookingID string) (*domainpromo.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usages {
		if u.BookingID == bookingID {
			out := u
			return &out, nil
		}
	}
	return nil, domainpromo.ErrUsageNotFound
}

func (r *PromoRepository) CountAppliedByCustomer(ctx context.Context, promoCodeID, customerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.usages {
		if u.PromoCodeID == promoCodeID && u.CustomerID == customerID && u.Status == domainpromo.UsageApplied {
			count++
		}
	}
	return count, nil
}

func (r *PromoRepository) UpdateUsageStatus(ctx context.Context, usageID string, status domainpromo.UsageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usages[usageID]
	if !ok {
		return domainpromo.ErrUsageNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now().UTC()
	r.usages[usageID] = u
	return nil
}

func (r *PromoRepository) RestoreQuota(ctx context.Context, promoCodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.codes {
		if p.ID == promoCodeID {
			if p.CurrentUsage > 0 {
				p.CurrentUsage--
			}
			return nil
		}
	}
	return domainpromo.ErrCodeNotFound
}

// AppliedCount reports the number of applied ledger rows for a code; used by
// tests asserting counter/ledger agreement.
func (r *PromoRepository) AppliedCount(promoCodeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.usages {
		if u.PromoCodeID == promoCodeID && u.Status == domainpromo.UsageApplied {
			count++
		}
	}
	return count
}

// CouponRepository is the in-memory legacy coupon table.
type CouponRepository struct {
	mu      sync.Mutex
	coupons map[string]*domainpromo.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*domainpromo.Coupon)}
}

func (r *CouponRepository) Save(ctx context.Context, c *domainpromo.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.coupons[strings.ToUpper(c.Code)] = &clone
	return nil
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*domainpromo.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, domainpromo.ErrCouponNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *CouponRepository) Claim(ctx context.Context, code, customerID string) (*domainpromo.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, domainpromo.ErrCouponNotFound
	}
	switch c.State {
	case domainpromo.CouponConsumed:
		return nil, domainpromo.ErrCouponUsed
	case domainpromo.CouponAvailable:
		if c.CustomerID != customerID {
			return nil, domainpromo.ErrCouponHeld
		}
	default:
		c.State = domainpromo.CouponAvailable
		c.CustomerID = customerID
	}
	clone := *c
	return &clone, nil
}

func (r *CouponRepository) Consume(ctx context.Context, code, customerID string) (*domainpromo.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, domainpromo.ErrCouponNotFound
	}
	if c.State == domainpromo.CouponConsumed {
		return nil, domainpromo.ErrCouponUsed
	}
	if c.State == domainpromo.CouponAvailable && c.CustomerID != customerID {
		return nil, domainpromo.ErrCouponHeld
	}
	c.State = domainpromo.CouponConsumed
	c.CustomerID = customerID
	clone := *c
	return &clone, nil
}

var (
	_ domainpromo.Repository       = (*PromoRepository)(nil)
	_ domainpromo.CouponRepository = (*CouponRepository)(nil)
)
