package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainpromo "innkeeper/internal/domain/promo"
)

func seedPromocode(t *testing.T, repo *PromoRepository, limit int) *domainpromo.Promocode {
	t.Helper()
	p := &domainpromo.Promocode{
		ID:            "p1",
		PropertyCode:  "GRAND",
		Code:          "SUMMER10",
		DiscountType:  domainpromo.PercentageDiscount,
		DiscountValue: 10,
		UseLimit:      limit,
		IsActive:      true,
	}
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func TestConsumeOnceConcurrentRespectsLimit(t *testing.T) {
	repo := NewPromoRepository()
	seedPromocode(t, repo, 5)

	const attempts = 40
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ConsumeOnce(context.Background(), "GRAND", "SUMMER10", fmt.Sprintf("c%d", i))
		}(i)
	}
	wg.Wait()

	var granted int
	for _, err := range errs {
		if err == nil {
			granted++
		} else {
			require.ErrorIs(t, err, domainpromo.ErrUsageLimitReached)
		}
	}
	require.Equal(t, 5, granted)

	p, err := repo.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, 5, p.CurrentUsage)
	require.Len(t, p.UsedBy, 5)
}

func TestConsumeOnceGuards(t *testing.T) {
	repo := NewPromoRepository()
	p := seedPromocode(t, repo, 1)
	p.IsActive = false
	require.NoError(t, repo.Save(context.Background(), p))

	_, err := repo.ConsumeOnce(context.Background(), "GRAND", "SUMMER10", "c1")
	require.ErrorIs(t, err, domainpromo.ErrCodeInactive)

	_, err = repo.ConsumeOnce(context.Background(), "GRAND", "NOPE", "c1")
	require.ErrorIs(t, err, domainpromo.ErrCodeNotFound)
}

func TestLedgerApplyKeepsCounterAndLedgerInAgreement(t *testing.T) {
	repo := NewPromoRepository()
	seedPromocode(t, repo, 3)
	ledger := domainpromo.PromocodeLedger{Repo: repo}

	const attempts = 12
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Apply(context.Background(), "GRAND", "SUMMER10",
				fmt.Sprintf("c%d", i), fmt.Sprintf("b%d", i), 200)
		}(i)
	}
	wg.Wait()

	var granted int
	for _, err := range errs {
		if err == nil {
			granted++
		}
	}
	require.Equal(t, 3, granted)
	require.Equal(t, 3, repo.AppliedCount("p1"))

	p, err := repo.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, 3, p.CurrentUsage)
}

func TestRestoreQuotaNeverGoesNegative(t *testing.T) {
	repo := NewPromoRepository()
	seedPromocode(t, repo, 2)

	_, err := repo.ConsumeOnce(context.Background(), "GRAND", "SUMMER10", "c1")
	require.NoError(t, err)

	require.NoError(t, repo.RestoreQuota(context.Background(), "p1"))
	require.NoError(t, repo.RestoreQuota(context.Background(), "p1"))

	p, err := repo.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, 0, p.CurrentUsage)
}

func TestUsageLedgerLookups(t *testing.T) {
	repo := NewPromoRepository()
	now := time.Now().UTC()
	usage := domainpromo.Usage{
		ID:          "u1",
		PromoCodeID: "p1",
		BookingID:   "b1",
		CustomerID:  "c1",
		Status:      domainpromo.UsageApplied,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.InsertUsage(context.Background(), usage))

	got, err := repo.UsageByBooking(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	count, err := repo.CountAppliedByCustomer(context.Background(), "p1", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, repo.UpdateUsageStatus(context.Background(), "u1", domainpromo.UsageCancelled))
	count, err = repo.CountAppliedByCustomer(context.Background(), "p1", "c1")
	require.NoError(t, err)
	require.Zero(t, count)

	require.ErrorIs(t, repo.UpdateUsageStatus(context.Background(), "missing", domainpromo.UsageCancelled), domainpromo.ErrUsageNotFound)
}

func TestCouponSingleUseLifecycle(t *testing.T) {
	repo := NewCouponRepository()
	require.NoError(t, repo.Save(context.Background(), &domainpromo.Coupon{
		ID:                 "cp1",
		Code:               "WELCOME",
		DiscountPercentage: 15,
		State:              domainpromo.CouponFresh,
	}))

	claimed, err := repo.Claim(context.Background(), "welcome", "c1")
	require.NoError(t, err)
	require.Equal(t, domainpromo.CouponAvailable, claimed.State)

	// Another customer cannot take over a held coupon.
	_, err = repo.Claim(context.Background(), "WELCOME", "c2")
	require.ErrorIs(t, err, domainpromo.ErrCouponHeld)

	// The holder may re-validate while the coupon is held.
	_, err = repo.Claim(context.Background(), "WELCOME", "c1")
	require.NoError(t, err)

	consumed, err := repo.Consume(context.Background(), "WELCOME", "c1")
	require.NoError(t, err)
	require.Equal(t, domainpromo.CouponConsumed, consumed.State)

	_, err = repo.Claim(context.Background(), "WELCOME", "c1")
	require.ErrorIs(t, err, domainpromo.ErrCouponUsed)
	_, err = repo.Consume(context.Background(), "WELCOME", "c1")
	require.ErrorIs(t, err, domainpromo.ErrCouponUsed)
}

func TestCompositeSourceResolution(t *testing.T) {
	promoRepo := NewPromoRepository()
	couponRepo := NewCouponRepository()
	seedPromocode(t, promoRepo, 0)
	require.NoError(t, couponRepo.Save(context.Background(), &domainpromo.Coupon{
		ID:                 "cp1",
		Code:               "WELCOME",
		DiscountPercentage: 15,
		State:              domainpromo.CouponFresh,
	}))

	source := domainpromo.CompositeSource{
		Primary: domainpromo.PromocodeLedger{Repo: promoRepo},
		Legacy:  domainpromo.CouponLedger{Repo: couponRepo},
	}

	d, err := source.Validate(context.Background(), "GRAND", "SUMMER10", "c1", 200)
	require.NoError(t, err)
	require.InDelta(t, 20.0, d.Amount, 1e-9)

	d, err = source.Validate(context.Background(), "GRAND", "WELCOME", "c1", 200)
	require.NoError(t, err)
	require.Equal(t, domainpromo.PercentageDiscount, d.DiscountType)
	require.InDelta(t, 30.0, d.Amount, 1e-9)

	_, err = source.Validate(context.Background(), "GRAND", "NOPE", "c1", 200)
	require.ErrorIs(t, err, domainpromo.ErrCodeNotFound)
}
