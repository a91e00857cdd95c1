package promo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
	"innkeeper/internal/infra/storage/memory"
)

type promoEnv struct {
	promos  *memory.PromoRepository
	coupons *memory.CouponRepository
	outbox  *memory.Outbox
	apply   *ApplyPromoHandler
	cancel  *CancelUsageHandler
}

func newPromoEnv(t *testing.T) *promoEnv {
	t.Helper()
	env := &promoEnv{
		promos:  memory.NewPromoRepository(),
		coupons: memory.NewCouponRepository(),
		outbox:  memory.NewOutbox(),
	}
	factory := memory.Factory{
		InventoryRepo: memory.NewInventoryLedger(),
		RatePlanRepo:  memory.NewRatePlanStore(),
		TaxRepo:       memory.NewTaxRepository(),
		PromoRepo:     env.promos,
		CouponRepo:    env.coupons,
		ProviderRepo:  memory.NewProviderRepository(),
	}
	discounts := func(unit uow.UnitOfWork) domainpromo.Source {
		return domainpromo.CompositeSource{
			Primary: domainpromo.PromocodeLedger{Repo: unit.Promos()},
			Legacy:  domainpromo.CouponLedger{Repo: unit.Coupons()},
		}
	}
	env.apply = &ApplyPromoHandler{UoWFactory: factory, Discounts: discounts, Outbox: env.outbox}
	env.cancel = &CancelUsageHandler{UoWFactory: factory, Outbox: env.outbox}
	return env
}

func (e *promoEnv) seed(t *testing.T, limit int) {
	t.Helper()
	require.NoError(t, e.promos.Save(context.Background(), &domainpromo.Promocode{
		ID:            "p1",
		PropertyCode:  "GRAND",
		Code:          "SUMMER10",
		DiscountType:  domainpromo.PercentageDiscount,
		DiscountValue: 10,
		UseLimit:      limit,
		IsActive:      true,
	}))
}

func applyCmd(bookingID, customerID string) ApplyPromoCommand {
	return ApplyPromoCommand{
		CommandID:     "cmd-" + bookingID,
		PropertyCode:  "GRAND",
		Code:          "SUMMER10",
		CustomerID:    customerID,
		BookingID:     bookingID,
		BookingAmount: 200,
	}
}

func TestApplyPromoConsumesQuotaAndWritesLedger(t *testing.T) {
	env := newPromoEnv(t)
	env.seed(t, 5)

	result, err := env.apply.Handle(context.Background(), applyCmd("b1", "c1"))
	require.NoError(t, err)
	require.Equal(t, "SUMMER10", result.Code)
	require.InDelta(t, 20.0, result.DiscountAmount, 1e-9)
	require.InDelta(t, 180.0, result.FinalAmount, 1e-9)

	p, err := env.promos.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, 1, p.CurrentUsage)
	require.Equal(t, []string{"c1"}, p.UsedBy)

	usage, err := env.promos.UsageByBooking(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, domainpromo.UsageApplied, usage.Status)
	require.InDelta(t, 200.0, usage.OriginalAmount, 1e-9)
	require.InDelta(t, 180.0, usage.FinalAmount, 1e-9)

	records := env.outbox.Records()
	require.Len(t, records, 1)
	require.Equal(t, "promo.applied", records[0].Name)
}

func TestApplyPromoStopsAtLimit(t *testing.T) {
	env := newPromoEnv(t)
	env.seed(t, 1)

	_, err := env.apply.Handle(context.Background(), applyCmd("b1", "c1"))
	require.NoError(t, err)

	_, err = env.apply.Handle(context.Background(), applyCmd("b2", "c2"))
	require.ErrorIs(t, err, domainpromo.ErrUsageLimitReached)

	require.Equal(t, 1, env.promos.AppliedCount("p1"))
}

func TestApplyPromoUnknownCode(t *testing.T) {
	env := newPromoEnv(t)

	_, err := env.apply.Handle(context.Background(), applyCmd("b1", "c1"))
	require.ErrorIs(t, err, domainpromo.ErrCodeNotFound)
}

func TestApplyPromoLegacyCoupon(t *testing.T) {
	env := newPromoEnv(t)
	require.NoError(t, env.coupons.Save(context.Background(), &domainpromo.Coupon{
		ID:                 "cp1",
		Code:               "WELCOME",
		DiscountPercentage: 15,
		State:              domainpromo.CouponFresh,
	}))

	cmd := applyCmd("b1", "c1")
	cmd.Code = "WELCOME"
	result, err := env.apply.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.InDelta(t, 30.0, result.DiscountAmount, 1e-9)

	c, err := env.coupons.ByCode(context.Background(), "WELCOME")
	require.NoError(t, err)
	require.Equal(t, domainpromo.CouponConsumed, c.State)

	_, err = env.apply.Handle(context.Background(), cmd)
	require.ErrorIs(t, err, domainpromo.ErrCouponUsed)
}

func TestCancelUsageFlipsStatusWithoutFreeingQuota(t *testing.T) {
	env := newPromoEnv(t)
	env.seed(t, 5)

	_, err := env.apply.Handle(context.Background(), applyCmd("b1", "c1"))
	require.NoError(t, err)

	result, err := env.cancel.Handle(context.Background(), CancelUsageCommand{
		CommandID: "cmd-cancel",
		BookingID: "b1",
		Reason:    "guest cancelled",
	})
	require.NoError(t, err)
	require.Equal(t, string(domainpromo.UsageCancelled), result.Status)

	usage, err := env.promos.UsageByBooking(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, domainpromo.UsageCancelled, usage.Status)

	// Quota stays consumed unless explicitly restored.
	p, err := env.promos.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, 1, p.CurrentUsage)
}

func TestCancelUsageRestoresQuotaOnRequest(t *testing.T) {
	env := newPromoEnv(t)
	env.seed(t, 5)

	_, err := env.apply.Handle(context.Background(), applyCmd("b1", "c1"))
	require.NoError(t, err)

	_, err = env.cancel.Handle(context.Background(), CancelUsageCommand{
		CommandID:    "cmd-cancel",
		BookingID:    "b1",
		Reason:       "rebooked",
		RestoreQuota: true,
	})
	require.NoError(t, err)

	p, err := env.promos.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Zero(t, p.CurrentUsage)
}

func TestCancelUsageUnknownBooking(t *testing.T) {
	env := newPromoEnv(t)

	_, err := env.cancel.Handle(context.Background(), CancelUsageCommand{BookingID: "nope"})
	require.ErrorIs(t, err, domainpromo.ErrUsageNotFound)
}
