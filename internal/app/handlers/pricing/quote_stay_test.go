package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domaininventory "innkeeper/internal/domain/inventory"
	domainpromo "innkeeper/internal/domain/promo"
	domainrateplan "innkeeper/internal/domain/rateplan"
	domaintax "innkeeper/internal/domain/tax"
	"innkeeper/internal/infra/storage/memory"
)

type quoteEnv struct {
	inventory *memory.InventoryLedger
	ratePlans *memory.RatePlanStore
	taxes     *memory.TaxRepository
	promos    *memory.PromoRepository
	providers *memory.ProviderRepository
	groupID   string
	handler   *QuoteStayHandler
}

// newQuoteEnv seeds a two-night stay for hotel GRAND, room type DLX, priced
// 100 and 150 under the BAR plan, with a 10% room-rate tax group.
func newQuoteEnv(t *testing.T) *quoteEnv {
	t.Helper()
	env := &quoteEnv{
		inventory: memory.NewInventoryLedger(),
		ratePlans: memory.NewRatePlanStore(),
		taxes:     memory.NewTaxRepository(),
		promos:    memory.NewPromoRepository(),
		providers: memory.NewProviderRepository(),
	}
	ctx := context.Background()

	state, err := env.providers.SwapSource(ctx, "GRAND", "Wincloud")
	require.NoError(t, err)

	for i, amount := range []float64{100, 150} {
		date := time.Date(2026, 9, 10+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, env.inventory.Upsert(ctx,
			domaininventory.NewKey("GRAND", "DLX", date),
			domaininventory.Counts{Available: 3}, "Wincloud", state.Epoch))
		require.NoError(t, env.ratePlans.Upsert(ctx,
			domainrateplan.NewKey("GRAND", "DLX", "BAR", date),
			domainrateplan.Charge{
				HotelCode:    "GRAND",
				RoomTypeCode: "DLX",
				RatePlanCode: "BAR",
				Date:         date,
				BaseByGuest:  []domainrateplan.GuestAmount{{AmountBeforeTax: amount, NumberOfGuests: 2}},
				Days:         domainrateplan.AllDays(),
				SourceName:   "Wincloud",
				Epoch:        state.Epoch,
			}))
	}

	rule, err := domaintax.NewRule("GRAND", "VAT", domaintax.Percentage, 10, domaintax.OnRoomRate)
	require.NoError(t, err)
	require.NoError(t, env.taxes.SaveRule(ctx, rule))
	group, err := domaintax.NewGroup("GRAND", "Standard", []domaintax.Rule{rule})
	require.NoError(t, err)
	require.NoError(t, env.taxes.SaveGroup(ctx, group))
	env.groupID = group.ID

	couponRepo := memory.NewCouponRepository()
	factory := memory.Factory{
		InventoryRepo: env.inventory,
		RatePlanRepo:  env.ratePlans,
		TaxRepo:       env.taxes,
		PromoRepo:     env.promos,
		CouponRepo:    couponRepo,
		ProviderRepo:  env.providers,
	}
	env.handler = &QuoteStayHandler{
		UoWFactory: factory,
		Discounts: domainpromo.CompositeSource{
			Primary: domainpromo.PromocodeLedger{Repo: env.promos},
			Legacy:  domainpromo.CouponLedger{Repo: couponRepo},
		},
	}
	return env
}

func (e *quoteEnv) query() QuoteStayQuery {
	return QuoteStayQuery{
		HotelCode:    "GRAND",
		RoomTypeCode: "DLX",
		RatePlanCode: "BAR",
		CheckIn:      time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:     time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Guests:       2,
		Rooms:        1,
		TaxGroupID:   e.groupID,
		CustomerID:   "c1",
	}
}

func (e *quoteEnv) seedPromo(t *testing.T, active bool) {
	t.Helper()
	require.NoError(t, e.promos.Save(context.Background(), &domainpromo.Promocode{
		ID:            "p1",
		PropertyCode:  "GRAND",
		Code:          "SUMMER10",
		DiscountType:  domainpromo.PercentageDiscount,
		DiscountValue: 10,
		IsActive:      active,
	}))
}

func TestQuoteStayComputesTaxedTotal(t *testing.T) {
	env := newQuoteEnv(t)

	result, err := env.handler.Handle(context.Background(), env.query())
	require.NoError(t, err)

	require.True(t, result.Available)
	require.InDelta(t, 250.0, result.Quote.Breakdown.TotalBaseAmount, 1e-9)
	require.InDelta(t, 25.0, result.Quote.TotalTax, 1e-9)
	require.InDelta(t, 275.0, result.Quote.TotalAmount, 1e-9)
	require.Equal(t, 2, result.Quote.Breakdown.NumberOfNights)
	require.Len(t, result.Quote.DailyBreakdown, 2)
	require.InDelta(t, 100.0, result.Quote.DailyBreakdown[0].BaseAmount, 1e-9)
	require.InDelta(t, 150.0, result.Quote.DailyBreakdown[1].BaseAmount, 1e-9)
}

func TestQuoteStayAppliesEligiblePromo(t *testing.T) {
	env := newQuoteEnv(t)
	env.seedPromo(t, true)

	q := env.query()
	q.PromoCode = "SUMMER10"
	result, err := env.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	require.True(t, result.Promo.Applied)
	require.InDelta(t, 25.0, result.Quote.PromoDiscount, 1e-9)
	require.InDelta(t, 250.0, result.Quote.TotalAmount, 1e-9)
	require.Equal(t, "SUMMER10", result.Quote.PromoCode)
}

func TestQuoteStayDegradesOnIneligiblePromo(t *testing.T) {
	// An ineligible code downgrades the quote to no-discount and reports the
	// reason; it does not fail the request.
	env := newQuoteEnv(t)
	env.seedPromo(t, false)

	q := env.query()
	q.PromoCode = "SUMMER10"
	result, err := env.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	require.False(t, result.Promo.Applied)
	require.NotEmpty(t, result.Promo.Reason)
	require.Zero(t, result.Quote.PromoDiscount)
	require.InDelta(t, 275.0, result.Quote.TotalAmount, 1e-9)
}

func TestQuoteStayQuoteDoesNotConsumeQuota(t *testing.T) {
	env := newQuoteEnv(t)
	env.seedPromo(t, true)

	q := env.query()
	q.PromoCode = "SUMMER10"
	for i := 0; i < 3; i++ {
		_, err := env.handler.Handle(context.Background(), q)
		require.NoError(t, err)
	}

	p, err := env.promos.ByCode(context.Background(), "GRAND", "SUMMER10")
	require.NoError(t, err)
	require.Zero(t, p.CurrentUsage)
}

func TestQuoteStayUnavailableNightStillPrices(t *testing.T) {
	env := newQuoteEnv(t)
	_, err := env.inventory.ReleaseStale(context.Background(), "GRAND", 99)
	require.NoError(t, err)

	result, err := env.handler.Handle(context.Background(), env.query())
	require.NoError(t, err)

	require.False(t, result.Available)
	require.InDelta(t, 275.0, result.Quote.TotalAmount, 1e-9)
}

func TestQuoteStayMissingChargeFailsWholeQuote(t *testing.T) {
	env := newQuoteEnv(t)

	q := env.query()
	q.CheckOut = time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)
	_, err := env.handler.Handle(context.Background(), q)
	require.ErrorIs(t, err, domainrateplan.ErrChargeNotFound)
}

func TestQuoteStayTaxOverrideRecomputesPercentage(t *testing.T) {
	env := newQuoteEnv(t)
	env.seedPromo(t, true)

	override := 30.0
	q := env.query()
	q.ReservationTaxValue = &override
	q.PromoCode = "SUMMER10"
	result, err := env.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	require.Empty(t, result.Quote.TaxLines)
	require.InDelta(t, 30.0, result.Quote.TotalTax, 1e-9)
	require.InDelta(t, 28.0, result.Quote.PromoDiscount, 1e-9)
	require.InDelta(t, 252.0, result.Quote.TotalAmount, 1e-9)
}

func TestQuoteStayMissingGroupYieldsZeroTax(t *testing.T) {
	env := newQuoteEnv(t)

	q := env.query()
	q.TaxGroupID = "gone"
	result, err := env.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	require.Zero(t, result.Quote.TotalTax)
	require.InDelta(t, 250.0, result.Quote.TotalAmount, 1e-9)
}
