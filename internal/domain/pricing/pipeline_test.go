package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"innkeeper/internal/domain/promo"
	"innkeeper/internal/domain/tax"
)

// stubTaxes evaluates a fixed rule set for any group id.
type stubTaxes struct {
	rules []tax.Rule
}

func (s stubTaxes) EvaluateGroup(ctx context.Context, groupID string, basePrice, totalPrice float64) (tax.Evaluation, error) {
	return tax.Evaluate(s.rules, basePrice, totalPrice), nil
}

func threeNights(amount float64) []NightRate {
	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	nights := make([]NightRate, 3)
	for i := range nights {
		nights[i] = NightRate{Date: start.AddDate(0, 0, i), RatePlanCode: "BAR", Amount: amount}
	}
	return nights
}

func cityTaxes() stubTaxes {
	return stubTaxes{rules: []tax.Rule{
		{Name: "VAT", Type: tax.Percentage, Value: 10, ApplicableOn: tax.OnRoomRate},
		{Name: "Resort Fee", Type: tax.Fixed, Value: 20},
	}}
}

func TestComputeWithTaxGroup(t *testing.T) {
	p := Pipeline{Taxes: cityTaxes()}

	q, err := p.Compute(context.Background(), threeNights(100), 1, ComputedTax{GroupID: "g1"}, nil)
	require.NoError(t, err)

	require.InDelta(t, 50.0, q.TotalTax, 1e-9)
	require.Len(t, q.TaxLines, 2)
	require.InDelta(t, 350.0, q.PriceWithTax, 1e-9)
	require.InDelta(t, 350.0, q.TotalAmount, 1e-9)
	require.Equal(t, 3, q.Breakdown.NumberOfNights)
	require.InDelta(t, 300.0, q.Breakdown.TotalBaseAmount, 1e-9)
	require.InDelta(t, 116.67, q.Breakdown.AveragePerNight, 1e-9)
}

func TestComputeScalesByRooms(t *testing.T) {
	p := Pipeline{}

	q, err := p.Compute(context.Background(), threeNights(100), 2, ComputedTax{}, nil)
	require.NoError(t, err)

	require.InDelta(t, 600.0, q.Breakdown.TotalBaseAmount, 1e-9)
	require.InDelta(t, 600.0, q.TotalAmount, 1e-9)
	for _, d := range q.DailyBreakdown {
		require.InDelta(t, 200.0, d.BaseAmount, 1e-9)
	}
}

func TestComputeFlatPromo(t *testing.T) {
	p := Pipeline{Taxes: cityTaxes()}
	discount := &promo.AppliedDiscount{Code: "SAVE40", DiscountType: promo.FlatDiscount, Value: 40, Amount: 40}

	q, err := p.Compute(context.Background(), threeNights(100), 1, ComputedTax{GroupID: "g1"}, discount)
	require.NoError(t, err)

	require.InDelta(t, 40.0, q.PromoDiscount, 1e-9)
	require.Equal(t, "SAVE40", q.PromoCode)
	require.InDelta(t, 310.0, q.TotalAmount, 1e-9)
}

func TestComputeOverrideRecomputesPercentage(t *testing.T) {
	// With an explicit tax override the percentage applies to the taxed
	// price, not the pre-tax base the ledger validated against.
	p := Pipeline{}
	discount := &promo.AppliedDiscount{Code: "TEN", DiscountType: promo.PercentageDiscount, Value: 10, Amount: 30}

	q, err := p.Compute(context.Background(), threeNights(100), 1, OverrideTax{Amount: 25}, discount)
	require.NoError(t, err)

	require.InDelta(t, 325.0, q.PriceWithTax, 1e-9)
	require.InDelta(t, 32.5, q.PromoDiscount, 1e-9)
	require.InDelta(t, 292.5, q.TotalAmount, 1e-9)
}

func TestComputeOverridePercentageRespectsCap(t *testing.T) {
	p := Pipeline{}
	discount := &promo.AppliedDiscount{Code: "TEN", DiscountType: promo.PercentageDiscount, Value: 10, MaxAmount: 20, Amount: 20}

	q, err := p.Compute(context.Background(), threeNights(100), 1, OverrideTax{Amount: 25}, discount)
	require.NoError(t, err)

	require.InDelta(t, 20.0, q.PromoDiscount, 1e-9)
	require.InDelta(t, 305.0, q.TotalAmount, 1e-9)
}

func TestComputeOverrideFlatUsesLiteralValue(t *testing.T) {
	p := Pipeline{}
	discount := &promo.AppliedDiscount{Code: "FLAT", DiscountType: promo.FlatDiscount, Value: 40, Amount: 35}

	q, err := p.Compute(context.Background(), threeNights(100), 1, OverrideTax{Amount: 25}, discount)
	require.NoError(t, err)

	require.InDelta(t, 40.0, q.PromoDiscount, 1e-9)
	require.InDelta(t, 285.0, q.TotalAmount, 1e-9)
}

func TestComputeTotalNeverNegative(t *testing.T) {
	p := Pipeline{}
	discount := &promo.AppliedDiscount{Code: "HUGE", DiscountType: promo.FlatDiscount, Value: 1000, Amount: 1000}

	q, err := p.Compute(context.Background(), threeNights(100), 1, ComputedTax{}, discount)
	require.NoError(t, err)

	require.InDelta(t, 300.0, q.PromoDiscount, 1e-9)
	require.InDelta(t, 0.0, q.TotalAmount, 1e-9)
	for _, d := range q.DailyBreakdown {
		require.GreaterOrEqual(t, d.TotalForAllRooms, 0.0)
	}
}

func TestDailyBreakdownReconcilesWithTotal(t *testing.T) {
	// Awkward nightly amounts force rounding residue; the last night must
	// absorb it so the daily sum matches the stay total exactly.
	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	nights := []NightRate{
		{Date: start, Amount: 99.99},
		{Date: start.AddDate(0, 0, 1), Amount: 101.37},
		{Date: start.AddDate(0, 0, 2), Amount: 98.64},
		{Date: start.AddDate(0, 0, 3), Amount: 103.01},
	}
	p := Pipeline{Taxes: stubTaxes{rules: []tax.Rule{
		{Name: "VAT", Type: tax.Percentage, Value: 13.5, ApplicableOn: tax.OnRoomRate},
	}}}
	discount := &promo.AppliedDiscount{Code: "SEVEN", DiscountType: promo.PercentageDiscount, Value: 7, Amount: 28.21}

	q, err := p.Compute(context.Background(), nights, 1, ComputedTax{GroupID: "g1"}, discount)
	require.NoError(t, err)

	var sum float64
	for _, d := range q.DailyBreakdown {
		sum += d.TotalForAllRooms
	}
	require.InDelta(t, q.TotalAmount, sum, 0.001)
}

func TestComputeRejectsEmptyStay(t *testing.T) {
	p := Pipeline{}

	_, err := p.Compute(context.Background(), nil, 1, ComputedTax{}, nil)
	require.ErrorIs(t, err, ErrNoNights)

	_, err = p.Compute(context.Background(), threeNights(100), 0, ComputedTax{}, nil)
	require.ErrorIs(t, err, ErrInvalidRooms)
}
