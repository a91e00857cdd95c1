package pricing

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/domain/promo"
	"innkeeper/internal/domain/shared/money"
	"innkeeper/internal/domain/tax"
)

var (
	ErrNoNights     = errors.New("pricing: stay has no nights to price")
	ErrInvalidRooms = errors.New("pricing: room count must be positive")
)

// TaxSource selects how a quote's tax is produced. A reservation that carries
// a persisted explicit tax value uses OverrideTax; everything else computes
// from the hotel's tax group. Discount application is shared between the two,
// the variant only changes the percentage-discount base.
type TaxSource interface {
	isTaxSource()
}

// ComputedTax evaluates the hotel's tax group against the base price.
type ComputedTax struct {
	GroupID string
}

// OverrideTax uses a flat, already-decided tax amount and skips the rules.
type OverrideTax struct {
	Amount float64
}

func (ComputedTax) isTaxSource() {}
func (OverrideTax) isTaxSource() {}

// TaxEvaluator is the pipeline's view of the tax module. A missing group must
// yield a zero evaluation, not an error.
type TaxEvaluator interface {
	EvaluateGroup(ctx context.Context, groupID string, basePrice, totalPrice float64) (tax.Evaluation, error)
}

// NightRate is one priced night of the stay: the per-room pre-tax amount the
// selected rate-plan charge yields for the guest count.
type NightRate struct {
	Date         time.Time
	RatePlanCode string
	Amount       float64
}

// DailyAmount is one night of the guest-facing breakdown.
type DailyAmount struct {
	Date             time.Time
	BaseAmount       float64
	TaxAmount        float64
	DiscountAmount   float64
	TotalForAllRooms float64
}

// Breakdown summarizes the stay totals.
type Breakdown struct {
	TotalBaseAmount float64
	TotalAmount     float64
	AveragePerNight float64
	NumberOfNights  int
}

// Quote is the fully priced stay the orchestrator returns.
type Quote struct {
	TaxLines       []tax.Line
	TotalTax       float64
	PromoDiscount  float64
	PromoCode      string
	TotalAmount    float64
	PriceWithTax   float64
	Breakdown      Breakdown
	DailyBreakdown []DailyAmount
}

// Pipeline composes base price, tax, and discount in the fixed order the
// booking flow requires.
type Pipeline struct {
	Taxes TaxEvaluator
}

// Compute prices a stay. nights carries the per-room nightly amounts in stay
// order, rooms scales them, source picks the tax path, and discount (may be
// nil) is the code the guest presented, already validated by the promo
// ledger.
func (p Pipeline) Compute(ctx context.Context, nights []NightRate, rooms int, source TaxSource, discount *promo.AppliedDiscount) (Quote, error) {
	if len(nights) == 0 {
		return Quote{}, ErrNoNights
	}
	if rooms <= 0 {
		return Quote{}, ErrInvalidRooms
	}

	var base float64
	nightTotals := make([]float64, len(nights))
	for i, n := range nights {
		nightTotals[i] = money.Round2(n.Amount * float64(rooms))
		base = money.Round2(base + nightTotals[i])
	}

	var q Quote
	switch src := source.(type) {
	case OverrideTax:
		q.TotalTax = money.Round2(src.Amount)
	case ComputedTax:
		if src.GroupID != "" && p.Taxes != nil {
			ev, err := p.Taxes.EvaluateGroup(ctx, src.GroupID, base, base)
			if err != nil {
				return Quote{}, err
			}
			q.TaxLines = ev.Lines
			q.TotalTax = ev.TotalTax
		}
	}

	q.PriceWithTax = money.Round2(base + q.TotalTax)

	if discount != nil {
		if _, override := source.(OverrideTax); override && discount.DiscountType == promo.PercentageDiscount {
			// With an explicit tax override the percentage is recomputed
			// against the taxed price, not the pre-tax base it was validated
			// on.
			amount := money.Percent(q.PriceWithTax, discount.Value)
			if discount.MaxAmount > 0 {
				amount = money.Min(amount, discount.MaxAmount)
			}
			q.PromoDiscount = money.Min(amount, q.PriceWithTax)
		} else if _, override := source.(OverrideTax); override && discount.DiscountType == promo.FlatDiscount {
			q.PromoDiscount = money.Min(money.Round2(discount.Value), q.PriceWithTax)
		} else {
			q.PromoDiscount = money.Min(discount.Amount, q.PriceWithTax)
		}
		q.PromoCode = discount.Code
	}

	q.TotalAmount = money.ClampFloor(money.Round2(q.PriceWithTax-q.PromoDiscount), 0)

	q.DailyBreakdown = distributeDaily(nights, nightTotals, base, q.TotalTax, q.PromoDiscount, q.TotalAmount)
	q.Breakdown = Breakdown{
		TotalBaseAmount: base,
		TotalAmount:     q.TotalAmount,
		AveragePerNight: money.Round2(q.TotalAmount / float64(len(nights))),
		NumberOfNights:  len(nights),
	}
	return q, nil
}

// distributeDaily spreads tax and discount across nights proportionally to
// each night's share of the pre-tax amount. The last night absorbs the
// rounding residue so the daily sum reconciles with the total.
func distributeDaily(nights []NightRate, nightTotals []float64, base, totalTax, totalDiscount, totalAmount float64) []DailyAmount {
	daily := make([]DailyAmount, len(nights))
	var runningTotal float64
	for i := range nights {
		d := DailyAmount{
			Date:           nights[i].Date,
			BaseAmount:     nightTotals[i],
			TaxAmount:      money.Share(totalTax, nightTotals[i], base),
			DiscountAmount: money.Share(totalDiscount, nightTotals[i], base),
		}
		d.TotalForAllRooms = money.ClampFloor(money.Round2(d.BaseAmount+d.TaxAmount-d.DiscountAmount), 0)
		if i == len(nights)-1 {
			residual := money.Round2(totalAmount - runningTotal)
			d.TotalForAllRooms = money.ClampFloor(residual, 0)
		}
		runningTotal = money.Round2(runningTotal + d.TotalForAllRooms)
		daily[i] = d
	}
	return daily
}
