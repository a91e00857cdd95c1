package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innkeeper/internal/app/queries"
	"innkeeper/internal/app/uow"
	domaininventory "innkeeper/internal/domain/inventory"
	domainpricing "innkeeper/internal/domain/pricing"
	domainpromo "innkeeper/internal/domain/promo"
	domainrateplan "innkeeper/internal/domain/rateplan"
	"innkeeper/internal/domain/shared/staynights"
	domaintax "innkeeper/internal/domain/tax"
)

const quoteStayKey = "pricing.quote"

type QuoteStayQuery struct {
	HotelCode    string
	RoomTypeCode string
	RatePlanCode string
	CheckIn      time.Time
	CheckOut     time.Time
	Guests       int
	Rooms        int
	TaxGroupID   string
	// ReservationTaxValue carries a persisted explicit tax override from an
	// existing reservation. Nil means compute from the tax group.
	ReservationTaxValue *float64
	PromoCode           string
	CustomerID          string
}

func (q QuoteStayQuery) Key() string { return quoteStayKey }

// PromoStatus surfaces the discount validation outcome separately from the
// quote: an ineligible code degrades the quote to no-discount, it does not
// fail it.
type PromoStatus struct {
	Code    string `json:"code,omitempty"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

type QuoteStayResult struct {
	Quote     domainpricing.Quote
	Available bool
	Promo     PromoStatus
}

var ErrUnitOfWorkRequired = errors.New("pricing: unit of work required")

// QuoteStayHandler is the price reconciliation orchestrator: reads rates and
// inventory, consults the tax evaluator and the discount sources, and emits
// the per-night breakdown.
type QuoteStayHandler struct {
	UoWFactory uow.UoWFactory
	Discounts  domainpromo.Source
}

func (h *QuoteStayHandler) Handle(ctx context.Context, q QuoteStayQuery) (*QuoteStayResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer func() { _ = unit.Rollback(ctx) }()
	}

	stay, err := staynights.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	rooms := q.Rooms
	if rooms == 0 {
		rooms = 1
	}

	state, err := unit.Providers().SourceState(ctx, q.HotelCode)
	if err != nil {
		return nil, err
	}

	nights, err := h.nightRates(ctx, unit, q, stay, state.Epoch)
	if err != nil {
		return nil, err
	}

	available, err := domaininventory.CheckAvailability(ctx, unit.Inventory(),
		q.HotelCode, q.RoomTypeCode, stay.CheckIn, stay.CheckOut.AddDate(0, 0, -1), rooms, state.Epoch)
	if err != nil {
		return nil, err
	}

	var base float64
	for _, n := range nights {
		base += n.Amount * float64(rooms)
	}

	var source domainpricing.TaxSource
	if q.ReservationTaxValue != nil && *q.ReservationTaxValue >= 0 {
		source = domainpricing.OverrideTax{Amount: *q.ReservationTaxValue}
	} else {
		source = domainpricing.ComputedTax{GroupID: q.TaxGroupID}
	}

	result := &QuoteStayResult{Available: available}
	var discount *domainpromo.AppliedDiscount
	if q.PromoCode != "" && h.Discounts != nil {
		result.Promo.Code = q.PromoCode
		d, err := h.Discounts.Validate(ctx, q.HotelCode, q.PromoCode, q.CustomerID, base)
		switch {
		case err == nil:
			discount = &d
			result.Promo.Applied = true
		case domainpromo.IsEligibilityError(err):
			result.Promo.Reason = err.Error()
		default:
			return nil, err
		}
	}

	pipeline := domainpricing.Pipeline{Taxes: groupEvaluator{repo: unit.Taxes()}}
	quote, err := pipeline.Compute(ctx, nights, rooms, source, discount)
	if err != nil {
		return nil, err
	}
	result.Quote = quote
	return result, nil
}

// nightRates resolves the charge that prices each stay night. A night with
// no sellable charge rejects the whole quote.
func (h *QuoteStayHandler) nightRates(ctx context.Context, unit uow.UnitOfWork, q QuoteStayQuery, stay staynights.StayRange, epoch int64) ([]domainpricing.NightRate, error) {
	var nights []domainpricing.NightRate
	err := stay.EachNight(func(night time.Time) error {
		charges, err := unit.RatePlans().ChargesForDate(ctx, q.HotelCode, q.RoomTypeCode, night, epoch)
		if err != nil {
			return err
		}
		charge, err := domainrateplan.SelectCharge(charges, night, q.RatePlanCode)
		if err != nil {
			return fmt.Errorf("%w: %s", err, night.Format("2006-01-02"))
		}
		amount, err := charge.AmountForGuests(q.Guests)
		if err != nil {
			return err
		}
		nights = append(nights, domainpricing.NightRate{Date: night, RatePlanCode: charge.RatePlanCode, Amount: amount})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nights, nil
}

// groupEvaluator adapts the tax repository to the pipeline's evaluator
// contract. A missing group yields zero tax rather than failing the quote.
type groupEvaluator struct {
	repo domaintax.Repository
}

func (g groupEvaluator) EvaluateGroup(ctx context.Context, groupID string, basePrice, totalPrice float64) (domaintax.Evaluation, error) {
	ev, err := domaintax.EvaluateGroup(ctx, g.repo, groupID, basePrice, totalPrice)
	if err != nil {
		if errors.Is(err, domaintax.ErrGroupNotFound) {
			return domaintax.Evaluation{}, nil
		}
		return domaintax.Evaluation{}, err
	}
	return ev, nil
}

var _ queries.Handler[QuoteStayQuery, *QuoteStayResult] = (*QuoteStayHandler)(nil)
