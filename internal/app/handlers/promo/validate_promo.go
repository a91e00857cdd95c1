package promo

import (
	"context"
	"errors"

	"innkeeper/internal/app/queries"
	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
	"innkeeper/internal/domain/shared/money"
)

const validatePromoKey = "promo.validate"

type ValidatePromoQuery struct {
	PropertyCode  string
	Code          string
	CustomerID    string
	BookingAmount float64
}

func (q ValidatePromoQuery) Key() string { return validatePromoKey }

type ValidatePromoResult struct {
	Valid          bool    `json:"valid"`
	Reason         string  `json:"reason,omitempty"`
	DiscountType   string  `json:"discount_type,omitempty"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

var ErrUnitOfWorkRequired = errors.New("promo: unit of work required")

// ValidatePromoHandler runs the read-only eligibility checks without
// consuming quota.
type ValidatePromoHandler struct {
	UoWFactory uow.UoWFactory
	Discounts  func(unit uow.UnitOfWork) domainpromo.Source
}

func (h *ValidatePromoHandler) Handle(ctx context.Context, q ValidatePromoQuery) (*ValidatePromoResult, error) {
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

	source := h.Discounts(unit)
	d, err := source.Validate(ctx, q.PropertyCode, q.Code, q.CustomerID, q.BookingAmount)
	if err != nil {
		if domainpromo.IsEligibilityError(err) {
			return &ValidatePromoResult{Valid: false, Reason: err.Error(), FinalAmount: money.Round2(q.BookingAmount)}, nil
		}
		return nil, err
	}
	return &ValidatePromoResult{
		Valid:          true,
		DiscountType:   string(d.DiscountType),
		DiscountAmount: d.Amount,
		FinalAmount:    money.ClampFloor(money.Round2(q.BookingAmount-d.Amount), 0),
	}, nil
}

var _ queries.Handler[ValidatePromoQuery, *ValidatePromoResult] = (*ValidatePromoHandler)(nil)
