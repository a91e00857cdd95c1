package promo

import (
	"context"
	"time"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/middleware"
	"innkeeper/internal/app/outbox"
	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
	"innkeeper/internal/domain/shared/events"
	"innkeeper/internal/domain/shared/money"
)

const applyPromoKey = "promo.apply"

type ApplyPromoCommand struct {
	CommandID       string
	PropertyCode    string
	Code            string
	CustomerID      string
	BookingID       string
	BookingAmount   float64
	IdempotencyKeyV string
}

func (c ApplyPromoCommand) Key() string { return applyPromoKey }

func (c ApplyPromoCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ApplyPromoCommand) ResultPrototype() any { return &ApplyPromoResult{} }

type ApplyPromoResult struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

// ApplyPromoHandler consumes a code for a booking. Re-validation, the
// conditional counter increment, and the usage-ledger insert all run inside
// one unit of work; no partial state survives a failure.
type ApplyPromoHandler struct {
	UoWFactory uow.UoWFactory
	Discounts  func(unit uow.UnitOfWork) domainpromo.Source
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *ApplyPromoHandler) Handle(ctx context.Context, cmd ApplyPromoCommand) (*ApplyPromoResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	source := h.Discounts(unit)
	d, err := source.Apply(ctx, cmd.PropertyCode, cmd.Code, cmd.CustomerID, cmd.BookingID, cmd.BookingAmount)
	if err != nil {
		return nil, err
	}

	ev := domainpromo.NewPromoApplied(cmd.Code, cmd.CustomerID, cmd.BookingID, d.Amount, time.Now().UTC())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &ApplyPromoResult{
		Code:           d.Code,
		DiscountAmount: d.Amount,
		FinalAmount:    money.ClampFloor(money.Round2(cmd.BookingAmount-d.Amount), 0),
	}, nil
}

func (h *ApplyPromoHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ApplyPromoCommand, *ApplyPromoResult] = (*ApplyPromoHandler)(nil)
var _ middleware.IdempotentCommand = (*ApplyPromoCommand)(nil)
