package promo

import (
	"context"
	"time"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/outbox"
	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
	"innkeeper/internal/domain/shared/events"
)

const cancelUsageKey = "promo.cancel_usage"

type CancelUsageCommand struct {
	CommandID string
	BookingID string
	Reason    string
	// RestoreQuota decrements the code's usage counter along with the status
	// flip. Off by default: cancelling marks history without freeing quota
	// until product decides otherwise.
	RestoreQuota bool
}

func (c CancelUsageCommand) Key() string { return cancelUsageKey }

type CancelUsageResult struct {
	UsageID string `json:"usage_id"`
	Status  string `json:"status"`
}

// CancelUsageHandler flips a usage-ledger row to cancelled.
type CancelUsageHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *CancelUsageHandler) Handle(ctx context.Context, cmd CancelUsageCommand) (*CancelUsageResult, error) {
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

	usage, err := unit.Promos().UsageByBooking(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := unit.Promos().UpdateUsageStatus(ctx, usage.ID, domainpromo.UsageCancelled); err != nil {
		return nil, err
	}
	if cmd.RestoreQuota {
		if err := unit.Promos().RestoreQuota(ctx, usage.PromoCodeID); err != nil {
			return nil, err
		}
	}

	ev := domainpromo.NewUsageCancelled(usage.PromoCodeID, cmd.BookingID, cmd.Reason, time.Now().UTC())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CancelUsageResult{UsageID: usage.ID, Status: string(domainpromo.UsageCancelled)}, nil
}

func (h *CancelUsageHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelUsageCommand, *CancelUsageResult] = (*CancelUsageHandler)(nil)
