package ari

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/middleware"
	"innkeeper/internal/app/outbox"
	"innkeeper/internal/app/uow"
	domainari "innkeeper/internal/domain/ari"
	domaininventory "innkeeper/internal/domain/inventory"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
	"innkeeper/internal/domain/shared/events"
	"innkeeper/internal/domain/shared/staynights"
)

const ingestBatchKey = "ari.ingest"

type IngestBatchCommand struct {
	CommandID       string
	Batch           domainari.Batch
	IdempotencyKeyV string
}

func (c IngestBatchCommand) Key() string { return ingestBatchKey }

func (c IngestBatchCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c IngestBatchCommand) ResultPrototype() any { return &domainari.Result{} }

// IngestBatchHandler reconciles one pushed ARI batch into the inventory
// ledger and rate plan store. Validation happens before any write; the
// source-change purge and the upserts run under one unit of work.
type IngestBatchHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

var ErrUnitOfWorkRequired = errors.New("ari: unit of work required")

func (h *IngestBatchHandler) Handle(ctx context.Context, cmd IngestBatchCommand) (*domainari.Result, error) {
	if err := cmd.Batch.Validate(); err != nil {
		return nil, err
	}

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

	batch := cmd.Batch
	hotel := batch.PropertyCode

	prov, err := unit.Providers().ByHotel(ctx, hotel)
	if err != nil {
		return nil, fmt.Errorf("ari: resolve provider for %s: %w", hotel, err)
	}
	if !prov.IsActive {
		return nil, fmt.Errorf("ari: %s: %w", prov.Name, domainprovider.ErrProviderInactive)
	}

	state, err := unit.Providers().SourceState(ctx, hotel)
	if err != nil {
		return nil, err
	}
	sourceChanged := state.SourceName != prov.Name
	if sourceChanged {
		// The previous source's rows must never leak into availability or
		// pricing for this hotel. Advancing the epoch hides them all at once;
		// physical cleanup follows under the same transaction.
		state, err = unit.Providers().SwapSource(ctx, hotel, prov.Name)
		if err != nil {
			return nil, err
		}
		if _, err := unit.Inventory().ReleaseStale(ctx, hotel, state.Epoch); err != nil {
			return nil, err
		}
		if _, err := unit.RatePlans().ReleaseStale(ctx, hotel, state.Epoch); err != nil {
			return nil, err
		}
	}

	result := &domainari.Result{SourceName: prov.Name, SourceChanged: sourceChanged}
	seenDates := map[time.Time]struct{}{}
	seenPlans := map[string]struct{}{}

	for _, item := range batch.Inventory {
		date := staynights.Midnight(item.Date)
		seenDates[date] = struct{}{}

		for _, rate := range item.Rates {
			key := domainrateplan.NewKey(hotel, item.InvTypeCode, rate.RatePlanCode, date)
			charge := domainrateplan.Charge{
				HotelCode:    hotel,
				RoomTypeCode: item.InvTypeCode,
				RatePlanCode: rate.RatePlanCode,
				RatePlanName: rate.RatePlanName,
				Date:         date,
				CurrencyCode: rate.CurrencyCode,
				BaseByGuest:  []domainrateplan.GuestAmount{{AmountBeforeTax: rate.BaseRate, NumberOfGuests: 2}},
				Days:         domainrateplan.AllDays(),
				Restrictions: domainrateplan.Restrictions{
					MinStay:           rate.MinStay,
					MaxStay:           rate.MaxStay,
					ClosedToArrival:   rate.ClosedToArrival,
					ClosedToDeparture: rate.ClosedToDeparture,
					StopSell:          rate.StopSell,
				},
				SourceName: prov.Name,
				Epoch:      state.Epoch,
			}
			if err := unit.RatePlans().Upsert(ctx, key, charge); err != nil {
				return nil, fmt.Errorf("ari: upsert rate %s/%s/%s: %w", hotel, item.InvTypeCode, rate.RatePlanCode, err)
			}
			seenPlans[rate.RatePlanCode] = struct{}{}
		}

		invKey := domaininventory.NewKey(hotel, item.InvTypeCode, date)
		counts := domaininventory.Counts{Available: item.Available, Sold: item.Sold, Blocked: item.Blocked}
		if err := counts.Validate(); err != nil {
			return nil, err
		}
		if err := unit.Inventory().Upsert(ctx, invKey, counts, prov.Name, state.Epoch); err != nil {
			return nil, fmt.Errorf("ari: upsert inventory %s/%s: %w", hotel, item.InvTypeCode, err)
		}
		result.InventoryRecordsProcessed++
	}

	result.DatesProcessed = len(seenDates)
	result.RatePlansProcessed = len(seenPlans)
	result.Success = true

	ev := domainari.NewBatchIngested(hotel, prov.Name, sourceChanged,
		result.DatesProcessed, result.RatePlansProcessed, result.InventoryRecordsProcessed, time.Now().UTC())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return result, nil
}

func (h *IngestBatchHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[IngestBatchCommand, *domainari.Result] = (*IngestBatchHandler)(nil)
var _ middleware.IdempotentCommand = (*IngestBatchCommand)(nil)
