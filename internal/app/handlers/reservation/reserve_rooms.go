package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/middleware"
	"innkeeper/internal/app/outbox"
	"innkeeper/internal/app/policies"
	"innkeeper/internal/app/uow"
	domaininventory "innkeeper/internal/domain/inventory"
	"innkeeper/internal/domain/shared/events"
	"innkeeper/internal/domain/shared/staynights"
)

const reserveRoomsKey = "reservation.reserve"

type ReserveRoomsCommand struct {
	CommandID       string
	HotelCode       string
	RoomTypeCode    string
	CheckIn         time.Time
	CheckOut        time.Time
	Rooms           int
	CustomerID      string
	GuestEmail      string
	IdempotencyKeyV string
}

func (c ReserveRoomsCommand) Key() string { return reserveRoomsKey }

func (c ReserveRoomsCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ReserveRoomsCommand) ResultPrototype() any { return &ReserveRoomsResult{} }

type ReserveRoomsResult struct {
	ReservationID string `json:"reservation_id"`
	Nights        int    `json:"nights"`
}

var (
	ErrUnitOfWorkRequired = errors.New("reservation: unit of work required")
	ErrNotAvailable       = errors.New("reservation: rooms not available for every night of the stay")
)

// ReserveRoomsHandler moves rooms from available to sold for every stay
// night. Each night's decrement is a conditional update; a failed night
// aborts and rolls back the nights already taken.
type ReserveRoomsHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	// Notifier sends the confirmation after commit. Best effort: a delivery
	// failure never unwinds the reservation.
	Notifier policies.Notifier
}

func (h *ReserveRoomsHandler) Handle(ctx context.Context, cmd ReserveRoomsCommand) (*ReserveRoomsResult, error) {
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

	stay, err := staynights.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	rooms := cmd.Rooms
	if rooms <= 0 {
		rooms = 1
	}

	state, err := unit.Providers().SourceState(ctx, cmd.HotelCode)
	if err != nil {
		return nil, err
	}

	ok, err = domaininventory.CheckAvailability(ctx, unit.Inventory(),
		cmd.HotelCode, cmd.RoomTypeCode, stay.CheckIn, stay.CheckOut.AddDate(0, 0, -1), rooms, state.Epoch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAvailable
	}

	err = stay.EachNight(func(night time.Time) error {
		key := domaininventory.NewKey(cmd.HotelCode, cmd.RoomTypeCode, night)
		if err := unit.Inventory().Reserve(ctx, key, rooms, state.Epoch); err != nil {
			return fmt.Errorf("%w: %s", ErrNotAvailable, night.Format("2006-01-02"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := domaininventory.NewRoomsReserved(cmd.HotelCode, cmd.RoomTypeCode, cmd.CustomerID, cmd.CommandID, stay.Nights(), rooms, time.Now().UTC())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil && cmd.GuestEmail != "" {
		subject := fmt.Sprintf("Reservation confirmed: %s", cmd.HotelCode)
		text := fmt.Sprintf("Your reservation for %d room(s), %d night(s) from %s is confirmed.",
			rooms, stay.Nights(), stay.CheckIn.Format("2006-01-02"))
		_ = h.Notifier.SendMail(ctx, cmd.GuestEmail, subject, text, "")
	}
	return &ReserveRoomsResult{ReservationID: cmd.CommandID, Nights: stay.Nights()}, nil
}

func (h *ReserveRoomsHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ReserveRoomsCommand, *ReserveRoomsResult] = (*ReserveRoomsHandler)(nil)
var _ middleware.IdempotentCommand = (*ReserveRoomsCommand)(nil)
