package inventory

import (
	"time"

	"innkeeper/internal/domain/shared/events"
)

type RoomsReserved struct {
	events.BaseEvent
	HotelCode     string
	RoomTypeCode  string
	CustomerID    string
	ReservationID string
	Nights        int
	Rooms         int
}

func NewRoomsReserved(hotel, roomType, customerID, reservationID string, nights, rooms int, at time.Time) RoomsReserved {
	return RoomsReserved{
		BaseEvent:     events.BaseEvent{Name: "reservation.created", Aggregate: reservationID, Time: at},
		HotelCode:     hotel,
		RoomTypeCode:  roomType,
		CustomerID:    customerID,
		ReservationID: reservationID,
		Nights:        nights,
		Rooms:         rooms,
	}
}
