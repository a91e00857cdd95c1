package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	ReservationApp "innkeeper/internal/app/handlers/reservation"
)

type ReservationHandler struct {
	Commands commands.Bus
}

type createReservationRequest struct {
	HotelCode    string    `json:"hotel_code"`
	RoomTypeCode string    `json:"room_type_code"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Rooms        int       `json:"rooms"`
	CustomerID   string    `json:"customer_id"`
	GuestEmail   string    `json:"guest_email"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ReservationApp.ReserveRoomsCommand{
		CommandID:       uuid.NewString(),
		HotelCode:       req.HotelCode,
		RoomTypeCode:    req.RoomTypeCode,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Rooms:           req.Rooms,
		CustomerID:      req.CustomerID,
		GuestEmail:      req.GuestEmail,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[ReservationApp.ReserveRoomsCommand, *ReservationApp.ReserveRoomsResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, ReservationApp.ErrNotAvailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ReservationHTTP = ReservationHandler{}
