package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	PricingApp "innkeeper/internal/app/handlers/pricing"
	"innkeeper/internal/app/queries"
	domaininventory "innkeeper/internal/domain/inventory"
	domainrateplan "innkeeper/internal/domain/rateplan"
)

type PricingHandler struct {
	Queries queries.Bus
}

type quoteRequest struct {
	HotelCode    string    `json:"hotel_code"`
	RoomTypeCode string    `json:"room_type_code"`
	RatePlanCode string    `json:"rate_plan_code"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Guests       int       `json:"guests"`
	Rooms        int       `json:"rooms"`
	TaxGroupID   string    `json:"tax_group_id"`
	TaxOverride  *float64  `json:"tax_override,omitempty"`
	PromoCode    string    `json:"promo_code"`
	CustomerID   string    `json:"customer_id"`
}

func (h PricingHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := PricingApp.QuoteStayQuery{
		HotelCode:           req.HotelCode,
		RoomTypeCode:        req.RoomTypeCode,
		RatePlanCode:        req.RatePlanCode,
		CheckIn:             req.CheckIn,
		CheckOut:            req.CheckOut,
		Guests:              req.Guests,
		Rooms:               req.Rooms,
		TaxGroupID:          req.TaxGroupID,
		ReservationTaxValue: req.TaxOverride,
		PromoCode:           req.PromoCode,
		CustomerID:          req.CustomerID,
	}
	result, err := queries.Ask[PricingApp.QuoteStayQuery, *PricingApp.QuoteStayResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		if errors.Is(err, domainrateplan.ErrChargeNotFound) || errors.Is(err, domaininventory.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
