package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	PromoApp "innkeeper/internal/app/handlers/promo"
	"innkeeper/internal/app/queries"
	domainpromo "innkeeper/internal/domain/promo"
)

type PromoHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createPromocodeRequest struct {
	PropertyCode      string    `json:"property_code"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discount_type"`
	DiscountValue     float64   `json:"discount_value"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidTo           time.Time `json:"valid_to"`
	MinBookingAmount  float64   `json:"min_booking_amount"`
	MaxDiscountAmount float64   `json:"max_discount_amount"`
	UseLimit          int       `json:"use_limit"`
	UsageLimitPerUser int       `json:"usage_limit_per_user"`
}

func (h PromoHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createPromocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PromoApp.CreatePromocodeCommand{
		CommandID:         uuid.NewString(),
		PropertyCode:      req.PropertyCode,
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		ValidFrom:         req.ValidFrom,
		ValidTo:           req.ValidTo,
		MinBookingAmount:  req.MinBookingAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UseLimit:          req.UseLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
	}
	result, err := commands.Dispatch[PromoApp.CreatePromocodeCommand, *PromoApp.CreatePromocodeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, PromoApp.ErrDuplicateCode) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

type validatePromoRequest struct {
	PropertyCode  string  `json:"property_code"`
	Code          string  `json:"code"`
	CustomerID    string  `json:"customer_id"`
	BookingAmount float64 `json:"booking_amount"`
}

func (h PromoHandler) Validate(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := PromoApp.ValidatePromoQuery{
		PropertyCode:  req.PropertyCode,
		Code:          req.Code,
		CustomerID:    req.CustomerID,
		BookingAmount: req.BookingAmount,
	}
	result, err := queries.Ask[PromoApp.ValidatePromoQuery, *PromoApp.ValidatePromoResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type applyPromoRequest struct {
	PropertyCode  string  `json:"property_code"`
	Code          string  `json:"code"`
	CustomerID    string  `json:"customer_id"`
	BookingID     string  `json:"booking_id"`
	BookingAmount float64 `json:"booking_amount"`
}

func (h PromoHandler) Apply(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req applyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PromoApp.ApplyPromoCommand{
		CommandID:       uuid.NewString(),
		PropertyCode:    req.PropertyCode,
		Code:            req.Code,
		CustomerID:      req.CustomerID,
		BookingID:       req.BookingID,
		BookingAmount:   req.BookingAmount,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[PromoApp.ApplyPromoCommand, *PromoApp.ApplyPromoResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, domainpromo.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if domainpromo.IsEligibilityError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelUsageRequest struct {
	Reason       string `json:"reason"`
	RestoreQuota bool   `json:"restore_quota"`
}

func (h PromoHandler) CancelUsage(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cancelUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PromoApp.CancelUsageCommand{
		CommandID:    uuid.NewString(),
		BookingID:    c.Param("bookingID"),
		Reason:       req.Reason,
		RestoreQuota: req.RestoreQuota,
	}
	result, err := commands.Dispatch[PromoApp.CancelUsageCommand, *PromoApp.CancelUsageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, domainpromo.ErrUsageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PromoHTTP = PromoHandler{}
