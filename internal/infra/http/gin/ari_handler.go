package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	ARIApp "innkeeper/internal/app/handlers/ari"
	domainari "innkeeper/internal/domain/ari"
	domainprovider "innkeeper/internal/domain/provider"
)

type ARIHandler struct {
	Commands commands.Bus
}

type ariRateRequest struct {
	RatePlanCode      string  `json:"rate_plan_code"`
	RatePlanName      string  `json:"rate_plan_name"`
	BaseRate          float64 `json:"base_rate"`
	CurrencyCode      string  `json:"currency_code"`
	MinStay           int     `json:"min_stay"`
	MaxStay           int     `json:"max_stay"`
	ClosedToArrival   bool    `json:"closed_to_arrival"`
	ClosedToDeparture bool    `json:"closed_to_departure"`
	StopSell          bool    `json:"stop_sell"`
}

type ariInventoryRequest struct {
	InvTypeCode string           `json:"inv_type_code"`
	Date        time.Time        `json:"date"`
	Available   int              `json:"available"`
	Sold        int              `json:"sold"`
	Blocked     int              `json:"blocked"`
	Rates       []ariRateRequest `json:"rates"`
}

type ariBatchRequest struct {
	PropertyCode string                `json:"property_code"`
	PropertyName string                `json:"property_name"`
	Timestamp    time.Time             `json:"timestamp"`
	Inventory    []ariInventoryRequest `json:"inventory"`
}

func (h ARIHandler) IngestBatch(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req ariBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ARIApp.IngestBatchCommand{
		CommandID:       uuid.NewString(),
		Batch:           req.toBatch(),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[ARIApp.IngestBatchCommand, *domainari.Result](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		var verr *domainari.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid batch", "issues": verr.Issues})
			return
		}
		if errors.Is(err, domainprovider.ErrProviderNotFound) || errors.Is(err, domainprovider.ErrProviderInactive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r ariBatchRequest) toBatch() domainari.Batch {
	batch := domainari.Batch{
		PropertyCode: r.PropertyCode,
		PropertyName: r.PropertyName,
		Timestamp:    r.Timestamp,
	}
	for _, item := range r.Inventory {
		inv := domainari.InventoryItem{
			InvTypeCode: item.InvTypeCode,
			Date:        item.Date,
			Available:   item.Available,
			Sold:        item.Sold,
			Blocked:     item.Blocked,
		}
		for _, rate := range item.Rates {
			inv.Rates = append(inv.Rates, domainari.RateItem{
				RatePlanCode:      rate.RatePlanCode,
				RatePlanName:      rate.RatePlanName,
				BaseRate:          rate.BaseRate,
				CurrencyCode:      rate.CurrencyCode,
				MinStay:           rate.MinStay,
				MaxStay:           rate.MaxStay,
				ClosedToArrival:   rate.ClosedToArrival,
				ClosedToDeparture: rate.ClosedToDeparture,
				StopSell:          rate.StopSell,
			})
		}
		batch.Inventory = append(batch.Inventory, inv)
	}
	return batch
}

var _ ARIHTTP = ARIHandler{}
