package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	TaxApp "innkeeper/internal/app/handlers/tax"
	"innkeeper/internal/app/queries"
	domaintax "innkeeper/internal/domain/tax"
)

type TaxHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createTaxRuleRequest struct {
	HotelID      string    `json:"hotel_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Value        float64   `json:"value"`
	ApplicableOn string    `json:"applicable_on"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
	Region       string    `json:"region"`
	Priority     int       `json:"priority"`
}

func (h TaxHandler) CreateRule(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := TaxApp.CreateRuleCommand{
		CommandID:    uuid.NewString(),
		HotelID:      req.HotelID,
		Name:         req.Name,
		Type:         req.Type,
		Value:        req.Value,
		ApplicableOn: req.ApplicableOn,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		Region:       req.Region,
		Priority:     req.Priority,
	}
	result, err := commands.Dispatch[TaxApp.CreateRuleCommand, *TaxApp.CreateRuleResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

type createTaxGroupRequest struct {
	HotelID string   `json:"hotel_id"`
	Name    string   `json:"name"`
	RuleIDs []string `json:"rule_ids"`
}

func (h TaxHandler) CreateGroup(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createTaxGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := TaxApp.CreateGroupCommand{
		CommandID: uuid.NewString(),
		HotelID:   req.HotelID,
		Name:      req.Name,
		RuleIDs:   req.RuleIDs,
	}
	result, err := commands.Dispatch[TaxApp.CreateGroupCommand, *TaxApp.CreateGroupResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		switch {
		case errors.Is(err, domaintax.ErrRuleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domaintax.ErrCrossHotelRule):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h TaxHandler) GroupRules(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	q := TaxApp.GroupRulesQuery{GroupID: c.Param("id")}
	result, err := queries.Ask[TaxApp.GroupRulesQuery, *TaxApp.GroupRulesResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		if errors.Is(err, domaintax.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ TaxHTTP = TaxHandler{}
