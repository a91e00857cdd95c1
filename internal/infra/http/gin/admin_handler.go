package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	ProviderApp "innkeeper/internal/app/handlers/provider"
)

type ProviderHandler struct {
	Commands commands.Bus
}

type assignProviderRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	IsActive    bool   `json:"is_active"`
	APIEndpoint string `json:"api_endpoint"`
}

func (h ProviderHandler) Assign(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req assignProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ProviderApp.AssignProviderCommand{
		CommandID:   uuid.NewString(),
		HotelCode:   c.Param("code"),
		Name:        req.Name,
		Type:        req.Type,
		IsActive:    req.IsActive,
		APIEndpoint: req.APIEndpoint,
	}
	result, err := commands.Dispatch[ProviderApp.AssignProviderCommand, *ProviderApp.AssignProviderResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ProviderHTTP = ProviderHandler{}
