package handlers

import (
	"net/http"

	"notify-client/internal/relay"
	"notify-client/pkg/response"

	"github.com/gin-gonic/gin"
)

// RelayStats is implemented by *relay.Relay
type RelayStats interface {
	Stats() relay.Stats
	Sinks() []string
}

type HealthHandler struct {
	manager Controller
	relay   RelayStats
}

// NewHealthHandler creates the health handler. relay may be nil.
func NewHealthHandler(manager Controller, relay RelayStats) *HealthHandler {
	return &HealthHandler{manager: manager, relay: relay}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"phase":  h.manager.Snapshot().Phase(),
	})
}

// RelayStatus godoc
// @Summary Relay delivery counters
// @Tags relay
// @Produce json
// @Success 200 {object} response.ResponseData
// @Failure 404 {object} response.ResponseData "Relay not configured"
// @Router /relay [get]
func (h *HealthHandler) RelayStatus(c *gin.Context) {
	if h.relay == nil {
		response.ErrorResponse(c, http.StatusNotFound, response.ErrCodeNotFound, "relay not configured")
		return
	}
	response.SuccessResponse(c, gin.H{
		"sinks": h.relay.Sinks(),
		"stats": h.relay.Stats(),
	})
}
