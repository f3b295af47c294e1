package handlers

import (
	"errors"
	"net/http"
	"strings"

	"notify-client/internal/auth"
	"notify-client/internal/connection"
	"notify-client/pkg/response"

	"github.com/gin-gonic/gin"
)

// Controller is the part of connection.Manager the API drives
type Controller interface {
	Snapshot() connection.State
	Connect() error
	Disconnect() error
	SendPing() error
	MarkAsRead(notificationID string) error
	ClearNotifications() error
	SetToken(token string) error
}

// StateResponse is a snapshot plus its derived phase
type StateResponse struct {
	connection.State
	Phase connection.Phase `json:"phase" swaggertype:"string" example:"connected"`
}

type TokenRequest struct {
	Token *string `json:"token" binding:"required"`
}

// TokenResponse describes the claims of the token just set, when readable
type TokenResponse struct {
	HasToken  bool   `json:"hasToken"`
	UserID    string `json:"userId,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type ConnectionHandler struct {
	manager Controller
}

func NewConnectionHandler(manager Controller) *ConnectionHandler {
	return &ConnectionHandler{manager: manager}
}

// RegisterRoutes maps HTTP methods to handler functions
func (h *ConnectionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/state", h.GetState)
	r.POST("/connect", h.Connect)
	r.POST("/disconnect", h.Disconnect)
	r.POST("/ping", h.Ping)
	r.PUT("/token", h.SetToken)

	notifications := r.Group("/notifications")
	{
		notifications.POST("/:id/read", h.MarkAsRead)
		notifications.DELETE("", h.ClearNotifications)
	}
}

func (h *ConnectionHandler) stateResponse() StateResponse {
	s := h.manager.Snapshot()
	return StateResponse{State: s, Phase: s.Phase()}
}

// GetState godoc
// @Summary Current connection state
// @Description Latest committed snapshot: flags, error, identity and notifications (newest first)
// @Tags connection
// @Produce json
// @Success 200 {object} response.ResponseData{data=StateResponse}
// @Router /state [get]
func (h *ConnectionHandler) GetState(c *gin.Context) {
	response.SuccessResponse(c, h.stateResponse())
}

// Connect godoc
// @Summary Connect to the push server
// @Description Opens the connection with the current token. No-op while a connection is open or opening.
// @Tags connection
// @Produce json
// @Success 200 {object} response.ResponseData{data=StateResponse}
// @Failure 400 {object} response.ResponseData "Token is required"
// @Failure 503 {object} response.ResponseData "Manager stopped"
// @Router /connect [post]
func (h *ConnectionHandler) Connect(c *gin.Context) {
	if err := h.manager.Connect(); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, h.stateResponse())
}

// Disconnect godoc
// @Summary Disconnect from the push server
// @Description Cancels any scheduled reconnect and closes the connection normally
// @Tags connection
// @Produce json
// @Success 200 {object} response.ResponseData{data=StateResponse}
// @Router /disconnect [post]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	if err := h.manager.Disconnect(); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, h.stateResponse())
}

// Ping godoc
// @Summary Send an application ping
// @Tags connection
// @Produce json
// @Success 200 {object} response.ResponseData
// @Failure 409 {object} response.ResponseData "Not connected"
// @Router /ping [post]
func (h *ConnectionHandler) Ping(c *gin.Context) {
	if err := h.manager.SendPing(); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, nil)
}

// SetToken godoc
// @Summary Replace the credential
// @Description An empty token disconnects. A new token never connects by itself.
// @Tags connection
// @Accept json
// @Produce json
// @Param request body TokenRequest true "New token"
// @Success 200 {object} response.ResponseData{data=TokenResponse}
// @Failure 400 {object} response.ResponseData "Invalid body"
// @Router /token [put]
func (h *ConnectionHandler) SetToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
		return
	}

	token := strings.TrimSpace(*req.Token)
	if err := h.manager.SetToken(token); err != nil {
		writeError(c, err)
		return
	}

	resp := TokenResponse{HasToken: token != ""}
	// Opaque tokens are fine; claims are informational.
	if claims, err := auth.Inspect(token); err == nil {
		resp.UserID = claims.UserID
		if !claims.ExpiresAt.IsZero() {
			resp.ExpiresAt = claims.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	response.SuccessResponse(c, resp)
}

// MarkAsRead godoc
// @Summary Acknowledge a notification
// @Description Sends a read acknowledgment, or queues it until the server handshake completes
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.ResponseData
// @Failure 409 {object} response.ResponseData "Not connected"
// @Router /notifications/{id}/read [post]
func (h *ConnectionHandler) MarkAsRead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.ErrorResponse(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "notification id is required")
		return
	}
	if err := h.manager.MarkAsRead(id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, gin.H{"notificationId": id})
}

// ClearNotifications godoc
// @Summary Clear all notifications
// @Description Empties the local collection. Connection state is unchanged.
// @Tags notifications
// @Produce json
// @Success 200 {object} response.ResponseData{data=StateResponse}
// @Router /notifications [delete]
func (h *ConnectionHandler) ClearNotifications(c *gin.Context) {
	if err := h.manager.ClearNotifications(); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, h.stateResponse())
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, connection.ErrTokenRequired):
		response.ErrorResponse(c, http.StatusBadRequest, response.ErrCodeTokenRequired, connection.MsgTokenRequired)
	case errors.Is(err, connection.ErrNotConnected):
		response.ErrorResponse(c, http.StatusConflict, response.ErrCodeNotConnected, "")
	case errors.Is(err, connection.ErrManagerStopped):
		response.ErrorResponse(c, http.StatusServiceUnavailable, response.ErrCodeManagerStopped, "")
	default:
		c.Error(err)
		response.ErrorResponse(c, http.StatusInternalServerError, response.ErrCodeInternal, err.Error())
	}
}
