package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notify-client/internal/api/middleware"
	"notify-client/internal/auth"
	"notify-client/internal/config"
	"notify-client/internal/models"
	"notify-client/internal/websocket"
	"notify-client/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

const welcomeText = "Connected to notification service"

var ErrTitleRequired = errors.New("title is required")

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local development only: allow all origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PublishRequest is the body of POST /api/v1/notifications and the record
// format of the Redis and Kafka feeds. An empty UserID addresses every session.
type PublishRequest struct {
	UserID  string `json:"userId"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type PublishResult struct {
	ID        string `json:"id"`
	Delivered int    `json:"delivered"`
}

type Server struct {
	hub     *Hub
	engine  *gin.Engine
	secret  string
	adminMW *middleware.AdminKeyMiddleware
	logger  *slog.Logger
}

func New(cfg config.DevServerConfig, hub *Hub, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JWTSecret == "" {
		return nil, auth.ErrEmptySecret
	}
	adminMW, err := middleware.NewAdminKeyMiddleware(cfg.AdminKey)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.LogApi(logger))

	s := &Server{
		hub:     hub,
		engine:  engine,
		secret:  cfg.JWTSecret,
		adminMW: adminMW,
		logger:  logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/ws", s.HandleWebSocket)

	api := s.engine.Group("/api/v1")
	{
		api.POST("/notifications", s.adminMW.RequireKey(), s.HandlePublish)
		api.GET("/stats", s.HandleStats)
	}
}

func (s *Server) GetEngine() *gin.Engine {
	return s.engine
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// HandleWebSocket upgrades GET /ws?token=. An invalid token is answered with
// close code 1008 after the upgrade, so browsers see the code.
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	claims, err := auth.Verify(s.secret, c.Query("token"))
	if err != nil {
		s.logger.Warn("Rejected connection", "error", err)
		closeWith(conn, gorilla.ClosePolicyViolation, "Invalid token")
		return
	}

	session := newSession(s.hub, conn, claims.UserID, uuid.NewString())
	// Welcome is queued before registering so it is the first frame.
	session.reply(websocket.NewWelcomeMessage(claims.UserID, session.id, welcomeText))
	if !s.hub.Register(session) {
		closeWith(conn, gorilla.CloseGoingAway, "Server shutting down")
		return
	}

	go session.readPump()
}

func closeWith(conn *gorilla.Conn, code int, reason string) {
	msg := gorilla.FormatCloseMessage(code, reason)
	conn.WriteControl(gorilla.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// HandlePublish godoc
// @Summary Push a notification
// @Description Pushes to every session of userId, or to all sessions when userId is empty
// @Tags devserver
// @Accept json
// @Produce json
// @Param X-Admin-Key header string false "Admin key when configured"
// @Param request body PublishRequest true "Notification"
// @Success 200 {object} response.ResponseData{data=PublishResult}
// @Failure 400 {object} response.ResponseData "Invalid body"
// @Failure 401 {object} response.ResponseData "Invalid admin key"
// @Router /notifications [post]
func (s *Server) HandlePublish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
		return
	}

	result, err := s.Publish(req)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
		return
	}
	response.SuccessResponse(c, result)
}

// HandleStats godoc
// @Summary Dev server counters
// @Tags devserver
// @Produce json
// @Success 200 {object} response.ResponseData{data=Stats}
// @Router /stats [get]
func (s *Server) HandleStats(c *gin.Context) {
	response.SuccessResponse(c, s.hub.Stats())
}

// Publish pushes req to the hub. A missing id gets a uuid.
func (s *Server) Publish(req PublishRequest) (PublishResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return PublishResult{}, ErrTitleRequired
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	frame, err := websocket.NewNotificationMessage(websocket.NotificationData{
		ID:      req.ID,
		Title:   req.Title,
		Body:    req.Body,
		Message: req.Message,
		Type:    string(models.ParseCategory(req.Type)),
	}).Encode()
	if err != nil {
		return PublishResult{}, err
	}

	delivered := s.hub.Push(req.UserID, req.ID, frame)
	s.logger.Info("Notification pushed", "notificationID", req.ID, "userID", req.UserID, "delivered", delivered)
	return PublishResult{ID: req.ID, Delivered: delivered}, nil
}
