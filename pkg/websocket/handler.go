package websocket

import (
	"net/http"

	"tripmingle/internal/config"
	"tripmingle/internal/middleware"
	"tripmingle/internal/utils"
	"tripmingle/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewHandler(hub *Hub, cfg *config.WebSocketConfig, logger *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin:       originChecker(cfg.AllowedOrigins),
		},
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	userType, _ := c.Get("user_type")
	userTypeStr, _ := userType.(string)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, userID, userTypeStr)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = true
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		return set[r.Header.Get("Origin")]
	}
}
