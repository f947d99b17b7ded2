package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/middleware"
	"github.com/noah-isme/lab-ops-api/internal/realtime"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
	"github.com/noah-isme/lab-ops-api/pkg/middleware/cors"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type socketServer interface {
	Serve(userID string, socket realtime.Socket) error
}

// WebSocketHandler upgrades authenticated clients onto the notification hub.
type WebSocketHandler struct {
	hub      socketServer
	tokens   middleware.TokenValidator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler constructs the handler. Origins share the CORS allow list.
func NewWebSocketHandler(hub socketServer, tokens middleware.TokenValidator, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cors.OriginChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// Connect godoc
// @Summary Notification stream
// @Description Upgrades to a websocket delivering events addressed to user_id.
// @Tags Realtime
// @Param user_id path string true "User ID"
// @Param token query string false "Access token when no Authorization header can be sent"
// @Success 101
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /ws/{user_id} [get]
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if h.hub == nil || h.tokens == nil {
		serviceUnavailable(c)
		return
	}
	token := middleware.BearerToken(c)
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID := c.Param("user_id")
	if userID == "" || userID != claims.UserID {
		response.Error(c, appErrors.Denied(string(authz.ReasonNotOwner), "cannot subscribe to another user's notifications"))
		return
	}

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := h.hub.Serve(userID, socket); err != nil {
		h.logger.Debug("websocket rejected", zap.String("user_id", userID), zap.Error(err))
	}
}
