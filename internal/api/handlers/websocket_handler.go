package handlers

import (
	"net/http"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/websocket"
)

// WebSocketHandler upgrades HTTP requests and hands the connections to
// the hub.
type WebSocketHandler struct {
	hub      *websocket.Hub
	logger   *zap.SugaredLogger
	upgrader gorilla.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, logger *zap.SugaredLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers connect from a separately served frontend.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades an authenticated game connection. The JWT
// middleware has already put the player identity in the context.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	gameID := c.Param("gameId")
	playerID, ok := c.Get("playerID").(string)
	if !ok || playerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing player identity")
	}
	if tokenGameID, _ := c.Get("tokenGameID").(string); tokenGameID != "" && tokenGameID != gameID {
		return echo.NewHTTPError(http.StatusForbidden, "token not valid for this game")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade failed for game %s player %s: %v", gameID, playerID, err)
		return err
	}

	sessionID := uuid.NewString()
	h.hub.HandleConnection(conn, gameID, playerID, sessionID)
	return nil
}

// HandleLobbyConnection upgrades an unauthenticated lobby connection.
// Lobby clients only receive game digests and cannot submit actions.
func (h *WebSocketHandler) HandleLobbyConnection(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warnf("Lobby WebSocket upgrade failed: %v", err)
		return err
	}

	clientID := uuid.NewString()
	h.hub.HandleConnection(conn, "lobby", clientID, clientID)
	return nil
}
