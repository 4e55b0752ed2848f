package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/models"
)

// GameService is the slice of the game manager the hub needs. The hub
// forwards client messages to it and relays the resulting state changes.
type GameService interface {
	GetGame(gameID string) (*models.Game, error)
	SubmitAction(gameID, playerID string, action models.Action) (*models.StateChange, error)
	SkipTurn(gameID string) (*models.StateChange, error)
	LegalActions(gameID, playerID string) ([]models.ActionType, error)
	ConnectPlayer(gameID, playerID, sessionID string) error
	DisconnectPlayer(gameID, playerID string)
}

// Hub maintains the set of active WebSocket connections. Clients register
// per game; the lobby is addressed with the reserved game ID "lobby".
type Hub struct {
	service GameService

	// gameID -> playerID -> client
	clients      map[string]map[string]*Client
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	ctx    context.Context
	logger *zap.SugaredLogger
}

const lobbyID = "lobby"

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	send chan []byte

	playerID  string
	gameID    string
	sessionID string

	lastPongTime time.Time
	pongMutex    sync.RWMutex
}

type broadcastMessage struct {
	gameID          string
	data            []byte
	excludePlayerID string
}

// NewHub creates a new WebSocket hub.
func NewHub(ctx context.Context, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan *broadcastMessage, 512),
		ctx:        ctx,
		logger:     logger,
	}
}

// SetGameService wires the hub to the game manager. Set once at startup,
// after the manager has been constructed.
func (h *Hub) SetGameService(service GameService) {
	h.service = service
}

// Run processes register, unregister and broadcast events until the
// context is cancelled. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsMutex.Lock()
	gameID := strings.ToLower(c.gameID)
	if _, ok := h.clients[gameID]; !ok {
		h.clients[gameID] = make(map[string]*Client)
	}
	// A reconnect replaces the previous connection for the same player.
	if prev, ok := h.clients[gameID][c.playerID]; ok {
		close(prev.send)
		prev.conn.Close()
	}
	h.clients[gameID][c.playerID] = c
	h.clientsMutex.Unlock()

	if c.gameID != lobbyID && h.service != nil {
		if err := h.service.ConnectPlayer(c.gameID, c.playerID, c.sessionID); err != nil {
			h.logger.Warnw("Player connect rejected", "gameId", c.gameID, "playerId", c.playerID, "error", err)
		}
	}
	h.logger.Infow("Client registered", "gameId", c.gameID, "playerId", c.playerID, "sessionId", c.sessionID)
}

func (h *Hub) removeClient(c *Client) {
	h.clientsMutex.Lock()
	gameID := strings.ToLower(c.gameID)
	removed := false
	if gamePlayers, ok := h.clients[gameID]; ok {
		if current, ok := gamePlayers[c.playerID]; ok && current == c {
			delete(gamePlayers, c.playerID)
			close(c.send)
			removed = true
			if len(gamePlayers) == 0 {
				delete(h.clients, gameID)
			}
		}
	}
	h.clientsMutex.Unlock()

	if removed && c.gameID != lobbyID && h.service != nil {
		h.service.DisconnectPlayer(c.gameID, c.playerID)
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for _, gamePlayers := range h.clients {
		for _, client := range gamePlayers {
			close(client.send)
			client.conn.Close()
		}
	}
	h.clients = make(map[string]map[string]*Client)
}

func (h *Hub) deliver(msg *broadcastMessage) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	gamePlayers, ok := h.clients[strings.ToLower(msg.gameID)]
	if !ok {
		return
	}
	for playerID, client := range gamePlayers {
		if playerID == msg.excludePlayerID {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			h.logger.Warnw("Client send buffer full, dropping message", "gameId", msg.gameID, "playerId", playerID)
		}
	}
}

// BroadcastToGame sends a message to all clients connected to a game.
func (h *Hub) BroadcastToGame(gameID string, data []byte) {
	h.broadcast <- &broadcastMessage{gameID: gameID, data: data}
}

// BroadcastToLobby sends a message to all lobby clients.
func (h *Hub) BroadcastToLobby(data []byte) {
	h.broadcast <- &broadcastMessage{gameID: lobbyID, data: data}
}

// SendToPlayer sends a message to one player in a game. Returns false when
// the player has no live connection or their buffer is full.
func (h *Hub) SendToPlayer(gameID, playerID string, data []byte) bool {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	if gamePlayers, ok := h.clients[strings.ToLower(gameID)]; ok {
		if client, ok := gamePlayers[playerID]; ok {
			select {
			case client.send <- data:
				return true
			default:
			}
		}
	}
	return false
}

// HandleConnection adopts an upgraded WebSocket connection and starts its
// read and write pumps.
func (h *Hub) HandleConnection(conn *websocket.Conn, gameID, playerID, sessionID string) {
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		playerID:  playerID,
		gameID:    gameID,
		sessionID: sessionID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.pongMutex.Lock()
	c.lastPongTime = time.Now()
	c.pongMutex.Unlock()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.pongMutex.Lock()
		c.lastPongTime = time.Now()
		c.pongMutex.Unlock()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnw("WebSocket read error", "gameId", c.gameID, "playerId", c.playerID, "error", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type inboundMessage struct {
	Type   string            `json:"type"`
	Action models.ActionType `json:"action,omitempty"`
	CardID int               `json:"cardId,omitempty"`
	Amount int               `json:"amount,omitempty"`
}

// handleMessage dispatches an incoming client message. Lobby clients only
// receive digests, so their messages are ignored.
func (c *Client) handleMessage(raw []byte) {
	if c.gameID == lobbyID || c.hub.service == nil {
		return
	}

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("", "malformed message")
		return
	}

	switch msg.Type {
	case "action":
		action := models.Action{
			Type:      msg.Action,
			PlayerID:  c.playerID,
			GameID:    c.gameID,
			CardID:    msg.CardID,
			Amount:    msg.Amount,
			Timestamp: time.Now(),
		}
		if _, err := c.hub.service.SubmitAction(c.gameID, c.playerID, action); err != nil {
			c.sendError(msg.Type, err.Error())
		}
	case "get_state":
		game, err := c.hub.service.GetGame(c.gameID)
		if err != nil {
			c.sendError(msg.Type, err.Error())
			return
		}
		c.sendJSON(map[string]interface{}{
			"type":      "state",
			"gameId":    c.gameID,
			"game":      game,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case "get_legal_actions":
		actions, err := c.hub.service.LegalActions(c.gameID, c.playerID)
		if err != nil {
			c.sendError(msg.Type, err.Error())
			return
		}
		c.sendJSON(map[string]interface{}{
			"type":    "legal_actions",
			"gameId":  c.gameID,
			"actions": actions,
		})
	default:
		c.sendError(msg.Type, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Client) sendJSON(payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.hub.logger.Errorw("Failed to marshal outbound message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warnw("Client send buffer full", "gameId", c.gameID, "playerId", c.playerID)
	}
}

func (c *Client) sendError(inReplyTo, message string) {
	c.sendJSON(map[string]interface{}{
		"type":      "error",
		"inReplyTo": inReplyTo,
		"message":   message,
	})
}
