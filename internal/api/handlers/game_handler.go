package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/api/middleware/auth"
	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/game/engine"
	"github.com/farmline/backend/internal/game/manager"
	"github.com/farmline/backend/internal/game/models"
)

// TranscriptSource serves archived per-game event logs. Backed by the
// Redis queue's transcript lists.
type TranscriptSource interface {
	Transcript(gameID string) ([]*models.StateChange, error)
}

// GameHandler handles game-related requests
type GameHandler struct {
	gameManager *manager.GameManager
	cfg         *config.Config
	transcripts TranscriptSource
	logger      *zap.SugaredLogger
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(gameManager *manager.GameManager, cfg *config.Config, transcripts TranscriptSource, logger *zap.SugaredLogger) *GameHandler {
	return &GameHandler{
		gameManager: gameManager,
		cfg:         cfg,
		transcripts: transcripts,
		logger:      logger,
	}
}

// CreateGameRequest represents a create game request. AI profiles are
// assigned randomly unless profileAssignment is "explicit".
type CreateGameRequest struct {
	Name              string             `json:"name" validate:"required"`
	NumHumanPlayers   int                `json:"numHumanPlayers" validate:"min=0,max=6"`
	NumAIPlayers      int                `json:"numAiPlayers" validate:"min=0,max=6"`
	HumanNames        []string           `json:"humanNames,omitempty"`
	ProfileAssignment string             `json:"profileAssignment,omitempty" validate:"omitempty,oneof=explicit random"`
	AIProfiles        []models.AIProfile `json:"aiProfiles,omitempty"`
	StartingCash      int                `json:"startingCash,omitempty" validate:"min=0"`
	MaxTurns          int                `json:"maxTurns,omitempty" validate:"min=0"`
	WinningNetWorth   int                `json:"winningNetWorth,omitempty" validate:"min=0"`
	Seed              int64              `json:"seed,omitempty"`
}

// PlayerCredential pairs a human player with the session token that
// authorizes actions on their behalf.
type PlayerCredential struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// ActionRequest represents a game action request
type ActionRequest struct {
	Type   models.ActionType `json:"type" validate:"required"`
	CardID int               `json:"cardId,omitempty"`
	Amount int               `json:"amount,omitempty" validate:"min=0"`
}

// CreateGame creates a new game with the requested mix of human and AI
// players and returns session tokens for the humans.
func (h *GameHandler) CreateGame(c echo.Context) error {
	var req CreateGameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	game, err := h.gameManager.CreateGame(manager.GameOptions{
		Name:                req.Name,
		NumHumanPlayers:     req.NumHumanPlayers,
		NumAIPlayers:        req.NumAIPlayers,
		HumanNames:          req.HumanNames,
		AIProfileAssignment: req.ProfileAssignment,
		AIProfiles:          req.AIProfiles,
		StartingCash:        req.StartingCash,
		MaxTurns:            req.MaxTurns,
		WinningNetWorth:     req.WinningNetWorth,
		Seed:                req.Seed,
	})
	if err != nil {
		h.logger.Errorf("Failed to create game: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	gameID := game.ID.Hex()
	credentials := make([]PlayerCredential, 0, req.NumHumanPlayers)
	for _, p := range game.Players {
		if p.IsAI() {
			continue
		}
		token, err := auth.GenerateSessionToken(p.ID, gameID, h.cfg.JWT.Secret, h.cfg.JWT.Expiration)
		if err != nil {
			h.logger.Errorf("Failed to mint session token for player %s: %v", p.ID, err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create game")
		}
		credentials = append(credentials, PlayerCredential{PlayerID: p.ID, Name: p.Name, Token: token})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"gameId":  gameID,
		"code":    game.Code,
		"seed":    game.Rules.Seed,
		"players": credentials,
	})
}

// ListGames lists registered games for the lobby.
func (h *GameHandler) ListGames(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"games":     h.gameManager.ListGames(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetGameState returns the full state of a game.
func (h *GameHandler) GetGameState(c echo.Context) error {
	gameID := c.Param("gameId")
	game, err := h.gameManager.GetGame(gameID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Game not found")
	}
	return c.JSON(http.StatusOK, game)
}

// GetTranscript returns the archived state-change log for a game.
func (h *GameHandler) GetTranscript(c echo.Context) error {
	if h.transcripts == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "transcript archive not configured")
	}
	gameID := c.Param("gameId")
	changes, err := h.transcripts.Transcript(gameID)
	if err != nil {
		h.logger.Errorf("Failed to read transcript for %s: %v", gameID, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "transcript unavailable")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"gameId":     gameID,
		"transcript": changes,
	})
}

// SubmitAction applies one action for the authenticated player.
func (h *GameHandler) SubmitAction(c echo.Context) error {
	gameID := c.Param("gameId")
	playerID, ok := c.Get("playerID").(string)
	if !ok || playerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing player identity")
	}
	if tokenGameID, _ := c.Get("tokenGameID").(string); tokenGameID != "" && tokenGameID != gameID {
		return echo.NewHTTPError(http.StatusForbidden, "token not valid for this game")
	}

	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	change, err := h.gameManager.SubmitAction(gameID, playerID, models.Action{
		Type:      req.Type,
		PlayerID:  playerID,
		GameID:    gameID,
		CardID:    req.CardID,
		Amount:    req.Amount,
		Timestamp: time.Now(),
	})
	if err != nil {
		return h.actionError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// SkipTurn forfeits the active player's turn. Intended for timeout
// enforcement on disconnected players.
func (h *GameHandler) SkipTurn(c echo.Context) error {
	gameID := c.Param("gameId")
	change, err := h.gameManager.SkipTurn(gameID)
	if err != nil {
		return h.actionError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// LegalActions reports what the authenticated player may do right now.
func (h *GameHandler) LegalActions(c echo.Context) error {
	gameID := c.Param("gameId")
	playerID, ok := c.Get("playerID").(string)
	if !ok || playerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing player identity")
	}

	actions, err := h.gameManager.LegalActions(gameID, playerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"gameId":  gameID,
		"actions": actions,
	})
}

// actionError maps engine errors onto HTTP status codes.
func (h *GameHandler) actionError(err error) error {
	switch {
	case errors.Is(err, engine.ErrTerminalState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrIllegalAction),
		errors.Is(err, engine.ErrInvalidTarget),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrDeckEmpty):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Errorf("Action failed: %v", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
}
