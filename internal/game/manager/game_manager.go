// Package manager owns the registry of running games and orchestrates the
// engine: it serializes access per game, drives AI turns after every human
// action, and pushes state changes to the transport and the queue.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/game/ai"
	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/engine"
	"github.com/farmline/backend/internal/game/models"
	"github.com/farmline/backend/internal/game/utils"
)

// Store is the durability boundary the manager saves and restores through.
type Store interface {
	SaveGame(ctx context.Context, game *models.Game) error
	LoadGame(ctx context.Context, id string) (*models.Game, error)
	LoadActiveGames(ctx context.Context) ([]*models.Game, error)
	LoadCardCatalog(ctx context.Context) ([]models.Card, error)
}

// WebSocketHub defines the interface for broadcasting messages to clients
type WebSocketHub interface {
	BroadcastToGame(gameID string, message []byte)
}

// MessageQueue defines the interface for the message queue
type MessageQueue interface {
	EnqueueStateChange(gameID string, change *models.StateChange) error
	EnqueueGameStart(gameID string, data map[string]interface{}) error
}

// GameManager is responsible for managing game sessions
type GameManager struct {
	ctx          context.Context
	store        Store
	logger       *zap.SugaredLogger
	cfg          config.GameConfig
	engine       *engine.Engine
	sessions     map[string]*GameSession
	sessionMutex sync.RWMutex
	wsHub        WebSocketHub
	messageQueue MessageQueue
}

// GameSession pairs a game with its seeded dice and the mutex that
// serializes every mutation of it.
type GameSession struct {
	Game             *models.Game
	ConnectedPlayers map[string]string // playerID -> sessionID
	rng              *rand.Rand
	mutex            sync.Mutex
}

// GameOptions enumerates the recognized create-game options. Zero-valued
// rule fields fall back to the configured defaults.
type GameOptions struct {
	Name                string             `json:"name"`
	NumHumanPlayers     int                `json:"numHumanPlayers" validate:"min=0,max=6"`
	NumAIPlayers        int                `json:"numAiPlayers" validate:"min=0,max=6"`
	HumanNames          []string           `json:"humanNames,omitempty"`
	AIProfileAssignment string             `json:"aiProfileAssignment,omitempty"` // "explicit" or "random"
	AIProfiles          []models.AIProfile `json:"aiProfiles,omitempty"`
	StartingCash        int                `json:"startingCash,omitempty"`
	MaxTurns            int                `json:"maxTurns,omitempty"`
	WinningNetWorth     int                `json:"winningNetWorth,omitempty"`
	Seed                int64              `json:"seed,omitempty"`
}

var aiNames = []string{"Walt", "Pearl", "Gus", "Opal", "Ray", "June"}

// NewGameManager creates a new game manager instance and restores any
// active games from the store.
func NewGameManager(ctx context.Context, store Store, cfg config.GameConfig, logger *zap.SugaredLogger, wsHub WebSocketHub, messageQueue MessageQueue) *GameManager {
	catalog := cards.Default()
	if defs, err := store.LoadCardCatalog(ctx); err != nil {
		logger.Warnf("Failed to load card catalog, using built-in: %v", err)
	} else if len(defs) > 0 {
		catalog = cards.NewCatalog(defs)
	}

	eng := engine.New(catalog, logger)
	eng.SetAdvisor(ai.New(eng, logger))

	gm := &GameManager{
		ctx:          ctx,
		store:        store,
		logger:       logger,
		cfg:          cfg,
		engine:       eng,
		sessions:     make(map[string]*GameSession),
		wsHub:        wsHub,
		messageQueue: messageQueue,
	}

	gm.loadActiveGames()
	go gm.runCleanupTask()
	go gm.runTurnWatchdog()

	return gm
}

// SetWebSocketHub sets the WebSocket hub for the game manager
func (gm *GameManager) SetWebSocketHub(hub WebSocketHub) {
	gm.wsHub = hub
	gm.logger.Info("WebSocket hub set for game manager")
}

// SetMessageQueue sets the message queue for the game manager
func (gm *GameManager) SetMessageQueue(queue MessageQueue) {
	gm.messageQueue = queue
	gm.logger.Info("Message queue set for game manager")
}

// Engine exposes the rule engine for read-only queries such as legal
// action lookups.
func (gm *GameManager) Engine() *engine.Engine {
	return gm.engine
}

// CreateGame builds a new game from the given options, deals it into
// playing state and registers it. The returned game is a snapshot; all
// later mutations go through SubmitAction.
func (gm *GameManager) CreateGame(opts GameOptions) (*models.Game, error) {
	total := opts.NumHumanPlayers + opts.NumAIPlayers
	if total < gm.cfg.MinimumPlayersToStart || total > gm.cfg.MaxPlayers {
		return nil, fmt.Errorf("player count %d outside allowed range %d-%d",
			total, gm.cfg.MinimumPlayersToStart, gm.cfg.MaxPlayers)
	}
	if strings.EqualFold(opts.AIProfileAssignment, "explicit") && len(opts.AIProfiles) != opts.NumAIPlayers {
		return nil, fmt.Errorf("explicit profile assignment needs %d profiles, got %d",
			opts.NumAIPlayers, len(opts.AIProfiles))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	code, err := utils.GenerateRoomCode()
	if err != nil {
		return nil, fmt.Errorf("generate room code: %w", err)
	}

	now := time.Now()
	game := &models.Game{
		ID:           primitive.NewObjectID(),
		Code:         code,
		Name:         opts.Name,
		Status:       models.GameStatusLobby,
		Phase:        models.PhaseSetup,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
		Rules:        gm.rulesFrom(opts, seed),
	}

	for i := 0; i < opts.NumHumanPlayers; i++ {
		name := fmt.Sprintf("Player %d", i+1)
		if i < len(opts.HumanNames) && opts.HumanNames[i] != "" {
			name = opts.HumanNames[i]
		}
		game.Players = append(game.Players, models.Player{
			ID:   uuid.NewString(),
			Name: name,
		})
	}
	for i := 0; i < opts.NumAIPlayers; i++ {
		profile := gm.pickProfile(opts, i, rng)
		game.Players = append(game.Players, models.Player{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("%s (%s)", aiNames[i%len(aiNames)], profile),
			AIProfile: profile,
		})
	}

	gm.engine.Setup(game, rng)

	session := &GameSession{
		Game:             game,
		ConnectedPlayers: make(map[string]string),
		rng:              rng,
	}
	gm.sessionMutex.Lock()
	gm.sessions[game.ID.Hex()] = session
	gm.sessionMutex.Unlock()

	if err := gm.store.SaveGame(gm.ctx, game); err != nil {
		gm.logger.Errorf("Failed to persist new game %s: %v", game.ID.Hex(), err)
	}
	if gm.messageQueue != nil {
		if err := gm.messageQueue.EnqueueGameStart(game.ID.Hex(), map[string]interface{}{
			"code":    game.Code,
			"players": len(game.Players),
		}); err != nil {
			gm.logger.Warnf("Failed to enqueue game start for %s: %v", game.ID.Hex(), err)
		}
	}
	gm.logger.Infow("game created", "gameId", game.ID.Hex(), "code", game.Code,
		"humans", opts.NumHumanPlayers, "ai", opts.NumAIPlayers, "seed", seed)

	// If the game opens on an AI player's turn, get it moving.
	session.mutex.Lock()
	gm.driveAITurns(session)
	gm.flush(session)
	session.mutex.Unlock()

	return game, nil
}

func (gm *GameManager) rulesFrom(opts GameOptions, seed int64) models.Rules {
	rules := models.Rules{
		StartingCash:     gm.cfg.StartingCash,
		MaxTurns:         gm.cfg.MaxTurns,
		WinningNetWorth:  gm.cfg.WinningNetWorth,
		AuctionCashFloor: gm.cfg.AuctionCashFloor,
		LoanIncrement:    gm.cfg.LoanIncrement,
		LoanFeePercent:   gm.cfg.LoanFeePercent,
		DebtCeiling:      gm.cfg.DebtCeiling,
		InterestPercent:  gm.cfg.InterestPercent,
		SideJobPay:       gm.cfg.SideJobPay,
		Seed:             seed,
	}
	if opts.StartingCash > 0 {
		rules.StartingCash = opts.StartingCash
	}
	if opts.MaxTurns > 0 {
		rules.MaxTurns = opts.MaxTurns
	}
	if opts.WinningNetWorth > 0 {
		rules.WinningNetWorth = opts.WinningNetWorth
	}
	return rules
}

func (gm *GameManager) pickProfile(opts GameOptions, i int, rng *rand.Rand) models.AIProfile {
	if strings.EqualFold(opts.AIProfileAssignment, "explicit") {
		return opts.AIProfiles[i]
	}
	profiles := ai.Profiles()
	return profiles[rng.Intn(len(profiles))]
}

// SubmitAction applies one externally-sourced action to a game. The per-game
// mutex is held across the engine call, the AI follow-up turns and the save,
// so a game never interleaves two actions.
func (gm *GameManager) SubmitAction(gameID, playerID string, action models.Action) (*models.StateChange, error) {
	session, err := gm.session(gameID)
	if err != nil {
		return nil, err
	}

	session.mutex.Lock()
	defer session.mutex.Unlock()

	action.PlayerID = playerID
	action.GameID = gameID
	change, err := gm.engine.SubmitAction(session.Game, action, session.rng)
	if err != nil {
		return nil, err
	}
	gm.publish(session.Game, change)
	gm.driveAITurns(session)
	gm.flush(session)
	return change, nil
}

// SkipTurn forces the active player's default action. Called by the turn
// watchdog and by the moderation endpoint.
func (gm *GameManager) SkipTurn(gameID string) (*models.StateChange, error) {
	session, err := gm.session(gameID)
	if err != nil {
		return nil, err
	}

	session.mutex.Lock()
	defer session.mutex.Unlock()

	active := session.Game.ActivePlayer()
	if active == nil {
		return nil, fmt.Errorf("game %s has no active player", gameID)
	}
	change, err := gm.engine.SubmitAction(session.Game, models.Action{
		Type:      models.ActionSkip,
		PlayerID:  active.ID,
		GameID:    gameID,
		Timestamp: time.Now(),
	}, session.rng)
	if err != nil {
		return nil, err
	}
	gm.publish(session.Game, change)
	gm.driveAITurns(session)
	gm.flush(session)
	return change, nil
}

// HasGame reports whether a game is registered and live.
func (gm *GameManager) HasGame(gameID string) bool {
	gm.sessionMutex.RLock()
	defer gm.sessionMutex.RUnlock()
	_, ok := gm.sessions[gameID]
	return ok
}

// GameSummary is the lobby view of a registered game.
type GameSummary struct {
	ID      string            `json:"id"`
	Code    string            `json:"code"`
	Name    string            `json:"name"`
	Status  models.GameStatus `json:"status"`
	Phase   models.GamePhase  `json:"phase"`
	Year    int               `json:"year"`
	Players int               `json:"players"`
}

// ListGames returns summaries of all registered games, newest first.
func (gm *GameManager) ListGames() []GameSummary {
	gm.sessionMutex.RLock()
	defer gm.sessionMutex.RUnlock()

	summaries := make([]GameSummary, 0, len(gm.sessions))
	for _, session := range gm.sessions {
		session.mutex.Lock()
		g := session.Game
		summaries = append(summaries, GameSummary{
			ID:      g.ID.Hex(),
			Code:    g.Code,
			Name:    g.Name,
			Status:  g.Status,
			Phase:   g.Phase,
			Year:    g.Year,
			Players: len(g.Players),
		})
		session.mutex.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Code < summaries[j].Code })
	return summaries
}

// GetGame returns a point-in-time copy of the game, detached from the live
// session so callers can serialize it without racing the AI turn driver.
func (gm *GameManager) GetGame(gameID string) (*models.Game, error) {
	session, err := gm.session(gameID)
	if err != nil {
		return nil, err
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return snapshotGame(session.Game)
}

func snapshotGame(g *models.Game) (*models.Game, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("snapshot game %s: %w", g.ID.Hex(), err)
	}
	snap := &models.Game{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("snapshot game %s: %w", g.ID.Hex(), err)
	}
	return snap, nil
}

// LegalActions reports what the given player may do right now.
func (gm *GameManager) LegalActions(gameID, playerID string) ([]models.ActionType, error) {
	session, err := gm.session(gameID)
	if err != nil {
		return nil, err
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	p := session.Game.PlayerByID(playerID)
	if p == nil {
		return nil, fmt.Errorf("unknown player %q in game %s", playerID, gameID)
	}
	return gm.engine.LegalActions(session.Game, p), nil
}

// ConnectPlayer records a player's websocket session.
func (gm *GameManager) ConnectPlayer(gameID, playerID, sessionID string) error {
	session, err := gm.session(gameID)
	if err != nil {
		return err
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.ConnectedPlayers[playerID] = sessionID
	if p := session.Game.PlayerByID(playerID); p != nil {
		p.SessionID = sessionID
		p.DisconnectedAt = nil
	}
	return nil
}

// DisconnectPlayer marks a player disconnected; the game keeps running and
// their turns can be skipped by the timeout layer.
func (gm *GameManager) DisconnectPlayer(gameID, playerID string) {
	session, err := gm.session(gameID)
	if err != nil {
		return
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	delete(session.ConnectedPlayers, playerID)
	if p := session.Game.PlayerByID(playerID); p != nil {
		now := time.Now()
		p.DisconnectedAt = &now
		p.SessionID = ""
	}
}

// driveAITurns runs policy players to completion until the game is over or
// a human holds the turn. Callers hold the session mutex.
func (gm *GameManager) driveAITurns(session *GameSession) {
	// Hard bound so a rules bug can never spin the manager forever.
	for i := 0; i < 10*len(session.Game.Players)+100; i++ {
		g := session.Game
		if g.Finished {
			return
		}
		active := g.ActivePlayer()
		if active == nil || !active.IsAI() {
			return
		}
		action := gm.engine.NextAIAction(g, active)
		change, err := gm.engine.SubmitAction(g, action, session.rng)
		if err != nil {
			gm.logger.Errorw("AI action rejected, forcing roll", "gameId", g.ID.Hex(),
				"player", active.Name, "action", action.Type, "error", err)
			change, err = gm.engine.SubmitAction(g, models.Action{
				Type: models.ActionRoll, PlayerID: active.ID, GameID: g.ID.Hex(), Timestamp: time.Now(),
			}, session.rng)
			if err != nil {
				return
			}
		}
		gm.publish(g, change)
	}
	gm.logger.Errorw("AI turn loop bound hit", "gameId", session.Game.ID.Hex())
}

// publish fans a committed state change out to the websocket hub and the
// message queue.
func (gm *GameManager) publish(g *models.Game, change *models.StateChange) {
	if change == nil {
		return
	}
	if gm.wsHub != nil {
		if payload, err := json.Marshal(change); err == nil {
			gm.wsHub.BroadcastToGame(change.GameID, payload)
		} else {
			gm.logger.Errorf("Failed to marshal state change for %s: %v", change.GameID, err)
		}
	}
	if gm.messageQueue != nil {
		if err := gm.messageQueue.EnqueueStateChange(change.GameID, change); err != nil {
			gm.logger.Warnf("Failed to enqueue state change for %s: %v", change.GameID, err)
		}
	}
}

// flush persists the session's game and drops finished games from the
// registry once the save succeeds.
func (gm *GameManager) flush(session *GameSession) {
	g := session.Game
	if err := gm.store.SaveGame(gm.ctx, g); err != nil {
		// In-memory state is authoritative; the next flush retries.
		gm.logger.Errorf("Failed to persist game %s: %v", g.ID.Hex(), err)
		return
	}
	if g.Finished {
		gm.sessionMutex.Lock()
		delete(gm.sessions, g.ID.Hex())
		gm.sessionMutex.Unlock()
		gm.logger.Infow("game finished and unregistered", "gameId", g.ID.Hex(), "winner", g.WinnerID)
	}
}

func (gm *GameManager) session(gameID string) (*GameSession, error) {
	gm.sessionMutex.RLock()
	session, ok := gm.sessions[gameID]
	gm.sessionMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("game %s not found", gameID)
	}
	return session, nil
}

// loadActiveGames restores running games from the store into the registry.
// Restored games get dice reseeded from the rule seed and turn count; the
// stream differs from an uninterrupted run but stays reproducible.
func (gm *GameManager) loadActiveGames() {
	games, err := gm.store.LoadActiveGames(gm.ctx)
	if err != nil {
		gm.logger.Errorf("Failed to load active games: %v", err)
		return
	}
	for _, g := range games {
		gm.sessions[g.ID.Hex()] = &GameSession{
			Game:             g,
			ConnectedPlayers: make(map[string]string),
			rng:              rand.New(rand.NewSource(g.Rules.Seed + int64(g.TurnCount))),
		}
		gm.logger.Infof("Restored game %s (%s), year %d, turn %d", g.ID.Hex(), g.Code, g.Year, g.TurnCount)
	}
	gm.logger.Infof("Restored %d active games", len(games))
}

// runTurnWatchdog periodically forces the default action for human players
// who stall past the turn timeout or stay disconnected past the
// disconnection timeout, so one absent player cannot freeze the table.
func (gm *GameManager) runTurnWatchdog() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.skipStalledTurns()
		}
	}
}

func (gm *GameManager) skipStalledTurns() {
	turnLimit := time.Duration(gm.cfg.TurnTimeout) * time.Second
	discLimit := time.Duration(gm.cfg.DisconnectionTimeout) * time.Second
	if turnLimit <= 0 && discLimit <= 0 {
		return
	}

	gm.sessionMutex.RLock()
	ids := make([]string, 0, len(gm.sessions))
	for id := range gm.sessions {
		ids = append(ids, id)
	}
	gm.sessionMutex.RUnlock()

	for _, id := range ids {
		if !gm.turnStalled(id, turnLimit, discLimit) {
			continue
		}
		if _, err := gm.SkipTurn(id); err != nil {
			gm.logger.Warnw("Failed to skip stalled turn", "gameId", id, "error", err)
		} else {
			gm.logger.Infow("skipped stalled turn", "gameId", id)
		}
	}
}

// turnStalled reports whether the game's active player is a human who has
// run out the turn clock or the disconnection grace period.
func (gm *GameManager) turnStalled(gameID string, turnLimit, discLimit time.Duration) bool {
	session, err := gm.session(gameID)
	if err != nil {
		return false
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()

	g := session.Game
	if g.Finished || g.Phase != models.PhaseAwaitingAction {
		return false
	}
	active := g.ActivePlayer()
	if active == nil || active.IsAI() {
		return false
	}
	if discLimit > 0 && active.DisconnectedAt != nil && time.Since(*active.DisconnectedAt) > discLimit {
		return true
	}
	return turnLimit > 0 && time.Since(g.LastActivity) > turnLimit
}

// runCleanupTask periodically abandons games idle past the configured
// expiry.
func (gm *GameManager) runCleanupTask() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.cleanupIdleGames()
		}
	}
}

func (gm *GameManager) cleanupIdleGames() {
	expiry := time.Duration(gm.cfg.IdleGameExpiryDuration) * time.Hour
	if expiry <= 0 {
		return
	}

	gm.sessionMutex.RLock()
	var stale []*GameSession
	for _, session := range gm.sessions {
		if time.Since(session.Game.LastActivity) > expiry {
			stale = append(stale, session)
		}
	}
	gm.sessionMutex.RUnlock()

	for _, session := range stale {
		session.mutex.Lock()
		g := session.Game
		g.Status = models.GameStatusAbandoned
		g.Finished = true
		g.Phase = models.PhaseGameOver
		if err := gm.store.SaveGame(gm.ctx, g); err != nil {
			gm.logger.Errorf("Failed to persist abandoned game %s: %v", g.ID.Hex(), err)
		}
		session.mutex.Unlock()

		gm.sessionMutex.Lock()
		delete(gm.sessions, g.ID.Hex())
		gm.sessionMutex.Unlock()
		gm.logger.Infow("abandoned idle game", "gameId", g.ID.Hex(), "lastActivity", g.LastActivity)
	}
}
