package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/game/models"
)

// memStore keeps saved games in memory so manager tests need no database.
type memStore struct {
	mu    sync.Mutex
	saved map[string]*models.Game
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*models.Game)}
}

func (m *memStore) SaveGame(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[game.ID.Hex()] = game
	return nil
}

func (m *memStore) LoadGame(ctx context.Context, id string) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[id], nil
}

func (m *memStore) LoadActiveGames(ctx context.Context) ([]*models.Game, error) {
	return nil, nil
}

func (m *memStore) LoadCardCatalog(ctx context.Context) ([]models.Card, error) {
	return nil, nil
}

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		MaxPlayers:             6,
		MinimumPlayersToStart:  2,
		StartingCash:           5000,
		WinningNetWorth:        250000,
		DebtCeiling:            50000,
		InterestPercent:        10,
		LoanFeePercent:         20,
		LoanIncrement:          5000,
		SideJobPay:             5000,
		AuctionCashFloor:       5000,
		IdleGameExpiryDuration: 24,
	}
}

func newTestManager(t *testing.T) (*GameManager, *memStore) {
	t.Helper()
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	gm := NewGameManager(ctx, store, testGameConfig(), zap.NewNop().Sugar(), nil, nil)
	return gm, store
}

func TestCreateGameValidatesPlayerCount(t *testing.T) {
	gm, _ := newTestManager(t)

	_, err := gm.CreateGame(GameOptions{NumHumanPlayers: 1})
	assert.Error(t, err, "one player is below the minimum")

	_, err = gm.CreateGame(GameOptions{NumHumanPlayers: 4, NumAIPlayers: 4})
	assert.Error(t, err, "eight players exceeds the table")
}

func TestCreateGameValidatesExplicitProfiles(t *testing.T) {
	gm, _ := newTestManager(t)

	_, err := gm.CreateGame(GameOptions{
		NumAIPlayers:        2,
		AIProfileAssignment: "explicit",
		AIProfiles:          []models.AIProfile{models.ProfileCautious},
	})
	assert.Error(t, err, "profile list must match the AI player count")
}

func TestCreateGameAllAIPlaysToCompletion(t *testing.T) {
	gm, store := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{
		Name:         "bots only",
		NumAIPlayers: 2,
		Seed:         42,
		MaxTurns:     60,
	})
	require.NoError(t, err)

	// With no humans at the table the manager drives the whole game during
	// creation.
	assert.True(t, g.Finished)
	assert.NotEmpty(t, g.WinnerID)
	assert.Equal(t, models.GameStatusCompleted, g.Status)
	assert.NotEmpty(t, g.Code)

	// Finished games are persisted and leave the live registry.
	saved, err := store.LoadGame(context.Background(), g.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Finished)
	assert.False(t, gm.HasGame(g.ID.Hex()))
}

func TestCreateGameSameSeedSamePlay(t *testing.T) {
	opts := GameOptions{
		NumAIPlayers:        2,
		AIProfileAssignment: "explicit",
		AIProfiles:          []models.AIProfile{models.ProfileCautious, models.ProfileGambler},
		Seed:                77,
		MaxTurns:            60,
	}

	gmA, _ := newTestManager(t)
	gmB, _ := newTestManager(t)
	a, err := gmA.CreateGame(opts)
	require.NoError(t, err)
	b, err := gmB.CreateGame(opts)
	require.NoError(t, err)

	// Player ids differ per run, so compare the shape of the play instead.
	assert.Equal(t, a.TurnCount, b.TurnCount)
	assert.Equal(t, a.Year, b.Year)
	assert.Len(t, b.Transactions, len(a.Transactions))
}

func TestCreateGameStopsAtHumanTurn(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{
		NumHumanPlayers: 1,
		NumAIPlayers:    1,
		HumanNames:      []string{"Dana"},
		Seed:            101,
		MaxTurns:        200,
	})
	require.NoError(t, err)

	require.False(t, g.Finished)
	active := g.ActivePlayer()
	require.NotNil(t, active)
	assert.False(t, active.IsAI(), "the manager must hand the turn to the human")
	assert.Equal(t, "Dana", active.Name)
	assert.True(t, gm.HasGame(g.ID.Hex()))
}

func TestSubmitActionDrivesAIFollowUps(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{
		NumHumanPlayers: 1,
		NumAIPlayers:    1,
		Seed:            103,
		MaxTurns:        200,
	})
	require.NoError(t, err)

	human := g.ActivePlayer()
	require.False(t, human.IsAI())

	change, err := gm.SubmitAction(g.ID.Hex(), human.ID, models.Action{Type: models.ActionRoll})
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.NotEmpty(t, change.Summary)

	// After the human acted, the AI either took its turn and handed back,
	// or the game ended.
	if !g.Finished {
		next := g.ActivePlayer()
		require.NotNil(t, next)
		assert.False(t, next.IsAI())
	}
}

func TestSubmitActionUnknownGame(t *testing.T) {
	gm, _ := newTestManager(t)
	_, err := gm.SubmitAction("missing", "nobody", models.Action{Type: models.ActionRoll})
	assert.Error(t, err)
}

func TestSubmitActionOutOfTurnRejected(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{
		NumHumanPlayers: 2,
		Seed:            107,
	})
	require.NoError(t, err)

	active := g.ActivePlayer()
	var idle string
	for i := range g.Players {
		if g.Players[i].ID != active.ID {
			idle = g.Players[i].ID
		}
	}

	_, err = gm.SubmitAction(g.ID.Hex(), idle, models.Action{Type: models.ActionRoll})
	assert.Error(t, err)
}

func TestSkipTurnAdvancesTheGame(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{
		NumHumanPlayers: 2,
		Seed:            109,
	})
	require.NoError(t, err)

	first := g.ActivePlayer().ID
	change, err := gm.SkipTurn(g.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, first, change.PlayerID)
	assert.NotEqual(t, first, g.ActivePlayer().ID)
}

func TestListGamesSummarizesRegistry(t *testing.T) {
	gm, _ := newTestManager(t)
	assert.Empty(t, gm.ListGames())

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 113, Name: "open table"})
	require.NoError(t, err)

	list := gm.ListGames()
	require.Len(t, list, 1)
	assert.Equal(t, g.ID.Hex(), list[0].ID)
	assert.Equal(t, g.Code, list[0].Code)
	assert.Equal(t, "open table", list[0].Name)
	assert.Equal(t, 2, list[0].Players)
	assert.Equal(t, models.GameStatusActive, list[0].Status)
}

func TestLegalActionsThroughManager(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 127})
	require.NoError(t, err)

	active := g.ActivePlayer()
	legal, err := gm.LegalActions(g.ID.Hex(), active.ID)
	require.NoError(t, err)
	assert.Contains(t, legal, models.ActionRoll)

	_, err = gm.LegalActions(g.ID.Hex(), "nobody")
	assert.Error(t, err)
}

func TestConnectAndDisconnectPlayer(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 131})
	require.NoError(t, err)
	playerID := g.Players[0].ID

	require.NoError(t, gm.ConnectPlayer(g.ID.Hex(), playerID, "session-1"))
	assert.Equal(t, "session-1", g.PlayerByID(playerID).SessionID)
	assert.Nil(t, g.PlayerByID(playerID).DisconnectedAt)

	gm.DisconnectPlayer(g.ID.Hex(), playerID)
	assert.Empty(t, g.PlayerByID(playerID).SessionID)
	assert.NotNil(t, g.PlayerByID(playerID).DisconnectedAt)
}

func TestGetGameReturnsDetachedSnapshot(t *testing.T) {
	gm, _ := newTestManager(t)

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 137})
	require.NoError(t, err)

	got, err := gm.GetGame(g.ID.Hex())
	require.NoError(t, err)
	assert.NotSame(t, g, got)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, g.Code, got.Code)
	assert.Equal(t, g.TurnOrder, got.TurnOrder)
	require.Len(t, got.Players, len(g.Players))
	assert.Equal(t, g.Players[0].Cash, got.Players[0].Cash)

	// Mutating the snapshot must not leak into the live session.
	got.Players[0].Cash = -1
	live, err := gm.GetGame(g.ID.Hex())
	require.NoError(t, err)
	assert.NotEqual(t, -1, live.Players[0].Cash)

	_, err = gm.GetGame("missing")
	assert.Error(t, err)
}

func TestWatchdogSkipsTimedOutHumanTurn(t *testing.T) {
	gm, _ := newTestManager(t)
	gm.cfg.TurnTimeout = 60

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 201})
	require.NoError(t, err)

	gm.sessionMutex.RLock()
	session := gm.sessions[g.ID.Hex()]
	gm.sessionMutex.RUnlock()
	require.NotNil(t, session)
	session.Game.LastActivity = time.Now().Add(-2 * time.Minute)

	before := g.TurnCount
	gm.skipStalledTurns()
	assert.Greater(t, g.TurnCount, before, "the stalled turn is forced through")
}

func TestWatchdogSkipsLongDisconnectedPlayer(t *testing.T) {
	gm, _ := newTestManager(t)
	gm.cfg.DisconnectionTimeout = 180

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 203})
	require.NoError(t, err)

	active := g.ActivePlayer()
	require.NotNil(t, active)
	gm.DisconnectPlayer(g.ID.Hex(), active.ID)
	gone := time.Now().Add(-10 * time.Minute)
	active.DisconnectedAt = &gone
	g.LastActivity = time.Now() // only the disconnection clock has run out

	before := g.TurnCount
	gm.skipStalledTurns()
	assert.Greater(t, g.TurnCount, before)
}

func TestWatchdogLeavesFreshTurnsAlone(t *testing.T) {
	gm, _ := newTestManager(t)
	gm.cfg.TurnTimeout = 60
	gm.cfg.DisconnectionTimeout = 180

	g, err := gm.CreateGame(GameOptions{NumHumanPlayers: 2, Seed: 205})
	require.NoError(t, err)

	before := g.TurnCount
	gm.skipStalledTurns()
	assert.Equal(t, before, g.TurnCount)
}
