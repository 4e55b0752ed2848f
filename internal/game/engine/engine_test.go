package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/board"
	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/models"
)

func newTestEngine() *Engine {
	return New(cards.Default(), zap.NewNop().Sugar())
}

func testRules(seed int64) models.Rules {
	return models.Rules{
		StartingCash:     5000,
		WinningNetWorth:  250000,
		AuctionCashFloor: 5000,
		LoanIncrement:    5000,
		LoanFeePercent:   20,
		DebtCeiling:      50000,
		InterestPercent:  10,
		SideJobPay:       5000,
		Seed:             seed,
	}
}

func newTestGame(names ...string) *models.Game {
	g := &models.Game{
		ID:     primitive.NewObjectID(),
		Code:   "TEST42",
		Status: models.GameStatusLobby,
		Phase:  models.PhaseSetup,
		Rules:  testRules(1),
	}
	for i, name := range names {
		g.Players = append(g.Players, models.Player{
			ID:   fmt.Sprintf("p%d", i+1),
			Name: name,
		})
	}
	return g
}

// stubAdvisor answers the engine callbacks with canned values so tests do
// not depend on the real decision policies.
type stubAdvisor struct {
	bids map[string]int
}

func (s stubAdvisor) DetermineNextAction(g *models.Game, p *models.Player) models.Action {
	return models.Action{Type: models.ActionRoll, PlayerID: p.ID, GameID: g.ID.Hex()}
}

func (s stubAdvisor) BidForBlock(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	return s.bids[p.ID]
}

func TestSetupDealsPlayersIn(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben", "Cal")
	rng := rand.New(rand.NewSource(7))

	e.Setup(g, rng)

	assert.Equal(t, models.GameStatusActive, g.Status)
	assert.Equal(t, models.PhaseAwaitingAction, g.Phase)
	assert.Equal(t, 1, g.Year)
	assert.Equal(t, 0, g.CurrentTurn)

	for i := range g.Players {
		p := &g.Players[i]
		assert.Equal(t, 5000, p.Cash, p.Name)
		assert.Equal(t, 0, p.Position, p.Name)
		assert.Equal(t, 10, p.Quantity(models.AssetHay), p.Name)
		assert.Equal(t, 10, p.Quantity(models.AssetGrain), p.Name)
		assert.True(t, p.SideJobPay, p.Name)
	}

	// Turn order is a permutation of the player ids.
	require.Len(t, g.TurnOrder, 3)
	seen := map[string]bool{}
	for _, id := range g.TurnOrder {
		require.NotNil(t, g.PlayerByID(id))
		seen[id] = true
	}
	assert.Len(t, seen, 3)

	catalog := cards.Default()
	assert.Len(t, g.FateDeck.DrawPile, catalog.Instances(models.CardTypeFate))
	assert.Len(t, g.ExpenseDeck.DrawPile, catalog.Instances(models.CardTypeExpense))
	assert.Len(t, g.OTBDeck.DrawPile, catalog.Instances(models.CardTypeOTB, models.CardTypeLease))
	assert.Len(t, g.Ridges, 4)
}

func TestSetupTurnOrderVariesWithSeed(t *testing.T) {
	e := newTestEngine()
	first := map[string]bool{}
	for seed := int64(0); seed < 30; seed++ {
		g := newTestGame("Ann", "Ben")
		rng := rand.New(rand.NewSource(seed))
		e.Setup(g, rng)
		first[g.TurnOrder[0]] = true
	}
	assert.True(t, first["p1"], "p1 never drew the opening turn")
	assert.True(t, first["p2"], "p2 never drew the opening turn")
}

func TestLegalActionsGating(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(3))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	require.NotNil(t, active)
	var idle *models.Player
	for i := range g.Players {
		if g.Players[i].ID != active.ID {
			idle = &g.Players[i]
		}
	}

	assert.Empty(t, e.LegalActions(g, idle), "out-of-turn player has no actions")

	legal := e.LegalActions(g, active)
	assert.Contains(t, legal, models.ActionRoll)
	assert.Contains(t, legal, models.ActionSkip)
	assert.NotContains(t, legal, models.ActionExerciseOption)
	assert.NotContains(t, legal, models.ActionRepayLoan)
	assert.NotContains(t, legal, models.ActionDeclareBankruptcy)

	// An option card in hand opens the purchase window at the start of the
	// board but not past it.
	active.Hand = []int{300}
	assert.Contains(t, e.LegalActions(g, active), models.ActionExerciseOption)
	active.Position = optionWindowEnd + 1
	assert.NotContains(t, e.LegalActions(g, active), models.ActionExerciseOption)

	// Lease cards have no position window.
	active.Hand = []int{401}
	assert.Contains(t, e.LegalActions(g, active), models.ActionPlayCard)

	active.Loans = []models.Loan{{Principal: 4000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	legal = e.LegalActions(g, active)
	assert.Contains(t, legal, models.ActionRepayLoan)
	assert.Contains(t, legal, models.ActionDeclareBankruptcy)

	g.Finished = true
	assert.Empty(t, e.LegalActions(g, active))
}

func TestSubmitActionRejections(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(5))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	var idle *models.Player
	for i := range g.Players {
		if g.Players[i].ID != active.ID {
			idle = &g.Players[i]
		}
	}

	_, err := e.SubmitAction(g, models.Action{Type: models.ActionRoll, PlayerID: idle.ID}, rng)
	assert.ErrorIs(t, err, ErrIllegalAction)

	_, err = e.SubmitAction(g, models.Action{Type: models.ActionRoll, PlayerID: "nobody"}, rng)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	g.Finished = true
	_, err = e.SubmitAction(g, models.Action{Type: models.ActionRoll, PlayerID: active.ID}, rng)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestRollMovesActivePlayer(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(9))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	change, err := e.SubmitAction(g, models.Action{Type: models.ActionRoll, PlayerID: active.ID}, rng)
	require.NoError(t, err)
	require.NotNil(t, change)

	assert.GreaterOrEqual(t, active.Position, 1)
	assert.LessOrEqual(t, active.Position, 6)
	assert.Equal(t, 1, g.TurnCount)
	assert.Equal(t, 1, active.TurnsTaken)
	assert.Equal(t, models.PhaseAwaitingAction, g.Phase)
	assert.NotEmpty(t, change.Summary)
	assert.Equal(t, active.ID, change.PlayerID)
}

func TestExerciseOptionBuysLand(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(13))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	active.Hand = []int{300} // 10 acres of grain, $5,000

	change, err := e.SubmitAction(g, models.Action{
		Type: models.ActionExerciseOption, PlayerID: active.ID, CardID: 300,
	}, rng)
	require.NoError(t, err)
	require.NotNil(t, change)

	assert.Equal(t, 20, active.Quantity(models.AssetGrain))
	assert.Equal(t, 0, active.Cash)
	assert.Empty(t, active.Loans, "a fully funded purchase takes no note")
	assert.False(t, active.HasCard(300))
	assert.Contains(t, g.OTBDeck.DiscardPile, 300)
}

func TestExerciseOptionFinancedByBankNote(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(17))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	active.Hand = []int{302} // 5 acres of fruit, $10,000 against $5,000 cash

	_, err := e.SubmitAction(g, models.Action{
		Type: models.ActionExerciseOption, PlayerID: active.ID, CardID: 302,
	}, rng)
	require.NoError(t, err)

	assert.Equal(t, 5, active.Quantity(models.AssetFruit))
	require.Len(t, active.Loans, 1)
	assert.Equal(t, models.LoanOriginBank, active.Loans[0].Origin, "deliberate financing, not an emergency loan")
	assert.Equal(t, 5000, active.Loans[0].Principal)
	assert.Equal(t, 0, active.Cash)
}

func TestExerciseOptionUnfundableRejected(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(19))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	active.Cash = 1000
	active.Loans = []models.Loan{{Principal: 45000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	active.Hand = []int{302} // $10,000 against $1,000 cash + $5,000 headroom

	_, err := e.SubmitAction(g, models.Action{
		Type: models.ActionExerciseOption, PlayerID: active.ID, CardID: 302,
	}, rng)
	assert.ErrorIs(t, err, ErrIllegalAction)

	assert.True(t, active.HasCard(302), "rejected action leaves the card in hand")
	assert.Equal(t, 1000, active.Cash)
	assert.Equal(t, models.PhaseAwaitingAction, g.Phase)
	assert.Equal(t, 0, g.TurnCount, "rejected action does not consume the turn")
}

func TestRepayLoanAction(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(23))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	active.Loans = []models.Loan{{Principal: 4000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}

	_, err := e.SubmitAction(g, models.Action{
		Type: models.ActionRepayLoan, PlayerID: active.ID, Amount: 3000,
	}, rng)
	require.NoError(t, err)

	assert.Equal(t, 1000, active.Debt())
	assert.Equal(t, 2000, active.Cash)
}

func TestDeclareBankruptcyWithoutBidders(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(29))
	e.Setup(g, rng)

	active := g.ActivePlayer()
	active.Loans = []models.Loan{{Principal: 6000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}

	change, err := e.SubmitAction(g, models.Action{
		Type: models.ActionDeclareBankruptcy, PlayerID: active.ID,
	}, rng)
	require.NoError(t, err)

	// No advisor installed: nobody bids, the holdings stay put and the
	// player stays in the game.
	assert.False(t, active.Eliminated)
	assert.False(t, active.Bankrupt)
	assert.Equal(t, 10, active.Quantity(models.AssetHay))
	assert.Contains(t, change.Summary[0], "declares bankruptcy")
}

func TestYearEndSequence(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(31))
	e.Setup(g, rng)

	ann := g.PlayerByID("p1")
	ann.Loans = []models.Loan{{Principal: 10000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	ann.Modifiers = []models.Modifier{
		{Asset: models.AssetHay, Multiplier: 2.0},
		{Asset: models.AssetCows, Multiplier: 1.2, Permanent: true},
	}
	for i := range g.Players {
		g.Players[i].WrappedYear = true
	}

	e.runYearEnd(g, rng)

	assert.Equal(t, 2, g.Year)
	assert.Equal(t, 0, g.CurrentTurn)

	// Temporary modifiers cleared, permanent ones kept.
	require.Len(t, ann.Modifiers, 1)
	assert.True(t, ann.Modifiers[0].Permanent)
	assert.Equal(t, models.AssetCows, ann.Modifiers[0].Asset)

	// Interest compounded into principal: harvest income plus starting cash
	// covers every operating expense card, so the only note is the original.
	require.Len(t, ann.Loans, 1)
	assert.Equal(t, 11000, ann.Debt())

	for i := range g.Players {
		p := &g.Players[i]
		assert.False(t, p.WrappedYear, p.Name)
		assert.False(t, p.SkipNextYear, p.Name)
		assert.Nil(t, p.LockedBlocks, p.Name)
	}

	// Side-job wages paid to every player who completed the lap.
	paid := map[string]bool{}
	for _, tx := range g.Transactions {
		if tx.Type == models.TransactionSideJob {
			paid[tx.ToPlayerID] = true
		}
	}
	assert.True(t, paid["p1"])
	assert.True(t, paid["p2"])
}

func TestYearEndReshuffleDropsEliminated(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben", "Cal")
	rng := rand.New(rand.NewSource(37))
	e.Setup(g, rng)

	g.PlayerByID("p2").Eliminated = true
	e.reshuffleTurnOrder(g, rng)

	assert.Len(t, g.TurnOrder, 2)
	assert.NotContains(t, g.TurnOrder, "p2")
}

func TestGameOverOnNetWorthThreshold(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(41))
	e.Setup(g, rng)

	ann := g.PlayerByID("p1")
	ann.Cash = 300000

	summary := e.checkGameOver(g)
	require.NotNil(t, summary)
	assert.True(t, g.Finished)
	assert.Equal(t, "p1", g.WinnerID)
	assert.Equal(t, models.GameStatusCompleted, g.Status)
	assert.Equal(t, models.PhaseGameOver, g.Phase)
}

func TestGameOverOnTurnLimit(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(43))
	e.Setup(g, rng)
	g.Rules.MaxTurns = 10
	g.TurnCount = 10
	g.PlayerByID("p2").Cash = 9000 // richest

	summary := e.checkGameOver(g)
	require.NotNil(t, summary)
	assert.True(t, g.Finished)
	assert.Equal(t, "p2", g.WinnerID)
}

func TestGameOverLastPlayerStanding(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(47))
	e.Setup(g, rng)
	g.PlayerByID("p1").Eliminated = true

	summary := e.checkGameOver(g)
	require.NotNil(t, summary)
	assert.Equal(t, "p2", g.WinnerID)
}

func TestNextAIActionWithoutAdvisorDefaultsToRoll(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	rng := rand.New(rand.NewSource(53))
	e.Setup(g, rng)

	action := e.NextAIAction(g, g.ActivePlayer())
	assert.Equal(t, models.ActionRoll, action.Type)
}

// Plays a complete two-player game on rolls alone: the invariants that must
// hold after every single action are the ones a replay consumer relies on.
func TestFullGameRunsToCompletion(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	g.Rules.MaxTurns = 120
	rng := rand.New(rand.NewSource(11))
	e.Setup(g, rng)

	for i := 0; i < 1000 && !g.Finished; i++ {
		p := g.ActivePlayer()
		require.NotNil(t, p, "turn %d has no active player", i)
		_, err := e.SubmitAction(g, models.Action{Type: models.ActionRoll, PlayerID: p.ID}, rng)
		require.NoError(t, err, "turn %d", i)

		for j := range g.Players {
			require.GreaterOrEqual(t, g.Players[j].Cash, 0,
				"%s observed with negative cash", g.Players[j].Name)
			require.Less(t, g.Players[j].Position, board.Size())
		}
	}

	require.True(t, g.Finished, "game did not terminate within the turn limit")
	assert.NotEmpty(t, g.WinnerID)
	assert.Equal(t, models.GameStatusCompleted, g.Status)
	assert.Equal(t, models.PhaseGameOver, g.Phase)
}

func TestLandingExactlyOnStartPaysBonusOnce(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	e.Setup(g, rand.New(rand.NewSource(3)))

	// Find a seed whose first die roll is a 1, so a move from the last tile
	// lands exactly on the start tile.
	var seed int64
	for rand.New(rand.NewSource(seed)).Intn(6) != 0 {
		seed++
	}

	p := &g.Players[0]
	p.Position = board.Size() - 1
	p.Cash = 5000

	summary := e.rollAndMove(g, p, rand.New(rand.NewSource(seed)))
	require.NotEmpty(t, summary)
	assert.Equal(t, 0, p.Position)
	assert.True(t, p.WrappedYear)
	assert.Equal(t, 6000, p.Cash, "the start-tile bonus pays once, not twice")
}

func TestReshuffleReachesEveryTurnOrderUniformly(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben", "Cora")
	e.Setup(g, rand.New(rand.NewSource(5)))
	g.Players[2].AIProfile = models.ProfileBalanced // mixed table

	const trials = 6000
	rng := rand.New(rand.NewSource(5))
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		e.reshuffleTurnOrder(g, rng)
		counts[strings.Join(g.TurnOrder, ",")]++
	}

	require.Len(t, counts, 6, "all 3! orderings must be reachable")
	for order, n := range counts {
		// Expected 1000 per ordering; 150 is over five standard deviations.
		assert.InDelta(t, trials/6, n, 150, "ordering %s drawn %d times", order, n)
	}
}
