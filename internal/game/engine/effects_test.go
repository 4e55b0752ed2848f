package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmline/backend/internal/game/board"
	"github.com/farmline/backend/internal/game/models"
)

func TestConditionMet(t *testing.T) {
	p := &models.Player{Cash: 1000}
	p.AddAsset(models.AssetCows, 5, 0)

	assert.True(t, conditionMet(p, &models.Condition{HasAsset: models.AssetCows}))
	assert.False(t, conditionMet(p, &models.Condition{HasAsset: models.AssetFruit}))
	assert.True(t, conditionMet(p, &models.Condition{MissingAsset: models.AssetTractor}))
	assert.False(t, conditionMet(p, &models.Condition{MissingAsset: models.AssetCows}))
	assert.True(t, conditionMet(p, &models.Condition{MinCash: 1000}))
	assert.False(t, conditionMet(p, &models.Condition{MinCash: 1001}))
}

func TestConditionalPaymentGuarded(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 5000

	effects := []models.Effect{{
		Kind: models.EffectConditionalPayment, Amount: 500,
		Condition: &models.Condition{HasAsset: models.AssetCows},
	}}
	rng := rand.New(rand.NewSource(83))

	// No cows: the charge never fires.
	e.ResolveEffects(g, p, effects, rng)
	assert.Equal(t, 5000, p.Cash)

	p.AddAsset(models.AssetCows, 10, 0)
	e.ResolveEffects(g, p, effects, rng)
	assert.Equal(t, 4500, p.Cash)
}

func TestIncomeAndExpensePrimitives(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 1000
	rng := rand.New(rand.NewSource(89))

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectIncome, Amount: 2000}}, rng)
	assert.Equal(t, 3000, p.Cash)

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectExpense, Amount: 500}}, rng)
	assert.Equal(t, 2500, p.Cash)
}

func TestPerAssetPrimitivesScaleWithHoldings(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 5000
	p.AddAsset(models.AssetCows, 12, 0)
	rng := rand.New(rand.NewSource(97))

	e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectExpensePerAsset, Asset: models.AssetCows, Rate: 50,
	}}, rng)
	assert.Equal(t, 4400, p.Cash)

	e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectIncomePerAsset, Asset: models.AssetCows, Rate: 100,
	}}, rng)
	assert.Equal(t, 5600, p.Cash)

	// Zero holdings resolve to nothing at all, not a zero-dollar line.
	lines := e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectExpensePerAsset, Asset: models.AssetFruit, Rate: 100,
	}}, rng)
	assert.Empty(t, lines)
}

func TestPayInterestDefaultsToRuleRate(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 5000
	p.Loans = []models.Loan{{Principal: 8000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	rng := rand.New(rand.NewSource(101))

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectPayInterest}}, rng)

	// 10% of principal, paid from cash; principal itself is untouched.
	assert.Equal(t, 4200, p.Cash)
	assert.Equal(t, 8000, p.Debt())
}

func TestCollectFromOthersSkipsNonHolders(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben", "Cal")
	ann, ben, cal := g.PlayerByID("p1"), g.PlayerByID("p2"), g.PlayerByID("p3")
	ann.Cash, ben.Cash, cal.Cash = 1000, 3000, 3000
	ben.AddAsset(models.AssetHay, 10, 0)
	rng := rand.New(rand.NewSource(103))

	e.ResolveEffects(g, ann, []models.Effect{{
		Kind: models.EffectCollectFromOthers, Asset: models.AssetHay, Amount: 500,
	}}, rng)

	assert.Equal(t, 1500, ann.Cash, "only the hay holder pays")
	assert.Equal(t, 2500, ben.Cash)
	assert.Equal(t, 3000, cal.Cash)
}

func TestMoveResolvesLandingTile(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 1000
	rng := rand.New(rand.NewSource(107))

	// Tile 36 pays a flat $500 on arrival.
	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectMove, TileIndex: 36}}, rng)

	assert.Equal(t, 36, p.Position)
	assert.Equal(t, 1500, p.Cash)
}

func TestEarlyExitStopsChainWhenChargeFails(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 100
	p.Loans = []models.Loan{{Principal: 50000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	g.OTBDeck = models.Deck{DrawPile: []int{300}}
	rng := rand.New(rand.NewSource(109))

	// Barn Fire: pay $2,000 or forfeit the salvage draw.
	card, ok := e.catalog.ByID(210)
	require.True(t, ok)
	e.ResolveEffects(g, p, card.Effects, rng)

	assert.True(t, p.Bankrupt)
	assert.Empty(t, p.Hand, "failed payment must forfeit the follow-up draw")
	assert.Len(t, g.OTBDeck.DrawPile, 1)
}

func TestEarlyExitChainContinuesWhenPaid(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 5000
	g.OTBDeck = models.Deck{DrawPile: []int{300}}
	rng := rand.New(rand.NewSource(113))

	card, ok := e.catalog.ByID(210)
	require.True(t, ok)
	e.ResolveEffects(g, p, card.Effects, rng)

	assert.Equal(t, 3000, p.Cash)
	assert.Equal(t, []int{300}, p.Hand)
}

func TestDrawStepRoutesOptionCardsToHand(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 5000
	g.OTBDeck = models.Deck{DrawPile: []int{303}}
	g.FateDeck = models.Deck{DrawPile: []int{201}} // Tax Refund, $1,000
	rng := rand.New(rand.NewSource(127))

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}}, rng)
	assert.Equal(t, []int{303}, p.Hand, "option cards are held, not resolved")
	assert.Empty(t, g.OTBDeck.DiscardPile)

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}}, rng)
	assert.Equal(t, 6000, p.Cash, "fate cards resolve immediately")
	assert.Equal(t, []int{201}, g.FateDeck.DiscardPile)
	assert.Len(t, p.Hand, 1)
}

func TestApplyModifierStacks(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	rng := rand.New(rand.NewSource(131))

	e.ResolveEffects(g, p, []models.Effect{
		{Kind: models.EffectApplyModifier, Asset: models.AssetHay, Multiplier: 2.0},
		{Kind: models.EffectApplyModifier, Asset: models.AssetHay, Multiplier: 1.5},
	}, rng)

	assert.InDelta(t, 3.0, p.HarvestMultiplier(models.AssetHay), 1e-9)
	assert.InDelta(t, 1.0, p.HarvestMultiplier(models.AssetGrain), 1e-9)

	p.ClearTemporaryModifiers()
	assert.InDelta(t, 1.0, p.HarvestMultiplier(models.AssetHay), 1e-9)
}

func TestAssetTransferRemovesClamped(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.AddAsset(models.AssetCows, 5, 2500)
	rng := rand.New(rand.NewSource(137))

	e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectAssetTransfer, Asset: models.AssetCows, Quantity: -10,
	}}, rng)
	assert.Equal(t, 0, p.Quantity(models.AssetCows))

	// Losing an asset the player never held is a silent no-op.
	lines := e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectAssetTransfer, Asset: models.AssetFruit, Quantity: -5,
	}}, rng)
	assert.Empty(t, lines)
}

func TestSkipYearEffect(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	rng := rand.New(rand.NewSource(139))

	e.ResolveEffects(g, p, []models.Effect{{Kind: models.EffectSkipYear}}, rng)
	assert.True(t, p.SkipNextYear)
}

func TestBuyCowsRespectsHerdCapacity(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	rng := rand.New(rand.NewSource(149))
	e.Setup(g, rng)
	p := g.PlayerByID("p1")
	p.Cash = 20000
	p.AddAsset(models.AssetCows, 20, 10000)

	buy := models.Effect{Kind: models.EffectBuyAsset, Asset: models.AssetCows, Quantity: 10, Amount: 5000}

	// Home farm full: the purchase is refused and nothing moves.
	lines := e.ResolveEffects(g, p, []models.Effect{buy}, rng)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "no room")
	assert.Equal(t, 20, p.Quantity(models.AssetCows))
	assert.Equal(t, 20000, p.Cash)

	// A leased ridge adds grazing capacity.
	g.Ridges[1].LeasedBy = p.ID // Ahtanum Ridge, 20 head
	e.ResolveEffects(g, p, []models.Effect{buy}, rng)
	assert.Equal(t, 30, p.Quantity(models.AssetCows))
	assert.Equal(t, 15000, p.Cash)
}

func TestBuyAssetAtomicOnFailedCharge(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	p.Cash = 0
	p.Loans = []models.Loan{{Principal: 50000, Rate: 10, Origin: models.LoanOriginBank, Year: 1}}
	rng := rand.New(rand.NewSource(151))

	e.ResolveEffects(g, p, []models.Effect{{
		Kind: models.EffectBuyAsset, Asset: models.AssetGrain, Quantity: 10, Amount: 5000,
	}}, rng)

	assert.Equal(t, 0, p.Quantity(models.AssetGrain), "failed payment must not deliver the land")
	assert.Equal(t, 0, p.Cash)
}

func TestLeaseRidge(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann", "Ben")
	rng := rand.New(rand.NewSource(157))
	e.Setup(g, rng)
	ann, ben := g.PlayerByID("p1"), g.PlayerByID("p2")
	ann.Cash = 15000
	ben.Cash = 15000

	lease := models.Effect{Kind: models.EffectLeaseRidge, RidgeName: "Ahtanum Ridge", Amount: 10000}

	e.ResolveEffects(g, ann, []models.Effect{lease}, rng)
	assert.Equal(t, ann.ID, g.RidgeByName("Ahtanum Ridge").LeasedBy)
	assert.Equal(t, 5000, ann.Cash)

	// Second lease attempt on the same ridge is refused.
	lines := e.ResolveEffects(g, ben, []models.Effect{lease}, rng)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "already leased")
	assert.Equal(t, ann.ID, g.RidgeByName("Ahtanum Ridge").LeasedBy)
	assert.Equal(t, 15000, ben.Cash)
}

func TestMoveChainDepthBounded(t *testing.T) {
	e := newTestEngine()
	g := newTestGame("Ann")
	p := g.PlayerByID("p1")
	rng := rand.New(rand.NewSource(163))

	// A move chained at the depth limit stays put instead of recursing.
	lines, stop := e.applyEffect(g, p, models.Effect{Kind: models.EffectMove, TileIndex: 33}, rng, board.Size())
	assert.False(t, stop)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "stays at")
	assert.Equal(t, 0, p.Position)
}
