// Package engine implements the game rules: the turn and phase state
// machine, board movement, effect resolution, the payment and loan engine,
// harvests, bankruptcy auctions, and the hooks the AI policies plug into.
//
// The engine itself is stateless. All game state lives on the models.Game
// aggregate; every method takes the game and, for anything random, the
// caller's seeded source. Serialization of concurrent access is the
// caller's job (one mutex per game, held across SubmitAction).
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/board"
	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/models"
)

// Options drawn from the deck window: exercising an option is only legal in
// the planting stretch of the board, positions 0 through 14.
const optionWindowEnd = 14

// Starting holdings every player inherits at setup.
const (
	startingHayAcres   = 10
	startingGrainAcres = 10
)

// Advisor produces decisions for policy-driven players. Implemented by the
// ai package and injected after construction to keep the dependency one-way.
type Advisor interface {
	// DetermineNextAction returns one legal action for the player's turn.
	DetermineNextAction(g *models.Game, p *models.Player) models.Action

	// BidForBlock returns the player's sealed bid for an auction block,
	// zero to abstain.
	BidForBlock(g *models.Game, p *models.Player, block models.AuctionBlock) int
}

// Engine applies actions to game state under the full rule set.
type Engine struct {
	catalog *cards.Catalog
	log     *zap.SugaredLogger
	advisor Advisor
}

// New creates an engine over the given card catalog.
func New(catalog *cards.Catalog, log *zap.SugaredLogger) *Engine {
	return &Engine{catalog: catalog, log: log}
}

// SetAdvisor installs the decision policy provider. Must be called before
// the first game starts; games with AI players cannot run without one.
func (e *Engine) SetAdvisor(a Advisor) {
	e.advisor = a
}

// Catalog returns the card catalog the engine was built over.
func (e *Engine) Catalog() *cards.Catalog {
	return e.catalog
}

// Setup deals a created game into playing state: fresh shuffled decks, the
// four ridges, each player's inherited acreage and starting cash, and a
// uniformly shuffled turn order.
func (e *Engine) Setup(g *models.Game, rng *rand.Rand) {
	g.FateDeck = cards.BuildDeck(e.catalog, models.CardTypeFate)
	g.ExpenseDeck = cards.BuildDeck(e.catalog, models.CardTypeExpense)
	g.OTBDeck = cards.BuildDeck(e.catalog, models.CardTypeOTB, models.CardTypeLease)
	cards.Shuffle(&g.FateDeck, rng)
	cards.Shuffle(&g.ExpenseDeck, rng)
	cards.Shuffle(&g.OTBDeck, rng)

	g.Ridges = []models.Ridge{
		{Name: "Toppenish Ridge", Cost: 25000, CowCapacity: 50},
		{Name: "Ahtanum Ridge", Cost: 10000, CowCapacity: 20},
		{Name: "Cascade Ridge", Cost: 20000, CowCapacity: 40},
		{Name: "Rattlesnake Ridge", Cost: 15000, CowCapacity: 30},
	}

	g.TurnOrder = g.TurnOrder[:0]
	for i := range g.Players {
		p := &g.Players[i]
		p.Cash = g.Rules.StartingCash
		p.Position = 0
		p.SideJobPay = true
		p.AddAsset(models.AssetHay, startingHayAcres, 0)
		p.AddAsset(models.AssetGrain, startingGrainAcres, 0)
		g.TurnOrder = append(g.TurnOrder, p.ID)
	}
	rng.Shuffle(len(g.TurnOrder), func(i, j int) {
		g.TurnOrder[i], g.TurnOrder[j] = g.TurnOrder[j], g.TurnOrder[i]
	})

	g.Year = 1
	g.CurrentTurn = 0
	g.Status = models.GameStatusActive
	g.Phase = models.PhaseAwaitingAction
}

// LegalActions returns the action types the player may submit right now.
// Empty when it is not their turn or the game is not awaiting an action.
func (e *Engine) LegalActions(g *models.Game, p *models.Player) []models.ActionType {
	if g.Finished || g.Phase != models.PhaseAwaitingAction {
		return nil
	}
	active := g.ActivePlayer()
	if active == nil || active.ID != p.ID || !p.Active() {
		return nil
	}

	legal := []models.ActionType{models.ActionRoll, models.ActionSkip}
	if p.Position <= optionWindowEnd && e.holdsCardOfType(p, models.CardTypeOTB) {
		legal = append(legal, models.ActionExerciseOption)
	}
	if e.holdsCardOfType(p, models.CardTypeLease) {
		legal = append(legal, models.ActionPlayCard)
	}
	if p.Cash > 0 && p.Debt() > 0 {
		legal = append(legal, models.ActionRepayLoan)
	}
	if p.Debt() > 0 {
		legal = append(legal, models.ActionDeclareBankruptcy)
	}
	return legal
}

// SubmitAction validates and applies one player action, then drives the
// machine through effect resolution, the bankruptcy check, turn end and any
// year-end sequence. Exactly one action is accepted per player per turn.
func (e *Engine) SubmitAction(g *models.Game, action models.Action, rng *rand.Rand) (*models.StateChange, error) {
	if g.Finished {
		return nil, fmt.Errorf("%w: no actions accepted", ErrTerminalState)
	}
	p := g.PlayerByID(action.PlayerID)
	if p == nil {
		return nil, fmt.Errorf("%w: unknown player %q", ErrInvalidTarget, action.PlayerID)
	}
	if !e.actionLegal(g, p, action.Type) {
		return nil, fmt.Errorf("%w: %s not available to %s in phase %s", ErrIllegalAction, action.Type, p.Name, g.Phase)
	}

	g.Phase = models.PhaseEffectResolution
	var summary []string
	switch action.Type {
	case models.ActionRoll, models.ActionSkip:
		summary = e.rollAndMove(g, p, rng)
	case models.ActionExerciseOption:
		lines, err := e.exerciseCard(g, p, action.CardID, models.CardTypeOTB, rng)
		if err != nil {
			g.Phase = models.PhaseAwaitingAction
			return nil, err
		}
		summary = lines
	case models.ActionPlayCard:
		lines, err := e.exerciseCard(g, p, action.CardID, models.CardTypeLease, rng)
		if err != nil {
			g.Phase = models.PhaseAwaitingAction
			return nil, err
		}
		summary = lines
	case models.ActionRepayLoan:
		if err := e.RepayLoan(g, p, action.Amount); err != nil {
			g.Phase = models.PhaseAwaitingAction
			return nil, err
		}
		summary = []string{fmt.Sprintf("%s repays $%d, debt now $%d", p.Name, action.Amount, p.Debt())}
	case models.ActionDeclareBankruptcy:
		p.Bankrupt = true
		summary = []string{fmt.Sprintf("%s declares bankruptcy", p.Name)}
	}

	g.Phase = models.PhaseBankruptcyCheck
	if p.Bankrupt {
		g.Phase = models.PhaseAuctionInProgress
		summary = append(summary, e.RunAuction(g, p, rng)...)
	}

	g.Phase = models.PhaseTurnEnd
	summary = append(summary, e.endTurn(g, p, rng)...)

	g.UpdatedAt = time.Now()
	g.LastActivity = g.UpdatedAt
	return &models.StateChange{
		GameID:    g.ID.Hex(),
		PlayerID:  p.ID,
		Phase:     g.Phase,
		Summary:   summary,
		Timestamp: g.UpdatedAt,
	}, nil
}

func (e *Engine) actionLegal(g *models.Game, p *models.Player, t models.ActionType) bool {
	for _, legal := range e.LegalActions(g, p) {
		if legal == t {
			return true
		}
	}
	return false
}

func (e *Engine) holdsCardOfType(p *models.Player, t models.CardType) bool {
	for _, id := range p.Hand {
		if card, ok := e.catalog.ByID(id); ok && card.Type == t {
			return true
		}
	}
	return false
}

// rollAndMove rolls one die, moves the player, pays any pass-through tile
// crossed on the way, and resolves the landing tile.
func (e *Engine) rollAndMove(g *models.Game, p *models.Player, rng *rand.Rand) []string {
	roll := rng.Intn(6) + 1
	from := p.Position
	p.Position = (p.Position + roll) % board.Size()

	summary := []string{fmt.Sprintf("%s rolls %d: %s to %s",
		p.Name, roll, board.Tile(from).Name, board.Tile(p.Position).Name)}

	if p.Position < from {
		// Wrapped past the top of the board: one farm year completed.
		p.WrappedYear = true
		start := board.Tile(0)
		summary = append(summary, fmt.Sprintf("%s finishes the year at %s", p.Name, start.Name))
		if p.Position != 0 {
			// An exact landing on the start tile is resolved below; paying
			// the pass-through bonus here too would double it.
			summary = append(summary, e.resolveEffects(g, p, start.Effects, rng, 1)...)
		}
	}

	summary = append(summary, e.resolveTile(g, p, board.Tile(p.Position), rng, 1)...)
	return summary
}

// resolveTile dispatches a landed tile: harvest tiles run the harvest flow,
// everything else resolves its effect chain.
func (e *Engine) resolveTile(g *models.Game, p *models.Player, tile models.BoardTile, rng *rand.Rand, depth int) []string {
	if tile.Category == models.TileHarvest {
		return e.Harvest(g, p, tile.Harvest, rng)
	}
	return e.resolveEffects(g, p, tile.Effects, rng, depth)
}

// exerciseCard plays a held option or lease card: its effect chain resolves
// as the player's turn action, then the card goes to the discard pile. A
// purchase the player cannot fund rejects the action before the card leaves
// the hand.
func (e *Engine) exerciseCard(g *models.Game, p *models.Player, cardID int, want models.CardType, rng *rand.Rand) ([]string, error) {
	if !p.HasCard(cardID) {
		return nil, fmt.Errorf("%w: player %s does not hold card %d", ErrInvalidTarget, p.Name, cardID)
	}
	card, ok := e.catalog.ByID(cardID)
	if !ok || card.Type != want {
		return nil, fmt.Errorf("%w: card %d is not a %s card", ErrInvalidTarget, cardID, want)
	}
	if err := e.CheckExercisable(g, p, card); err != nil {
		return nil, err
	}

	summary := []string{fmt.Sprintf("%s plays \"%s\"", p.Name, card.Title)}
	if cost := purchaseCost(card); cost > p.Cash {
		// Finance the purchase with a deliberate note instead of letting
		// the charge fall through to an emergency loan and its surcharge.
		borrowed, err := e.Borrow(g, p, cost-p.Cash)
		if err != nil {
			return nil, err
		}
		summary = append(summary, fmt.Sprintf("%s borrows $%d from the bank", p.Name, borrowed))
	}
	summary = append(summary, e.ResolveEffects(g, p, card.Effects, rng)...)
	p.DropCard(cardID)
	cards.Discard(g.DeckFor(card.Type), cardID)
	return summary, nil
}

// purchaseCost sums the prices on a card's purchase and lease primitives.
func purchaseCost(card models.Card) int {
	cost := 0
	for _, eff := range card.Effects {
		switch eff.Kind {
		case models.EffectBuyAsset, models.EffectLeaseRidge:
			cost += eff.Amount
		}
	}
	return cost
}

// CheckExercisable pre-validates a purchase card so an unfundable buy is an
// IllegalAction rejection, not a forced loan into bankruptcy. The advisor
// runs the same check over each held card, so a policy can only choose
// plays the engine would accept.
func (e *Engine) CheckExercisable(g *models.Game, p *models.Player, card models.Card) error {
	for _, eff := range card.Effects {
		switch eff.Kind {
		case models.EffectBuyAsset, models.EffectLeaseRidge:
			if eff.Amount > p.Cash+MaxLoan(g, p) {
				return fmt.Errorf("%w: %s cannot finance $%d", ErrIllegalAction, p.Name, eff.Amount)
			}
			if eff.Kind == models.EffectLeaseRidge {
				ridge := g.RidgeByName(eff.RidgeName)
				if ridge == nil {
					return fmt.Errorf("%w: no ridge named %q", ErrInvalidTarget, eff.RidgeName)
				}
				if ridge.LeasedBy != "" {
					return fmt.Errorf("%w: %s is already leased", ErrInvalidTarget, ridge.Name)
				}
			}
		}
	}
	return nil
}

// endTurn advances the rotation. When every active player has either
// completed the year's lap or is sitting the year out, the year-end
// sequence runs instead of a normal hand-off.
func (e *Engine) endTurn(g *models.Game, p *models.Player, rng *rand.Rand) []string {
	p.TurnsTaken++
	g.TurnCount++
	g.ActionsThisTurn = 0

	if summary := e.checkGameOver(g); summary != nil {
		return summary
	}

	if e.yearComplete(g) {
		summary := e.runYearEnd(g, rng)
		if over := e.checkGameOver(g); over != nil {
			return append(summary, over...)
		}
		g.Phase = models.PhaseAwaitingAction
		return summary
	}

	e.advanceToNextPlayer(g)
	g.Phase = models.PhaseAwaitingAction
	return nil
}

// yearComplete reports whether no active player has a turn left this year.
func (e *Engine) yearComplete(g *models.Game) bool {
	for i := range g.Players {
		p := &g.Players[i]
		if p.Active() && !p.WrappedYear && !p.SkipNextYear {
			return false
		}
	}
	return true
}

// advanceToNextPlayer steps the rotation to the next player still owed a
// turn this year. Callers check yearComplete first.
func (e *Engine) advanceToNextPlayer(g *models.Game) {
	for i := 0; i < len(g.TurnOrder); i++ {
		g.CurrentTurn = (g.CurrentTurn + 1) % len(g.TurnOrder)
		p := g.PlayerByID(g.TurnOrder[g.CurrentTurn])
		if p != nil && p.Active() && !p.WrappedYear && !p.SkipNextYear {
			return
		}
	}
}

// runYearEnd executes the fixed year-end sequence: early summer locks in
// harvest potential, late summer pays the year's crop and livestock checks,
// and end of year accrues interest, clears temporary modifiers, pays
// side-job income and reshuffles the turn order.
func (e *Engine) runYearEnd(g *models.Game, rng *rand.Rand) []string {
	summary := []string{fmt.Sprintf("year %d ends", g.Year)}

	g.Phase = models.PhaseEarlySummer
	for i := range g.Players {
		p := &g.Players[i]
		if !p.Active() {
			continue
		}
		p.LockedBlocks = make(map[models.AssetType]int)
		for asset, units := range blockUnits {
			if blocks := p.Quantity(asset) / units; blocks > 0 {
				p.LockedBlocks[asset] = blocks
			}
		}
	}

	g.Phase = models.PhaseLateSummer
	for i := range g.Players {
		p := &g.Players[i]
		if !p.Active() || len(p.LockedBlocks) == 0 {
			continue
		}
		for _, asset := range auctionOrder {
			blocks, ok := p.LockedBlocks[asset]
			if !ok {
				continue
			}
			summary = append(summary, e.harvestBlocks(g, p, asset, yearEndHarvest(asset), blocks, rng)...)
		}
		summary = append(summary, e.yearEndExpense(g, p, rng)...)
		if p.Bankrupt {
			summary = append(summary, e.RunAuction(g, p, rng)...)
		}
	}

	g.Phase = models.PhaseEndOfYear
	summary = append(summary, e.AccrueInterest(g)...)
	for i := range g.Players {
		p := &g.Players[i]
		p.ClearTemporaryModifiers()
		if p.Active() && p.SideJobPay && p.WrappedYear {
			p.Cash += g.Rules.SideJobPay
			e.recordTransaction(g, models.TransactionSideJob, "", p.ID, g.Rules.SideJobPay, "side-job wages")
			summary = append(summary, fmt.Sprintf("%s collects $%d side-job wages", p.Name, g.Rules.SideJobPay))
		}
		p.WrappedYear = false
		p.SkipNextYear = false
		p.LockedBlocks = nil
	}

	e.reshuffleTurnOrder(g, rng)
	g.Year++
	g.CurrentTurn = 0
	if len(g.TurnOrder) > 0 {
		summary = append(summary, fmt.Sprintf("year %d begins; %s goes first", g.Year, g.PlayerByID(g.TurnOrder[0]).Name))
	}
	return summary
}

// yearEndExpense draws one operating expense card against the player's
// year-end checks.
func (e *Engine) yearEndExpense(g *models.Game, p *models.Player, rng *rand.Rand) []string {
	id, ok := cards.Draw(&g.ExpenseDeck, rng)
	if !ok {
		return nil
	}
	card, ok := e.catalog.ByID(id)
	if !ok {
		cards.Discard(&g.ExpenseDeck, id)
		return nil
	}
	summary := []string{fmt.Sprintf("%s: operating expense \"%s\"", p.Name, card.Title)}
	summary = append(summary, e.ResolveEffects(g, p, card.Effects, rng)...)
	cards.Discard(&g.ExpenseDeck, id)
	return summary
}

// reshuffleTurnOrder draws a fresh uniform permutation over the players
// still in the game. Eliminated players leave the rotation here.
func (e *Engine) reshuffleTurnOrder(g *models.Game, rng *rand.Rand) {
	order := g.TurnOrder[:0]
	for i := range g.Players {
		if g.Players[i].Active() {
			order = append(order, g.Players[i].ID)
		}
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	g.TurnOrder = order
}

// yearEndHarvest picks the representative harvest window for each category's
// year-end check.
func yearEndHarvest(asset models.AssetType) models.HarvestType {
	switch asset {
	case models.AssetGrain:
		return models.HarvestWheat
	case models.AssetFruit:
		return models.HarvestApple
	case models.AssetCows:
		return models.HarvestLivestock
	default:
		return models.HarvestHaySecond
	}
}

// checkGameOver evaluates the three termination conditions: the net-worth
// threshold, the turn limit, and last player standing. Returns nil while
// the game continues.
func (e *Engine) checkGameOver(g *models.Game) []string {
	var winner *models.Player

	for i := range g.Players {
		p := &g.Players[i]
		if p.Active() && p.NetWorth() >= g.Rules.WinningNetWorth {
			winner = p
			break
		}
	}

	if winner == nil && g.Rules.MaxTurns > 0 && g.TurnCount >= g.Rules.MaxTurns {
		winner = e.richestActive(g)
	}

	if winner == nil && g.ActiveCount() <= 1 {
		winner = e.richestActive(g)
	}

	if winner == nil {
		return nil
	}

	g.Finished = true
	g.WinnerID = winner.ID
	g.Status = models.GameStatusCompleted
	g.Phase = models.PhaseGameOver
	e.log.Infow("game over", "gameId", g.ID.Hex(), "winner", winner.Name, "netWorth", winner.NetWorth(), "turns", g.TurnCount)
	return []string{fmt.Sprintf("%s wins with a net worth of $%d", winner.Name, winner.NetWorth())}
}

func (e *Engine) richestActive(g *models.Game) *models.Player {
	var best *models.Player
	for i := range g.Players {
		p := &g.Players[i]
		if !p.Active() {
			continue
		}
		if best == nil || p.NetWorth() > best.NetWorth() {
			best = p
		}
	}
	return best
}

// NextAIAction asks the installed advisor for the active player's move.
func (e *Engine) NextAIAction(g *models.Game, p *models.Player) models.Action {
	if e.advisor == nil {
		return models.Action{Type: models.ActionRoll, PlayerID: p.ID, GameID: g.ID.Hex(), Timestamp: time.Now()}
	}
	return e.advisor.DetermineNextAction(g, p)
}
