package engine

import (
	"fmt"
	"math/rand"

	"github.com/farmline/backend/internal/game/board"
	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/models"
)

// ResolveEffects applies a card or tile effect chain to the player, strictly
// in order. A failed payment step flags the player for a bankruptcy check but
// does not abort the chain; only an EarlyExit primitive does. Move effects
// resolve the landing tile recursively, bounded by the board size so a chain
// can never loop forever.
//
// Returns human-readable summary lines for the state change broadcast.
func (e *Engine) ResolveEffects(g *models.Game, p *models.Player, effects []models.Effect, rng *rand.Rand) []string {
	return e.resolveEffects(g, p, effects, rng, 0)
}

func (e *Engine) resolveEffects(g *models.Game, p *models.Player, effects []models.Effect, rng *rand.Rand, depth int) []string {
	var summary []string
	for _, eff := range effects {
		if eff.Condition != nil && !conditionMet(p, eff.Condition) {
			continue
		}
		lines, stop := e.applyEffect(g, p, eff, rng, depth)
		summary = append(summary, lines...)
		if stop {
			break
		}
	}
	return summary
}

func (e *Engine) applyEffect(g *models.Game, p *models.Player, eff models.Effect, rng *rand.Rand, depth int) ([]string, bool) {
	switch eff.Kind {
	case models.EffectIncome:
		e.Credit(g, p, eff.Amount, "card/tile income")
		return []string{fmt.Sprintf("%s collects $%d", p.Name, eff.Amount)}, false

	case models.EffectExpense:
		return e.chargeStep(g, p, eff.Amount, "card/tile expense"), eff.EarlyExit && p.Bankrupt

	case models.EffectConditionalPayment:
		// Guard already evaluated above; the primitive itself is just a charge.
		return e.chargeStep(g, p, eff.Amount, "conditional payment"), false

	case models.EffectIncomePerAsset:
		amount := eff.Rate * p.Quantity(eff.Asset)
		if amount <= 0 {
			return nil, false
		}
		e.Credit(g, p, amount, fmt.Sprintf("income per %s", eff.Asset))
		return []string{fmt.Sprintf("%s collects $%d for %s holdings", p.Name, amount, eff.Asset)}, false

	case models.EffectExpensePerAsset:
		amount := eff.Rate * p.Quantity(eff.Asset)
		if amount <= 0 {
			return nil, false
		}
		return e.chargeStep(g, p, amount, fmt.Sprintf("expense per %s", eff.Asset)), false

	case models.EffectPayInterest:
		rate := eff.Rate
		if rate == 0 {
			rate = g.Rules.InterestPercent
		}
		amount := p.Debt() * rate / 100
		if amount <= 0 {
			return nil, false
		}
		return e.chargeStep(g, p, amount, "interest payment"), false

	case models.EffectCollectFromOthers:
		var lines []string
		for i := range g.Players {
			other := &g.Players[i]
			if other.ID == p.ID || !other.Active() {
				continue
			}
			if eff.Asset != "" && other.Quantity(eff.Asset) == 0 {
				continue
			}
			if err := e.Transfer(g, other, p, eff.Amount, "collection"); err != nil {
				lines = append(lines, fmt.Sprintf("%s cannot pay %s $%d", other.Name, p.Name, eff.Amount))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s pays %s $%d", other.Name, p.Name, eff.Amount))
		}
		return lines, false

	case models.EffectMove:
		if depth >= board.Size() {
			e.log.Warnw("move chain depth limit reached", "gameId", g.ID.Hex(), "playerId", p.ID)
			return []string{fmt.Sprintf("%s stays at %s", p.Name, board.Tile(p.Position).Name)}, false
		}
		p.Position = eff.TileIndex % board.Size()
		tile := board.Tile(p.Position)
		lines := []string{fmt.Sprintf("%s moves to %s", p.Name, tile.Name)}
		lines = append(lines, e.resolveTile(g, p, tile, rng, depth+1)...)
		return lines, false

	case models.EffectAssetTransfer:
		if eff.Quantity >= 0 {
			p.AddAsset(eff.Asset, eff.Quantity, eff.Amount)
			return []string{fmt.Sprintf("%s gains %d %s", p.Name, eff.Quantity, eff.Asset)}, false
		}
		removed := p.RemoveAsset(eff.Asset, -eff.Quantity)
		if removed == 0 {
			return nil, false
		}
		return []string{fmt.Sprintf("%s loses %d %s", p.Name, removed, eff.Asset)}, false

	case models.EffectDraw:
		return e.drawStep(g, p, eff.Deck, rng, depth), false

	case models.EffectDiscard:
		return e.discardStep(g, p, eff.Deck, rng), false

	case models.EffectApplyModifier:
		p.Modifiers = append(p.Modifiers, models.Modifier{
			Asset:      eff.Asset,
			Multiplier: eff.Multiplier,
			Permanent:  eff.Permanent,
		})
		return []string{fmt.Sprintf("%s: %s yields x%.2g", p.Name, eff.Asset, eff.Multiplier)}, false

	case models.EffectSkipYear:
		p.SkipNextYear = true
		return []string{fmt.Sprintf("%s will sit out next year", p.Name)}, false

	case models.EffectBuyAsset:
		lines, err := e.buyAsset(g, p, eff)
		if err != nil {
			return append(lines, fmt.Sprintf("%s cannot buy %d %s: not enough funds", p.Name, eff.Quantity, eff.Asset)), false
		}
		return lines, false

	case models.EffectLeaseRidge:
		lines, err := e.leaseRidge(g, p, eff)
		if err != nil {
			return append(lines, fmt.Sprintf("%s cannot lease %s", p.Name, eff.RidgeName)), false
		}
		return lines, false
	}

	e.log.Warnw("unknown effect kind", "kind", eff.Kind, "gameId", g.ID.Hex())
	return nil, false
}

// chargeStep wraps Charge for use inside a chain: failure is reported in the
// summary, never as an error, and the bankrupt flag set by Charge carries the
// state forward to the bankruptcy check.
func (e *Engine) chargeStep(g *models.Game, p *models.Player, amount int, reason string) []string {
	if amount <= 0 {
		return nil
	}
	if err := e.Charge(g, p, amount, reason); err != nil {
		return []string{fmt.Sprintf("%s cannot cover $%d (%s)", p.Name, amount, reason)}
	}
	return []string{fmt.Sprintf("%s pays $%d (%s)", p.Name, amount, reason)}
}

// drawStep draws one card from the named deck. Option cards go to the
// player's hand for later exercise; fate and expense cards resolve
// immediately and are discarded.
func (e *Engine) drawStep(g *models.Game, p *models.Player, deckType models.CardType, rng *rand.Rand, depth int) []string {
	deck := g.DeckFor(deckType)
	id, ok := cards.Draw(deck, rng)
	if !ok {
		return []string{fmt.Sprintf("the %s deck is exhausted", deckType)}
	}
	card, ok := e.catalog.ByID(id)
	if !ok {
		e.log.Errorw("drawn card missing from catalog", "cardId", id, "gameId", g.ID.Hex())
		cards.Discard(deck, id)
		return nil
	}

	switch card.Type {
	case models.CardTypeOTB, models.CardTypeLease:
		p.Hand = append(p.Hand, id)
		return []string{fmt.Sprintf("%s draws \"%s\"", p.Name, card.Title)}
	default:
		lines := []string{fmt.Sprintf("%s draws \"%s\": %s", p.Name, card.Title, card.Description)}
		lines = append(lines, e.resolveEffects(g, p, card.Effects, rng, depth+1)...)
		cards.Discard(deck, id)
		return lines
	}
}

// discardStep forces the player to discard a held card of the given
// partition, chosen at random from the hand.
func (e *Engine) discardStep(g *models.Game, p *models.Player, deckType models.CardType, rng *rand.Rand) []string {
	var candidates []int
	for _, id := range p.Hand {
		if card, ok := e.catalog.ByID(id); ok && card.Type == deckType {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	id := candidates[rng.Intn(len(candidates))]
	p.DropCard(id)
	cards.Discard(g.DeckFor(deckType), id)
	card, _ := e.catalog.ByID(id)
	return []string{fmt.Sprintf("%s discards \"%s\"", p.Name, card.Title)}
}

// buyAsset exercises an option: payment and delivery are one unit, so a
// failed charge leaves holdings untouched. Cows beyond the home farm limit
// need leased ridge capacity.
func (e *Engine) buyAsset(g *models.Game, p *models.Player, eff models.Effect) ([]string, error) {
	if eff.Asset == models.AssetCows {
		capacity := FarmCowLimit
		for i := range g.Ridges {
			if g.Ridges[i].LeasedBy == p.ID {
				capacity += g.Ridges[i].CowCapacity
			}
		}
		if p.Quantity(models.AssetCows)+eff.Quantity > capacity {
			return []string{fmt.Sprintf("%s has no room for %d more cows", p.Name, eff.Quantity)},
				fmt.Errorf("%w: herd capacity %d exceeded", ErrIllegalAction, capacity)
		}
	}
	if err := e.Charge(g, p, eff.Amount, fmt.Sprintf("buy %d %s", eff.Quantity, eff.Asset)); err != nil {
		return nil, err
	}
	p.AddAsset(eff.Asset, eff.Quantity, eff.Amount)
	return []string{fmt.Sprintf("%s buys %d %s for $%d", p.Name, eff.Quantity, eff.Asset, eff.Amount)}, nil
}

// leaseRidge grants usage rights to an unleased ridge. The lease fee and the
// grant commit together.
func (e *Engine) leaseRidge(g *models.Game, p *models.Player, eff models.Effect) ([]string, error) {
	ridge := g.RidgeByName(eff.RidgeName)
	if ridge == nil {
		return nil, fmt.Errorf("%w: no ridge named %q", ErrInvalidTarget, eff.RidgeName)
	}
	if ridge.LeasedBy != "" {
		return []string{fmt.Sprintf("%s is already leased", ridge.Name)},
			fmt.Errorf("%w: ridge %q already leased", ErrInvalidTarget, ridge.Name)
	}
	if err := e.Charge(g, p, eff.Amount, fmt.Sprintf("lease %s", ridge.Name)); err != nil {
		return nil, err
	}
	ridge.LeasedBy = p.ID
	return []string{fmt.Sprintf("%s leases %s for $%d", p.Name, ridge.Name, eff.Amount)}, nil
}

func conditionMet(p *models.Player, c *models.Condition) bool {
	if c.HasAsset != "" && p.Quantity(c.HasAsset) == 0 {
		return false
	}
	if c.MissingAsset != "" && p.Quantity(c.MissingAsset) > 0 {
		return false
	}
	if c.MinCash > 0 && p.Cash < c.MinCash {
		return false
	}
	return true
}
