package ai

import (
	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/models"
)

// Policy scores candidate actions and prices auction blocks. All four
// implementations are deterministic given game state; any randomness in an
// AI turn comes from the engine's seeded dice, never from the policy.
type Policy interface {
	Profile() models.AIProfile
	ScoreAction(g *models.Game, p *models.Player, c models.Action) float64
	BlockValue(g *models.Game, p *models.Player, block models.AuctionBlock) int
}

// scoring carries the shared valuation helpers every policy uses.
type scoring struct {
	catalog *cards.Catalog
}

// cardCost sums the purchase and lease prices on a card.
func (s scoring) cardCost(id int) int {
	card, ok := s.catalog.ByID(id)
	if !ok {
		return 0
	}
	cost := 0
	for _, eff := range card.Effects {
		switch eff.Kind {
		case models.EffectBuyAsset, models.EffectLeaseRidge:
			cost += eff.Amount
		}
	}
	return cost
}

// cardYield estimates the yearly income a card's assets add: expected
// per-block yield for croppable categories, a flat service value for
// equipment, projected herd income for a ridge lease.
func (s scoring) cardYield(id int) int {
	card, ok := s.catalog.ByID(id)
	if !ok {
		return 0
	}
	total := 0
	for _, eff := range card.Effects {
		switch eff.Kind {
		case models.EffectBuyAsset:
			switch eff.Asset {
			case models.AssetHay:
				total += 1450 // mean hay check per 10-acre block
			case models.AssetGrain:
				total += 3480
			case models.AssetFruit:
				total += 8500
			case models.AssetCows:
				total += 3750
			case models.AssetTractor, models.AssetHarvester:
				total += 2000 // avoided custom-hire expenses
			}
		case models.EffectLeaseRidge:
			total += eff.Quantity / 10 * 3750
		}
	}
	return total
}

// leader returns the highest active net worth other than p's.
func leader(g *models.Game, p *models.Player) int {
	best := 0
	for i := range g.Players {
		o := &g.Players[i]
		if o.ID == p.ID || !o.Active() {
			continue
		}
		if w := o.NetWorth(); w > best {
			best = w
		}
	}
	return best
}

// desperate reports whether bankruptcy is the least bad move: debt beyond
// what holdings could ever clear.
func desperate(p *models.Player) bool {
	return p.Debt() > 0 && p.NetWorth() < 0
}

// --- Cautious ---
//
// Keeps a thick cash cushion: never spends below the buffer, pays debt down
// first, only buys what spare cash covers outright.
type cautious struct{ scoring }

const cautiousBuffer = 10000

func (cautious) Profile() models.AIProfile { return models.ProfileCautious }

func (c cautious) ScoreAction(g *models.Game, p *models.Player, a models.Action) float64 {
	switch a.Type {
	case models.ActionRoll:
		return 1.0
	case models.ActionRepayLoan:
		if p.Cash-a.Amount >= cautiousBuffer {
			return 5.0
		}
		return 0.2
	case models.ActionExerciseOption, models.ActionPlayCard:
		cost := c.cardCost(a.CardID)
		if p.Cash-cost < cautiousBuffer {
			return -1.0
		}
		return 2.0 + float64(c.cardYield(a.CardID))/float64(cost+1)
	case models.ActionDeclareBankruptcy:
		if desperate(p) {
			return 0.5
		}
		return -100.0
	}
	return 0
}

func (c cautious) BlockValue(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	spare := p.Cash - cautiousBuffer
	bid := block.Value * 8 / 10
	if bid > spare {
		bid = spare
	}
	return bid
}

// --- Expansionist ---
//
// Land first, worry later: asset-acquiring actions win even on borrowed
// money, debt service waits.
type expansionist struct{ scoring }

func (expansionist) Profile() models.AIProfile { return models.ProfileExpansionist }

func (e expansionist) ScoreAction(g *models.Game, p *models.Player, a models.Action) float64 {
	switch a.Type {
	case models.ActionRoll:
		return 1.0
	case models.ActionRepayLoan:
		return 0.3
	case models.ActionExerciseOption, models.ActionPlayCard:
		return 6.0 + float64(e.cardYield(a.CardID))/1000.0
	case models.ActionDeclareBankruptcy:
		if desperate(p) {
			return 0.5
		}
		return -100.0
	}
	return 0
}

func (e expansionist) BlockValue(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	return block.Value * 12 / 10
}

// --- Gambler ---
//
// Chases draws and variance: keeps the dice rolling, snaps up anything
// cheap, repays nothing until the bank forces the issue.
type gambler struct{ scoring }

func (gambler) Profile() models.AIProfile { return models.ProfileGambler }

func (gb gambler) ScoreAction(g *models.Game, p *models.Player, a models.Action) float64 {
	switch a.Type {
	case models.ActionRoll:
		return 4.0
	case models.ActionRepayLoan:
		return 0.1
	case models.ActionExerciseOption, models.ActionPlayCard:
		cost := gb.cardCost(a.CardID)
		if cost <= p.Cash/2 {
			return 5.0
		}
		return 2.0
	case models.ActionDeclareBankruptcy:
		if desperate(p) {
			return 0.5
		}
		return -100.0
	}
	return 0
}

func (gb gambler) BlockValue(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	// Pays over book when flush, walks away when short.
	if p.Cash >= block.Value*2 {
		return block.Value * 11 / 10
	}
	return block.Value / 2
}

// --- Balanced ---
//
// Return-on-investment scoring, tilted by standing: behind the leader it
// buys like an expansionist, ahead it protects the lead like a cautious
// player.
type balanced struct{ scoring }

func (balanced) Profile() models.AIProfile { return models.ProfileBalanced }

func (b balanced) ScoreAction(g *models.Game, p *models.Player, a models.Action) float64 {
	behind := p.NetWorth() < leader(g, p)
	switch a.Type {
	case models.ActionRoll:
		return 1.0
	case models.ActionRepayLoan:
		if behind {
			return 0.8
		}
		return 3.0
	case models.ActionExerciseOption, models.ActionPlayCard:
		cost := b.cardCost(a.CardID)
		roi := float64(b.cardYield(a.CardID)) / float64(cost+1)
		if behind {
			return 2.0 + roi*4
		}
		if p.Cash-cost < cautiousBuffer/2 {
			return 0.5
		}
		return 1.5 + roi*2
	case models.ActionDeclareBankruptcy:
		if desperate(p) {
			return 0.5
		}
		return -100.0
	}
	return 0
}

func (b balanced) BlockValue(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	if p.NetWorth() < leader(g, p) {
		return block.Value
	}
	bid := block.Value * 9 / 10
	if spare := p.Cash - cautiousBuffer/2; bid > spare {
		bid = spare
	}
	return bid
}
