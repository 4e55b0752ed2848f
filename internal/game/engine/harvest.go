package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/farmline/backend/internal/game/cards"
	"github.com/farmline/backend/internal/game/models"
)

// FarmCowLimit is the herd size the home farm supports without leased range.
const FarmCowLimit = 20

// Units per auction/harvest block, by asset category.
var blockUnits = map[models.AssetType]int{
	models.AssetHay:   10,
	models.AssetGrain: 10,
	models.AssetFruit: 5,
	models.AssetCows:  10,
}

// Per-block yield by 1-6 roll. The first full block pays the table value;
// each additional block pays it again.
var yieldTables = map[models.AssetType][6]int{
	models.AssetHay:   {400, 600, 1000, 1500, 2200, 3000},
	models.AssetGrain: {800, 1500, 2500, 3800, 5300, 7000},
	models.AssetFruit: {2000, 3500, 6000, 9000, 13000, 17500},
	models.AssetCows:  {1400, 2000, 2800, 3800, 5000, 7500},
}

// HarvestAsset maps a harvest window to the asset category it pays on.
func HarvestAsset(h models.HarvestType) models.AssetType {
	switch h {
	case models.HarvestCorn, models.HarvestWheat:
		return models.AssetGrain
	case models.HarvestApple, models.HarvestCherry:
		return models.AssetFruit
	case models.HarvestLivestock:
		return models.AssetCows
	case models.HarvestHayFirst, models.HarvestHaySecond, models.HarvestHayThird, models.HarvestHayFourth:
		return models.AssetHay
	}
	return ""
}

// Harvest runs one harvest window for the player: a seeded 1-6 roll against
// the category yield table, scaled by full blocks held and the player's
// modifiers, minus one operating expense card. Players holding none of the
// category draw no expense card.
//
// The income is credited before the expense is charged, so a harvest that
// covers its own costs never forces a loan.
func (e *Engine) Harvest(g *models.Game, p *models.Player, h models.HarvestType, rng *rand.Rand) []string {
	asset := HarvestAsset(h)
	if asset == "" {
		return nil
	}
	quantity := p.Quantity(asset)
	if quantity == 0 {
		return []string{fmt.Sprintf("%s has no %s to harvest", p.Name, asset)}
	}
	blocks := quantity / blockUnits[asset]

	summary := e.harvestBlocks(g, p, asset, h, blocks, rng)

	// Operating expense, whether or not the holding filled a block.
	id, ok := cards.Draw(&g.ExpenseDeck, rng)
	if !ok {
		e.log.Warnw("operating expense deck exhausted", "gameId", g.ID.Hex())
		return summary
	}
	card, ok := e.catalog.ByID(id)
	if !ok {
		e.log.Errorw("expense card missing from catalog", "cardId", id, "gameId", g.ID.Hex())
		cards.Discard(&g.ExpenseDeck, id)
		return summary
	}
	summary = append(summary, fmt.Sprintf("operating expense: %s", card.Title))
	summary = append(summary, e.ResolveEffects(g, p, card.Effects, rng)...)
	cards.Discard(&g.ExpenseDeck, id)

	return summary
}

// harvestBlocks rolls and pays the yield for an explicit block count. The
// year-end sequence calls this with the block count locked in at early
// summer; tile harvests pass the live count.
func (e *Engine) harvestBlocks(g *models.Game, p *models.Player, asset models.AssetType, h models.HarvestType, blocks int, rng *rand.Rand) []string {
	if blocks <= 0 {
		return []string{fmt.Sprintf("%s has no full %s block to harvest", p.Name, asset)}
	}

	roll := rng.Intn(6)
	perBlock := yieldTables[asset][roll]
	income := perBlock * blocks

	multiplier := p.HarvestMultiplier(asset)
	if multiplier != 1.0 {
		income = int(math.Round(float64(income) * multiplier))
	}
	if income <= 0 {
		return []string{fmt.Sprintf("%s: roll %d pays nothing", harvestLabel(h), roll+1)}
	}

	e.Credit(g, p, income, fmt.Sprintf("%s harvest", harvestLabel(h)))
	line := fmt.Sprintf("%s: roll %d pays $%d/block x %d blocks", harvestLabel(h), roll+1, perBlock, blocks)
	if multiplier != 1.0 {
		line += fmt.Sprintf(" x%.1f modifier", multiplier)
	}
	line += fmt.Sprintf(" = $%d for %s", income, p.Name)
	return []string{line}
}

func harvestLabel(h models.HarvestType) string {
	switch h {
	case models.HarvestHayFirst:
		return "hay, first cutting"
	case models.HarvestHaySecond:
		return "hay, second cutting"
	case models.HarvestHayThird:
		return "hay, third cutting"
	case models.HarvestHayFourth:
		return "hay, fourth cutting"
	case models.HarvestWheat:
		return "wheat"
	case models.HarvestCorn:
		return "corn"
	case models.HarvestApple:
		return "apples"
	case models.HarvestCherry:
		return "cherries"
	case models.HarvestLivestock:
		return "livestock sale"
	}
	return string(h)
}
