// Package board holds the static tile catalog. The board is a 12-month loop
// of weekly tiles; passing tile 0 advances the player's year.
package board

import (
	"github.com/farmline/backend/internal/game/models"
)

// Size returns the number of tiles on the board.
func Size() int {
	return len(tiles)
}

// Tile returns the tile at the given position index.
func Tile(index int) models.BoardTile {
	return tiles[index%len(tiles)]
}

// All returns the full tile catalog in position order.
func All() []models.BoardTile {
	out := make([]models.BoardTile, len(tiles))
	copy(out, tiles)
	return out
}

var tiles = []models.BoardTile{
	{
		Index: 0, Name: "Christmas Vacation", Category: models.TilePassThrough,
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 1000}},
		Description: "COLLECT $1000 Christmas bonus!",
	},
	{
		Index: 1, Name: "January Week 1", Category: models.TilePayFee,
		Effects:     []models.Effect{{Kind: models.EffectPayInterest}},
		Description: "PAY 10% interest on Bank Notes",
	},
	{
		Index: 2, Name: "January Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Hibernate. Draw O.T.B.",
	},
	{
		Index: 3, Name: "January Week 3", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectConditionalPayment, Amount: 500,
			Condition: &models.Condition{HasAsset: models.AssetCows},
		}},
		Description: "Bitter cold spell. PAY $500 if you own cows.",
	},
	{
		Index: 4, Name: "January Week 4", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Winter storms. Draw Farmer's Fate.",
	},
	{
		Index: 5, Name: "February Week 1", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Mend fences. Draw O.T.B.",
	},
	{
		Index: 6, Name: "February Week 2", Category: models.TilePassThrough,
		Description: "Quiet week on the farm.",
	},
	{
		Index: 7, Name: "February Week 3", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectExpensePerAsset, Asset: models.AssetCows, Rate: 50,
		}},
		Description: "Feed bill. PAY $50 per cow.",
	},
	{
		Index: 8, Name: "February Week 4", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
	{
		Index: 9, Name: "March Week 1", Category: models.TilePassThrough,
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 500}},
		Description: "Sell firewood. COLLECT $500.",
	},
	{
		Index: 10, Name: "March Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Spring planning. Draw O.T.B.",
	},
	{
		Index: 11, Name: "March Week 3", Category: models.TilePhaseTrigger,
		Effects:     []models.Effect{{Kind: models.EffectSkipYear}},
		Description: "Hurt back. Lose rest of year; go to January Week 2.",
	},
	{
		Index: 12, Name: "March Week 4", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectConditionalPayment, Amount: 2000,
			Condition: &models.Condition{MissingAsset: models.AssetTractor},
		}},
		Description: "Spring field work. PAY $2000 custom hire if no Tractor.",
	},
	{
		Index: 13, Name: "April Week 1", Category: models.TilePassThrough,
		Description: "Planting weather holds.",
	},
	{
		Index: 14, Name: "April Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Last chance this spring. Draw O.T.B.",
	},
	{
		Index: 15, Name: "April Week 3", Category: models.TilePayFee,
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 500}},
		Description: "Irrigation startup. PAY $500.",
	},
	{
		Index: 16, Name: "April Week 4", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
	{
		Index: 17, Name: "May Week 1", Category: models.TileHarvest,
		Harvest:     models.HarvestHayFirst,
		Description: "Hay: first cutting.",
	},
	{
		Index: 18, Name: "May Week 2", Category: models.TilePassThrough,
		Effects: []models.Effect{{
			Kind: models.EffectApplyModifier, Asset: models.AssetHay, Multiplier: 2.0,
		}},
		Description: "Ideal curing weather. Double your next hay check.",
	},
	{
		Index: 19, Name: "May Week 3", Category: models.TileHarvest,
		Harvest:     models.HarvestCherry,
		Description: "Cherry harvest.",
	},
	{
		Index: 20, Name: "May Week 4", Category: models.TilePayFee,
		Effects:     []models.Effect{{Kind: models.EffectPayInterest}},
		Description: "Bank note comes due. PAY 10% interest.",
	},
	{
		Index: 21, Name: "June Week 1", Category: models.TileHarvest,
		Harvest:     models.HarvestHaySecond,
		Description: "Hay: second cutting.",
	},
	{
		Index: 22, Name: "June Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
	{
		Index: 23, Name: "June Week 3", Category: models.TileHarvest,
		Harvest:     models.HarvestWheat,
		Description: "Wheat harvest.",
	},
	{
		Index: 24, Name: "June Week 4", Category: models.TilePassThrough,
		Effects: []models.Effect{{
			Kind: models.EffectIncome, Amount: 1000,
			Condition: &models.Condition{HasAsset: models.AssetFruit},
		}},
		Description: "Fruit stand opens. COLLECT $1000 if you own fruit acres.",
	},
	{
		Index: 25, Name: "July Week 1", Category: models.TileHarvest,
		Harvest:     models.HarvestHayThird,
		Description: "Hay: third cutting.",
	},
	{
		Index: 26, Name: "July Week 2", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectConditionalPayment, Amount: 2000,
			Condition: &models.Condition{MissingAsset: models.AssetHarvester},
		}},
		Description: "Combine season. PAY $2000 custom hire if no Harvester.",
	},
	{
		Index: 27, Name: "July Week 3", Category: models.TileHarvest,
		Harvest:     models.HarvestLivestock,
		Description: "Livestock sales.",
	},
	{
		Index: 28, Name: "July Week 4", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "County fair. Draw O.T.B.",
	},
	{
		Index: 29, Name: "August Week 1", Category: models.TileHarvest,
		Harvest:     models.HarvestApple,
		Description: "Early apple harvest.",
	},
	{
		Index: 30, Name: "August Week 2", Category: models.TilePassThrough,
		Effects:     []models.Effect{{Kind: models.EffectMove, TileIndex: 33}},
		Description: "Harvest rush. Go to September Week 1.",
	},
	{
		Index: 31, Name: "August Week 3", Category: models.TileHarvest,
		Harvest:     models.HarvestHayFourth,
		Description: "Hay: fourth cutting.",
	},
	{
		Index: 32, Name: "August Week 4", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectExpensePerAsset, Asset: models.AssetGrain, Rate: 100,
		}},
		Description: "Fumigation. PAY $100 per grain acre.",
	},
	{
		Index: 33, Name: "September Week 1", Category: models.TileHarvest,
		Harvest:     models.HarvestCorn,
		Description: "Corn harvest.",
	},
	{
		Index: 34, Name: "September Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
	{
		Index: 35, Name: "September Week 3", Category: models.TileHarvest,
		Harvest:     models.HarvestApple,
		Description: "Late apple harvest.",
	},
	{
		Index: 36, Name: "September Week 4", Category: models.TilePassThrough,
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 500}},
		Description: "Roadside stand. COLLECT $500.",
	},
	{
		Index: 37, Name: "October Week 1", Category: models.TilePayFee,
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 1000}},
		Description: "Property taxes. PAY $1000.",
	},
	{
		Index: 38, Name: "October Week 2", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Fall sales. Draw O.T.B.",
	},
	{
		Index: 39, Name: "October Week 3", Category: models.TilePassThrough,
		Description: "First frost.",
	},
	{
		Index: 40, Name: "October Week 4", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
	{
		Index: 41, Name: "November Week 1", Category: models.TilePayFee,
		Effects: []models.Effect{{
			Kind: models.EffectExpensePerAsset, Asset: models.AssetCows, Rate: 100,
		}},
		Description: "Winter feed. PAY $100 per cow.",
	},
	{
		Index: 42, Name: "November Week 2", Category: models.TilePassThrough,
		Effects: []models.Effect{{
			Kind: models.EffectApplyModifier, Asset: models.AssetCows, Multiplier: 1.5,
		}},
		Description: "Beef prices climb. Next livestock check pays 50% more.",
	},
	{
		Index: 43, Name: "November Week 3", Category: models.TilePassThrough,
		Description: "Thanksgiving week.",
	},
	{
		Index: 44, Name: "November Week 4", Category: models.TilePayFee,
		Effects:     []models.Effect{{Kind: models.EffectPayInterest}},
		Description: "Year-end bank review. PAY 10% interest.",
	},
	{
		Index: 45, Name: "December Week 1", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeOTB}},
		Description: "Estate sales. Draw O.T.B.",
	},
	{
		Index: 46, Name: "December Week 2", Category: models.TilePassThrough,
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 500}},
		Description: "Sell Christmas trees. COLLECT $500.",
	},
	{
		Index: 47, Name: "December Week 3", Category: models.TileDrawCard,
		Effects:     []models.Effect{{Kind: models.EffectDraw, Deck: models.CardTypeFate}},
		Description: "Draw Farmer's Fate.",
	},
}
