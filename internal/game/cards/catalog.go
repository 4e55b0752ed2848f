// Package cards holds the immutable card catalog and deck operations.
package cards

import (
	"github.com/farmline/backend/internal/game/models"
)

// Catalog is an indexed, immutable set of card definitions.
type Catalog struct {
	byID  map[int]models.Card
	order []int
}

// NewCatalog indexes the given card definitions.
func NewCatalog(defs []models.Card) *Catalog {
	c := &Catalog{byID: make(map[int]models.Card, len(defs))}
	for _, d := range defs {
		c.byID[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// Default returns the built-in card catalog.
func Default() *Catalog {
	return NewCatalog(defaultCards)
}

// ByID returns the card with the given id.
func (c *Catalog) ByID(id int) (models.Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// ForType returns all cards of one deck partition, in catalog order.
func (c *Catalog) ForType(types ...models.CardType) []models.Card {
	var out []models.Card
	for _, id := range c.order {
		card := c.byID[id]
		for _, t := range types {
			if card.Type == t {
				out = append(out, card)
				break
			}
		}
	}
	return out
}

// All returns every card definition in catalog order.
func (c *Catalog) All() []models.Card {
	out := make([]models.Card, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Instances returns the total instance count across the given partitions.
func (c *Catalog) Instances(types ...models.CardType) int {
	n := 0
	for _, card := range c.ForType(types...) {
		n += card.Quantity
	}
	return n
}

var defaultCards = []models.Card{
	// Operating expense deck. Drawn once per harvest.
	{
		ID: 100, Title: "Fertilizer Bill", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Fertilizer Bill. Pay $100 per grain acre.",
		Effects:     []models.Effect{{Kind: models.EffectExpensePerAsset, Asset: models.AssetGrain, Rate: 100}},
	},
	{
		ID: 101, Title: "Fuel Bill", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Fuel Bill. Pay $1,000.",
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 1000}},
	},
	{
		ID: 102, Title: "Electric Bill for Irrigation", Type: models.CardTypeExpense, Quantity: 1,
		Description: "Electric Bill for Irrigation. Pay $500.",
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 500}},
	},
	{
		ID: 103, Title: "Custom Hire - No Tractor", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Pay $2,000 if you do not own a Tractor.",
		Effects: []models.Effect{{
			Kind: models.EffectConditionalPayment, Amount: 2000,
			Condition: &models.Condition{MissingAsset: models.AssetTractor},
		}},
	},
	{
		ID: 104, Title: "Custom Hire - No Harvester", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Pay $2,000 if you do not own a Harvester.",
		Effects: []models.Effect{{
			Kind: models.EffectConditionalPayment, Amount: 2000,
			Condition: &models.Condition{MissingAsset: models.AssetHarvester},
		}},
	},
	{
		ID: 105, Title: "Parts Bill", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Parts Bill. Pay $500.",
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 500}},
	},
	{
		ID: 106, Title: "Wire Worm in Grain", Type: models.CardTypeExpense, Quantity: 1,
		Description: "Wire Worm in Grain. Pay $100 per grain acre to fumigate.",
		Effects:     []models.Effect{{Kind: models.EffectExpensePerAsset, Asset: models.AssetGrain, Rate: 100}},
	},
	{
		ID: 107, Title: "Equipment Breakdown", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Equipment Breakdown. Pay $500.",
		Effects:     []models.Effect{{Kind: models.EffectExpense, Amount: 500}},
	},
	{
		ID: 108, Title: "Vet Bill", Type: models.CardTypeExpense, Quantity: 2,
		Description: "Vet Bill. Pay $50 per cow.",
		Effects:     []models.Effect{{Kind: models.EffectExpensePerAsset, Asset: models.AssetCows, Rate: 50}},
	},
	{
		ID: 109, Title: "Note Comes Due", Type: models.CardTypeExpense, Quantity: 1,
		Description: "Pay 10% interest on Bank Notes.",
		Effects:     []models.Effect{{Kind: models.EffectPayInterest}},
	},

	// Farmer's fate deck. Drawn on fate tiles, resolved immediately.
	{
		ID: 200, Title: "Aunt Edna's Inheritance", Type: models.CardTypeFate, Quantity: 1,
		Description: "COLLECT $2,000 inheritance.",
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 2000}},
	},
	{
		ID: 201, Title: "Tax Refund", Type: models.CardTypeFate, Quantity: 2,
		Description: "COLLECT $1,000 tax refund.",
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 1000}},
	},
	{
		ID: 202, Title: "Hail Storm", Type: models.CardTypeFate, Quantity: 2,
		Description: "Hail flattens your grain. Next grain check pays half.",
		Effects: []models.Effect{{
			Kind: models.EffectApplyModifier, Asset: models.AssetGrain, Multiplier: 0.5,
		}},
	},
	{
		ID: 203, Title: "Warm Spring Rain", Type: models.CardTypeFate, Quantity: 2,
		Description: "Perfect growing weather. Next hay check pays 50% more.",
		Effects: []models.Effect{{
			Kind: models.EffectApplyModifier, Asset: models.AssetHay, Multiplier: 1.5,
		}},
	},
	{
		ID: 204, Title: "Breeding Program Pays Off", Type: models.CardTypeFate, Quantity: 1,
		Description: "Your herd improves for good. Livestock checks pay 20% more from now on.",
		Effects: []models.Effect{{
			Kind: models.EffectApplyModifier, Asset: models.AssetCows, Multiplier: 1.2, Permanent: true,
		}},
	},
	{
		ID: 205, Title: "County Fair Prize", Type: models.CardTypeFate, Quantity: 2,
		Description: "Blue ribbon bull. COLLECT $500.",
		Effects:     []models.Effect{{Kind: models.EffectIncome, Amount: 500}},
	},
	{
		ID: 206, Title: "Feed Spoilage", Type: models.CardTypeFate, Quantity: 1,
		Description: "Moldy silage. PAY $100 per cow.",
		Effects:     []models.Effect{{Kind: models.EffectExpensePerAsset, Asset: models.AssetCows, Rate: 100}},
	},
	{
		ID: 207, Title: "Crop Insurance Dividend", Type: models.CardTypeFate, Quantity: 1,
		Description: "COLLECT $50 per grain acre.",
		Effects:     []models.Effect{{Kind: models.EffectIncomePerAsset, Asset: models.AssetGrain, Rate: 50}},
	},
	{
		ID: 208, Title: "Hurt Back", Type: models.CardTypeFate, Quantity: 1,
		Description: "Thrown from a horse. Lose the rest of the year.",
		Effects:     []models.Effect{{Kind: models.EffectSkipYear}},
	},
	{
		ID: 209, Title: "Ash Cloud", Type: models.CardTypeFate, Quantity: 1,
		Description: "Volcanic ash blankets the valley. Every other grower pays you $500 cleanup labor if they own hay.",
		Effects: []models.Effect{{
			Kind: models.EffectCollectFromOthers, Asset: models.AssetHay, Amount: 500,
		}},
	},
	{
		ID: 210, Title: "Barn Fire", Type: models.CardTypeFate, Quantity: 1,
		Description: "PAY $2,000 to rebuild. If you cover it, salvage rights let you draw an O.T.B.",
		Effects: []models.Effect{
			{Kind: models.EffectExpense, Amount: 2000, EarlyExit: true},
			{Kind: models.EffectDraw, Deck: models.CardTypeOTB},
		},
	},
	{
		ID: 211, Title: "Harvest Rush", Type: models.CardTypeFate, Quantity: 1,
		Description: "Early ripening. Go to the corn harvest.",
		Effects:     []models.Effect{{Kind: models.EffectMove, TileIndex: 33}},
	},
	{
		ID: 212, Title: "Irrigation District Rebate", Type: models.CardTypeFate, Quantity: 1,
		Description: "COLLECT $500 if you own fruit acres.",
		Effects: []models.Effect{{
			Kind: models.EffectIncome, Amount: 500,
			Condition: &models.Condition{HasAsset: models.AssetFruit},
		}},
	},

	// Option-to-buy deck: purchase options exercised from the hand.
	{
		ID: 300, Title: "10 Acres of Grain", Type: models.CardTypeOTB, Quantity: 3,
		Description: "Option to buy 10 acres of grain land for $5,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetGrain, Quantity: 10, Amount: 5000,
		}},
	},
	{
		ID: 301, Title: "10 Acres of Hay", Type: models.CardTypeOTB, Quantity: 3,
		Description: "Option to buy 10 acres of hay ground for $4,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetHay, Quantity: 10, Amount: 4000,
		}},
	},
	{
		ID: 302, Title: "5 Acres of Fruit", Type: models.CardTypeOTB, Quantity: 2,
		Description: "Option to buy 5 acres of orchard for $10,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetFruit, Quantity: 5, Amount: 10000,
		}},
	},
	{
		ID: 303, Title: "10 Head of Cows", Type: models.CardTypeOTB, Quantity: 3,
		Description: "Option to buy 10 head of cows for $5,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetCows, Quantity: 10, Amount: 5000,
		}},
	},
	{
		ID: 304, Title: "Used Tractor", Type: models.CardTypeOTB, Quantity: 2,
		Description: "Option to buy a tractor for $10,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetTractor, Quantity: 1, Amount: 10000,
		}},
	},
	{
		ID: 305, Title: "Used Harvester", Type: models.CardTypeOTB, Quantity: 2,
		Description: "Option to buy a harvester for $10,000.",
		Effects: []models.Effect{{
			Kind: models.EffectBuyAsset, Asset: models.AssetHarvester, Quantity: 1, Amount: 10000,
		}},
	},

	// Ridge leases: usage rights without ownership transfer.
	{
		ID: 400, Title: "Toppenish Ridge Lease", Type: models.CardTypeLease, Quantity: 1,
		Description: "Lease Toppenish Ridge for $25,000. Stocks 50 cows.",
		Effects: []models.Effect{{
			Kind: models.EffectLeaseRidge, RidgeName: "Toppenish Ridge", Amount: 25000, Quantity: 50,
		}},
	},
	{
		ID: 401, Title: "Ahtanum Ridge Lease", Type: models.CardTypeLease, Quantity: 1,
		Description: "Lease Ahtanum Ridge for $10,000. Stocks 20 cows.",
		Effects: []models.Effect{{
			Kind: models.EffectLeaseRidge, RidgeName: "Ahtanum Ridge", Amount: 10000, Quantity: 20,
		}},
	},
	{
		ID: 402, Title: "Cascade Ridge Lease", Type: models.CardTypeLease, Quantity: 1,
		Description: "Lease Cascade Ridge for $20,000. Stocks 40 cows.",
		Effects: []models.Effect{{
			Kind: models.EffectLeaseRidge, RidgeName: "Cascade Ridge", Amount: 20000, Quantity: 40,
		}},
	},
	{
		ID: 403, Title: "Rattlesnake Ridge Lease", Type: models.CardTypeLease, Quantity: 1,
		Description: "Lease Rattlesnake Ridge for $15,000. Stocks 30 cows.",
		Effects: []models.Effect{{
			Kind: models.EffectLeaseRidge, RidgeName: "Rattlesnake Ridge", Amount: 15000, Quantity: 30,
		}},
	},
}
