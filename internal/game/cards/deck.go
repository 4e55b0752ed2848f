package cards

import (
	"math/rand"

	"github.com/farmline/backend/internal/game/models"
)

// BuildDeck assembles a fresh draw pile holding every catalog instance of
// the given partitions, in catalog order. Shuffle before use.
func BuildDeck(catalog *Catalog, types ...models.CardType) models.Deck {
	var deck models.Deck
	for _, card := range catalog.ForType(types...) {
		for i := 0; i < card.Quantity; i++ {
			deck.DrawPile = append(deck.DrawPile, card.ID)
		}
	}
	return deck
}

// Shuffle performs an unbiased Fisher-Yates shuffle of the draw pile using
// the caller's seeded source. Never uses ambient randomness.
func Shuffle(deck *models.Deck, rng *rand.Rand) {
	rng.Shuffle(len(deck.DrawPile), func(i, j int) {
		deck.DrawPile[i], deck.DrawPile[j] = deck.DrawPile[j], deck.DrawPile[i]
	})
}

// Draw removes and returns the top card instance. When the draw pile is
// empty the discard pile is shuffled back in first. Returns false only when
// both piles are exhausted.
func Draw(deck *models.Deck, rng *rand.Rand) (int, bool) {
	if len(deck.DrawPile) == 0 {
		if len(deck.DiscardPile) == 0 {
			return 0, false
		}
		deck.DrawPile = append(deck.DrawPile, deck.DiscardPile...)
		deck.DiscardPile = deck.DiscardPile[:0]
		Shuffle(deck, rng)
	}
	id := deck.DrawPile[0]
	deck.DrawPile = deck.DrawPile[1:]
	return id, true
}

// Discard places a card instance on the discard pile.
func Discard(deck *models.Deck, cardID int) {
	deck.DiscardPile = append(deck.DiscardPile, cardID)
}

// Remove takes a card instance out of circulation permanently.
func Remove(deck *models.Deck, cardID int) {
	deck.Removed = append(deck.Removed, cardID)
}

// InCirculation counts instances across the draw pile, discard pile and the
// removed list. Hands are tracked by the game, not the deck.
func InCirculation(deck *models.Deck) int {
	return len(deck.DrawPile) + len(deck.DiscardPile) + len(deck.Removed)
}
