// Package ai holds the decision policies that drive non-human players.
// Every policy scores the same candidate set the legality checker produces
// for humans; a policy can prefer among legal actions but can never reach
// an illegal one.
package ai

import (
	"time"

	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/engine"
	"github.com/farmline/backend/internal/game/models"
)

// Advisor answers the engine's decision callbacks by delegating to the
// acting player's policy. Human players falling through to the advisor
// (auction bids on their behalf) use the balanced policy.
type Advisor struct {
	engine   *engine.Engine
	log      *zap.SugaredLogger
	policies map[models.AIProfile]Policy
}

// New wires an advisor over the engine that will call it back.
func New(eng *engine.Engine, log *zap.SugaredLogger) *Advisor {
	s := scoring{catalog: eng.Catalog()}
	return &Advisor{
		engine: eng,
		log:    log,
		policies: map[models.AIProfile]Policy{
			models.ProfileCautious:     cautious{s},
			models.ProfileExpansionist: expansionist{s},
			models.ProfileGambler:      gambler{s},
			models.ProfileBalanced:     balanced{s},
		},
	}
}

// Profiles lists every selectable policy tag, in a stable order.
func Profiles() []models.AIProfile {
	return []models.AIProfile{
		models.ProfileCautious,
		models.ProfileExpansionist,
		models.ProfileGambler,
		models.ProfileBalanced,
	}
}

// policy resolves a profile tag, falling back to balanced for human players
// and unknown tags.
func (a *Advisor) policy(profile models.AIProfile) Policy {
	if p, ok := a.policies[profile]; ok {
		return p
	}
	return a.policies[models.ProfileBalanced]
}

// DetermineNextAction scores every concrete legal action under the player's
// policy and returns the best. Ties resolve to the earliest candidate in
// generation order, so the choice is a pure function of game state. Roll is
// always in the candidate set, so there is always an answer.
func (a *Advisor) DetermineNextAction(g *models.Game, p *models.Player) models.Action {
	policy := a.policy(p.AIProfile)
	candidates := a.candidates(g, p)

	best := candidates[0]
	bestScore := policy.ScoreAction(g, p, best)
	for _, c := range candidates[1:] {
		if score := policy.ScoreAction(g, p, c); score > bestScore {
			best, bestScore = c, score
		}
	}

	a.log.Debugw("policy decision", "gameId", g.ID.Hex(), "player", p.Name,
		"profile", p.AIProfile, "action", best.Type, "score", bestScore)
	best.Timestamp = time.Now()
	return best
}

// BidForBlock prices an auction block under the player's policy, clamped to
// their cash. Zero abstains.
func (a *Advisor) BidForBlock(g *models.Game, p *models.Player, block models.AuctionBlock) int {
	bid := a.policy(p.AIProfile).BlockValue(g, p, block)
	if bid > p.Cash {
		bid = p.Cash
	}
	if bid < 0 {
		bid = 0
	}
	return bid
}

// candidates expands the legal action types into concrete actions: one per
// held card for the card actions, a full pay-down for loan repayment.
func (a *Advisor) candidates(g *models.Game, p *models.Player) []models.Action {
	now := time.Now()
	base := models.Action{PlayerID: p.ID, GameID: g.ID.Hex(), Timestamp: now}

	out := []models.Action{{Type: models.ActionRoll, PlayerID: p.ID, GameID: g.ID.Hex(), Timestamp: now}}
	for _, t := range a.engine.LegalActions(g, p) {
		switch t {
		case models.ActionExerciseOption, models.ActionPlayCard:
			want := models.CardTypeOTB
			if t == models.ActionPlayCard {
				want = models.CardTypeLease
			}
			for _, id := range p.Hand {
				card, ok := a.engine.Catalog().ByID(id)
				if !ok || card.Type != want {
					continue
				}
				// The type-level legal actions say some card of this type is
				// playable; check this card so an unfinanceable purchase or a
				// taken ridge never reaches the scorer.
				if a.engine.CheckExercisable(g, p, card) != nil {
					continue
				}
				c := base
				c.Type = t
				c.CardID = id
				out = append(out, c)
			}
		case models.ActionRepayLoan:
			c := base
			c.Type = t
			c.Amount = min(p.Cash, p.Debt())
			if c.Amount > 0 {
				out = append(out, c)
			}
		case models.ActionDeclareBankruptcy:
			c := base
			c.Type = t
			out = append(out, c)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
