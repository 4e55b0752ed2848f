package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/farmline/backend/internal/game/models"
)

// Liquidation order and per-block sale valuations. Each block is sold as one
// indivisible lot; partial blocks are never sold.
var auctionOrder = []models.AssetType{
	models.AssetCows,
	models.AssetGrain,
	models.AssetHay,
	models.AssetFruit,
}

var blockValues = map[models.AssetType]int{
	models.AssetCows:  5000,
	models.AssetGrain: 5000,
	models.AssetHay:   4000,
	models.AssetFruit: 10000,
}

// RunAuction liquidates a bankrupt player's holdings block by block until
// their cash reaches the configured floor or the blocks run out. Solvent
// players bid through their decision policies; the highest bid wins, ties
// broken by a seeded draw. Blocks nobody bids on stay with the debtor.
//
// A player who still cannot reach the floor after every block is sold, and
// whose remaining debt exceeds their cash, is eliminated. A player who
// recovers keeps playing with the bankrupt flag cleared.
func (e *Engine) RunAuction(g *models.Game, debtor *models.Player, rng *rand.Rand) []string {
	floor := g.Rules.AuctionCashFloor
	auction := &models.Auction{
		ID:             uuid.NewString(),
		GameID:         g.ID.Hex(),
		BankruptPlayer: debtor.ID,
		CashFloor:      floor,
	}
	g.PendingAuction = auction

	summary := []string{fmt.Sprintf("%s is bankrupt; holdings go to auction", debtor.Name)}

	blocks := auctionBlocks(debtor)
	auction.RemainingBlocks = len(blocks)
	for _, block := range blocks {
		if debtor.Cash >= floor {
			break
		}
		auction.Block = block
		winner, bid := e.runBlockBidding(g, debtor, block, rng)
		auction.RemainingBlocks--
		if winner == nil {
			summary = append(summary, fmt.Sprintf("no bids on %d %s; %s keeps the block", block.Units, block.Asset, debtor.Name))
			continue
		}

		winner.Cash -= bid
		debtor.Cash += bid
		debtor.RemoveAsset(block.Asset, block.Units)
		winner.AddAsset(block.Asset, block.Units, bid)
		auction.Sales = append(auction.Sales, models.BlockSale{
			Asset:  block.Asset,
			Units:  block.Units,
			Price:  bid,
			Winner: winner.ID,
		})
		g.Transactions = append(g.Transactions, models.Transaction{
			ID:           uuid.NewString(),
			GameID:       g.ID.Hex(),
			Type:         models.TransactionAuction,
			FromPlayerID: winner.ID,
			ToPlayerID:   debtor.ID,
			Amount:       bid,
			Reason:       fmt.Sprintf("auction: %d %s", block.Units, block.Asset),
			Timestamp:    time.Now(),
		})
		summary = append(summary, fmt.Sprintf("%s wins %d %s for $%d", winner.Name, block.Units, block.Asset, bid))
	}

	g.PendingAuction = nil

	if len(debtor.Holdings) == 0 && debtor.Debt() > debtor.Cash {
		debtor.Eliminated = true
		e.releaseRidges(g, debtor)
		summary = append(summary, fmt.Sprintf("%s is out of the game", debtor.Name))
		return summary
	}

	debtor.Bankrupt = false
	summary = append(summary, fmt.Sprintf("%s stays in with $%d", debtor.Name, debtor.Cash))
	return summary
}

// runBlockBidding collects one sealed bid per solvent player and returns the
// winner. Bids above the bidder's cash are clamped; zero bids abstain.
func (e *Engine) runBlockBidding(g *models.Game, debtor *models.Player, block models.AuctionBlock, rng *rand.Rand) (*models.Player, int) {
	if e.advisor == nil {
		return nil, 0
	}
	var winners []*models.Player
	high := 0
	for i := range g.Players {
		bidder := &g.Players[i]
		if bidder.ID == debtor.ID || !bidder.Active() || bidder.Bankrupt {
			continue
		}
		bid := e.advisor.BidForBlock(g, bidder, block)
		if bid > bidder.Cash {
			bid = bidder.Cash
		}
		if bid <= 0 || bid < high {
			continue
		}
		if bid > high {
			high = bid
			winners = winners[:0]
		}
		winners = append(winners, bidder)
	}
	if len(winners) == 0 {
		return nil, 0
	}
	return winners[rng.Intn(len(winners))], high
}

// auctionBlocks splits the debtor's holdings into sale lots, in liquidation
// order. Equipment is never auctioned.
func auctionBlocks(debtor *models.Player) []models.AuctionBlock {
	var blocks []models.AuctionBlock
	for _, asset := range auctionOrder {
		units := blockUnits[asset]
		for n := debtor.Quantity(asset) / units; n > 0; n-- {
			blocks = append(blocks, models.AuctionBlock{
				Asset: asset,
				Units: units,
				Value: blockValues[asset],
			})
		}
	}
	return blocks
}

func (e *Engine) releaseRidges(g *models.Game, p *models.Player) {
	for i := range g.Ridges {
		if g.Ridges[i].LeasedBy == p.ID {
			g.Ridges[i].LeasedBy = ""
		}
	}
}
