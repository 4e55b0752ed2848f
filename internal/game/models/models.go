package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Game represents one farm game session. All entities below are owned by
// the Game aggregate; nothing outlives it.
type Game struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"gameId"`
	Code            string             `bson:"code" json:"code"` // Alphanumeric room code
	Name            string             `bson:"name" json:"name"`
	Status          GameStatus         `bson:"status" json:"status"`
	Phase           GamePhase          `bson:"phase" json:"phase"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	Players         []Player           `bson:"players" json:"players"`
	TurnOrder       []string           `bson:"turnOrder" json:"turnOrder"`
	CurrentTurn     int                `bson:"currentTurn" json:"currentTurn"` // index into TurnOrder
	Year            int                `bson:"year" json:"year"`
	TurnCount       int                `bson:"turnCount" json:"turnCount"`
	FateDeck        Deck               `bson:"fateDeck" json:"fateDeck"`
	ExpenseDeck     Deck               `bson:"expenseDeck" json:"expenseDeck"`
	OTBDeck         Deck               `bson:"otbDeck" json:"otbDeck"`
	Ridges          []Ridge            `bson:"ridges" json:"ridges"`
	Finished        bool               `bson:"finished" json:"finished"`
	WinnerID        string             `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	Rules           Rules              `bson:"rules" json:"rules"`
	Transactions    []Transaction      `bson:"transactions" json:"transactions"`
	LastActivity    time.Time          `bson:"lastActivity" json:"lastActivity"`
	PendingAuction  *Auction           `bson:"pendingAuction,omitempty" json:"pendingAuction,omitempty"`
	ActionsThisTurn int                `bson:"actionsThisTurn" json:"actionsThisTurn"`
}

// Rules is the per-game snapshot of the configurable rule set.
type Rules struct {
	StartingCash     int   `bson:"startingCash" json:"startingCash"`
	MaxTurns         int   `bson:"maxTurns" json:"maxTurns"`
	WinningNetWorth  int   `bson:"winningNetWorth" json:"winningNetWorth"`
	AuctionCashFloor int   `bson:"auctionCashFloor" json:"auctionCashFloor"`
	LoanIncrement    int   `bson:"loanIncrement" json:"loanIncrement"`
	LoanFeePercent   int   `bson:"loanFeePercent" json:"loanFeePercent"`
	DebtCeiling      int   `bson:"debtCeiling" json:"debtCeiling"`
	InterestPercent  int   `bson:"interestPercent" json:"interestPercent"`
	SideJobPay       int   `bson:"sideJobPay" json:"sideJobPay"`
	Seed             int64 `bson:"seed" json:"seed"`
}

// Player represents a player in the game. Cash is in whole dollars and must
// never be observed negative outside a single in-flight transaction.
type Player struct {
	ID             string                     `bson:"playerId" json:"playerId"`
	UserID         string                     `bson:"userId" json:"userId"`
	Name           string                     `bson:"name" json:"name"`
	Cash           int                        `bson:"cash" json:"cash"`
	Position       int                        `bson:"position" json:"position"`
	Holdings       map[AssetType]*AssetRecord `bson:"holdings" json:"holdings"`
	Hand           []int                      `bson:"hand" json:"hand"` // card catalog IDs
	Loans          []Loan                     `bson:"loans" json:"loans"`
	Modifiers      []Modifier                 `bson:"modifiers,omitempty" json:"modifiers,omitempty"`
	Bankrupt       bool                       `bson:"bankrupt" json:"bankrupt"`
	Eliminated     bool                       `bson:"eliminated" json:"eliminated"`
	AIProfile      AIProfile                  `bson:"aiProfile,omitempty" json:"aiProfile,omitempty"` // empty means human-controlled
	SideJobPay     bool                       `bson:"sideJobPay" json:"sideJobPay"`
	SkipNextYear   bool                       `bson:"skipNextYear" json:"skipNextYear"`
	TurnsTaken     int                        `bson:"turnsTaken" json:"turnsTaken"`
	WrappedYear    bool                       `bson:"wrappedYear" json:"wrappedYear"`
	LockedBlocks   map[AssetType]int          `bson:"lockedBlocks,omitempty" json:"lockedBlocks,omitempty"`
	DisconnectedAt *time.Time                 `bson:"disconnectedAt,omitempty" json:"disconnectedAt,omitempty"`
	// WebSocket session ID is not stored in the database
	SessionID string `bson:"-" json:"sessionId,omitempty"`
}

// AssetRecord tracks one category of farm asset a player holds.
type AssetRecord struct {
	Quantity  int `bson:"quantity" json:"quantity"`
	CostBasis int `bson:"costBasis" json:"costBasis"`
	Income    int `bson:"income" json:"income"`
}

// Loan is one outstanding bank note.
type Loan struct {
	Principal int        `bson:"principal" json:"principal"`
	Rate      int        `bson:"rate" json:"rate"` // percent per year
	Origin    LoanOrigin `bson:"origin" json:"origin"`
	Year      int        `bson:"year" json:"year"`
}

// Modifier is an income/harvest multiplier attached to a player. Temporary
// modifiers are cleared at end of year; permanent ones are never cleared.
type Modifier struct {
	Asset      AssetType `bson:"asset" json:"asset"`
	Multiplier float64   `bson:"multiplier" json:"multiplier"`
	Permanent  bool      `bson:"permanent" json:"permanent"`
}

// Card is an immutable catalog entry. Decks and hands reference cards by ID.
type Card struct {
	ID          int      `bson:"cardId" json:"cardId"`
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Type        CardType `bson:"type" json:"type"`
	Effects     []Effect `bson:"effects" json:"effects"`
	Quantity    int      `bson:"quantity" json:"quantity"` // instances in a fresh deck
}

// Effect is one typed effect primitive. Kind selects the variant; the other
// fields carry that variant's parameters.
type Effect struct {
	Kind       EffectKind `bson:"kind" json:"kind"`
	Amount     int        `bson:"amount,omitempty" json:"amount,omitempty"`
	Asset      AssetType  `bson:"asset,omitempty" json:"asset,omitempty"`
	Rate       int        `bson:"rate,omitempty" json:"rate,omitempty"`
	Quantity   int        `bson:"quantity,omitempty" json:"quantity,omitempty"`
	TileIndex  int        `bson:"tileIndex,omitempty" json:"tileIndex,omitempty"`
	Multiplier float64    `bson:"multiplier,omitempty" json:"multiplier,omitempty"`
	Permanent  bool       `bson:"permanent,omitempty" json:"permanent,omitempty"`
	RidgeName  string     `bson:"ridgeName,omitempty" json:"ridgeName,omitempty"`
	Deck       CardType   `bson:"deck,omitempty" json:"deck,omitempty"`
	Condition  *Condition `bson:"condition,omitempty" json:"condition,omitempty"`
	EarlyExit  bool       `bson:"earlyExit,omitempty" json:"earlyExit,omitempty"`
}

// Condition guards a ConditionalPayment primitive. Exactly one predicate
// field is set.
type Condition struct {
	HasAsset     AssetType `bson:"hasAsset,omitempty" json:"hasAsset,omitempty"`
	MissingAsset AssetType `bson:"missingAsset,omitempty" json:"missingAsset,omitempty"`
	MinCash      int       `bson:"minCash,omitempty" json:"minCash,omitempty"`
}

// Deck holds the mutable draw/discard ordering for one card partition.
// Invariant: every instance is in exactly one of draw pile, discard pile,
// a player's hand, or the removed list.
type Deck struct {
	DrawPile    []int `bson:"drawPile" json:"drawPile"`
	DiscardPile []int `bson:"discardPile" json:"discardPile"`
	Removed     []int `bson:"removed,omitempty" json:"removed,omitempty"`
}

// Ridge is a leaseable grazing range. Leasing grants usage rights without
// ownership transfer.
type Ridge struct {
	Name        string `bson:"name" json:"name"`
	Cost        int    `bson:"cost" json:"cost"`
	CowCapacity int    `bson:"cowCapacity" json:"cowCapacity"`
	Cows        int    `bson:"cows" json:"cows"`
	LeasedBy    string `bson:"leasedBy,omitempty" json:"leasedBy,omitempty"`
}

// BoardTile is one position on the static board.
type BoardTile struct {
	Index       int          `bson:"index" json:"index"`
	Name        string       `bson:"name" json:"name"`
	Category    TileCategory `bson:"category" json:"category"`
	Harvest     HarvestType  `bson:"harvest,omitempty" json:"harvest,omitempty"`
	Effects     []Effect     `bson:"effects,omitempty" json:"effects,omitempty"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
}

// Auction is the in-flight liquidation context for a bankrupt player.
type Auction struct {
	ID              string       `bson:"auctionId" json:"auctionId"`
	GameID          string       `bson:"gameId" json:"gameId"`
	BankruptPlayer  string       `bson:"bankruptPlayer" json:"bankruptPlayer"`
	Block           AuctionBlock `bson:"block" json:"block"`
	HighBid         int          `bson:"highBid" json:"highBid"`
	HighBidder      string       `bson:"highBidder,omitempty" json:"highBidder,omitempty"`
	RemainingBlocks int          `bson:"remainingBlocks" json:"remainingBlocks"`
	CashFloor       int          `bson:"cashFloor" json:"cashFloor"`
	Sales           []BlockSale  `bson:"sales,omitempty" json:"sales,omitempty"`
}

// AuctionBlock is a fixed-size, fixed-valuation lot sold as one unit.
type AuctionBlock struct {
	Asset AssetType `bson:"asset" json:"asset"`
	Units int       `bson:"units" json:"units"`
	Value int       `bson:"value" json:"value"`
}

// BlockSale records one completed block sale for replay/audit.
type BlockSale struct {
	Asset  AssetType `bson:"asset" json:"asset"`
	Units  int       `bson:"units" json:"units"`
	Price  int       `bson:"price" json:"price"`
	Winner string    `bson:"winner" json:"winner"`
}

// Transaction records one committed money movement.
type Transaction struct {
	ID           string          `bson:"transactionId" json:"transactionId"`
	GameID       string          `bson:"gameId" json:"gameId"`
	Type         TransactionType `bson:"type" json:"type"`
	FromPlayerID string          `bson:"fromPlayerId,omitempty" json:"fromPlayerId,omitempty"`
	ToPlayerID   string          `bson:"toPlayerId,omitempty" json:"toPlayerId,omitempty"`
	Amount       int             `bson:"amount" json:"amount"`
	Reason       string          `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp    time.Time       `bson:"timestamp" json:"timestamp"`
}

// Action is one player action submitted to the engine.
type Action struct {
	Type      ActionType `json:"type"`
	PlayerID  string     `json:"playerId"`
	GameID    string     `json:"gameId"`
	CardID    int        `json:"cardId,omitempty"`
	Amount    int        `json:"amount,omitempty"` // loan repayment amount
	Timestamp time.Time  `json:"timestamp"`
}

// StateChange is the change summary emitted after every committed mutation.
type StateChange struct {
	GameID    string    `json:"gameId"`
	PlayerID  string    `json:"playerId,omitempty"`
	Phase     GamePhase `json:"phase"`
	Summary   []string  `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// GameStatus represents the status of a game
type GameStatus string

const (
	GameStatusLobby     GameStatus = "LOBBY"
	GameStatusActive    GameStatus = "ACTIVE"
	GameStatusCompleted GameStatus = "COMPLETED"
	GameStatusAbandoned GameStatus = "ABANDONED"
)

// GamePhase represents the turn/phase state machine position
type GamePhase string

const (
	PhaseSetup             GamePhase = "SETUP"
	PhasePlayerTurnStart   GamePhase = "PLAYER_TURN_START"
	PhaseAwaitingAction    GamePhase = "AWAITING_ACTION"
	PhaseEffectResolution  GamePhase = "EFFECT_RESOLUTION"
	PhaseBankruptcyCheck   GamePhase = "BANKRUPTCY_CHECK"
	PhaseAuctionInProgress GamePhase = "AUCTION_IN_PROGRESS"
	PhaseTurnEnd           GamePhase = "TURN_END"
	PhaseEarlySummer       GamePhase = "YEAR_END_EARLY_SUMMER"
	PhaseLateSummer        GamePhase = "YEAR_END_LATE_SUMMER"
	PhaseEndOfYear         GamePhase = "YEAR_END_END_OF_YEAR"
	PhaseGameOver          GamePhase = "GAME_OVER"
)

// AssetType represents a category of farm asset
type AssetType string

const (
	AssetGrain     AssetType = "GRAIN"
	AssetHay       AssetType = "HAY"
	AssetCows      AssetType = "COWS"
	AssetFruit     AssetType = "FRUIT"
	AssetTractor   AssetType = "TRACTOR"
	AssetHarvester AssetType = "HARVESTER"
)

// CardType represents the deck partition a card belongs to
type CardType string

const (
	CardTypeOTB     CardType = "OTB"
	CardTypeLease   CardType = "LEASE"
	CardTypeFate    CardType = "FATE"
	CardTypeExpense CardType = "EXPENSE"
)

// EffectKind selects the effect primitive variant
type EffectKind string

const (
	EffectIncome             EffectKind = "INCOME"
	EffectExpense            EffectKind = "EXPENSE"
	EffectConditionalPayment EffectKind = "CONDITIONAL_PAYMENT"
	EffectMove               EffectKind = "MOVE"
	EffectAssetTransfer      EffectKind = "ASSET_TRANSFER"
	EffectDraw               EffectKind = "DRAW"
	EffectDiscard            EffectKind = "DISCARD"
	EffectApplyModifier      EffectKind = "APPLY_MODIFIER"
	EffectIncomePerAsset     EffectKind = "INCOME_PER_ASSET"
	EffectExpensePerAsset    EffectKind = "EXPENSE_PER_ASSET"
	EffectCollectFromOthers  EffectKind = "COLLECT_FROM_OTHERS"
	EffectPayInterest        EffectKind = "PAY_INTEREST"
	EffectSkipYear           EffectKind = "SKIP_YEAR"
	EffectBuyAsset           EffectKind = "BUY_ASSET"
	EffectLeaseRidge         EffectKind = "LEASE_RIDGE"
)

// TileCategory represents the broad class of a board tile
type TileCategory string

const (
	TileDrawCard     TileCategory = "DRAW_CARD"
	TilePayFee       TileCategory = "PAY_FEE"
	TilePassThrough  TileCategory = "PASS_THROUGH"
	TilePhaseTrigger TileCategory = "PHASE_TRIGGER"
	TileHarvest      TileCategory = "HARVEST"
)

// HarvestType represents which harvest window a tile belongs to
type HarvestType string

const (
	HarvestNone      HarvestType = ""
	HarvestCorn      HarvestType = "CORN"
	HarvestWheat     HarvestType = "WHEAT"
	HarvestApple     HarvestType = "APPLE"
	HarvestCherry    HarvestType = "CHERRY"
	HarvestLivestock HarvestType = "LIVESTOCK"
	HarvestHayFirst  HarvestType = "HAY_CUTTING_1"
	HarvestHaySecond HarvestType = "HAY_CUTTING_2"
	HarvestHayThird  HarvestType = "HAY_CUTTING_3"
	HarvestHayFourth HarvestType = "HAY_CUTTING_4"
)

// LoanOrigin represents how a loan came to exist
type LoanOrigin string

const (
	LoanOriginBank      LoanOrigin = "BANK"
	LoanOriginEmergency LoanOrigin = "EMERGENCY"
)

// AIProfile represents a decision policy tag for non-human players
type AIProfile string

const (
	ProfileCautious     AIProfile = "CAUTIOUS"
	ProfileExpansionist AIProfile = "EXPANSIONIST"
	ProfileGambler      AIProfile = "GAMBLER"
	ProfileBalanced     AIProfile = "BALANCED"
)

// ActionType represents the type of a player action
type ActionType string

const (
	ActionRoll              ActionType = "ROLL"
	ActionExerciseOption    ActionType = "EXERCISE_OPTION"
	ActionPlayCard          ActionType = "PLAY_CARD"
	ActionRepayLoan         ActionType = "REPAY_LOAN"
	ActionDeclareBankruptcy ActionType = "DECLARE_BANKRUPTCY"
	ActionSkip              ActionType = "SKIP"
)

// TransactionType represents the type of a transaction
type TransactionType string

const (
	TransactionCharge    TransactionType = "CHARGE"
	TransactionCredit    TransactionType = "CREDIT"
	TransactionLoan      TransactionType = "LOAN"
	TransactionInterest  TransactionType = "INTEREST"
	TransactionAuction   TransactionType = "AUCTION_SALE"
	TransactionSideJob   TransactionType = "SIDE_JOB"
	TransactionRepayment TransactionType = "REPAYMENT"
)

// IsAI reports whether the player is driven by a decision policy.
func (p *Player) IsAI() bool {
	return p.AIProfile != ""
}

// Active reports whether the player still takes turns.
func (p *Player) Active() bool {
	return !p.Eliminated
}

// Quantity returns the held quantity of one asset category.
func (p *Player) Quantity(asset AssetType) int {
	if rec, ok := p.Holdings[asset]; ok {
		return rec.Quantity
	}
	return 0
}

// AddAsset credits quantity and cost basis for one asset category.
func (p *Player) AddAsset(asset AssetType, quantity, cost int) {
	if p.Holdings == nil {
		p.Holdings = make(map[AssetType]*AssetRecord)
	}
	rec, ok := p.Holdings[asset]
	if !ok {
		rec = &AssetRecord{}
		p.Holdings[asset] = rec
	}
	rec.Quantity += quantity
	rec.CostBasis += cost
}

// RemoveAsset debits quantity from one asset category, clamping at the held
// amount and scaling the cost basis down proportionally. Returns the number
// of units actually removed.
func (p *Player) RemoveAsset(asset AssetType, quantity int) int {
	rec, ok := p.Holdings[asset]
	if !ok || rec.Quantity == 0 {
		return 0
	}
	removed := quantity
	if removed > rec.Quantity {
		removed = rec.Quantity
	}
	rec.CostBasis -= rec.CostBasis * removed / rec.Quantity
	rec.Quantity -= removed
	if rec.Quantity == 0 {
		delete(p.Holdings, asset)
	}
	return removed
}

// Debt returns the player's total outstanding loan principal.
func (p *Player) Debt() int {
	total := 0
	for _, l := range p.Loans {
		total += l.Principal
	}
	return total
}

// NetWorth is cash plus asset cost basis minus outstanding loan principal.
func (p *Player) NetWorth() int {
	worth := p.Cash - p.Debt()
	for _, rec := range p.Holdings {
		worth += rec.CostBasis
	}
	return worth
}

// HarvestMultiplier returns the combined modifier product for one asset.
func (p *Player) HarvestMultiplier(asset AssetType) float64 {
	m := 1.0
	for _, mod := range p.Modifiers {
		if mod.Asset == asset {
			m *= mod.Multiplier
		}
	}
	return m
}

// ClearTemporaryModifiers drops every modifier not marked permanent.
func (p *Player) ClearTemporaryModifiers() {
	kept := p.Modifiers[:0]
	for _, mod := range p.Modifiers {
		if mod.Permanent {
			kept = append(kept, mod)
		}
	}
	p.Modifiers = kept
}

// HasCard reports whether the player's hand holds the given catalog card.
func (p *Player) HasCard(cardID int) bool {
	for _, id := range p.Hand {
		if id == cardID {
			return true
		}
	}
	return false
}

// DropCard removes one instance of the given card from the player's hand.
func (p *Player) DropCard(cardID int) bool {
	for i, id := range p.Hand {
		if id == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(playerID string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return &g.Players[i]
		}
	}
	return nil
}

// ActivePlayer returns the player whose turn it currently is, or nil.
func (g *Game) ActivePlayer() *Player {
	if len(g.TurnOrder) == 0 {
		return nil
	}
	return g.PlayerByID(g.TurnOrder[g.CurrentTurn%len(g.TurnOrder)])
}

// ActiveCount returns the number of non-eliminated players.
func (g *Game) ActiveCount() int {
	n := 0
	for i := range g.Players {
		if g.Players[i].Active() {
			n++
		}
	}
	return n
}

// DeckFor returns the deck holding the given card type. OTB and Lease cards
// share one sub-deck.
func (g *Game) DeckFor(cardType CardType) *Deck {
	switch cardType {
	case CardTypeFate:
		return &g.FateDeck
	case CardTypeExpense:
		return &g.ExpenseDeck
	default:
		return &g.OTBDeck
	}
}

// RidgeByName returns the named ridge, or nil.
func (g *Game) RidgeByName(name string) *Ridge {
	for i := range g.Ridges {
		if g.Ridges[i].Name == name {
			return &g.Ridges[i]
		}
	}
	return nil
}
