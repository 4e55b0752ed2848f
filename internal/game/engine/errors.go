package engine

import "errors"

// Error taxonomy for action handling. Callers classify with errors.Is and
// surface the reason string; a rejected action is never a silent no-op.
var (
	// ErrIllegalAction rejects an action before any mutation: wrong phase,
	// out of turn, or not in the legal action set.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInsufficientFunds means a payment step failed after loan
	// exhaustion. It is local to that step; the rest of the action stands.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTarget means a referenced asset, card or player does not
	// exist or is not eligible.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrTerminalState rejects any action submitted after game over.
	ErrTerminalState = errors.New("game is over")

	// ErrDeckEmpty means both piles of a deck are exhausted.
	ErrDeckEmpty = errors.New("deck exhausted")
)
