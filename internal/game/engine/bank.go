package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/farmline/backend/internal/game/models"
)

// Charge debits amount from the player's cash. If the balance is short, an
// emergency loan covering the shortfall (plus the surcharge fee folded into
// principal) is issued in the same unit of work: either the full charge and
// loan commit together, or neither does.
//
// If even the maximum obtainable loan cannot cover the shortfall the charge
// fails with ErrInsufficientFunds and the player's cash and loan list are
// left untouched. Flags the player for a bankruptcy check in that case.
func (e *Engine) Charge(g *models.Game, p *models.Player, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	if p.Cash >= amount {
		p.Cash -= amount
		e.recordTransaction(g, models.TransactionCharge, p.ID, "", amount, reason)
		return nil
	}

	shortfall := amount - p.Cash
	surcharge := shortfall * g.Rules.LoanFeePercent / 100
	principal := shortfall + surcharge

	if p.Debt()+principal > g.Rules.DebtCeiling {
		p.Bankrupt = true
		return fmt.Errorf("%w: need $%d, have $%d and cannot borrow $%d within the $%d debt ceiling",
			ErrInsufficientFunds, amount, p.Cash, principal, g.Rules.DebtCeiling)
	}

	p.Loans = append(p.Loans, models.Loan{
		Principal: principal,
		Rate:      g.Rules.InterestPercent,
		Origin:    models.LoanOriginEmergency,
		Year:      g.Year,
	})
	p.Cash += shortfall
	p.Cash -= amount
	e.recordTransaction(g, models.TransactionLoan, "", p.ID, shortfall,
		fmt.Sprintf("emergency loan, principal $%d", principal))
	e.recordTransaction(g, models.TransactionCharge, p.ID, "", amount, reason)
	return nil
}

// Credit adds amount to the player's cash.
func (e *Engine) Credit(g *models.Game, p *models.Player, amount int, reason string) {
	if amount <= 0 {
		return
	}
	p.Cash += amount
	e.recordTransaction(g, models.TransactionCredit, "", p.ID, amount, reason)
}

// Transfer moves amount from one player to another as a single unit. The
// debit side may raise an emergency loan exactly as Charge does.
func (e *Engine) Transfer(g *models.Game, from, to *models.Player, amount int, reason string) error {
	if err := e.Charge(g, from, amount, reason); err != nil {
		return err
	}
	to.Cash += amount
	e.recordTransaction(g, models.TransactionCredit, from.ID, to.ID, amount, reason)
	return nil
}

// Borrow takes a deliberate bank note for at least the requested amount,
// rounded up to the configured increment. Unlike an emergency loan there is
// no surcharge; interest accrues like any other note. Returns the principal
// actually borrowed.
func (e *Engine) Borrow(g *models.Game, p *models.Player, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: borrow amount must be positive", ErrIllegalAction)
	}
	principal := amount
	if inc := g.Rules.LoanIncrement; inc > 0 && principal%inc != 0 {
		principal += inc - principal%inc
	}
	if p.Debt()+principal > g.Rules.DebtCeiling {
		// The rounded note may not fit when the exact amount still does.
		principal = amount
		if p.Debt()+principal > g.Rules.DebtCeiling {
			return 0, fmt.Errorf("%w: borrowing $%d would exceed the $%d debt ceiling",
				ErrInsufficientFunds, principal, g.Rules.DebtCeiling)
		}
	}
	p.Loans = append(p.Loans, models.Loan{
		Principal: principal,
		Rate:      g.Rules.InterestPercent,
		Origin:    models.LoanOriginBank,
		Year:      g.Year,
	})
	p.Cash += principal
	e.recordTransaction(g, models.TransactionLoan, "", p.ID, principal, "bank note")
	return principal, nil
}

// RepayLoan pays cash against outstanding principal, oldest note first.
// Repaying more than is owed or more than the player holds is rejected
// before any mutation.
func (e *Engine) RepayLoan(g *models.Game, p *models.Player, amount int) error {
	if amount <= 0 || amount > p.Cash {
		return fmt.Errorf("%w: cannot repay $%d with $%d cash", ErrIllegalAction, amount, p.Cash)
	}
	if amount > p.Debt() {
		return fmt.Errorf("%w: repayment $%d exceeds outstanding principal $%d", ErrIllegalAction, amount, p.Debt())
	}

	p.Cash -= amount
	remaining := amount
	kept := p.Loans[:0]
	for _, loan := range p.Loans {
		if remaining >= loan.Principal {
			remaining -= loan.Principal
			continue
		}
		loan.Principal -= remaining
		remaining = 0
		kept = append(kept, loan)
	}
	p.Loans = kept
	e.recordTransaction(g, models.TransactionRepayment, p.ID, "", amount, "loan repayment")
	return nil
}

// AccrueInterest applies the fixed yearly rate to every outstanding note,
// compounding the interest into principal. Runs at end of year for all
// players regardless of action.
func (e *Engine) AccrueInterest(g *models.Game) []string {
	var summary []string
	for i := range g.Players {
		p := &g.Players[i]
		if p.Eliminated || len(p.Loans) == 0 {
			continue
		}
		accrued := 0
		for j := range p.Loans {
			interest := p.Loans[j].Principal * p.Loans[j].Rate / 100
			p.Loans[j].Principal += interest
			accrued += interest
		}
		if accrued > 0 {
			e.recordTransaction(g, models.TransactionInterest, p.ID, "", accrued, "year-end interest")
			summary = append(summary, fmt.Sprintf("%s accrued $%d interest, debt now $%d", p.Name, accrued, p.Debt()))
		}
	}
	return summary
}

// MaxLoan returns the largest additional principal the player can take on.
func MaxLoan(g *models.Game, p *models.Player) int {
	capacity := g.Rules.DebtCeiling - p.Debt()
	if capacity < 0 {
		return 0
	}
	return capacity
}

func (e *Engine) recordTransaction(g *models.Game, txType models.TransactionType, from, to string, amount int, reason string) {
	g.Transactions = append(g.Transactions, models.Transaction{
		ID:           uuid.NewString(),
		GameID:       g.ID.Hex(),
		Type:         txType,
		FromPlayerID: from,
		ToPlayerID:   to,
		Amount:       amount,
		Reason:       reason,
		Timestamp:    time.Now(),
	})
}
