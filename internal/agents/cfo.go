package agents

import (
	"context"
	"fmt"

	"gigdesk/internal/config"
	"gigdesk/internal/domain"
	"gigdesk/internal/money"
)

// CategorySplit marks a credit whose funds were already allocated.
const CategorySplit = "Split"

// Balances looks up the user's operating balance; ok is false when no account exists.
type Balances interface {
	Balance(ctx context.Context, userID string) (balance float64, ok bool, err error)
}

type CFO struct {
	Config   config.CFO
	Currency string
	Balances Balances
}

func (c CFO) ShouldAct(txn domain.Transaction) bool {
	return txn.Type == "CREDIT" && txn.Amount >= c.Config.MinCreditAmount && txn.Category != CategorySplit
}

func (c CFO) Evaluate(ctx context.Context, txn domain.Transaction) (*Action, error) {
	balance, simulated := c.Config.SimulatedBalance, true
	if c.Balances != nil {
		b, ok, err := c.Balances.Balance(ctx, txn.UserID)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", txn.UserID, err)
		}
		if ok {
			balance, simulated = b, false
		}
	}
	tax := money.Round(txn.Amount * c.Config.TaxReservePct)
	savings := money.Round(txn.Amount * c.Config.SavingsPct)
	if tax < c.Config.MinTransfer {
		return nil, nil
	}
	priority := PriorityMedium
	if balance < tax+savings {
		priority = PriorityHigh
	}
	return &Action{
		Domain:   domain.DomainCFO,
		Kind:     domain.KindSmartSplit,
		Priority: priority,
		SmartSplit: &SmartSplit{
			TransactionID: txn.ID,
			Amount:        txn.Amount,
			Currency:      c.Currency,
			TaxReserve:    tax,
			Savings:       savings,
			Operating:     money.Round(txn.Amount - tax - savings),
			Balance:       balance,
			Simulated:     simulated,
		},
	}, nil
}
