package agents

import (
	"fmt"
	"regexp"

	"gigdesk/internal/config"
	"gigdesk/internal/domain"
)

type taxRule struct {
	re         *regexp.Regexp
	category   string
	deductible bool
}

type Tax struct {
	expense *regexp.Regexp
	rules   []taxRule
}

// NewTax compiles the configured patterns; rules are tried in order.
func NewTax(cfg config.Tax) (*Tax, error) {
	expense, err := regexp.Compile(cfg.ExpensePattern)
	if err != nil {
		return nil, fmt.Errorf("expense pattern: %w", err)
	}
	t := &Tax{expense: expense}
	for _, r := range cfg.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("tax rule %s: %w", r.Category, err)
		}
		t.rules = append(t.rules, taxRule{re: re, category: r.Category, deductible: r.Deductible})
	}
	return t, nil
}

func (t *Tax) ShouldAct(txn domain.Transaction) bool {
	return txn.Type == "DEBIT" && txn.Category == "" && t.expense.MatchString(txn.Narration)
}

// Evaluate returns nil when no rule recognizes the narration.
func (t *Tax) Evaluate(txn domain.Transaction) *Action {
	for _, r := range t.rules {
		if !r.re.MatchString(txn.Narration) {
			continue
		}
		return &Action{
			Domain:   domain.DomainTax,
			Kind:     domain.KindTaxReview,
			Priority: PriorityMedium,
			ExpenseCategory: &ExpenseCategory{
				TransactionID: txn.ID,
				Narration:     txn.Narration,
				Amount:        txn.Amount,
				Category:      r.category,
				Deductible:    r.deductible,
			},
		}
	}
	return nil
}
