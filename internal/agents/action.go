// Package agents holds the per-domain decision rules. Each unit pairs a cheap
// ShouldAct filter with an Evaluate step that may still decline.
package agents

import (
	"fmt"
	"time"

	"gigdesk/internal/domain"
	"gigdesk/internal/money"
)

// Priorities carried in notification metadata.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Productivity action types, also accepted by the executor.
const (
	TypeBlockNewJobs        = "block_new_jobs"
	TypeCreateDeepWorkBlock = "create_deep_work_block"
	TypeSuggestReprioritize = "suggest_reprioritize"
	TypeCreateBid           = "create_bid"
	TypeCategorizeExpense   = "categorize_expense"
)

// Action is a suggestion produced by a rule unit. Exactly one variant is set.
type Action struct {
	Domain   string
	Kind     string
	Priority string

	BidMatch        *BidMatch
	InvoiceNudge    *InvoiceNudge
	SmartSplit      *SmartSplit
	BlockNewJobs    *BlockNewJobs
	DeepWorkBlock   *DeepWorkBlock
	Reprioritize    *Reprioritize
	ExpenseCategory *ExpenseCategory
}

type BidMatch struct {
	JobID         string
	Title         string
	Score         int
	BidAmount     float64
	ProposalDraft string
}

type InvoiceNudge struct {
	InvoiceID   string
	ClientID    string
	AmountDue   float64
	Currency    string
	DaysOverdue int
	Tone        string
	Message     string
}

type SmartSplit struct {
	TransactionID string
	Amount        float64
	Currency      string
	TaxReserve    float64
	Savings       float64
	Operating     float64
	Balance       float64
	Simulated     bool
}

type BlockNewJobs struct {
	CommittedHours float64
	CapacityHours  float64
	Until          time.Time
	Reason         string
}

type DeepWorkBlock struct {
	Title string
	Start time.Time
	End   time.Time
	Hours float64
}

type Reprioritize struct {
	Suggestions []PrioritySuggestion
	Message     string
}

type PrioritySuggestion struct {
	TaskID            string `json:"taskId"`
	Title             string `json:"title,omitempty"`
	CurrentPriority   string `json:"currentPriority,omitempty"`
	SuggestedPriority string `json:"suggestedPriority"`
}

type ExpenseCategory struct {
	TransactionID string
	Narration     string
	Amount        float64
	Category      string
	Deductible    bool
}

// Type names the executor branch for this action.
func (a Action) Type() string {
	switch {
	case a.BidMatch != nil:
		return TypeCreateBid
	case a.InvoiceNudge != nil:
		return domain.KindInvoiceNudge
	case a.SmartSplit != nil:
		return domain.KindSmartSplit
	case a.BlockNewJobs != nil:
		return TypeBlockNewJobs
	case a.DeepWorkBlock != nil:
		return TypeCreateDeepWorkBlock
	case a.Reprioritize != nil:
		return TypeSuggestReprioritize
	case a.ExpenseCategory != nil:
		return TypeCategorizeExpense
	}
	return ""
}

// Message is the notification text for the action.
func (a Action) Message() string {
	switch {
	case a.BidMatch != nil:
		return fmt.Sprintf("%d%% match: %s", a.BidMatch.Score, a.BidMatch.Title)
	case a.InvoiceNudge != nil:
		return a.InvoiceNudge.Message
	case a.SmartSplit != nil:
		s := a.SmartSplit
		return fmt.Sprintf("Received %s. Move %s to tax reserve and %s to savings.",
			money.Format(s.Amount, s.Currency), money.Format(s.TaxReserve, s.Currency), money.Format(s.Savings, s.Currency))
	case a.BlockNewJobs != nil:
		return a.BlockNewJobs.Reason
	case a.DeepWorkBlock != nil:
		return "Schedule Deep Work: " + a.DeepWorkBlock.Title
	case a.Reprioritize != nil:
		if a.Reprioritize.Message == "" {
			return "Reprioritize tasks"
		}
		return a.Reprioritize.Message
	case a.ExpenseCategory != nil:
		return "Categorize " + a.ExpenseCategory.Narration
	}
	return "Productivity Suggestion"
}

// Payload flattens the variant into notification metadata. The executor reads
// the same keys back when the user confirms.
func (a Action) Payload() map[string]any {
	p := map[string]any{"type": a.Type()}
	if a.Priority != "" {
		p["priority"] = a.Priority
	}
	switch {
	case a.BidMatch != nil:
		m := a.BidMatch
		p["job_id"] = m.JobID
		p["title"] = m.Title
		p["score"] = m.Score
		p["bid_amount"] = m.BidAmount
		p["proposal_draft"] = m.ProposalDraft
	case a.InvoiceNudge != nil:
		n := a.InvoiceNudge
		p["invoice_id"] = n.InvoiceID
		p["client_id"] = n.ClientID
		p["amount_due"] = n.AmountDue
		p["currency"] = n.Currency
		p["days_overdue"] = n.DaysOverdue
		p["tone"] = n.Tone
		p["message"] = n.Message
	case a.SmartSplit != nil:
		s := a.SmartSplit
		p["transaction_id"] = s.TransactionID
		p["amount"] = s.Amount
		p["currency"] = s.Currency
		p["tax_reserve"] = s.TaxReserve
		p["savings"] = s.Savings
		p["operating"] = s.Operating
		p["balance"] = s.Balance
		p["simulated"] = s.Simulated
		p["message"] = a.Message()
	case a.BlockNewJobs != nil:
		b := a.BlockNewJobs
		p["committed_hours"] = b.CommittedHours
		p["capacity_hours"] = b.CapacityHours
		p["until"] = b.Until.UTC().Format(time.RFC3339)
		p["reason"] = b.Reason
	case a.DeepWorkBlock != nil:
		d := a.DeepWorkBlock
		p["title"] = d.Title
		p["start"] = d.Start.UTC().Format(time.RFC3339)
		p["end"] = d.End.UTC().Format(time.RFC3339)
		p["hours"] = d.Hours
	case a.Reprioritize != nil:
		p["suggestions"] = a.Reprioritize.Suggestions
		p["message"] = a.Reprioritize.Message
	case a.ExpenseCategory != nil:
		e := a.ExpenseCategory
		p["transaction_id"] = e.TransactionID
		p["narration"] = e.Narration
		p["amount"] = e.Amount
		p["category"] = e.Category
		p["deductible"] = e.Deductible
	}
	return p
}
