package agents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dedup keys. Collections keys are stable for one calendar day so a nudge fires
// at most once per invoice per day; CFO and Tax keys are stable per transaction;
// Productivity keys never repeat because several suggestions may coexist.

func CollectionsKey(invoiceID string, now time.Time) string {
	return fmt.Sprintf("col_%s_%s", invoiceID, now.Format(time.DateOnly))
}

func CFOKey(transactionID string) string {
	return "cfo_" + transactionID
}

func TaxKey(transactionID string) string {
	return "tax_" + transactionID
}

func ProductivityKey(actionType string, now time.Time) string {
	return fmt.Sprintf("prod_%s_%d_%s", actionType, now.UnixNano(), uuid.NewString())
}

func HunterKey(jobID string) string {
	return "hunt_" + jobID
}

// Key returns the dedup key for an action produced at now.
func Key(a Action, now time.Time) string {
	switch {
	case a.InvoiceNudge != nil:
		return CollectionsKey(a.InvoiceNudge.InvoiceID, now)
	case a.SmartSplit != nil:
		return CFOKey(a.SmartSplit.TransactionID)
	case a.ExpenseCategory != nil:
		return TaxKey(a.ExpenseCategory.TransactionID)
	case a.BidMatch != nil:
		return HunterKey(a.BidMatch.JobID)
	}
	return ProductivityKey(a.Type(), now)
}
