package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"gigdesk/internal/config"
	"gigdesk/internal/domain"
	"gigdesk/internal/money"
)

const (
	ToneFriendly = "friendly"
	ToneFirm     = "firm"
	ToneFinal    = "final"
)

// ReminderLog reports the last time a reminder was logged for an invoice.
type ReminderLog interface {
	LastReminderAt(ctx context.Context, invoiceID string) (*time.Time, error)
}

type Collections struct {
	Config    config.Collections
	Reminders ReminderLog
}

// DaysOverdue prefers the due date, then the stored count, then the configured default.
func (c Collections) DaysOverdue(inv domain.Invoice, now time.Time) int {
	if !inv.DueDate.IsZero() {
		days := int(math.Floor(startOfDay(now).Sub(startOfDay(inv.DueDate)).Hours() / 24))
		if days < 0 {
			return 0
		}
		return days
	}
	if inv.DaysOverdue != nil {
		return *inv.DaysOverdue
	}
	return c.Config.DefaultDaysOverdue
}

func (c Collections) ShouldAct(inv domain.Invoice, now time.Time) bool {
	if inv.Status != "Overdue" || inv.AmountDue <= 0 {
		return false
	}
	return c.DaysOverdue(inv, now) >= c.Config.MinDaysOverdue
}

// Evaluate declines when a reminder went out within the cooldown window.
func (c Collections) Evaluate(ctx context.Context, inv domain.Invoice, now time.Time) (*Action, error) {
	if c.Reminders != nil && c.Config.ReminderCooldownDays > 0 {
		last, err := c.Reminders.LastReminderAt(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("last reminder for %s: %w", inv.ID, err)
		}
		if last != nil && now.Sub(*last) < time.Duration(c.Config.ReminderCooldownDays)*24*time.Hour {
			return nil, nil
		}
	}
	days := c.DaysOverdue(inv, now)
	tone := c.tone(days)
	priority := PriorityMedium
	if tone != ToneFriendly {
		priority = PriorityHigh
	}
	currency := inv.Currency
	if currency == "" {
		currency = "INR"
	}
	amount := money.Format(inv.AmountDue, currency)
	var msg string
	switch tone {
	case ToneFinal:
		msg = fmt.Sprintf("Final notice: invoice %s for %s is %d days overdue. Further delay may pause ongoing work.", inv.ID, amount, days)
	case ToneFirm:
		msg = fmt.Sprintf("Invoice %s for %s is now %d days overdue. Please arrange payment at the earliest.", inv.ID, amount, days)
	default:
		msg = fmt.Sprintf("Friendly reminder: invoice %s for %s was due %d days ago.", inv.ID, amount, days)
	}
	return &Action{
		Domain:   domain.DomainCollections,
		Kind:     domain.KindInvoiceNudge,
		Priority: priority,
		InvoiceNudge: &InvoiceNudge{
			InvoiceID:   inv.ID,
			ClientID:    inv.ClientID,
			AmountDue:   inv.AmountDue,
			Currency:    currency,
			DaysOverdue: days,
			Tone:        tone,
			Message:     msg,
		},
	}, nil
}

func (c Collections) tone(days int) string {
	switch {
	case days >= c.Config.FinalAfterDays:
		return ToneFinal
	case days >= c.Config.FirmAfterDays:
		return ToneFirm
	default:
		return ToneFriendly
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
