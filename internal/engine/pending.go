package engine

import (
	"context"
	"time"

	"gigdesk/internal/agents"
	"gigdesk/internal/domain"
	"gigdesk/internal/events"
)

// PendingAction is an unread ledger entry as the dashboard shows it.
type PendingAction struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	EventKind string         `json:"eventKind"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp" format:"date-time"`
	Payload   map[string]any `json:"payload"`
	Priority  string         `json:"priority,omitempty"`
	Status    string         `json:"status" enum:"warning,success"`
}

var kindDomains = map[string]string{
	domain.KindJobMatch:      domain.DomainHunter,
	domain.KindInvoiceNudge:  domain.DomainCollections,
	domain.KindSmartSplit:    domain.DomainCFO,
	domain.KindScheduleAlert: domain.DomainProductivity,
	domain.KindTaxReview:     domain.DomainTax,
}

// DomainForKind maps entries written without a domain tag. Unknown kinds are System.
func DomainForKind(kind string) string {
	if d, ok := kindDomains[kind]; ok {
		return d
	}
	return domain.DomainSystem
}

func toPending(n domain.Notification) PendingAction {
	d := n.Domain
	if d == "" {
		d = DomainForKind(n.Kind)
	}
	status := "success"
	if n.Priority() == agents.PriorityHigh {
		status = "warning"
	}
	return PendingAction{
		ID:        n.ID,
		Domain:    d,
		EventKind: n.Kind,
		Message:   n.Message,
		Timestamp: n.CreatedAt.UTC().Format(time.RFC3339),
		Payload:   n.Metadata,
		Priority:  n.Priority(),
		Status:    status,
	}
}

// PendingActions lists the user's unread entries, newest first.
func (e Engine) PendingActions(ctx context.Context, userID string) ([]PendingAction, error) {
	notes, err := e.Repo.ListUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingAction, 0, len(notes))
	for _, n := range notes {
		if n.Read {
			continue
		}
		out = append(out, toPending(n))
	}
	return out, nil
}

// DismissNotification resolves an entry without applying its action.
func (e Engine) DismissNotification(ctx context.Context, userID, id string) error {
	if err := e.Ledger().MarkRead(ctx, nil, userID, id); err != nil {
		return err
	}
	if err := e.events().Append(ctx, nil, events.TypeNotificationRead, userID, events.EntityNotification, id, nil); err != nil {
		e.log().Warn("record dismissal", "notification_id", id, "error", err)
	}
	return nil
}
