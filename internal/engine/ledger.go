package engine

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"gigdesk/internal/agents"
	"gigdesk/internal/domain"
	"gigdesk/internal/repo"
)

// Ledger is the notification store the agents write to.
type Ledger struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (l Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// CreateIfAbsent inserts an unread entry unless one with the same
// (recipient, kind, metadata.uniqueKey) is still unread. It reports whether a
// row was written.
func (l Ledger) CreateIfAbsent(ctx context.Context, recipient, domainTag, kind, message string, metadata map[string]any) (bool, error) {
	return l.createIfAbsent(ctx, nil, recipient, domainTag, kind, message, metadata)
}

func (l Ledger) createIfAbsent(ctx context.Context, tx *sql.Tx, recipient, domainTag, kind, message string, metadata map[string]any) (bool, error) {
	if key, _ := metadata["uniqueKey"].(string); key == "" {
		return false, errors.New("ledger: metadata.uniqueKey is required")
	}
	return l.Repo.InsertNotificationIfAbsent(ctx, tx, domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Domain:      domainTag,
		Kind:        kind,
		Message:     message,
		Metadata:    maps.Clone(metadata),
		CreatedAt:   l.now(),
	})
}

// Report writes a low-priority status entry without any dedup check.
func (l Ledger) Report(ctx context.Context, recipient, domainTag, message string) error {
	return l.Repo.InsertNotification(ctx, nil, domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Domain:      domainTag,
		Kind:        domain.KindStatusReport,
		Message:     message,
		Metadata:    map[string]any{"priority": agents.PriorityLow},
		CreatedAt:   l.now(),
	})
}

// MarkRead resolves one of the recipient's entries. Entries are never deleted.
func (l Ledger) MarkRead(ctx context.Context, tx *sql.Tx, recipient, id string) error {
	return l.Repo.MarkNotificationRead(ctx, tx, recipient, id)
}
