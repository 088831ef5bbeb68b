package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gigdesk/internal/domain"
)

func prepareNotification(n *domain.Notification) (string, error) {
	if n.ID == "" {
		return "", errors.New("id required")
	}
	if n.RecipientID == "" {
		return "", errors.New("recipient_id required")
	}
	if n.Kind == "" {
		return "", errors.New("kind required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}
	data, err := json.Marshal(n.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal notification metadata: %w", err)
	}
	return string(data), nil
}

// InsertNotification stores an entry unconditionally.
func (r Repo) InsertNotification(ctx context.Context, tx *sql.Tx, n domain.Notification) error {
	meta, err := prepareNotification(&n)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO notifications(id,recipient_id,domain,kind,message,metadata_json,unique_key,read,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		n.ID, n.RecipientID, nullable(n.Domain), n.Kind, n.Message, meta, nullable(n.UniqueKey()), boolInt(n.Read), FormatTime(n.CreatedAt))
	return err
}

// InsertNotificationIfAbsent inserts n unless an unread entry with the same
// (recipient, kind, unique key) exists. The check and insert are one statement
// guarded by the partial unique index, so concurrent callers cannot both win.
func (r Repo) InsertNotificationIfAbsent(ctx context.Context, tx *sql.Tx, n domain.Notification) (bool, error) {
	if n.UniqueKey() == "" {
		return false, errors.New("metadata.uniqueKey required")
	}
	meta, err := prepareNotification(&n)
	if err != nil {
		return false, err
	}
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO notifications(id,recipient_id,domain,kind,message,metadata_json,unique_key,read,created_at) VALUES (?,?,?,?,?,?,?,0,?)
ON CONFLICT(recipient_id,kind,unique_key) WHERE read=0 AND unique_key IS NOT NULL DO NOTHING`,
		n.ID, n.RecipientID, nullable(n.Domain), n.Kind, n.Message, meta, n.UniqueKey(), FormatTime(n.CreatedAt))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const notificationColumns = `id,recipient_id,COALESCE(domain,''),kind,message,metadata_json,read,created_at`

func scanNotification(scan func(dest ...any) error) (domain.Notification, error) {
	var (
		n             domain.Notification
		meta, created string
		read          int
	)
	if err := scan(&n.ID, &n.RecipientID, &n.Domain, &n.Kind, &n.Message, &meta, &read, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return n, ErrNotFound
		}
		return n, err
	}
	n.Read = read != 0
	n.Metadata = map[string]any{}
	if strings.TrimSpace(meta) != "" {
		if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
			return n, fmt.Errorf("decode notification %s metadata: %w", n.ID, err)
		}
	}
	var err error
	n.CreatedAt, err = parseTime(created)
	return n, err
}

func (r Repo) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	return scanNotification(r.DB.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=?`, id).Scan)
}

type NotificationFilter struct {
	RecipientID string
	Kind        string
	UnreadOnly  bool
	Limit       int
}

// ListNotifications returns matching entries newest first.
func (r Repo) ListNotifications(ctx context.Context, f NotificationFilter) ([]domain.Notification, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.RecipientID != "" {
		clauses = append(clauses, "recipient_id=?")
		args = append(args, f.RecipientID)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	if f.UnreadOnly {
		clauses = append(clauses, "read=0")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, seq DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) ListUnreadNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	return r.ListNotifications(ctx, NotificationFilter{RecipientID: recipientID, UnreadOnly: true})
}

// MarkNotificationRead flips read for the recipient's entry. Already-read
// entries are left as they are; ErrNotFound means no such entry for the recipient.
func (r Repo) MarkNotificationRead(ctx context.Context, tx *sql.Tx, recipientID, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=? AND recipient_id=?`, id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
