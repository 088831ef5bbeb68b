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

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

// WithTx runs fn inside a transaction, committing when it returns nil.
func (r Repo) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// FormatTime renders t in the storage layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return FormatTime(*t)
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	var items []string
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	if u.ID == "" {
		return errors.New("id required")
	}
	if u.Role == "" {
		u.Role = "freelancer"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	skills, err := encodeList(u.Skills)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO users(id,name,email,role,skills_json,experience_years,credibility_score,bids_paused_until,resume_uploaded_at,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, nullable(u.Email), u.Role, skills, u.ExperienceYears, u.CredibilityScore,
		nullableTime(u.BidsPausedUntil), nullableTime(u.ResumeUploadedAt), FormatTime(u.CreatedAt))
	return err
}

const userColumns = `id,name,COALESCE(email,''),role,skills_json,experience_years,credibility_score,bids_paused_until,resume_uploaded_at,created_at`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var (
		u                 domain.User
		skills, created   string
		paused, resumedAt sql.NullString
	)
	if err := scan(&u.ID, &u.Name, &u.Email, &u.Role, &skills, &u.ExperienceYears, &u.CredibilityScore, &paused, &resumedAt, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, err
	}
	var err error
	if u.Skills, err = decodeList(skills); err != nil {
		return u, err
	}
	if u.BidsPausedUntil, err = parseNullTime(paused); err != nil {
		return u, err
	}
	if u.ResumeUploadedAt, err = parseNullTime(resumedAt); err != nil {
		return u, err
	}
	u.CreatedAt, err = parseTime(created)
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id).Scan)
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UpdateUserProfile stores resume-derived signals on the user.
func (r Repo) UpdateUserProfile(ctx context.Context, id string, skills []string, years, score int, uploadedAt time.Time) error {
	encoded, err := encodeList(skills)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET skills_json=?, experience_years=?, credibility_score=?, resume_uploaded_at=? WHERE id=?`,
		encoded, years, score, FormatTime(uploadedAt), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetBidsPausedUntil(ctx context.Context, tx *sql.Tx, id string, until time.Time) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE users SET bids_paused_until=? WHERE id=?`, FormatTime(until), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
