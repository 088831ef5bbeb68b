package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gigdesk/internal/domain"
)

func (r Repo) InsertInvoice(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	if inv.ID == "" {
		return errors.New("invoice_id required")
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	var due any
	if !inv.DueDate.IsZero() {
		due = FormatTime(inv.DueDate)
	}
	if inv.ClientID == "" {
		inv.ClientID = "unknown"
	}
	if inv.Currency == "" {
		inv.Currency = "INR"
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO invoices(invoice_id,freelancer_id,client_id,amount_due,currency,status,due_date,days_overdue,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		inv.ID, inv.FreelancerID, inv.ClientID, inv.AmountDue, inv.Currency, inv.Status, due, nullableIntPtr(inv.DaysOverdue), FormatTime(inv.CreatedAt))
	return err
}

const invoiceColumns = `invoice_id,freelancer_id,client_id,amount_due,currency,status,due_date,days_overdue,created_at`

func scanInvoice(scan func(dest ...any) error) (domain.Invoice, error) {
	var (
		inv     domain.Invoice
		due     sql.NullString
		days    sql.NullInt64
		created string
	)
	if err := scan(&inv.ID, &inv.FreelancerID, &inv.ClientID, &inv.AmountDue, &inv.Currency, &inv.Status, &due, &days, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inv, ErrNotFound
		}
		return inv, err
	}
	if due.Valid && due.String != "" {
		t, err := parseTime(due.String)
		if err != nil {
			return inv, err
		}
		inv.DueDate = t
	}
	if days.Valid {
		d := int(days.Int64)
		inv.DaysOverdue = &d
	}
	var err error
	inv.CreatedAt, err = parseTime(created)
	return inv, err
}

func (r Repo) GetInvoice(ctx context.Context, tx *sql.Tx, id string) (domain.Invoice, error) {
	return scanInvoice(r.q(tx).QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_id=?`, id).Scan)
}

// ListInvoicesByStatus returns a freelancer's invoices in a status, oldest due first.
func (r Repo) ListInvoicesByStatus(ctx context.Context, freelancerID, status string) ([]domain.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE freelancer_id=? AND status=? ORDER BY COALESCE(due_date, created_at), invoice_id`, freelancerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func (r Repo) SetInvoiceStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE invoices SET status=? WHERE invoice_id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AppendInvoiceCommunication(ctx context.Context, tx *sql.Tx, c domain.InvoiceCommunication) error {
	if c.TS.IsZero() {
		c.TS = time.Now()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO invoice_communications(invoice_id,ts,channel,message) VALUES (?,?,?,?)`,
		c.InvoiceID, FormatTime(c.TS), c.Channel, c.Message)
	return err
}

func (r Repo) ListInvoiceCommunications(ctx context.Context, invoiceID string) ([]domain.InvoiceCommunication, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT invoice_id,ts,channel,message FROM invoice_communications WHERE invoice_id=? ORDER BY ts DESC, id DESC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.InvoiceCommunication
	for rows.Next() {
		var c domain.InvoiceCommunication
		var ts string
		if err := rows.Scan(&c.InvoiceID, &ts, &c.Channel, &c.Message); err != nil {
			return nil, err
		}
		if c.TS, err = parseTime(ts); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// LastReminderAt returns when the latest communication for an invoice was logged, or nil.
func (r Repo) LastReminderAt(ctx context.Context, invoiceID string) (*time.Time, error) {
	var ts sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(ts) FROM invoice_communications WHERE invoice_id=?`, invoiceID).Scan(&ts)
	if err != nil {
		return nil, err
	}
	return parseNullTime(ts)
}

// InvoiceCounts returns how many of a freelancer's invoices are paid, out of all.
func (r Repo) InvoiceCounts(ctx context.Context, freelancerID string) (paid, total int, err error) {
	err = r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(CASE WHEN status='PAID' THEN 1 ELSE 0 END),0), count(*) FROM invoices WHERE freelancer_id=?`, freelancerID).Scan(&paid, &total)
	return paid, total, err
}

func (r Repo) InsertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	if t.ID == "" {
		return errors.New("transaction_id required")
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO transactions(transaction_id,user_id,amount,type,narration,category,date) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Amount, t.Type, t.Narration, nullable(t.Category), FormatTime(t.Date))
	return err
}

const transactionColumns = `transaction_id,user_id,amount,type,narration,COALESCE(category,''),date`

func scanTransaction(scan func(dest ...any) error) (domain.Transaction, error) {
	var t domain.Transaction
	var date string
	if err := scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Narration, &t.Category, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	var err error
	t.Date, err = parseTime(date)
	return t, err
}

func (r Repo) GetTransaction(ctx context.Context, tx *sql.Tx, id string) (domain.Transaction, error) {
	return scanTransaction(r.q(tx).QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id=?`, id).Scan)
}

// LatestTransaction returns the user's most recent transaction by date, or nil when none exist.
func (r Repo) LatestTransaction(ctx context.Context, userID string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.DB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id=? ORDER BY date DESC, rowid DESC LIMIT 1`, userID).Scan)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r Repo) SetTransactionCategory(ctx context.Context, tx *sql.Tx, id, category string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE transactions SET category=? WHERE transaction_id=?`, nullable(category), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertBankAccount(ctx context.Context, tx *sql.Tx, a domain.BankAccount) error {
	if a.ID == "" || a.UserID == "" {
		return errors.New("id and user_id required")
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO bank_accounts(id,user_id,balance,tax_reserve,savings) VALUES (?,?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance, tax_reserve=excluded.tax_reserve, savings=excluded.savings`,
		a.ID, a.UserID, a.Balance, a.TaxReserve, a.Savings)
	return err
}

func (r Repo) GetBankAccount(ctx context.Context, tx *sql.Tx, userID string) (domain.BankAccount, error) {
	var a domain.BankAccount
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,user_id,balance,tax_reserve,savings FROM bank_accounts WHERE user_id=?`, userID).
		Scan(&a.ID, &a.UserID, &a.Balance, &a.TaxReserve, &a.Savings)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// AllocateFunds moves taxReserve and savings out of the operating balance.
func (r Repo) AllocateFunds(ctx context.Context, tx *sql.Tx, userID string, taxReserve, savings float64) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE bank_accounts SET balance=balance-?, tax_reserve=tax_reserve+?, savings=savings+? WHERE user_id=?`,
		taxReserve+savings, taxReserve, savings, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
