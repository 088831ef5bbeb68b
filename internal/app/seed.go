package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gigdesk/internal/domain"
	"gigdesk/internal/events"
	"gigdesk/internal/repo"
)

// Seed is the YAML fixture format accepted by `gd seed`.
type Seed struct {
	Users        []SeedUser        `yaml:"users"`
	Invoices     []SeedInvoice     `yaml:"invoices"`
	Transactions []SeedTransaction `yaml:"transactions"`
	BankAccounts []SeedBankAccount `yaml:"bank_accounts"`
	Tasks        []SeedTask        `yaml:"tasks"`
	Events       []SeedEvent       `yaml:"calendar_events"`
	Jobs         []SeedJob         `yaml:"jobs"`
	Bids         []SeedBid         `yaml:"bids"`
}

type SeedUser struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Email           string   `yaml:"email"`
	Role            string   `yaml:"role"`
	Skills          []string `yaml:"skills"`
	ExperienceYears int      `yaml:"experience_years"`
}

type SeedInvoice struct {
	ID           string    `yaml:"invoice_id"`
	FreelancerID string    `yaml:"freelancer_id"`
	ClientID     string    `yaml:"client_id"`
	AmountDue    float64   `yaml:"amount_due"`
	Currency     string    `yaml:"currency"`
	Status       string    `yaml:"status"`
	DueDate      time.Time `yaml:"due_date"`
	DaysOverdue  *int      `yaml:"days_overdue"`
}

type SeedTransaction struct {
	ID        string    `yaml:"transaction_id"`
	UserID    string    `yaml:"user_id"`
	Amount    float64   `yaml:"amount"`
	Type      string    `yaml:"type"`
	Narration string    `yaml:"narration"`
	Category  string    `yaml:"category"`
	Date      time.Time `yaml:"date"`
}

type SeedBankAccount struct {
	ID         string  `yaml:"id"`
	UserID     string  `yaml:"user_id"`
	Balance    float64 `yaml:"balance"`
	TaxReserve float64 `yaml:"tax_reserve"`
	Savings    float64 `yaml:"savings"`
}

type SeedTask struct {
	ID       string     `yaml:"id"`
	UserID   string     `yaml:"user_id"`
	Title    string     `yaml:"title"`
	DueDate  *time.Time `yaml:"due_date"`
	EstHours float64    `yaml:"est_hours"`
	Done     bool       `yaml:"done"`
	Priority string     `yaml:"priority"`
}

type SeedEvent struct {
	ID          string    `yaml:"event_id"`
	UserID      string    `yaml:"user_id"`
	Title       string    `yaml:"title"`
	Start       time.Time `yaml:"start_time"`
	End         time.Time `yaml:"end_time"`
	Kind        string    `yaml:"type"`
	Description string    `yaml:"description"`
}

type SeedJob struct {
	ID       string    `yaml:"job_id"`
	ClientID string    `yaml:"client_id"`
	Title    string    `yaml:"title"`
	Skills   []string  `yaml:"skills"`
	Budget   float64   `yaml:"budget"`
	Status   string    `yaml:"status"`
	PostedAt time.Time `yaml:"posted_at"`
}

type SeedBid struct {
	ID           string    `yaml:"bid_id"`
	JobID        string    `yaml:"job_id"`
	FreelancerID string    `yaml:"freelancer_id"`
	Amount       float64   `yaml:"bid_amount"`
	Proposal     string    `yaml:"proposal_text"`
	Status       string    `yaml:"status"`
	SubmittedAt  time.Time `yaml:"submitted_at"`
}

// SeedCounts reports how many records an import wrote.
type SeedCounts map[string]int

func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// ImportSeed writes every record in one transaction; any failure rolls the
// whole import back.
func ImportSeed(ctx context.Context, r repo.Repo, w events.Writer, s Seed, now time.Time) (SeedCounts, error) {
	counts := SeedCounts{}
	err := r.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range s.Users {
			if err := r.InsertUser(ctx, tx, domain.User{
				ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Skills: u.Skills,
				ExperienceYears: u.ExperienceYears, CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			counts["users"]++
		}
		for _, inv := range s.Invoices {
			if err := r.InsertInvoice(ctx, tx, domain.Invoice{
				ID: inv.ID, FreelancerID: inv.FreelancerID, ClientID: inv.ClientID, AmountDue: inv.AmountDue,
				Currency: inv.Currency, Status: inv.Status, DueDate: inv.DueDate, DaysOverdue: inv.DaysOverdue, CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("invoice %s: %w", inv.ID, err)
			}
			counts["invoices"]++
		}
		for _, t := range s.Transactions {
			if err := r.InsertTransaction(ctx, tx, domain.Transaction{
				ID: t.ID, UserID: t.UserID, Amount: t.Amount, Type: t.Type, Narration: t.Narration, Category: t.Category, Date: t.Date,
			}); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}
			counts["transactions"]++
		}
		for _, a := range s.BankAccounts {
			if err := r.UpsertBankAccount(ctx, tx, domain.BankAccount{
				ID: a.ID, UserID: a.UserID, Balance: a.Balance, TaxReserve: a.TaxReserve, Savings: a.Savings,
			}); err != nil {
				return fmt.Errorf("bank account %s: %w", a.ID, err)
			}
			counts["bank_accounts"]++
		}
		for _, t := range s.Tasks {
			if err := r.UpsertTask(ctx, tx, domain.Task{
				ID: t.ID, UserID: t.UserID, Title: t.Title, DueDate: t.DueDate, EstHours: t.EstHours, Done: t.Done, Priority: t.Priority,
			}); err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
			counts["tasks"]++
		}
		for _, e := range s.Events {
			if err := r.InsertCalendarEvent(ctx, tx, domain.CalendarEvent{
				ID: e.ID, UserID: e.UserID, Title: e.Title, Start: e.Start, End: e.End, Kind: e.Kind, Description: e.Description,
			}); err != nil {
				return fmt.Errorf("calendar event %s: %w", e.ID, err)
			}
			counts["calendar_events"]++
		}
		for _, j := range s.Jobs {
			if err := r.InsertJob(ctx, tx, domain.Job{
				ID: j.ID, ClientID: j.ClientID, Title: j.Title, Skills: j.Skills, Budget: j.Budget, Status: j.Status, PostedAt: j.PostedAt,
			}); err != nil {
				return fmt.Errorf("job %s: %w", j.ID, err)
			}
			counts["jobs"]++
		}
		for _, b := range s.Bids {
			if err := r.InsertBid(ctx, tx, domain.Bid{
				ID: b.ID, JobID: b.JobID, FreelancerID: b.FreelancerID, Amount: b.Amount, Proposal: b.Proposal, Status: b.Status, SubmittedAt: b.SubmittedAt,
			}); err != nil {
				return fmt.Errorf("bid %s: %w", b.ID, err)
			}
			counts["bids"]++
		}
		payload := events.EventPayload{}
		for k, v := range counts {
			payload[k] = v
		}
		return w.Append(ctx, tx, events.TypeSeedImported, "", events.EntityWorkspace, "", payload)
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
