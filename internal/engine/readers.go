package engine

import (
	"context"
	"errors"
	"time"

	"gigdesk/internal/domain"
	"gigdesk/internal/repo"
	"gigdesk/internal/resume"
)

// WorkingSets loads the read-only snapshots each domain evaluates.
type WorkingSets interface {
	User(ctx context.Context, userID string) (domain.User, error)
	OpenJobs(ctx context.Context, userID string, since time.Time) ([]domain.Job, error)
	OverdueInvoices(ctx context.Context, userID string) ([]domain.Invoice, error)
	LatestTransaction(ctx context.Context, userID string) (*domain.Transaction, error)
	Tasks(ctx context.Context, userID string) ([]domain.Task, error)
	CalendarEvents(ctx context.Context, userID string) ([]domain.CalendarEvent, error)
	LastReminderAt(ctx context.Context, invoiceID string) (*time.Time, error)
	Balance(ctx context.Context, userID string) (float64, bool, error)
}

// RepoSets reads working sets straight from SQLite.
type RepoSets struct {
	Repo repo.Repo
}

func (s RepoSets) User(ctx context.Context, userID string) (domain.User, error) {
	return s.Repo.GetUser(ctx, userID)
}

func (s RepoSets) OpenJobs(ctx context.Context, userID string, since time.Time) ([]domain.Job, error) {
	return s.Repo.ListOpenJobsForFreelancer(ctx, userID, since)
}

func (s RepoSets) OverdueInvoices(ctx context.Context, userID string) ([]domain.Invoice, error) {
	return s.Repo.ListInvoicesByStatus(ctx, userID, "Overdue")
}

func (s RepoSets) LatestTransaction(ctx context.Context, userID string) (*domain.Transaction, error) {
	return s.Repo.LatestTransaction(ctx, userID)
}

func (s RepoSets) Tasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.Repo.ListTasks(ctx, userID)
}

func (s RepoSets) CalendarEvents(ctx context.Context, userID string) ([]domain.CalendarEvent, error) {
	return s.Repo.ListCalendarEvents(ctx, userID)
}

func (s RepoSets) LastReminderAt(ctx context.Context, invoiceID string) (*time.Time, error) {
	return s.Repo.LastReminderAt(ctx, invoiceID)
}

func (s RepoSets) Balance(ctx context.Context, userID string) (float64, bool, error) {
	acc, err := s.Repo.GetBankAccount(ctx, nil, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return acc.Balance, true, nil
}

// ResumeCache stores analyses in the resume_analyses table.
type ResumeCache struct {
	Repo repo.Repo
}

func (c ResumeCache) Get(ctx context.Context, fingerprint string) (resume.Signals, bool, error) {
	a, err := c.Repo.GetResumeAnalysis(ctx, fingerprint)
	if errors.Is(err, repo.ErrNotFound) {
		return resume.Signals{}, false, nil
	}
	if err != nil {
		return resume.Signals{}, false, err
	}
	return resume.Signals{
		Skills:           a.Skills,
		ExperienceYears:  a.ExperienceYears,
		CredibilityScore: a.CredibilityScore,
		Summary:          a.Summary,
	}, true, nil
}

func (c ResumeCache) Put(ctx context.Context, fingerprint string, s resume.Signals) error {
	return c.Repo.PutResumeAnalysis(ctx, domain.ResumeAnalysis{
		Fingerprint:      fingerprint,
		Skills:           s.Skills,
		ExperienceYears:  s.ExperienceYears,
		CredibilityScore: s.CredibilityScore,
		Summary:          s.Summary,
	})
}
