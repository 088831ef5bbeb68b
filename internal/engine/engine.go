package engine

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"gigdesk/internal/config"
	"gigdesk/internal/engine/auth"
	"gigdesk/internal/events"
	"gigdesk/internal/repo"
	"gigdesk/internal/resume"
)

var (
	ErrUnknownAction  = errors.New("unknown action type")
	ErrInvalidPayload = errors.New("invalid action payload")
	ErrBidsPaused     = errors.New("new bids are paused")
	ErrNotClient      = auth.RoleError{Role: "client"}
	ErrNoAnalyzer     = errors.New("resume analysis is not configured")
)

// DomainError is a failure confined to one agent domain during a run.
type DomainError struct {
	Domain string
	Err    error
}

func (e *DomainError) Error() string { return e.Domain + ": " + e.Err.Error() }

func (e *DomainError) Unwrap() error { return e.Err }

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Logger *slog.Logger
	// Sets loads per-domain working sets; defaults to the repo.
	Sets WorkingSets
	// Resume is optional; ApplyResume fails with ErrNoAnalyzer without it.
	Resume *resume.Analyzer
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		Sets:   RepoSets{Repo: r},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) sets() WorkingSets {
	if e.Sets != nil {
		return e.Sets
	}
	return RepoSets{Repo: e.Repo}
}

func (e Engine) events() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

// Ledger returns the notification ledger bound to the engine clock.
func (e Engine) Ledger() Ledger {
	return Ledger{Repo: e.Repo, Now: e.now}
}
