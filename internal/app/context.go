package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"gigdesk/internal/config"
	"gigdesk/internal/db"
	"gigdesk/internal/engine"
	"gigdesk/internal/llm"
	"gigdesk/internal/migrate"
	"gigdesk/internal/resume"
)

type Options struct {
	Workspace string
	// APIKeys overrides llm.api_keys from gigdesk.yml when non-empty.
	APIKeys []string
	Logger  *slog.Logger
}

// Workspace is an opened, migrated gigdesk workspace.
type Workspace struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace directory, migrates the database, loads
// gigdesk.yml (defaults when absent) and wires the engine. Resume analysis is
// only enabled when at least one LLM key is configured.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	if _, err := db.EnsureWorkspace(opts.Workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("load config: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = opts.Logger

	keys := opts.APIKeys
	if len(keys) == 0 {
		keys = cfg.LLM.APIKeys
	}
	if len(keys) > 0 {
		client := llm.New(llm.Options{
			Endpoint: cfg.LLM.Endpoint,
			Model:    cfg.LLM.Model,
			Keys:     keys,
			Timeout:  cfg.LLM.Timeout,
			Logger:   opts.Logger,
		})
		e.Resume = &resume.Analyzer{
			Generator: client,
			Cache:     engine.ResumeCache{Repo: e.Repo},
			MaxTokens: cfg.LLM.MaxTokens,
			Logger:    opts.Logger,
		}
	}
	return &Workspace{DB: conn, Config: cfg, Engine: e}, nil
}

func (w *Workspace) Close() error {
	return w.DB.Close()
}
