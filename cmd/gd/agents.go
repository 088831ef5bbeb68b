package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gigdesk/internal/app"
	"gigdesk/internal/domain"
	"gigdesk/internal/engine"
	"gigdesk/internal/money"
	"gigdesk/internal/render"
	"gigdesk/internal/repo"
)

func agentsCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "agents",
		Short: "Run agents and act on their suggestions",
	}
	a.AddCommand(agentsRunCmd())
	a.AddCommand(agentsPendingCmd())
	a.AddCommand(agentsExecuteCmd())
	a.AddCommand(agentsDismissCmd())
	return a
}

func agentsRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan every domain once for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				res, err := ws.Engine.RunAllAgents(ctx, user)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"logs":          res.Logs,
						"actionCount":   res.ActionCount,
						"failedDomains": res.FailedDomains(),
					})
				}
				fmt.Print(render.RunLog(res))
				return nil
			})
		},
	}
	return cmd
}

func agentsPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List unread suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Engine.PendingActions(ctx, user)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					if items == nil {
						items = []engine.PendingAction{}
					}
					return printJSON(items)
				}
				fmt.Print(render.Pending(items))
				return nil
			})
		},
	}
	return cmd
}

func agentsExecuteCmd() *cobra.Command {
	var req engine.ExecuteRequest
	var payload string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Apply a suggestion (--agent, --type, optional --payload JSON and --id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			if req.Domain == "" || req.Kind == "" {
				return fmt.Errorf("--agent and --type required")
			}
			if strings.TrimSpace(payload) != "" {
				if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
					return fmt.Errorf("--payload must be a JSON object: %w", err)
				}
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				res, err := ws.Engine.ExecuteAction(ctx, user, req)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println(res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Domain, "agent", "", "agent domain (Hunter, Collections, CFO, Productivity, Tax)")
	cmd.Flags().StringVar(&req.Kind, "type", "", "action type")
	cmd.Flags().StringVar(&payload, "payload", "", "action payload as JSON")
	cmd.Flags().StringVar(&req.NotificationID, "id", "", "notification id to mark read")
	return cmd
}

func agentsDismissCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dismiss <notification-id>",
		Short: "Mark a suggestion read without acting on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Engine.DismissNotification(ctx, user, args[0]); err != nil {
					return err
				}
				fmt.Println("dismissed", args[0])
				return nil
			})
		},
	}
	return cmd
}

func resumeCmd() *cobra.Command {
	r := &cobra.Command{Use: "resume", Short: "Resume analysis"}
	var contentType string
	analyze := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a plain-text resume and update the credibility score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				res, err := ws.Engine.ApplyResume(ctx, user, contentType, string(data))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Score", "Experience", "Skills", "Summary"})
				tw.AppendRow(table.Row{res.Score, res.ExperienceYears, strings.Join(res.Skills, ", "), res.Summary})
				tw.Render()
				fmt.Println(res.Message)
				return nil
			})
		},
	}
	analyze.Flags().StringVar(&contentType, "content-type", "text/plain", "resume content type")
	r.AddCommand(analyze)
	return r
}

func clientCmd() *cobra.Command {
	c := &cobra.Command{Use: "client", Short: "Client dashboard"}
	c.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Active jobs, total spent and unread applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				stats, err := ws.Engine.ClientStats(ctx, user)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Active jobs", "Total spent", "Unread applications"})
				tw.AppendRow(table.Row{stats.ActiveJobs, money.Format(stats.TotalSpent, ws.Config.Currency), stats.UnreadApplications})
				tw.Render()
				return nil
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "bids",
		Short: "Newest bids on your jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				bids, err := ws.Engine.RecentBids(ctx, user)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					if bids == nil {
						bids = []domain.Bid{}
					}
					return printJSON(bids)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Bid", "Job", "Freelancer", "Amount", "Status", "Submitted"})
				for _, b := range bids {
					tw.AppendRow(table.Row{b.ID, b.JobTitle, b.FreelancerID, money.Format(b.Amount, ws.Config.Currency), b.Status, b.SubmittedAt.Format("2006-01-02")})
				}
				tw.Render()
				return nil
			})
		},
	})
	return c
}

func keysCmd() *cobra.Command {
	k := &cobra.Command{Use: "keys", Short: "Manage API keys for the HTTP API"}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the user; the key is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if _, err := ws.Engine.Repo.GetUser(ctx, user); err != nil {
					return fmt.Errorf("user %s: %w", user, err)
				}
				secret := "gd_" + strings.ReplaceAll(uuid.NewString(), "-", "")
				key := domain.APIKey{
					ID:      "key_" + uuid.NewString()[:8],
					UserID:  user,
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
				}
				if err := ws.Engine.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "key": secret})
				}
				fmt.Printf("created %s\nkey: %s\n", key.ID, secret)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label for the key")
	k.AddCommand(create)

	k.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys (all users unless --user is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				keys, err := ws.Engine.Repo.ListAPIKeys(ctx, viper.GetString("user"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Name", "Created"})
				for _, key := range keys {
					tw.AppendRow(table.Row{key.ID, key.UserID, key.Name, key.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})

	k.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				return ws.Engine.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	})
	return k
}

func usersCmd() *cobra.Command {
	u := &cobra.Command{Use: "users", Short: "Inspect workspace users"}
	u.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users with their role and resume-derived profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				users, err := ws.Engine.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Skills", "Years", "Score"})
				for _, user := range users {
					tw.AppendRow(table.Row{user.ID, user.Name, user.Role, strings.Join(user.Skills, ", "), user.ExperienceYears, user.CredibilityScore})
				}
				tw.Render()
				return nil
			})
		},
	})
	return u
}
