package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"gigdesk/internal/engine"
)

func registerTools(s *server.MCPServer, e engine.Engine, defaultUser string) {
	userOpt := mcplib.WithString("user_id", mcplib.Description("User to act for (defaults to the server's user)"))

	s.AddTool(
		mcplib.NewTool("run_agents",
			mcplib.WithDescription("Run every agent domain once and return the run log plus the pending actions"),
			userOpt,
		),
		handleRunAgents(e, defaultUser),
	)

	s.AddTool(
		mcplib.NewTool("pending_actions",
			mcplib.WithDescription("List unread agent suggestions, newest first"),
			userOpt,
		),
		handlePending(e, defaultUser),
	)

	s.AddTool(
		mcplib.NewTool("execute_action",
			mcplib.WithDescription("Apply a suggested action after the user confirms it"),
			mcplib.WithString("agent", mcplib.Required(), mcplib.Description("Agent domain, e.g. CFO or Collections")),
			mcplib.WithString("type", mcplib.Required(), mcplib.Description("Action type, e.g. smart_split")),
			mcplib.WithString("payload", mcplib.Description("Action payload as a JSON object")),
			mcplib.WithString("id", mcplib.Description("Notification id to mark read on success")),
			userOpt,
		),
		handleExecute(e, defaultUser),
	)

	s.AddTool(
		mcplib.NewTool("dismiss_notification",
			mcplib.WithDescription("Mark a suggestion read without acting on it"),
			mcplib.WithString("id", mcplib.Required(), mcplib.Description("Notification id")),
			userOpt,
		),
		handleDismiss(e, defaultUser),
	)
}

func userFor(request mcplib.CallToolRequest, fallback string) string {
	if u, _ := request.GetArguments()["user_id"].(string); strings.TrimSpace(u) != "" {
		return strings.TrimSpace(u)
	}
	return fallback
}

type runOutput struct {
	Logs          []string               `json:"logs"`
	ActionCount   int                    `json:"actionCount"`
	FailedDomains []string               `json:"failedDomains,omitempty"`
	Actions       []engine.PendingAction `json:"actions"`
}

func handleRunAgents(e engine.Engine, defaultUser string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		userID := userFor(request, defaultUser)
		res, err := e.RunAllAgents(ctx, userID)
		if err != nil {
			return errorResult(fmt.Sprintf("run failed: %v", err)), nil
		}
		pending, err := e.PendingActions(ctx, userID)
		if err != nil {
			return errorResult(fmt.Sprintf("load pending actions: %v", err)), nil
		}
		return jsonResult(runOutput{
			Logs:          res.Logs,
			ActionCount:   res.ActionCount,
			FailedDomains: res.FailedDomains(),
			Actions:       pending,
		})
	}
}

func handlePending(e engine.Engine, defaultUser string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		items, err := e.PendingActions(ctx, userFor(request, defaultUser))
		if err != nil {
			return errorResult(fmt.Sprintf("load pending actions: %v", err)), nil
		}
		if items == nil {
			items = []engine.PendingAction{}
		}
		return jsonResult(items)
	}
}

func handleExecute(e engine.Engine, defaultUser string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		agent, err := request.RequireString("agent")
		if err != nil {
			return errorResult("agent is required"), nil
		}
		kind, err := request.RequireString("type")
		if err != nil {
			return errorResult("type is required"), nil
		}
		args := request.GetArguments()
		var payload map[string]any
		if raw, _ := args["payload"].(string); strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				return errorResult(fmt.Sprintf("payload must be a JSON object: %v", err)), nil
			}
		}
		id, _ := args["id"].(string)
		res, err := e.ExecuteAction(ctx, userFor(request, defaultUser), engine.ExecuteRequest{
			Domain:         agent,
			Kind:           kind,
			Payload:        payload,
			NotificationID: id,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("execute failed: %v", err)), nil
		}
		return jsonResult(res)
	}
}

func handleDismiss(e engine.Engine, defaultUser string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return errorResult("id is required"), nil
		}
		if err := e.DismissNotification(ctx, userFor(request, defaultUser), id); err != nil {
			return errorResult(fmt.Sprintf("dismiss failed: %v", err)), nil
		}
		return textResult("dismissed " + id), nil
	}
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
