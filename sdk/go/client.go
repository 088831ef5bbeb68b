package gigdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Gigdesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// PendingAction is an unread agent suggestion.
type PendingAction struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	EventKind string         `json:"eventKind"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	Priority  string         `json:"priority,omitempty"`
	Status    string         `json:"status"`
}

// RunResult is the response of a full agent run.
type RunResult struct {
	Success       bool            `json:"success"`
	Count         int             `json:"count"`
	Actions       []PendingAction `json:"actions"`
	Logs          []string        `json:"logs"`
	ActionCount   int             `json:"actionCount"`
	FailedDomains []string        `json:"failedDomains"`
}

// ExecuteRequest confirms one suggestion. ID is the notification to mark read.
type ExecuteRequest struct {
	Agent   string         `json:"agent"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	ID      string         `json:"id,omitempty"`
}

type ExecuteResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type ResumeResult struct {
	Score           int      `json:"score"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experienceYears"`
	Summary         string   `json:"summary"`
	Message         string   `json:"message"`
}

type ClientStats struct {
	ActiveJobs         int     `json:"activeJobs"`
	TotalSpent         float64 `json:"totalSpent"`
	UnreadApplications int     `json:"unreadApplications"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RunAgents runs every agent domain and returns the log plus pending actions.
func (c *Client) RunAgents(ctx context.Context) (RunResult, error) {
	var resp RunResult
	err := c.do(ctx, http.MethodPost, "v0/agents/run", nil, &resp)
	return resp, err
}

// Pending lists unread suggestions.
func (c *Client) Pending(ctx context.Context) ([]PendingAction, error) {
	var resp []PendingAction
	err := c.do(ctx, http.MethodGet, "v0/agents/pending", nil, &resp)
	return resp, err
}

// Execute applies a confirmed suggestion.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	var resp ExecuteResult
	err := c.do(ctx, http.MethodPost, "v0/agents/execute", req, &resp)
	return resp, err
}

// Dismiss marks a suggestion read without acting on it.
func (c *Client) Dismiss(ctx context.Context, notificationID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("v0/notifications/%s/read", url.PathEscape(notificationID)), nil, nil)
}

func (c *Client) UploadResume(ctx context.Context, text string) (ResumeResult, error) {
	body := map[string]any{
		"content_type": "text/plain",
		"text":         text,
	}
	var resp ResumeResult
	err := c.do(ctx, http.MethodPost, "v0/users/me/resume", body, &resp)
	return resp, err
}

func (c *Client) ClientStats(ctx context.Context) (ClientStats, error) {
	var resp ClientStats
	err := c.do(ctx, http.MethodGet, "v0/client/stats", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
