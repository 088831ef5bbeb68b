package server

import "gigdesk/internal/engine"

// Request payloads

type ExecuteActionRequest struct {
	Agent   string         `json:"agent" example:"CFO"`
	Type    string         `json:"type" example:"smart_split"`
	Payload map[string]any `json:"payload,omitempty"`
	// ID is the notification the action came from; it is marked read on success.
	ID string `json:"id,omitempty"`
}

type ResumeRequest struct {
	ContentType string `json:"content_type,omitempty" example:"text/plain"`
	Text        string `json:"text"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty" enum:"freelancer,client"`
}

// Responses

type RunAgentsResponse struct {
	Success       bool                   `json:"success"`
	Count         int                    `json:"count"`
	Actions       []engine.PendingAction `json:"actions"`
	Logs          []string               `json:"logs"`
	ActionCount   int                    `json:"actionCount"`
	FailedDomains []string               `json:"failedDomains"`
}

type ExecuteActionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type WhoAmIResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	Source string `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
