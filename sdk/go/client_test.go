package gigdesksdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSendsKeyAndBody(t *testing.T) {
	var got ExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/agents/execute", r.URL.Path)
		assert.Equal(t, "gd_test", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Reminder sent successfully"}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	c.APIKey = "gd_test"
	res, err := c.Execute(context.Background(), ExecuteRequest{
		Agent: "Collections", Type: "invoice_nudge", ID: "n1",
		Payload: map[string]any{"invoice_id": "inv_1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Reminder sent successfully", res.Message)
	assert.Equal(t, "inv_1", got.Payload["invoice_id"])
	assert.Equal(t, "n1", got.ID)
}

func TestBearerTokenWinsOverAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`[{"id":"n1","domain":"CFO","eventKind":"smart_split","status":"warning"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "ignored"
	c.BearerToken = "tok"
	items, err := c.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "smart_split", items[0].EventKind)
}

func TestDismissNoContentAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v0/notifications/n1/read" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"not found"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.Dismiss(context.Background(), "n1"))

	err := c.Dismiss(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "not_found")
}
