// Package llm calls a Gemini-style generateContent endpoint, rotating through
// a list of API keys when one is rate limited or rejected.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoCredentials = errors.New("llm: no API keys configured")
	ErrExhausted     = errors.New("llm: all API keys exhausted")
)

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another key might succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusForbidden
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Options struct {
	Endpoint    string
	Model       string
	Keys        []string
	Timeout     time.Duration
	Temperature float64
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type Client struct {
	endpoint    string
	model       string
	keys        []string
	timeout     time.Duration
	temperature float64
	http        *http.Client
	log         *slog.Logger

	mu   sync.Mutex
	next int
}

func New(opts Options) *Client {
	var keys []string
	for _, k := range opts.Keys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c := &Client{
		endpoint:    strings.TrimRight(opts.Endpoint, "/"),
		model:       opts.Model,
		keys:        keys,
		timeout:     opts.Timeout,
		temperature: opts.Temperature,
		http:        opts.HTTPClient,
		log:         opts.Logger,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.temperature == 0 {
		c.temperature = 0.7
	}
	return c
}

// ParseKeys splits a comma-separated key list.
func ParseKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// nextKey hands out keys round-robin across calls.
func (c *Client) nextKey() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.next
	c.next = (c.next + 1) % len(c.keys)
	return i, c.keys[i]
}

// Generate tries at most one attempt per configured key. Rate-limit, auth and
// transport failures move on to the next key; any other status fails at once.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if len(c.keys) == 0 {
		return "", ErrNoCredentials
	}
	var lastErr error
	for attempt := 0; attempt < len(c.keys); attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		idx, key := c.nextKey()
		text, err := c.call(ctx, key, prompt, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("llm key failed; rotating", "key_index", idx, "attempt", attempt+1, "keys", len(c.keys), "error", err)
	}
	return "", fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) call(ctx context.Context, key, prompt string, maxTokens int) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: maxTokens, Temperature: c.temperature},
	})
	if err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		// drop the URL so the key never reaches logs
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return "", fmt.Errorf("llm: %s: %w", uerr.Op, uerr.Err)
		}
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
