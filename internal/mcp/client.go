// Package mcp talks to the backend automation service: a single tool-call
// endpoint for commands and queries, and WebSocket streams for branch switches.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/henri123lemoine/odoodash/internal/config"
	"github.com/henri123lemoine/odoodash/internal/debug"
)

const (
	defaultToolsPath = "/api/tools/call"
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 * 1024 * 1024
)

// Client calls backend tools over HTTP.
type Client struct {
	baseURL   string
	toolsPath string
	token     string
	client    *http.Client
	timeout   time.Duration
}

// New creates a client from server settings.
func New(cfg config.ServerConfig) *Client {
	c := NewWithClient(cfg.URL, &http.Client{})
	if cfg.ToolsPath != "" {
		c.toolsPath = cfg.ToolsPath
	}
	if cfg.Timeout.Duration > 0 {
		c.timeout = cfg.Timeout.Duration
	}
	c.token = cfg.Token
	debug.Redact(cfg.Token)
	return c
}

// NewWithClient creates a client with a caller-supplied HTTP client.
func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		toolsPath: defaultToolsPath,
		client:    client,
		timeout:   defaultTimeout,
	}
}

// BaseURL returns the backend URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request is the tool-call envelope.
type Request struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the tool-call response. Some tools answer inside content, others
// with flat fields next to success; Decode handles both.
type Result struct {
	Success bool            `json:"success"`
	Content json.RawMessage `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`

	raw json.RawMessage
}

// Decode unmarshals the tool's payload into v.
func (r *Result) Decode(v any) error {
	payload := r.Content
	if len(payload) == 0 || string(payload) == "null" {
		payload = r.raw
	}
	if len(payload) == 0 {
		return ErrEmptyResult
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// ErrEmptyResult is returned when a tool answered without a payload.
var ErrEmptyResult = errors.New("empty result")

// RequestError is a failed tool call: a non-2xx status or success=false.
type RequestError struct {
	Command    string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	message := strings.TrimSpace(e.Message)
	switch {
	case message != "" && e.StatusCode >= 400:
		return fmt.Sprintf("%s: http %d: %s", e.Command, e.StatusCode, message)
	case message != "":
		return fmt.Sprintf("%s: %s", e.Command, message)
	case e.StatusCode >= 400:
		return fmt.Sprintf("%s: http %d", e.Command, e.StatusCode)
	}
	return e.Command + ": failed"
}

// Retryable reports whether repeating the call may succeed.
func (e *RequestError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return e.StatusCode >= 500
}

// Message extracts the user-facing text of err.
func Message(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && strings.TrimSpace(reqErr.Message) != "" {
		return strings.TrimSpace(reqErr.Message)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Call invokes a backend tool and returns its result. A transport failure,
// an HTTP error status or success=false all come back as errors.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	defer debug.Timed("mcp " + name)()

	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(Request{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.toolsPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	debug.Log("mcp call %s id=%s args=%v", name, requestID, args)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", name, err)
	}

	result := &Result{}
	decodeErr := json.Unmarshal(data, result)
	result.raw = data

	if resp.StatusCode >= 400 {
		msg := result.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		debug.Log("mcp call %s id=%s failed: http %d %s", name, requestID, resp.StatusCode, msg)
		return nil, &RequestError{Command: name, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", name, decodeErr)
	}
	if !result.Success {
		debug.Log("mcp call %s id=%s unsuccessful: %s", name, requestID, result.Error)
		return nil, &RequestError{Command: name, StatusCode: resp.StatusCode, Message: result.Error}
	}
	return result, nil
}
