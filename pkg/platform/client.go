package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// BasePath is appended to the configured origin for every request.
	BasePath = "/api/v1"

	// DefaultTimeout bounds every request issued by the client.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10
)

// ErrNotFound is matched by errors.Is for 404 responses.
var ErrNotFound = errors.New("platform: not found")

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("platform: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers match 404 responses against ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the platform REST API.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client works on a
// copy of hc whose Timeout is set to the client timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.httpClient = &cp
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New builds a client for the platform reachable at origin, e.g.
// "http://platform.internal:8080". BasePath is appended automatically.
func New(origin string, opts ...Option) (*Client, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, errors.New("platform: origin is required")
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("platform: parse origin: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("platform: origin %q must be http or https", origin)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("platform: origin %q has no host", origin)
	}

	c := &Client{
		baseURL:   strings.TrimRight(origin, "/") + BasePath,
		userAgent: "agentdash",
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	c.httpClient.Timeout = c.timeout

	return c, nil
}

// BaseURL returns the resolved API root including BasePath.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ListAgents returns every agent in backend order.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var out envelope[[]Agent]
	if err := c.do(ctx, "list agents", http.MethodGet, "/agents", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Agent{}, nil
	}
	return out.Data, nil
}

// GetAgent fetches a single agent by its numeric id.
func (c *Client) GetAgent(ctx context.Context, id uint) (Agent, error) {
	var out envelope[Agent]
	if err := c.do(ctx, "get agent", http.MethodGet, "/agents/"+idPath(id), nil, nil, &out); err != nil {
		return Agent{}, err
	}
	return out.Data, nil
}

// DeleteAgent removes an agent. The response body is ignored.
func (c *Client) DeleteAgent(ctx context.Context, id uint) error {
	return c.do(ctx, "delete agent", http.MethodDelete, "/agents/"+idPath(id), nil, nil, nil)
}

// CreateTask submits a new task and returns it as stored by the backend.
func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	var out envelope[Task]
	if err := c.do(ctx, "create task", http.MethodPost, "/tasks", nil, params, &out); err != nil {
		return Task{}, err
	}
	return out.Data, nil
}

// ListTasks lists tasks, filtered server-side by agentID when it is not empty.
func (c *Client) ListTasks(ctx context.Context, agentID string) ([]Task, error) {
	query := url.Values{}
	if agentID != "" {
		query.Set("agent_id", agentID)
	}
	var out envelope[[]Task]
	if err := c.do(ctx, "list tasks", http.MethodGet, "/tasks", query, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Task{}, nil
	}
	return out.Data, nil
}

// GetTask fetches a single task by its numeric id.
func (c *Client) GetTask(ctx context.Context, id uint) (Task, error) {
	var out envelope[Task]
	if err := c.do(ctx, "get task", http.MethodGet, "/tasks/"+idPath(id), nil, nil, &out); err != nil {
		return Task{}, err
	}
	return out.Data, nil
}

// QueryMetrics returns the metrics matching every non-zero filter in q.
func (c *Client) QueryMetrics(ctx context.Context, q MetricQuery) ([]Metric, error) {
	var out envelope[[]Metric]
	if err := c.do(ctx, "query metrics", http.MethodGet, "/metrics", q.values(), nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Metric{}, nil
	}
	return out.Data, nil
}

func (q MetricQuery) values() url.Values {
	v := url.Values{}
	if q.AgentID != "" {
		v.Set("agent_id", q.AgentID)
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if !q.Start.IsZero() {
		v.Set("start_time", q.Start.Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		v.Set("end_time", q.End.Format(time.RFC3339))
	}
	return v
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("platform: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("platform: %s: read response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("platform: %s: decode response: %w", op, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(trimmed)
}

func idPath(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
