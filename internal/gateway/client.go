package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/pkg/config"
)

// ErrConflict is matched by APIError values carrying HTTP 409.
var ErrConflict = repository.ErrConflict

// Config identifies the remote project and the resources BuildLog uses.
type Config struct {
	Endpoint            string
	ProjectID           string
	APIKey              string
	DatabaseID          string
	ProjectsCollection  string
	BuildLogsCollection string
	BucketID            string
	Timeout             time.Duration
}

// ConfigFromApp maps application settings onto a gateway Config.
func ConfigFromApp(cfg config.AppConfig) Config {
	return Config{
		Endpoint:            cfg.AppwriteEndpoint,
		ProjectID:           cfg.AppwriteProjectID,
		APIKey:              cfg.AppwriteAPIKey,
		DatabaseID:          cfg.DatabaseID,
		ProjectsCollection:  cfg.ProjectsCollectionID,
		BuildLogsCollection: cfg.BuildLogsCollection,
		BucketID:            cfg.StorageBucketID,
		Timeout:             cfg.GatewayTimeout,
	}
}

// Client talks to the hosted document, storage and account APIs.
type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	location   *time.Location
	now        func() time.Time
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLocation sets the zone used for timestamps stored without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithClock overrides the clock used to stamp created/updated times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Client for the configured endpoint.
func New(cfg Config, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(cfg.Endpoint)
	if trimmed == "" {
		return nil, errors.New("gateway endpoint is required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("gateway project id is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		location:   time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// Config returns the resource identifiers the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// APIError represents an error response from the remote API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway request failed with status %d", e.Status)
	}
	return fmt.Sprintf("gateway request failed (%d): %s", e.Status, e.Message)
}

// Is lets callers match status classes with errors.Is.
func (e APIError) Is(target error) bool {
	switch target {
	case repository.ErrNotFound:
		return e.Status == http.StatusNotFound
	case repository.ErrConflict:
		return e.Status == http.StatusConflict
	case repository.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// call describes a single JSON round trip.
type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	session string
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, session string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", c.cfg.ProjectID)
	if s := strings.TrimSpace(session); s != "" {
		req.Header.Set("X-Appwrite-Session", s)
	} else if c.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", c.cfg.APIKey)
	}
	return req, nil
}

// send performs req and converts error statuses into APIError values.
// The caller owns the returned body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, extractError(resp)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, in call, v any) error {
	if c == nil {
		return errors.New("gateway client is nil")
	}
	var reader io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, in.method, in.path, in.query, reader, in.session)
	if err != nil {
		return err
	}
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(resp *http.Response) error {
	apiErr := APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(payload.Message)
	apiErr.Type = payload.Type
	return apiErr
}

// Ping checks that the remote API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/health/version"}, nil)
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
