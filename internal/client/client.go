// Package client talks to the project REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client calls /api/projects on a trackboard server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger logs each failed request at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]project.Project, error) {
	var projects []project.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, nil
}

func (c *Client) Create(ctx context.Context, in project.Input) (*project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", in, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

func (c *Client) Update(ctx context.Context, id string, in project.Input) (*project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(id), in, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

func (c *Client) Delete(ctx context.Context, id string) (*project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Fields []string        `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = Classify(ctx, err)
		c.logger.DebugContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{Status: resp.StatusCode, Message: env.Error, Fields: env.Fields}
		c.logger.DebugContext(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode, "error", env.Error)
		return err
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
