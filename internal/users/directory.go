// Package users resolves assignee ids against an external user directory
// that serves GET /users in the JSONPlaceholder shape.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/retry"
)

const (
	// DefaultBaseURL is the public JSONPlaceholder service.
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	// DefaultTimeout bounds one fetch attempt.
	DefaultTimeout = 15 * time.Second
	// DefaultTTL is how long a fetched directory stays fresh.
	DefaultTTL = 10 * time.Minute
	// DefaultFailureTTL is how long a failed fetch is reported without refetching.
	DefaultFailureTTL = 30 * time.Second

	// UnknownLabel is shown for ids the directory cannot resolve.
	UnknownLabel = "Unknown user"
)

// DefaultRetry retries any transient failure or timeout three times, doubling from 1s up to 30s.
var DefaultRetry = retry.Policy{
	MaxTimeoutRetries:   3,
	MaxTransientRetries: 3,
	NetworkIsTransient:  true,
	BaseDelay:           time.Second,
	MaxDelay:            30 * time.Second,
}

const cacheKey = "users"

// User is a directory entry.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Resolution is the outcome of looking up an assignee.
type Resolution struct {
	ID       int
	User     User
	Resolved bool
}

// Label is the display name, or UnknownLabel when unresolved.
func (r Resolution) Label() string {
	if !r.Resolved {
		return UnknownLabel
	}
	return r.User.Name
}

// Directory fetches and caches the user list.
type Directory struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
	logger  *slog.Logger
	cache   *expirable.LRU[string, []User]
	failed  *expirable.LRU[string, error]

	fetchMu sync.Mutex
}

// Option configures a Directory.
type Option func(*Directory)

// WithBaseURL points the directory at another server.
func WithBaseURL(baseURL string) Option {
	return func(d *Directory) {
		if baseURL != "" {
			d.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Directory) {
		if hc != nil {
			d.http = hc
		}
	}
}

// WithRetry replaces the retry policy.
func WithRetry(p retry.Policy) Option {
	return func(d *Directory) { d.policy = p }
}

// WithFailureTTL sets how long a failed fetch is remembered. Zero or less disables it.
func WithFailureTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl <= 0 {
			d.failed = nil
			return
		}
		d.failed = expirable.NewLRU[string, error](1, nil, ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a directory whose fetched list stays fresh for ttl.
func New(ttl time.Duration, opts ...Option) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	d := &Directory{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		policy:  DefaultRetry,
		logger:  slog.New(slog.DiscardHandler),
		cache:   expirable.NewLRU[string, []User](1, nil, ttl),
		failed:  expirable.NewLRU[string, error](1, nil, DefaultFailureTTL),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns every user, fetching the directory when the cached copy is stale.
// A failed fetch is returned again without refetching until the failure TTL passes.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	if users, ok := d.cache.Get(cacheKey); ok {
		return users, nil
	}

	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()
	if users, ok := d.cache.Get(cacheKey); ok {
		return users, nil
	}
	if d.failed != nil {
		if err, ok := d.failed.Get(cacheKey); ok {
			return nil, err
		}
	}

	users, err := retry.Do(ctx, d.policy, d.fetch, func(err error, delay time.Duration) {
		d.logger.DebugContext(ctx, "retrying user directory fetch", "error", err, "delay", delay)
	})
	if err != nil {
		d.logger.WarnContext(ctx, "user directory unavailable", "error", err)
		if d.failed != nil && ctx.Err() == nil {
			d.failed.Add(cacheKey, err)
		}
		return nil, err
	}
	d.cache.Add(cacheKey, users)
	if d.failed != nil {
		d.failed.Remove(cacheKey)
	}
	return users, nil
}

// Lookup resolves id. Unknown ids and directory failures yield an unresolved Resolution.
func (d *Directory) Lookup(ctx context.Context, id int) Resolution {
	users, err := d.List(ctx)
	if err != nil {
		return Resolution{ID: id}
	}
	return Resolve(users, id)
}

// Resolve finds id in an already fetched list.
func Resolve(users []User, id int) Resolution {
	for _, u := range users {
		if u.ID == id {
			return Resolution{ID: id, User: u, Resolved: true}
		}
	}
	return Resolution{ID: id}
}

// Invalidate drops the cached list.
func (d *Directory) Invalidate() {
	d.cache.Purge()
	if d.failed != nil {
		d.failed.Purge()
	}
}

func (d *Directory) fetch(ctx context.Context) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, client.Classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &client.StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

// Message returns user-facing text for a directory failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, client.ErrTimeout):
		return "Request timed out while fetching user data. Please try again."
	case errors.Is(err, client.ErrNetwork):
		return "Network error while fetching user data. Please check your connection."
	default:
		return "Failed to fetch users"
	}
}
