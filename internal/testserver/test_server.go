package testserver

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/mcp"
	"github.com/rpggio/trackboard/internal/sqlite"
	"github.com/rpggio/trackboard/internal/store/memory"
	"github.com/rpggio/trackboard/internal/telemetry"
	"github.com/rpggio/trackboard/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the API, metrics and MCP endpoints over httptest.
type TestServer struct {
	Server  *httptest.Server
	Service *project.Service
	Metrics *telemetry.Metrics
	URL     string
}

type settings struct {
	faults  project.FaultPolicy
	sqlite  bool
	seed    []project.Project
	limiter *transport.RateLimiter
}

// Option configures a TestServer.
type Option func(*settings)

// WithFaults installs a fault policy on the request layer.
func WithFaults(policy project.FaultPolicy) Option {
	return func(s *settings) { s.faults = policy }
}

// WithSQLite backs the server with a private in-memory SQLite database.
func WithSQLite() Option {
	return func(s *settings) { s.sqlite = true }
}

// WithProjects replaces the demo seed.
func WithProjects(projects ...project.Project) Option {
	return func(s *settings) { s.seed = projects }
}

// WithRateLimiter limits /api requests.
func WithRateLimiter(l *transport.RateLimiter) Option {
	return func(s *settings) { s.limiter = l }
}

// New starts a server seeded with the demo projects.
func New(t *testing.T, opts ...Option) *TestServer {
	t.Helper()

	s := settings{faults: project.NoFaults{}, seed: project.DemoProjects()}
	for _, opt := range opts {
		opt(&s)
	}

	var store project.Store
	if s.sqlite {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
		db, err := sqlite.New(dsn)
		require.NoError(t, err)
		require.NoError(t, db.RunMigrations())
		t.Cleanup(func() { _ = db.Close() })

		projects := sqlite.NewProjectStore(db)
		require.NoError(t, projects.Seed(t.Context(), s.seed))
		store = projects
	} else {
		mem, err := memory.New(s.seed...)
		require.NoError(t, err)
		store = mem
	}

	metrics := telemetry.New()
	svc := project.NewService(store, nil,
		project.WithFaults(s.faults),
		project.WithRecorder(metrics),
	)

	mcpServer := mcp.NewServer(mcp.Config{Projects: svc})
	routerOpts := []transport.Option{
		transport.WithMetrics(metrics.Handler()),
		transport.WithMCP(mcp.NewHTTPHandler(mcpServer, nil)),
	}
	if s.limiter != nil {
		routerOpts = append(routerOpts, transport.WithRateLimiter(s.limiter))
	}

	server := httptest.NewServer(transport.NewServer(svc, routerOpts...))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		Service: svc,
		Metrics: metrics,
		URL:     server.URL,
	}
}
