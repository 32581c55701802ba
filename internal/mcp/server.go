package mcp

import (
	"context"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trackboard/internal/domain/project"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context) ([]project.Project, error)
	Create(ctx context.Context, in project.Input) (*project.Project, error)
	Update(ctx context.Context, id string, in project.Input) (*project.Project, error)
	Delete(ctx context.Context, id string) (*project.Project, error)
}

// Config contains server configuration.
type Config struct {
	Projects ProjectService
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "trackboard",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Projects)

	return server
}

// NewHTTPHandler serves server over streamable HTTP.
func NewHTTPHandler(server *sdkmcp.Server, logger *slog.Logger) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{Logger: logger})
}

// RunStdio serves server over stdin/stdout until ctx is done or the client disconnects.
func RunStdio(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}
