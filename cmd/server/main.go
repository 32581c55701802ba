package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rpggio/trackboard/internal/config"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/mcp"
	"github.com/rpggio/trackboard/internal/sqlite"
	"github.com/rpggio/trackboard/internal/store/memory"
	"github.com/rpggio/trackboard/internal/telemetry"
	"github.com/rpggio/trackboard/internal/transport"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.MCP.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("TRACKBOARD_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	metrics := telemetry.New()
	svcOpts := []project.Option{
		project.WithLatency(cfg.Latency.Durations()),
		project.WithRecorder(metrics),
	}
	if rates := cfg.Faults.Rates(); rates != nil {
		svcOpts = append(svcOpts, project.WithFaults(project.NewRandomFaults(rates, nil)))
	}
	projectSvc := project.NewService(store, logger, svcOpts...)

	mcpServer := mcp.NewServer(mcp.Config{
		Projects: projectSvc,
		Version:  version,
		Logger:   logger,
	})

	if cfg.MCP.Mode == "stdio" {
		logger.Info("starting stdio transport")
		// Run blocks until stdin closes or the context is canceled.
		if err := mcp.RunStdio(ctx, mcpServer); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	routerOpts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithMetrics(metrics.Handler()),
	}
	if cfg.MCP.Mode == "http" {
		routerOpts = append(routerOpts, transport.WithMCP(mcp.NewHTTPHandler(mcpServer, logger)))
	}
	if rl := cfg.Server.RateLimit; rl.RPS > 0 {
		routerOpts = append(routerOpts, transport.WithRateLimiter(transport.NewRateLimiter(rl.RPS, rl.Burst, rl.Idle)))
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           transport.NewServer(projectSvc, routerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "store", cfg.Store.Backend, "mcp", cfg.MCP.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (project.Store, func(), error) {
	var seed []project.Project
	if cfg.Seed {
		seed = project.DemoProjects()
	}

	switch cfg.Backend {
	case "sqlite":
		if err := ensureDBDir(cfg.DSN); err != nil {
			return nil, nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store := sqlite.NewProjectStore(db)
		if err := store.Seed(ctx, seed); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		store, err := memory.New(seed...)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and keeps only its newest bytes once it grows too large.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	_, err = w.file.Write(buf)
	return err
}
