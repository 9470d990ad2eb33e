package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mkrasov/foundry/internal/api"
	"github.com/mkrasov/foundry/internal/build"
	"github.com/mkrasov/foundry/internal/catalog"
	"github.com/mkrasov/foundry/internal/config"
	"github.com/mkrasov/foundry/internal/filter"
	"github.com/mkrasov/foundry/internal/storage"
	"github.com/mkrasov/foundry/internal/upstream"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the foundry server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running foundry server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show foundry system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "foundry.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "foundry version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("foundry is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("foundry is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Load the category catalog (one-shot per session) and hydrate the
	// persisted filter configuration against it.
	client := upstream.NewWithHTTPClient(cfg.Upstream.BaseURL, &http.Client{Timeout: 30 * time.Second})
	categories, err := client.FetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}
	cat := filter.NewCatalog(categories)
	slog.Info("category catalog loaded", "categories", len(cat))

	filterCfg, err := filter.Hydrate(store, cat)
	if err != nil {
		return fmt.Errorf("hydrating filter configuration: %w", err)
	}

	// Build the query engine and the per-item configurator, then issue the
	// initial catalog fetch. A failed initial fetch is not fatal: the
	// configuration is already usable and the next mutation retriggers it.
	engine := catalog.NewEngine(client)
	configurator := build.NewConfigurator(client, cfg.Build.FacilityTax)
	if err := <-engine.Refresh(ctx, filterCfg, cat); err != nil {
		slog.Warn("initial catalog fetch failed", "error", err)
	}

	deps := api.Deps{
		Catalog:      cat,
		Config:       filterCfg,
		Engine:       engine,
		Configurator: configurator,
		Fetcher:      client,
		Token:        cfg.API.Token,
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler: api.NewHandler(deps),
	}

	// Start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(deps)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "foundry listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("foundry is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop foundry (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to foundry (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the upstream backend.
	upstreamResp, err := client.Get(cfg.Upstream.BaseURL + "/api/manufacturing-categories")
	if err != nil {
		printStatus("Upstream", "not reachable at %s", cfg.Upstream.BaseURL)
	} else {
		upstreamResp.Body.Close()
		printStatus("Upstream", "reachable at %s", cfg.Upstream.BaseURL)
	}

	printStatus("Facility tax", "%v", cfg.Build.FacilityTax)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
