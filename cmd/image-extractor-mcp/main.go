package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/config"
	"github.com/ironsheep/image-extractor-mcp/internal/metrics"
	"github.com/ironsheep/image-extractor-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("%s %s\n", server.Name, Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", server.Name, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logging goes to stderr; stdout is for MCP protocol
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	opts = append(opts, server.WithVersion(Version))

	if cfg.Port != "" {
		rec := metrics.NewRecorder()
		opts = append(opts, server.WithRecorder(rec))

		addr := net.JoinHostPort("", cfg.Port)
		go func() {
			if err := metrics.NewServer(rec, Version, logger.Named("http")).ListenAndServe(ctx, addr); err != nil {
				logger.Error("metrics listener failed", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}

	srv, err := server.New(cfg, logger, opts...)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MCP_LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func printHelp() {
	fmt.Printf("%s - MCP server for extracting images for AI assistants\n", server.Name)
	fmt.Println()
	fmt.Printf("Usage: %s [options]\n", server.Name)
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  MAX_IMAGE_SIZE=10485760        Largest accepted image in bytes")
	fmt.Println("  ALLOWED_DOMAINS=a.com,b.org    Restrict URL and screenshot hosts")
	fmt.Println("  MAX_DIMENSION=512              Hard per-axis pixel bound")
	fmt.Println("  SCREENSHOTS_DIR=screenshots    Where save_screenshot writes files")
	fmt.Println("  FETCH_TIMEOUT=30s              URL download timeout")
	fmt.Println("  CHROME_PATH=                   Chrome/Chromium binary (auto-detected)")
	fmt.Println("  MAX_CONCURRENT_BROWSERS=0      Limit live browsers (0 = unlimited)")
	fmt.Println("  JPEG_BACKGROUND=#ffffff        Fill color for transparency in JPEG output")
	fmt.Println("  PORT=                          Serve /metrics and /healthz on this port")
	fmt.Println("  IMAGE_MCP_LOG_LEVEL=info       debug, info, warn or error")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
