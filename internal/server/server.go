package server

import (
	"context"
	"io"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/browser"
	"github.com/ironsheep/image-extractor-mcp/internal/config"
	"github.com/ironsheep/image-extractor-mcp/internal/imaging"
	"github.com/ironsheep/image-extractor-mcp/internal/metrics"
	"github.com/ironsheep/image-extractor-mcp/internal/ocr"
	"github.com/ironsheep/image-extractor-mcp/internal/policy"
	"github.com/ironsheep/image-extractor-mcp/internal/source"
)

// Name is the server name reported during the MCP handshake.
const Name = "image-extractor-mcp"

// Server handles MCP protocol communication
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	version  string
	launcher browser.Launcher
	metrics  *metrics.Recorder

	// recognize runs OCR; replaced in tests.
	recognize func(data []byte, language string) (*ocr.Result, error)

	guard    *policy.Guard
	acquirer *source.Acquirer
	pipeline *imaging.Pipeline
	saver    *imaging.Saver
	mcp      *mcpserver.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLauncher replaces the headless Chrome launcher.
func WithLauncher(l browser.Launcher) Option {
	return func(s *Server) { s.launcher = l }
}

// WithRecorder enables metrics recording.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = r }
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a new MCP server instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	background, err := imaging.ParseBackground(cfg.JPEGBackground)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		version:   "dev",
		recognize: ocr.NewRecognizer(cfg.TessdataDir).Recognize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.launcher == nil {
		s.launcher = browser.NewChromeLauncher(cfg.ChromePath, logger.Named("chrome"))
	}

	s.guard = policy.New(cfg)
	capturer := browser.NewCapturer(s.launcher, cfg.MaxConcurrentBrowsers, logger.Named("browser"))
	s.acquirer = source.NewAcquirer(s.guard, capturer, cfg.FetchTimeout, logger.Named("source"))
	s.pipeline = imaging.NewPipeline(cfg.MaxDimension, background, logger.Named("imaging"))
	s.saver = imaging.NewSaver(cfg.ScreenshotsDir, logger.Named("imaging"))

	s.mcp = mcpserver.NewMCPServer(Name, s.version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	return s, nil
}

// Run serves MCP on stdin/stdout until stdin closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP on the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("serving MCP over stdio",
		zap.String("version", s.version),
		zap.Int("max_dimension", s.pipeline.MaxDimension()),
		zap.Int64("max_image_size", s.guard.MaxImageSize()),
		zap.Strings("allowed_domains", s.guard.AllowedDomains()),
		zap.Bool("ocr", ocr.Available()))
	return stdio.Listen(ctx, in, out)
}
