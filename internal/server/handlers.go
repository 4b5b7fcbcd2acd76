package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/browser"
	"github.com/ironsheep/image-extractor-mcp/internal/imaging"
	"github.com/ironsheep/image-extractor-mcp/internal/metrics"
	"github.com/ironsheep/image-extractor-mcp/internal/ocr"
	"github.com/ironsheep/image-extractor-mcp/internal/source"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// toolHandler executes one tool with its raw JSON arguments.
type toolHandler func(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error)

// instrument adapts a toolHandler to mcp-go. It assigns a request id, logs
// and counts the call, and turns any error into an error result.
func (s *Server) instrument(tool string, h toolHandler) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.With(zap.String("tool", tool), zap.String("request_id", uuid.NewString()))
		logger.Debug("tool call started")
		start := time.Now()

		var res *mcp.CallToolResult
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			err = toolerr.Wrap(toolerr.InvalidInput, err, "invalid arguments")
		} else {
			res, err = h(ctx, logger, args)
		}

		elapsed := time.Since(start)
		if err != nil {
			kind := toolerr.KindOf(err)
			logger.Warn("tool call failed",
				zap.String("kind", string(kind)),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			s.metrics.ObserveCall(tool, metrics.OutcomeError, elapsed)
			s.metrics.ObserveError(tool, string(kind))
			return errorResult(err), nil
		}

		logger.Info("tool call completed", zap.Duration("elapsed", elapsed))
		s.metrics.ObserveCall(tool, metrics.OutcomeSuccess, elapsed)
		return res, nil
	}
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return toolerr.Wrap(toolerr.InvalidInput, err, "invalid arguments")
	}
	return nil
}

// === Normalization arguments ===

// normalizeArgs holds the options shared by all extraction tools.
type normalizeArgs struct {
	Resize      *bool  `json:"resize"`
	MaxWidth    int    `json:"max_width"`
	MaxHeight   int    `json:"max_height"`
	ExtractText bool   `json:"extract_text"`
	OCRLanguage string `json:"ocr_language"`
}

// options converts the arguments to pipeline options. Only screenshots may
// opt out of bounding; other sources always obey the hard limit.
func (a normalizeArgs) options(screenshot bool) (imaging.Options, error) {
	if a.MaxWidth < 0 {
		return imaging.Options{}, toolerr.New(toolerr.InvalidInput, "max_width must be positive, got %d", a.MaxWidth)
	}
	if a.MaxHeight < 0 {
		return imaging.Options{}, toolerr.New(toolerr.InvalidInput, "max_height must be positive, got %d", a.MaxHeight)
	}
	opts := imaging.Options{MaxWidth: a.MaxWidth, MaxHeight: a.MaxHeight}
	if screenshot && a.Resize != nil && !*a.Resize {
		opts.KeepDimensions = true
	}
	return opts, nil
}

// extract runs acquisition, normalization and optional OCR, and assembles
// the image result.
func (s *Server) extract(ctx context.Context, logger *zap.Logger, tool string, req source.Request, a normalizeArgs, meta *metadata) (*mcp.CallToolResult, error) {
	_, screenshot := req.(source.ScreenshotRequest)
	opts, err := a.options(screenshot)
	if err != nil {
		return nil, err
	}

	raw, err := s.acquirer.Acquire(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("acquired image", zap.Int("size", len(raw.Bytes)), zap.String("mime_type", raw.MimeType))

	res, err := s.pipeline.Normalize(raw.Bytes, opts)
	if err != nil {
		return nil, err
	}

	warnings := append(append([]toolerr.Warning(nil), raw.Warnings...), res.Warnings...)
	if a.ExtractText {
		text, w := s.extractText(logger, res.Data, a.OCRLanguage)
		if w != nil {
			warnings = append(warnings, *w)
		} else {
			meta.Text = &text
		}
	}
	for _, w := range warnings {
		s.metrics.ObserveDegradation(tool, w.Stage)
	}
	s.metrics.ObserveImage(tool, res.Size())

	meta.describe(res)
	meta.Warnings = warnings
	if meta.ContentType == "" && raw.Source == source.SourceURL {
		meta.ContentType = raw.ContentType
	}
	if raw.Source == source.SourceBase64 {
		meta.MimeType = raw.MimeType
	}

	logger.Debug("normalized image",
		zap.Int("width", res.Width), zap.Int("height", res.Height),
		zap.String("format", res.Format), zap.Int("size", res.Size()),
		zap.Bool("resized", res.Resized), zap.Int("warnings", len(warnings)))

	return imageResult(meta, res.Data, responseMIME(raw.MimeType, res))
}

func (s *Server) extractText(logger *zap.Logger, data []byte, language string) (string, *toolerr.Warning) {
	if language == "" {
		language = ocr.DefaultLanguage
	}
	res, err := s.recognize(data, language)
	if err != nil {
		logger.Warn("text extraction failed", zap.String("language", language), zap.Error(err))
		return "", &toolerr.Warning{Stage: "ocr", Message: "text extraction failed: " + err.Error()}
	}
	return res.Text, nil
}

// === Extraction handlers ===

type extractFileArgs struct {
	FilePath string `json:"file_path"`
	normalizeArgs
}

func (s *Server) handleExtractFile(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a extractFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.FilePath == "" {
		return nil, toolerr.New(toolerr.InvalidInput, "file_path is required")
	}
	return s.extract(ctx, logger, ToolExtractFile, source.FileRequest{Path: a.FilePath}, a.normalizeArgs,
		&metadata{Path: a.FilePath})
}

type extractURLArgs struct {
	URL string `json:"url"`
	normalizeArgs
}

func (s *Server) handleExtractURL(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a extractURLArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		return nil, toolerr.New(toolerr.InvalidInput, "url is required")
	}
	return s.extract(ctx, logger, ToolExtractURL, source.URLRequest{URL: a.URL}, a.normalizeArgs,
		&metadata{URL: a.URL})
}

type extractBase64Args struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mime_type"`
	normalizeArgs
}

func (s *Server) handleExtractBase64(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a extractBase64Args
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Base64 == "" {
		return nil, toolerr.New(toolerr.InvalidInput, "base64 is required")
	}
	return s.extract(ctx, logger, ToolExtractBase64, source.Base64Request{Data: a.Base64, MimeType: a.MimeType}, a.normalizeArgs,
		&metadata{})
}

type extractScreenshotArgs struct {
	URL             string `json:"url"`
	ViewportWidth   int    `json:"viewport_width"`
	ViewportHeight  int    `json:"viewport_height"`
	FullPage        *bool  `json:"full_page"`
	WaitForLoad     *int   `json:"wait_for_load"`
	WaitForSelector string `json:"wait_for_selector"`
	ClickSelector   string `json:"click_selector"`
	ClickWaitAfter  *int   `json:"click_wait_after"`
	normalizeArgs
}

// captureOptions applies defaults and validates the browser arguments.
func (a extractScreenshotArgs) captureOptions() (browser.Options, error) {
	opts := browser.DefaultOptions()
	if a.ViewportWidth < 0 || a.ViewportHeight < 0 {
		return opts, toolerr.New(toolerr.InvalidInput, "viewport dimensions must be positive, got %dx%d", a.ViewportWidth, a.ViewportHeight)
	}
	if a.ViewportWidth > 0 {
		opts.ViewportWidth = a.ViewportWidth
	}
	if a.ViewportHeight > 0 {
		opts.ViewportHeight = a.ViewportHeight
	}
	if a.FullPage != nil {
		opts.FullPage = *a.FullPage
	}
	if a.WaitForLoad != nil {
		if *a.WaitForLoad < 0 {
			return opts, toolerr.New(toolerr.InvalidInput, "wait_for_load must not be negative, got %d", *a.WaitForLoad)
		}
		opts.WaitForLoad = time.Duration(*a.WaitForLoad) * time.Millisecond
	}
	if a.ClickWaitAfter != nil {
		if *a.ClickWaitAfter < 0 {
			return opts, toolerr.New(toolerr.InvalidInput, "click_wait_after must not be negative, got %d", *a.ClickWaitAfter)
		}
		opts.ClickWaitAfter = time.Duration(*a.ClickWaitAfter) * time.Millisecond
	}
	opts.WaitForSelector = a.WaitForSelector
	opts.ClickSelector = a.ClickSelector
	return opts, nil
}

func (s *Server) handleExtractScreenshot(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a extractScreenshotArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		return nil, toolerr.New(toolerr.InvalidInput, "url is required")
	}
	opts, err := a.captureOptions()
	if err != nil {
		return nil, err
	}

	meta := &metadata{
		URL:      a.URL,
		Viewport: &viewport{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
		FullPage: &opts.FullPage,
	}
	if opts.ClickSelector != "" {
		wait := int(opts.ClickWaitAfter.Milliseconds())
		meta.ClickSelector = opts.ClickSelector
		meta.ClickWaitAfter = &wait
	}
	return s.extract(ctx, logger, ToolExtractScreenshot, source.ScreenshotRequest{URL: a.URL, Options: opts}, a.normalizeArgs, meta)
}

// === Persistence handler ===

type saveScreenshotArgs struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
}

func (s *Server) handleSaveScreenshot(ctx context.Context, logger *zap.Logger, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a saveScreenshotArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Base64 == "" {
		return nil, toolerr.New(toolerr.InvalidInput, "base64 is required")
	}
	if a.Format == "" {
		a.Format = "png"
	}

	data, _, err := s.guard.DecodeBase64(a.Base64)
	if err != nil {
		return nil, err
	}
	saved, err := s.saver.Save(data, a.Filename, a.Format)
	if err != nil {
		return nil, err
	}
	logger.Debug("saved", zap.String("format", saved.Format), zap.Int("width", saved.Width), zap.Int("height", saved.Height))
	return textResult(saved)
}
