// Package source acquires raw image bytes from files, URLs, base64 payloads
// and live web pages.
//
// Every request is validated by the policy Guard before any I/O, and every
// failure is returned as a classified toolerr error.
package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/browser"
	"github.com/ironsheep/image-extractor-mcp/internal/policy"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// Source names, as reported in Raw.Source.
const (
	SourceFile       = "file"
	SourceURL        = "url"
	SourceBase64     = "base64"
	SourceScreenshot = "screenshot"
)

// Fallback MIME types when a source declares none.
const (
	DefaultFileMIME   = "image/jpeg"
	DefaultURLMIME    = "image/jpeg"
	DefaultBase64MIME = "image/png"
	ScreenshotMIME    = "image/png"
)

// DefaultFetchTimeout bounds a URL download.
const DefaultFetchTimeout = 30 * time.Second

// Request is one of FileRequest, URLRequest, Base64Request or ScreenshotRequest.
type Request interface {
	source() string
}

// FileRequest reads an image from the local filesystem.
type FileRequest struct {
	Path string
}

// URLRequest downloads an image over http(s).
type URLRequest struct {
	URL string
}

// Base64Request decodes an inline image. MimeType is optional.
type Base64Request struct {
	Data     string
	MimeType string
}

// ScreenshotRequest renders a web page in a headless browser.
type ScreenshotRequest struct {
	URL     string
	Options browser.Options
}

func (FileRequest) source() string       { return SourceFile }
func (URLRequest) source() string        { return SourceURL }
func (Base64Request) source() string     { return SourceBase64 }
func (ScreenshotRequest) source() string { return SourceScreenshot }

// Raw is an acquired, not yet normalized, image.
type Raw struct {
	Bytes    []byte
	MimeType string
	Source   string

	// ContentType is the unmodified Content-Type header of a URL response.
	ContentType string

	// Warnings lists degraded steps during acquisition, such as a selector
	// that never appeared.
	Warnings []toolerr.Warning
}

// Screenshotter captures web pages.
type Screenshotter interface {
	Capture(ctx context.Context, url string, opts browser.Options) (*browser.Capture, error)
}

// Acquirer turns requests into raw image bytes.
type Acquirer struct {
	guard   *policy.Guard
	shots   Screenshotter
	fetcher *fetcher
	logger  *zap.Logger
}

// NewAcquirer creates an Acquirer. shots may be nil when screenshots are
// not needed.
func NewAcquirer(guard *policy.Guard, shots Screenshotter, fetchTimeout time.Duration, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Acquirer{
		guard:   guard,
		shots:   shots,
		fetcher: newFetcher(guard, fetchTimeout),
		logger:  logger,
	}
}

// Acquire dispatches on the request variant.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (*Raw, error) {
	switch r := req.(type) {
	case FileRequest:
		return a.acquireFile(r)
	case URLRequest:
		return a.acquireURL(ctx, r)
	case Base64Request:
		return a.acquireBase64(r)
	case ScreenshotRequest:
		return a.acquireScreenshot(ctx, r)
	default:
		return nil, toolerr.New(toolerr.InvalidInput, "unsupported source request %T", req)
	}
}

func (a *Acquirer) acquireBase64(r Base64Request) (*Raw, error) {
	data, declared, err := a.guard.DecodeBase64(r.Data)
	if err != nil {
		return nil, err
	}
	mimeType := r.MimeType
	if mimeType == "" {
		mimeType = declared
	}
	if mimeType == "" {
		mimeType = DefaultBase64MIME
	}
	return &Raw{Bytes: data, MimeType: mimeType, Source: SourceBase64}, nil
}

func (a *Acquirer) acquireScreenshot(ctx context.Context, r ScreenshotRequest) (*Raw, error) {
	if err := a.guard.CheckURL(r.URL); err != nil {
		return nil, err
	}
	if a.shots == nil {
		return nil, toolerr.New(toolerr.AcquisitionFailure, "screenshots are not available")
	}

	a.logger.Debug("capturing screenshot", zap.String("url", r.URL),
		zap.Int("viewport_width", r.Options.ViewportWidth),
		zap.Int("viewport_height", r.Options.ViewportHeight),
		zap.Bool("full_page", r.Options.FullPage))

	capture, err := a.shots.Capture(ctx, r.URL, r.Options)
	if err != nil {
		return nil, err
	}
	if err := a.guard.CheckSize(int64(len(capture.PNG))); err != nil {
		return nil, err
	}
	return &Raw{
		Bytes:    capture.PNG,
		MimeType: ScreenshotMIME,
		Source:   SourceScreenshot,
		Warnings: capture.Warnings,
	}, nil
}
