package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/image-extractor-mcp/internal/browser"
	"github.com/ironsheep/image-extractor-mcp/internal/config"
	"github.com/ironsheep/image-extractor-mcp/internal/policy"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\nfake")

func newAcquirer(t *testing.T, cfg *config.Config, shots Screenshotter) *Acquirer {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return NewAcquirer(policy.New(cfg), shots, 0, zaptest.NewLogger(t))
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Hostname()
}

func TestAcquire_File(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		want string
	}{
		{"png", "a.png", "image/png"},
		{"jpg upper", "b.JPG", "image/jpeg"},
		{"jpeg", "c.jpeg", "image/jpeg"},
		{"gif", "d.gif", "image/gif"},
		{"webp", "e.webp", "image/webp"},
		{"svg", "f.svg", "image/svg+xml"},
		{"avif", "g.avif", "image/avif"},
		{"unknown", "h.bin", "image/jpeg"},
	}
	a := newAcquirer(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, pngMagic, 0o644))

			raw, err := a.Acquire(context.Background(), FileRequest{Path: path})
			require.NoError(t, err)
			assert.Equal(t, pngMagic, raw.Bytes)
			assert.Equal(t, tt.want, raw.MimeType)
			assert.Equal(t, SourceFile, raw.Source)
		})
	}
}

func TestAcquire_FileErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, 2048), 0o644))

	cfg := config.Default()
	cfg.MaxImageSize = 1024
	a := newAcquirer(t, cfg, nil)

	tests := []struct {
		name string
		path string
		kind toolerr.Kind
	}{
		{"missing", filepath.Join(dir, "nope.png"), toolerr.NotFound},
		{"directory", dir, toolerr.InvalidInput},
		{"empty", "  ", toolerr.InvalidInput},
		{"too large", big, toolerr.SizeExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Acquire(context.Background(), FileRequest{Path: tt.path})
			require.Error(t, err)
			assert.Equal(t, tt.kind, toolerr.KindOf(err))
		})
	}
}

func TestAcquire_FileHomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "shot.png"), pngMagic, 0o644))

	raw, err := newAcquirer(t, nil, nil).Acquire(context.Background(), FileRequest{Path: "~/shot.png"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", raw.MimeType)
}

func TestAcquire_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			_, _ = w.Write(pngMagic)
		case "/untyped":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write(pngMagic)
		case "/redirect":
			http.Redirect(w, r, "/img.png", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := newAcquirer(t, nil, nil)

	raw, err := a.Acquire(context.Background(), URLRequest{URL: srv.URL + "/img.png"})
	require.NoError(t, err)
	assert.Equal(t, pngMagic, raw.Bytes)
	assert.Equal(t, "image/png", raw.MimeType)
	assert.Equal(t, "image/png; charset=binary", raw.ContentType)
	assert.Equal(t, SourceURL, raw.Source)

	raw, err = a.Acquire(context.Background(), URLRequest{URL: srv.URL + "/untyped"})
	require.NoError(t, err)
	assert.Equal(t, DefaultURLMIME, raw.MimeType)

	raw, err = a.Acquire(context.Background(), URLRequest{URL: srv.URL + "/redirect"})
	require.NoError(t, err)
	assert.Equal(t, pngMagic, raw.Bytes)

	_, err = a.Acquire(context.Background(), URLRequest{URL: srv.URL + "/missing"})
	require.Error(t, err)
	assert.Equal(t, toolerr.AcquisitionFailure, toolerr.KindOf(err))
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestAcquire_URLPolicy(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(pngMagic)
	}))
	defer srv.Close()

	cfg := config.Default().WithAllowedDomains("example.com", "images.test")
	a := newAcquirer(t, cfg, nil)

	_, err := a.Acquire(context.Background(), URLRequest{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, toolerr.InvalidInput, toolerr.KindOf(err))
	assert.Contains(t, err.Error(), "example.com, images.test")
	assert.Zero(t, hits, "no request may be sent for a rejected domain")

	_, err = a.Acquire(context.Background(), URLRequest{URL: "ftp://example.com/a.png"})
	require.Error(t, err)
	assert.Equal(t, toolerr.InvalidInput, toolerr.KindOf(err))
}

func TestAcquire_URLRedirectRevalidated(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngMagic)
	}))
	defer target.Close()

	// Reach the target through "localhost" so the two hosts differ.
	redirectTo := strings.Replace(target.URL, "127.0.0.1", "localhost", 1)
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, redirectTo, http.StatusFound)
	}))
	defer origin.Close()

	cfg := config.Default().WithAllowedDomains(hostOf(t, origin.URL))
	_, err := newAcquirer(t, cfg, nil).Acquire(context.Background(), URLRequest{URL: origin.URL})
	require.Error(t, err)
	assert.Equal(t, toolerr.InvalidInput, toolerr.KindOf(err))
	assert.Contains(t, err.Error(), "localhost")
}

func TestAcquire_URLSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/declared":
			w.Header().Set("Content-Length", "4096")
		case "/chunked":
			// Flushing forces chunked encoding, so no Content-Length is sent.
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.MaxImageSize = 1024
	a := newAcquirer(t, cfg, nil)

	for _, path := range []string{"/declared", "/chunked"} {
		_, err := a.Acquire(context.Background(), URLRequest{URL: srv.URL + path})
		require.Error(t, err, path)
		assert.Equal(t, toolerr.SizeExceeded, toolerr.KindOf(err), path)
	}
}

func TestAcquire_Base64(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngMagic)
	a := newAcquirer(t, nil, nil)

	tests := []struct {
		name string
		req  Base64Request
		want string
	}{
		{"default mime", Base64Request{Data: enc}, "image/png"},
		{"declared mime", Base64Request{Data: enc, MimeType: "image/webp"}, "image/webp"},
		{"data uri", Base64Request{Data: "data:image/gif;base64," + enc}, "image/gif"},
		{"caller wins over data uri", Base64Request{Data: "data:image/gif;base64," + enc, MimeType: "image/jpeg"}, "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := a.Acquire(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, pngMagic, raw.Bytes)
			assert.Equal(t, tt.want, raw.MimeType)
		})
	}

	_, err := a.Acquire(context.Background(), Base64Request{Data: "!!!"})
	require.Error(t, err)
	assert.Equal(t, toolerr.InvalidInput, toolerr.KindOf(err))
}

type fakeShots struct {
	capture *browser.Capture
	err     error
	calls   int
}

func (f *fakeShots) Capture(ctx context.Context, url string, opts browser.Options) (*browser.Capture, error) {
	f.calls++
	return f.capture, f.err
}

func TestAcquire_Screenshot(t *testing.T) {
	shots := &fakeShots{capture: &browser.Capture{
		PNG:      pngMagic,
		Warnings: []toolerr.Warning{{Stage: "click", Message: "failed to click"}},
	}}
	a := newAcquirer(t, nil, shots)

	raw, err := a.Acquire(context.Background(), ScreenshotRequest{URL: "https://example.com", Options: browser.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, ScreenshotMIME, raw.MimeType)
	assert.Equal(t, SourceScreenshot, raw.Source)
	assert.Len(t, raw.Warnings, 1)

	_, err = a.Acquire(context.Background(), ScreenshotRequest{URL: "file:///etc/passwd"})
	require.Error(t, err)
	assert.Equal(t, 1, shots.calls, "invalid URLs never reach the browser")
}

func TestAcquire_ScreenshotFailure(t *testing.T) {
	shots := &fakeShots{err: toolerr.Wrap(toolerr.AcquisitionFailure, errors.New("boom"), "failed to load page")}
	_, err := newAcquirer(t, nil, shots).Acquire(context.Background(), ScreenshotRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Equal(t, toolerr.AcquisitionFailure, toolerr.KindOf(err))

	_, err = newAcquirer(t, nil, nil).Acquire(context.Background(), ScreenshotRequest{URL: "https://example.com"})
	require.Error(t, err)
}

func ExampleMIMEFromExtension() {
	fmt.Println(MIMEFromExtension("chart.SVG"))
	fmt.Println(MIMEFromExtension("photo"))
	// Output:
	// image/svg+xml
	// image/jpeg
}
