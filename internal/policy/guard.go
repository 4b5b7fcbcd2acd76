// Package policy validates tool requests before any file, network or browser
// I/O takes place.
//
// The Guard enforces the URL scheme rule, the optional domain allow-list,
// base64 decodability and the byte-size ceiling. It holds only read-only
// configuration and is safe for concurrent use.
package policy

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ironsheep/image-extractor-mcp/internal/config"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// Guard validates request inputs against the configured policy.
type Guard struct {
	maxSize int64
	domains []string
}

// New creates a Guard from the server configuration.
func New(cfg *config.Config) *Guard {
	return &Guard{
		maxSize: cfg.MaxImageSize,
		domains: cfg.AllowedDomains(),
	}
}

// MaxImageSize returns the byte ceiling enforced by CheckSize.
func (g *Guard) MaxImageSize() int64 {
	return g.maxSize
}

// AllowedDomains returns a copy of the allow-list. Empty means unrestricted.
func (g *Guard) AllowedDomains() []string {
	out := make([]string, len(g.domains))
	copy(out, g.domains)
	return out
}

// CheckURL verifies that raw is an http(s) URL whose host is permitted.
func (g *Guard) CheckURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return toolerr.Wrap(toolerr.InvalidInput, err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return toolerr.New(toolerr.InvalidInput, "invalid URL %q: only http and https URLs are supported", raw)
	}
	// "example.com." is the fully qualified form of "example.com".
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return toolerr.New(toolerr.InvalidInput, "invalid URL %q: missing host", raw)
	}
	if !g.hostAllowed(host) {
		return toolerr.New(toolerr.InvalidInput, "domain %q is not allowed; allowed domains: %s",
			host, strings.Join(g.domains, ", "))
	}
	return nil
}

// hostAllowed reports whether host equals an allowed entry or is one of its subdomains.
func (g *Guard) hostAllowed(host string) bool {
	if len(g.domains) == 0 {
		return true
	}
	for _, d := range g.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// DecodeBase64 decodes a base64 payload, optionally wrapped in a data: URI.
//
// The returned MIME type is the one declared by a data: URI prefix, or empty.
// An empty or undecodable payload is rejected.
func (g *Guard) DecodeBase64(payload string) ([]byte, string, error) {
	data, mimeType := splitDataURI(strings.TrimSpace(payload))
	data = stripWhitespace(data)
	if data == "" {
		return nil, "", toolerr.New(toolerr.InvalidInput, "invalid base64 data: payload is empty")
	}

	decoded, err := decodeAnyBase64(data)
	if err != nil {
		return nil, "", toolerr.Wrap(toolerr.InvalidInput, err, "invalid base64 data")
	}
	if len(decoded) == 0 {
		return nil, "", toolerr.New(toolerr.InvalidInput, "invalid base64 data: decoded payload is empty")
	}
	if err := g.CheckSize(int64(len(decoded))); err != nil {
		return nil, "", err
	}
	return decoded, mimeType, nil
}

// decodeAnyBase64 accepts the standard and URL-safe alphabets, padded or
// not. The error of the standard padded decoding is returned on failure.
func decodeAnyBase64(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	unpadded := strings.TrimRight(data, "=")
	fallbacks := []struct {
		enc *base64.Encoding
		in  string
	}{
		{base64.RawStdEncoding, unpadded},
		{base64.URLEncoding, data},
		{base64.RawURLEncoding, unpadded},
	}
	for _, f := range fallbacks {
		if out, fErr := f.enc.DecodeString(f.in); fErr == nil {
			return out, nil
		}
	}
	return nil, err
}

// CheckSize rejects buffers larger than the configured ceiling.
func (g *Guard) CheckSize(n int64) error {
	if n > g.maxSize {
		return toolerr.New(toolerr.SizeExceeded, "image size %d bytes exceeds maximum allowed size of %d bytes", n, g.maxSize)
	}
	return nil
}

// LimitReader caps r one byte past the ceiling so callers can detect an
// oversized transfer without buffering all of it.
func (g *Guard) LimitReader(r io.Reader) io.Reader {
	return io.LimitReader(r, g.maxSize+1)
}

// ReadAll reads r through LimitReader and rejects bodies over the ceiling.
func (g *Guard) ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(g.LimitReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if err := g.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

func splitDataURI(s string) (data, mimeType string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok {
		return "", ""
	}
	header = strings.TrimPrefix(header, "data:")
	mimeType, _, _ = strings.Cut(header, ";")
	return payload, mimeType
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
