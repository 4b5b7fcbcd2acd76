package imaging

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "github.com/gen2brain/avif" // Register AVIF format decoder
	_ "golang.org/x/image/bmp"    // Register BMP format decoder
	_ "golang.org/x/image/tiff"   // Register TIFF format decoder
	_ "golang.org/x/image/webp"   // Register WebP format decoder

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// ImageInfo contains metadata probed from an encoded image buffer.
//
// All fields come from the bytes themselves, never from caller-supplied hints
// such as file extensions or declared MIME types.
type ImageInfo struct {
	// Width is the image width in pixels, or 0 when the format has no decoder.
	Width int `json:"width"`

	// Height is the image height in pixels, or 0 when the format has no decoder.
	Height int `json:"height"`

	// Format is the short format name: "png", "jpeg", "gif", "webp", "avif",
	// "tiff", "bmp", "svg", "ico", ...
	Format string `json:"format"`

	// MimeType is the sniffed content type, e.g. "image/png".
	MimeType string `json:"mime_type"`

	// SizeBytes is the length of the probed buffer.
	SizeBytes int `json:"size"`
}

// HasDimensions reports whether the probe produced usable dimensions.
func (i *ImageInfo) HasDimensions() bool {
	return i.Width > 0 && i.Height > 0
}

// decodable lists the formats with a registered decoder. A buffer sniffed as
// one of these must also yield a valid header.
var decodable = map[string]bool{
	"png":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
	"avif": true,
	"tiff": true,
	"bmp":  true,
}

// Probe determines the format and intrinsic dimensions of an encoded image.
//
// The content type is sniffed from the leading bytes. Formats with a decoder
// must parse, otherwise Probe fails with a DecodeFailure. Image formats
// without a decoder (SVG, ICO, HEIC) are reported with zero dimensions so the
// caller can pass them through untouched.
//
// # Errors
//
//   - DecodeFailure if data is empty or is not an image
//   - DecodeFailure if a decodable format has a corrupt header
func Probe(data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, toolerr.New(toolerr.DecodeFailure, "failed to read image metadata: empty buffer")
	}

	mtype := mimetype.Detect(data)
	mime := baseMIME(mtype.String())
	if !strings.HasPrefix(mime, "image/") {
		return nil, toolerr.New(toolerr.DecodeFailure, "failed to read image metadata: unsupported content type %s", mime)
	}

	info := &ImageInfo{
		Format:    FormatFromMIME(mime),
		MimeType:  mime,
		SizeBytes: len(data),
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if decodable[info.Format] {
			return nil, toolerr.Wrap(toolerr.DecodeFailure, err, "failed to read image metadata")
		}
		return info, nil
	}

	info.Width = cfg.Width
	info.Height = cfg.Height
	if format != "" {
		info.Format = format
		info.MimeType = MIMEFromFormat(format)
	}
	return info, nil
}

// FormatFromMIME maps a MIME type to a short format name.
func FormatFromMIME(mime string) string {
	switch sub := strings.TrimPrefix(baseMIME(mime), "image/"); sub {
	case "jpg", "pjpeg":
		return "jpeg"
	case "svg+xml":
		return "svg"
	case "x-icon", "vnd.microsoft.icon":
		return "ico"
	case "x-ms-bmp":
		return "bmp"
	default:
		return sub
	}
}

// MIMEFromFormat maps a short format name to its MIME type.
func MIMEFromFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "svg":
		return "image/svg+xml"
	case "ico":
		return "image/x-icon"
	default:
		return "image/" + strings.ToLower(format)
	}
}

// baseMIME strips parameters ("; charset=...") and lower-cases a MIME type.
func baseMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
