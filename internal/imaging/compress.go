package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// DefaultQuality is the quality used by every lossy compression profile.
const DefaultQuality = 80

// intermediateQuality is used when a resized image cannot be encoded with
// its compression profile and falls back to its source format.
const intermediateQuality = 95

// Profile describes how a format is re-encoded during compression.
type Profile struct {
	// Format is the output format name.
	Format string

	// Quality is the encoder quality (1-100). Ignored for lossless formats.
	Quality int

	// Passthrough formats are never re-encoded by the compression step.
	Passthrough bool
}

var profiles = map[string]Profile{
	"jpeg": {Format: "jpeg", Quality: DefaultQuality},
	"png":  {Format: "png", Quality: DefaultQuality},
	"webp": {Format: "webp", Quality: DefaultQuality},
	"avif": {Format: "avif", Quality: DefaultQuality},
	"tiff": {Format: "tiff", Quality: DefaultQuality},
	"gif":  {Format: "gif", Passthrough: true},
	"svg":  {Format: "svg", Passthrough: true},
}

// fallbackProfile applies to formats without a profile of their own.
var fallbackProfile = Profile{Format: "jpeg", Quality: DefaultQuality}

// ProfileFor returns the compression profile for a format, falling back to
// JPEG at DefaultQuality.
func ProfileFor(format string) Profile {
	if p, ok := profiles[format]; ok {
		return p
	}
	return fallbackProfile
}

// Compress re-encodes data according to the profile of format.
//
// Parameters:
//   - data: The encoded source image. It is never modified.
//   - format: The probed format of data.
//   - bg: Background used to flatten transparency when the output has no alpha.
//
// Returns the new buffer and its format. Passthrough profiles return data
// itself. Any decode or encode error is returned so the caller can fall back
// to the uncompressed buffer.
func Compress(data []byte, format string, bg color.Color) ([]byte, string, error) {
	profile := ProfileFor(format)
	if profile.Passthrough {
		return data, format, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s image for compression: %w", format, err)
	}
	return CompressImage(img, format, bg)
}

// CompressImage encodes an already decoded image with the profile of format.
// Passthrough formats are encoded losslessly in their own format, since a
// decoded image has no original bytes to pass through.
func CompressImage(img image.Image, format string, bg color.Color) ([]byte, string, error) {
	profile := ProfileFor(format)

	var buf bytes.Buffer
	if err := encode(&buf, img, profile.Format, profile.Quality, bg, true); err != nil {
		return nil, "", fmt.Errorf("failed to encode %s: %w", profile.Format, err)
	}
	return buf.Bytes(), profile.Format, nil
}

// encodeIntermediate encodes img in its source format at intermediateQuality,
// or as PNG when the source format has no encoder.
func encodeIntermediate(img image.Image, format string, bg color.Color) ([]byte, error) {
	switch format {
	case "jpeg", "png", "gif", "tiff", "bmp", "webp", "avif":
	default:
		format = "png"
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, format, intermediateQuality, bg, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes img in the named format. maxCompression selects the slowest,
// smallest setting for formats that expose one.
func encode(w io.Writer, img image.Image, format string, quality int, bg color.Color, maxCompression bool) error {
	switch format {
	case "jpeg":
		return imaging.Encode(w, flatten(img, bg), imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		level := png.DefaultCompression
		if maxCompression {
			level = png.BestCompression
		}
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	case "gif":
		return imaging.Encode(w, img, imaging.GIF)
	case "tiff":
		return imaging.Encode(w, img, imaging.TIFF)
	case "bmp":
		return imaging.Encode(w, img, imaging.BMP)
	case "webp":
		method := 4
		if maxCompression {
			method = 6
		}
		return webp.Encode(w, img, webp.Options{Quality: quality, Method: method})
	case "avif":
		return avif.Encode(w, img, avif.Options{Quality: quality, Speed: 8})
	default:
		return fmt.Errorf("no encoder for format %q", format)
	}
}
