package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// newTestImage creates a solid-color RGBA image.
func newTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// encodePNG returns a solid-color PNG of the given size.
func encodePNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, newTestImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// encodeJPEG returns a solid-color JPEG of the given size.
func encodeJPEG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, newTestImage(width, height, c), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="2000" height="1000"><rect width="2000" height="1000" fill="red"/></svg>`

func TestProbe(t *testing.T) {
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, newTestImage(30, 20, color.Black)); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		wantWidth  int
		wantHeight int
		wantFormat string
		wantMIME   string
	}{
		{"png", encodePNG(t, 100, 80, color.White), 100, 80, "png", "image/png"},
		{"jpeg", encodeJPEG(t, 64, 32, color.Black), 64, 32, "jpeg", "image/jpeg"},
		{"bmp", bmpBuf.Bytes(), 30, 20, "bmp", "image/bmp"},
		{"svg passthrough", []byte(testSVG), 0, 0, "svg", "image/svg+xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Probe(tt.data)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if info.Width != tt.wantWidth || info.Height != tt.wantHeight {
				t.Errorf("dimensions: got %dx%d, want %dx%d", info.Width, info.Height, tt.wantWidth, tt.wantHeight)
			}
			if info.Format != tt.wantFormat {
				t.Errorf("Format: got %s, want %s", info.Format, tt.wantFormat)
			}
			if info.MimeType != tt.wantMIME {
				t.Errorf("MimeType: got %s, want %s", info.MimeType, tt.wantMIME)
			}
			if info.SizeBytes != len(tt.data) {
				t.Errorf("SizeBytes: got %d, want %d", info.SizeBytes, len(tt.data))
			}
		})
	}
}

func TestProbe_Errors(t *testing.T) {
	valid := encodePNG(t, 10, 10, color.White)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"plain text", []byte("this is not an image at all")},
		{"truncated png header", valid[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Probe(tt.data)
			if err == nil {
				t.Fatal("Probe should fail")
			}
			if !toolerr.Is(err, toolerr.DecodeFailure) {
				t.Errorf("error kind: got %s, want %s", toolerr.KindOf(err), toolerr.DecodeFailure)
			}
		})
	}
}

func TestFormatFromMIME(t *testing.T) {
	tests := map[string]string{
		"image/png":                "png",
		"image/jpeg":               "jpeg",
		"image/jpg":                "jpeg",
		"image/svg+xml":            "svg",
		"image/webp; charset=x":    "webp",
		"IMAGE/AVIF":               "avif",
		"image/vnd.microsoft.icon": "ico",
	}
	for mime, want := range tests {
		if got := FormatFromMIME(mime); got != want {
			t.Errorf("FormatFromMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestMIMEFromFormat(t *testing.T) {
	tests := map[string]string{
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"svg":  "image/svg+xml",
		"webp": "image/webp",
	}
	for format, want := range tests {
		if got := MIMEFromFormat(format); got != want {
			t.Errorf("MIMEFromFormat(%q) = %q, want %q", format, got, want)
		}
	}
}
