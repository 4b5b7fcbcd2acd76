package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/bmp"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return NewPipeline(512, color.White, zaptest.NewLogger(t))
}

func TestNormalize_SmallImageNotResized(t *testing.T) {
	p := newTestPipeline(t)
	data := encodePNG(t, 100, 80, color.RGBA{255, 0, 0, 255})

	res, err := p.Normalize(data, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if res.Resized {
		t.Error("image within bounds should not be resized")
	}
	if res.Width != 100 || res.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", res.Width, res.Height)
	}
	if res.Format != "png" {
		t.Errorf("Format: got %s, want png", res.Format)
	}
	if res.Size() > len(data) {
		t.Errorf("Size: got %d, want <= %d", res.Size(), len(data))
	}
}

func TestNormalize_Landscape1080p(t *testing.T) {
	p := newTestPipeline(t)
	data := encodePNG(t, 1920, 1080, color.RGBA{0, 128, 255, 255})

	res, err := p.Normalize(data, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !res.Resized {
		t.Error("expected resize")
	}
	if res.Width != 512 || res.Height != 288 {
		t.Errorf("dimensions: got %dx%d, want 512x288", res.Width, res.Height)
	}
	if res.OriginalWidth != 1920 || res.OriginalHeight != 1080 {
		t.Errorf("original dimensions: got %dx%d, want 1920x1080", res.OriginalWidth, res.OriginalHeight)
	}
	if res.Format != "png" || res.MimeType != "image/png" {
		t.Errorf("format: got %s (%s), want png (image/png)", res.Format, res.MimeType)
	}

	// The returned bytes must agree with the reported metadata.
	info, err := Probe(res.Data)
	if err != nil {
		t.Fatalf("Probe of result failed: %v", err)
	}
	if info.Width != res.Width || info.Height != res.Height {
		t.Errorf("probed result %dx%d does not match reported %dx%d", info.Width, info.Height, res.Width, res.Height)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	p := newTestPipeline(t)
	data := encodeJPEG(t, 1300, 700, color.RGBA{10, 200, 30, 255})

	first, err := p.Normalize(data, Options{})
	if err != nil {
		t.Fatalf("first Normalize failed: %v", err)
	}
	second, err := p.Normalize(first.Data, Options{})
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}

	if second.Resized {
		t.Error("normalizing a bounded image must not resize again")
	}
	if second.Width != first.Width || second.Height != first.Height {
		t.Errorf("dimensions changed: %dx%d -> %dx%d", first.Width, first.Height, second.Width, second.Height)
	}
	if first.Format != "jpeg" {
		t.Errorf("Format: got %s, want jpeg", first.Format)
	}
}

func TestNormalize_ResizedImageEncodedOnce(t *testing.T) {
	p := newTestPipeline(t)
	src := image.NewRGBA(image.Rect(0, 0, 1300, 700))
	for y := 0; y < 700; y++ {
		for x := 0; x < 1300; x++ {
			src.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), uint8((x + y) % 256), 255})
		}
	}
	var in bytes.Buffer
	if err := jpeg.Encode(&in, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}

	res, err := p.Normalize(in.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !res.Resized {
		t.Fatal("expected resize")
	}

	// Decode, scale and a single encode at the profile quality.
	decoded, err := imaging.Decode(bytes.NewReader(in.Bytes()))
	if err != nil {
		t.Fatalf("failed to decode source: %v", err)
	}
	w, h := FitInside(1300, 700, 512, 512)
	scaled := imaging.Resize(decoded, w, h, imaging.Lanczos)
	var want bytes.Buffer
	if err := imaging.Encode(&want, flatten(scaled, color.White), imaging.JPEG, imaging.JPEGQuality(DefaultQuality)); err != nil {
		t.Fatalf("failed to encode expected image: %v", err)
	}

	if !bytes.Equal(res.Data, want.Bytes()) {
		t.Errorf("resized output (%d bytes) is not a single encode at quality %d (%d bytes)",
			len(res.Data), DefaultQuality, want.Len())
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestNormalize_CallerHint(t *testing.T) {
	p := newTestPipeline(t)
	data := encodePNG(t, 1920, 1080, color.Black)

	res, err := p.Normalize(data, Options{MaxWidth: 256, MaxHeight: 256})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if res.Width != 256 || res.Height != 144 {
		t.Errorf("dimensions: got %dx%d, want 256x144", res.Width, res.Height)
	}
}

func TestNormalize_HintAboveHardMax(t *testing.T) {
	p := newTestPipeline(t)
	data := encodePNG(t, 1600, 1600, color.Black)

	res, err := p.Normalize(data, Options{MaxWidth: 800, MaxHeight: 800})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if res.Width != 512 || res.Height != 512 {
		t.Errorf("dimensions: got %dx%d, want 512x512", res.Width, res.Height)
	}
}

func TestNormalize_KeepDimensions(t *testing.T) {
	p := newTestPipeline(t)
	data := encodePNG(t, 1024, 768, color.White)

	res, err := p.Normalize(data, Options{KeepDimensions: true})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if res.Resized || res.Width != 1024 || res.Height != 768 {
		t.Errorf("got %dx%d resized=%v, want 1024x768 unresized", res.Width, res.Height, res.Resized)
	}
}

func TestNormalize_NoDimensionsPassThrough(t *testing.T) {
	p := newTestPipeline(t)
	data := []byte(testSVG)

	res, err := p.Normalize(data, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("svg bytes should pass through unchanged")
	}
	if res.Width != 0 || res.Height != 0 || res.Resized {
		t.Errorf("got %dx%d resized=%v, want 0x0 unresized", res.Width, res.Height, res.Resized)
	}
	if res.Format != "svg" {
		t.Errorf("Format: got %s, want svg", res.Format)
	}
}

func TestNormalize_CompressionFailureKeepsBuffer(t *testing.T) {
	p := newTestPipeline(t)
	valid := encodePNG(t, 40, 40, color.White)
	// Header intact, pixel data cut short: probing succeeds, decoding fails.
	corrupt := append([]byte(nil), valid[:len(valid)-20]...)
	original := append([]byte(nil), corrupt...)

	res, err := p.Normalize(corrupt, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !bytes.Equal(res.Data, original) {
		t.Error("expected the pre-compression buffer after a compression failure")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Stage != "compression" {
		t.Errorf("expected one compression warning, got %+v", res.Warnings)
	}
	if !bytes.Equal(corrupt, original) {
		t.Error("input buffer was modified")
	}
}

func TestNormalize_FallbackProfileIsJPEG(t *testing.T) {
	p := newTestPipeline(t)
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, newTestImage(60, 40, color.RGBA{200, 100, 50, 255})); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}

	res, err := p.Normalize(buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if res.Format != "jpeg" || res.MimeType != "image/jpeg" {
		t.Errorf("format: got %s (%s), want jpeg", res.Format, res.MimeType)
	}
	if res.OriginalFormat != "bmp" {
		t.Errorf("OriginalFormat: got %s, want bmp", res.OriginalFormat)
	}
	if res.Width != 60 || res.Height != 40 {
		t.Errorf("dimensions: got %dx%d, want 60x40", res.Width, res.Height)
	}
}

func TestNormalize_DecodeFailure(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.Normalize([]byte("definitely not an image"), Options{}); err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		format      string
		want        string
		passthrough bool
	}{
		{"jpeg", "jpeg", false},
		{"png", "png", false},
		{"webp", "webp", false},
		{"avif", "avif", false},
		{"tiff", "tiff", false},
		{"gif", "gif", true},
		{"svg", "svg", true},
		{"bmp", "jpeg", false},
		{"heic", "jpeg", false},
	}
	for _, tt := range tests {
		p := ProfileFor(tt.format)
		if p.Format != tt.want || p.Passthrough != tt.passthrough {
			t.Errorf("ProfileFor(%q) = %+v, want format %s passthrough %v", tt.format, p, tt.want, tt.passthrough)
		}
		if !p.Passthrough && p.Quality != DefaultQuality {
			t.Errorf("ProfileFor(%q).Quality = %d, want %d", tt.format, p.Quality, DefaultQuality)
		}
	}
}

func TestFlatten(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	out := flatten(transparent, color.White)

	r, g, b, a := out.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("flattened pixel: got (%d,%d,%d,%d), want opaque white", r>>8, g>>8, b>>8, a>>8)
	}

	opaque := newTestImage(2, 2, color.Black)
	if flatten(opaque, color.White) != image.Image(opaque) {
		t.Error("opaque images should be returned unchanged")
	}
}

func TestParseBackground(t *testing.T) {
	c, err := ParseBackground("#ff0000")
	if err != nil {
		t.Fatalf("ParseBackground failed: %v", err)
	}
	r, g, b, _ := c.RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("got (%d,%d,%d), want (255,0,0)", r>>8, g>>8, b>>8)
	}

	if c, err := ParseBackground(""); err != nil || c != DefaultBackground {
		t.Errorf("empty string: got %v, %v; want DefaultBackground", c, err)
	}
	if _, err := ParseBackground("not-a-color"); err == nil {
		t.Error("expected error for invalid color")
	}
}
