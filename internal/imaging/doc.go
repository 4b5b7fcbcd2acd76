// Package imaging normalizes encoded images into a bounded, model-consumable form.
//
// The normalization pipeline probes a buffer for its format and intrinsic
// dimensions, computes a per-axis bound, scales the image down when it does
// not fit (preserving aspect ratio, never enlarging) and re-encodes it with a
// format-specific compression profile. Decoding, resizing and encoding are
// delegated to github.com/disintegration/imaging, golang.org/x/image and the
// gen2brain WebP/AVIF codecs.
//
// # Bounds
//
// Each axis is bounded by min(original, hint, MaxDimension). Caller hints can
// tighten the bound but never raise it above the pipeline's hard maximum
// (512 pixels by default). For example, a 1920x1080 image becomes 512x288.
//
// # Compression Profiles
//
//   - jpeg, webp, avif: quality 80
//   - png: maximum compression level
//   - tiff: deflate
//   - gif, svg: passed through unchanged
//   - anything else: re-encoded as JPEG quality 80
//
// Compression is best effort. When it fails the pre-compression buffer is
// kept and a Warning is attached to the Result. When an image did not need
// resizing and compression does not make it smaller, the original bytes are
// kept.
//
// # Passthrough
//
// Image formats without a decoder (SVG, ICO, HEIC) are probed by content
// sniffing only. They report zero dimensions and skip both resizing and
// compression.
//
// # Buffers
//
// No function in this package modifies its input slice. Each step returns
// a new buffer so a failed step can fall back to the previous one.
//
// # Persistence
//
// Saver writes decoded images to disk as PNG, JPEG or WebP using the bild
// imgio encoders. It backs the save_screenshot tool.
package imaging
