package imaging

import "math"

// Options are the caller's sizing hints for one normalization.
type Options struct {
	// MaxWidth and MaxHeight request a tighter bound than the pipeline's hard
	// maximum. Zero or negative means "use the hard maximum". Hints can only
	// shrink the bound, never raise it.
	MaxWidth  int
	MaxHeight int

	// KeepDimensions skips bounding entirely. Used for screenshots captured
	// with resize disabled so the viewport size is preserved.
	KeepDimensions bool
}

// Bounds returns the per-axis bound for an image of the given size:
// min(original, hint capped by hardMax).
func Bounds(width, height int, opts Options, hardMax int) (int, int) {
	return axisBound(width, opts.MaxWidth, hardMax), axisBound(height, opts.MaxHeight, hardMax)
}

func axisBound(original, hint, hardMax int) int {
	bound := hardMax
	if hint > 0 && hint < bound {
		bound = hint
	}
	if original < bound {
		return original
	}
	return bound
}

// FitInside computes the largest size that fits inside maxW x maxH while
// preserving the aspect ratio of width x height. It never upscales: an image
// already within the box keeps its size. The scaled axis is rounded to the
// nearest pixel and never drops below 1.
func FitInside(width, height, maxW, maxH int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if width <= maxW && height <= maxH {
		return width, height
	}

	scale := math.Min(float64(maxW)/float64(width), float64(maxH)/float64(height))
	newW := clamp(int(math.Round(float64(width)*scale)), 1, maxW)
	newH := clamp(int(math.Round(float64(height)*scale)), 1, maxH)
	return newW, newH
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
