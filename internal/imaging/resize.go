package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Resize decodes data and scales it to exactly width x height with a Lanczos
// filter. The caller encodes the result.
//
// The input buffer is never modified.
func Resize(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for resize: %w", err)
	}

	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}
