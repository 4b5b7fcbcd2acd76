package imaging

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// Result is a normalized image.
//
// Width and Height never exceed the bounds computed for the request unless the
// source had no decodable dimensions, in which case Data is the original
// buffer.
type Result struct {
	Data   []byte
	Width  int
	Height int
	Format string

	// MimeType is the MIME type of Data's encoding.
	MimeType string

	OriginalWidth  int
	OriginalHeight int
	OriginalFormat string
	OriginalSize   int

	// Resized is true when the image was scaled down.
	Resized bool

	// Warnings lists degraded steps, such as a failed compression.
	Warnings []toolerr.Warning
}

// Size returns the byte length of the normalized image.
func (r *Result) Size() int {
	return len(r.Data)
}

// Pipeline bounds and re-encodes images for model consumption.
//
// A Pipeline holds only immutable settings and is safe for concurrent use.
type Pipeline struct {
	maxDimension int
	background   color.Color
	logger       *zap.Logger
}

// NewPipeline creates a Pipeline that clamps both axes to maxDimension and
// flattens transparency onto background when re-encoding to JPEG.
func NewPipeline(maxDimension int, background color.Color, logger *zap.Logger) *Pipeline {
	if background == nil {
		background = DefaultBackground
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		maxDimension: maxDimension,
		background:   background,
		logger:       logger,
	}
}

// MaxDimension returns the hard per-axis bound.
func (p *Pipeline) MaxDimension() int {
	return p.maxDimension
}

// Normalize probes, bounds and compresses an encoded image.
//
// Steps:
//  1. Probe format and dimensions. A failed probe fails the request.
//  2. Images without dimensions pass through unchanged.
//  3. Compute per-axis bounds. When an axis exceeds its bound, resize and
//     encode the scaled image once with the format's compression profile,
//     then re-probe the result.
//  4. Otherwise compress with the format's profile. A compression failure
//     is recorded as a warning and the original buffer is kept, as is a
//     result that is not smaller.
//
// data is never modified; every step produces a new buffer.
func (p *Pipeline) Normalize(data []byte, opts Options) (*Result, error) {
	info, err := Probe(data)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Data:           data,
		Width:          info.Width,
		Height:         info.Height,
		Format:         info.Format,
		MimeType:       info.MimeType,
		OriginalWidth:  info.Width,
		OriginalHeight: info.Height,
		OriginalFormat: info.Format,
		OriginalSize:   len(data),
	}

	if !info.HasDimensions() {
		p.logger.Debug("image has no decodable dimensions, passing through",
			zap.String("format", info.Format), zap.Int("size", len(data)))
		return res, nil
	}

	if !opts.KeepDimensions {
		boundW, boundH := Bounds(info.Width, info.Height, opts, p.maxDimension)
		if info.Width > boundW || info.Height > boundH {
			targetW, targetH := FitInside(info.Width, info.Height, boundW, boundH)
			img, err := Resize(res.Data, targetW, targetH)
			if err != nil {
				return nil, toolerr.Wrap(toolerr.DecodeFailure, err, "failed to resize image")
			}
			resized, err := p.encodeResized(res, img)
			if err != nil {
				return nil, toolerr.Wrap(toolerr.DecodeFailure, err, "failed to encode resized image")
			}
			after, err := Probe(resized)
			if err != nil {
				return nil, err
			}
			p.logger.Debug("resized image",
				zap.Int("from_width", info.Width), zap.Int("from_height", info.Height),
				zap.Int("to_width", after.Width), zap.Int("to_height", after.Height))
			res.apply(resized, after)
			res.Resized = true
			return res, nil
		}
	}

	p.compress(res)
	return res, nil
}

// encodeResized encodes a resized image once with its compression profile.
// When that fails a warning is recorded and the image is encoded in its
// source format instead.
func (p *Pipeline) encodeResized(res *Result, img image.Image) ([]byte, error) {
	data, _, err := CompressImage(img, res.Format, p.background)
	if err == nil {
		return data, nil
	}
	p.warn(res, "compression", "compression failed, using uncompressed image", err)
	return encodeIntermediate(img, res.Format, p.background)
}

func (p *Pipeline) compress(res *Result) {
	if ProfileFor(res.Format).Passthrough {
		return
	}
	compressed, _, err := Compress(res.Data, res.Format, p.background)
	if err != nil {
		p.warn(res, "compression", "compression failed, using uncompressed image", err)
		return
	}
	if len(compressed) >= len(res.Data) {
		p.logger.Debug("compression did not reduce size, keeping original",
			zap.String("format", res.Format), zap.Int("original", len(res.Data)), zap.Int("compressed", len(compressed)))
		return
	}

	info, err := Probe(compressed)
	if err != nil {
		p.warn(res, "compression", "compressed image is unreadable, using uncompressed image", err)
		return
	}
	res.apply(compressed, info)
}

func (p *Pipeline) warn(res *Result, stage, msg string, err error) {
	p.logger.Warn(msg, zap.String("stage", stage), zap.String("format", res.Format), zap.Error(err))
	res.Warnings = append(res.Warnings, toolerr.Warning{Stage: stage, Message: msg + ": " + err.Error()})
}

func (r *Result) apply(data []byte, info *ImageInfo) {
	r.Data = data
	r.Width = info.Width
	r.Height = info.Height
	r.Format = info.Format
	r.MimeType = info.MimeType
}
