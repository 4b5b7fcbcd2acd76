package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/gen2brain/webp"
	"go.uber.org/zap"

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// saveQuality is the lossy quality used for persisted screenshots.
const saveQuality = 90

// SaveFormats lists the output formats accepted by Saver.Save.
var SaveFormats = []string{"png", "jpg", "jpeg", "webp"}

// SaveResult describes a persisted image.
type SaveResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Saver writes decoded images to a directory on disk.
type Saver struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewSaver creates a Saver rooted at dir. The directory is created on first use.
func NewSaver(dir string, logger *zap.Logger) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the destination directory.
func (s *Saver) Dir() string {
	return s.dir
}

// Save decodes data and writes it as <name>.<format> under the Saver's directory.
//
// Parameters:
//   - data: Encoded source image in any registered format.
//   - name: Base file name without directories. A known image extension is
//     stripped. Empty selects "screenshot-<UTC timestamp>", with a numeric
//     suffix when that file already exists.
//   - format: One of SaveFormats; empty means "png".
//
// The reported Size is the size of the written file as seen on disk.
func (s *Saver) Save(data []byte, name, format string) (*SaveResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "png"
	}
	encoder, err := saveEncoder(format)
	if err != nil {
		return nil, err
	}

	base, generated, err := s.fileBase(name)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, toolerr.Wrap(toolerr.DecodeFailure, err, "failed to decode image")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, toolerr.Wrap(toolerr.Internal, err, "failed to create screenshots directory")
	}

	f, path, err := s.create(base, format, generated)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.Internal, err, "failed to create output file")
	}
	if err := writeImage(f, img, encoder); err != nil {
		os.Remove(path)
		return nil, toolerr.Wrap(toolerr.Internal, err, "failed to write "+path)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.logger.Info("saved screenshot", zap.String("path", abs), zap.Int64("size", stat.Size()))

	b := img.Bounds()
	return &SaveResult{
		Path:   abs,
		Format: format,
		Size:   stat.Size(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// maxNameAttempts bounds the numeric suffixes tried for generated names.
const maxNameAttempts = 100

// create opens the output file. Caller-chosen names are overwritten.
// Generated names never replace an existing file: a "-1", "-2", ... suffix is
// added until an unused name is found.
func (s *Saver) create(base, format string, generated bool) (*os.File, string, error) {
	if !generated {
		path := filepath.Join(s.dir, base+"."+format)
		f, err := os.Create(path)
		return f, path, err
	}

	for i := 0; i < maxNameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		path := filepath.Join(s.dir, candidate+"."+format)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s.%s after %d attempts", base, format, maxNameAttempts)
}

func writeImage(f *os.File, img image.Image, encoder imgio.Encoder) error {
	if err := encoder(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fileBase returns the base name for the output file and whether it was
// generated from the clock.
func (s *Saver) fileBase(name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		stamp := strings.ReplaceAll(s.now().UTC().Format("20060102-150405.000"), ".", "")
		return "screenshot-" + stamp, true, nil
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false, toolerr.New(toolerr.InvalidInput, "invalid filename %q: must not contain path separators", name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".avif":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if name == "" {
		return "", false, toolerr.New(toolerr.InvalidInput, "invalid filename: empty base name")
	}
	return name, false, nil
}

func saveEncoder(format string) (imgio.Encoder, error) {
	switch format {
	case "png":
		return imgio.PNGEncoder(), nil
	case "jpg", "jpeg":
		return imgio.JPEGEncoder(saveQuality), nil
	case "webp":
		return func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: saveQuality})
		}, nil
	default:
		return nil, toolerr.New(toolerr.InvalidInput, "unsupported format %q: expected one of %s",
			format, strings.Join(SaveFormats, ", "))
	}
}
