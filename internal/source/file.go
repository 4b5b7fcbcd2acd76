package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

var extensionMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
}

// MIMEFromExtension maps a file name to its image MIME type by extension.
func MIMEFromExtension(path string) string {
	if m, ok := extensionMIME[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return DefaultFileMIME
}

func (a *Acquirer) acquireFile(r FileRequest) (*Raw, error) {
	path, err := expandHome(strings.TrimSpace(r.Path))
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, toolerr.New(toolerr.NotFound, "file not found: %s", path)
		}
		return nil, toolerr.Wrap(toolerr.AcquisitionFailure, err, "cannot access file")
	}
	if info.IsDir() {
		return nil, toolerr.New(toolerr.InvalidInput, "path is a directory, not a file: %s", path)
	}
	if err := a.guard.CheckSize(info.Size()); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to open file")
	}
	defer f.Close()

	// The file may have grown since Stat.
	data, err := a.guard.ReadAll(f)
	if err != nil {
		if toolerr.Is(err, toolerr.SizeExceeded) {
			return nil, err
		}
		return nil, toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to read file")
	}
	return &Raw{Bytes: data, MimeType: MIMEFromExtension(path), Source: SourceFile}, nil
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", toolerr.New(toolerr.InvalidInput, "file path is required")
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", toolerr.Wrap(toolerr.InvalidInput, err, "cannot expand home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
