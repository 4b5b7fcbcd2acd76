package ocr

import (
	"os"
	"path/filepath"
)

// Recognizer runs OCR against a fixed set of tessdata candidates.
type Recognizer struct {
	tessdataDir string
	exeDir      func() string
}

// NewRecognizer creates a Recognizer. tessdataDir is tried first when set.
// After it comes a "tessdata" directory next to the executable, and then
// Tesseract's own default, which honors TESSDATA_PREFIX.
func NewRecognizer(tessdataDir string) *Recognizer {
	return &Recognizer{tessdataDir: tessdataDir, exeDir: executableDir}
}

// Recognize runs OCR with a Recognizer that has no configured tessdata directory.
func Recognize(data []byte, language string) (*Result, error) {
	return NewRecognizer("").Recognize(data, language)
}

// tessdataFor returns the first candidate directory holding a traineddata
// file for every language, or "" to leave the choice to Tesseract.
func (r *Recognizer) tessdataFor(langs []string) string {
	candidates := []string{r.tessdataDir}
	if dir := r.exeDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "tessdata"))
	}
	for _, dir := range candidates {
		if dir != "" && hasTraineddata(dir, langs) {
			return dir
		}
	}
	return ""
}

func hasTraineddata(dir string, langs []string) bool {
	for _, l := range langs {
		if _, err := os.Stat(filepath.Join(dir, l+".traineddata")); err != nil {
			return false
		}
	}
	return true
}

// executableDir returns the directory of the running binary with symlinks
// resolved, or "" when it cannot be determined.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
