package ocr

import (
	"errors"
	"strings"
)

// DefaultLanguage is the Tesseract language used when none is requested.
const DefaultLanguage = "eng"

// ErrUnavailable is returned when the binary was built without Tesseract support.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in (build with cgo)")

// Result contains text recognized in an image.
type Result struct {
	// Text is all recognized text with Tesseract's line breaks, trimmed.
	Text string `json:"text"`

	// Language is the language set used for recognition.
	Language string `json:"language"`
}

// languages splits a "eng+deu" language list, defaulting to DefaultLanguage.
func languages(list string) []string {
	var out []string
	for _, l := range strings.Split(list, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		out = []string{DefaultLanguage}
	}
	return out
}
