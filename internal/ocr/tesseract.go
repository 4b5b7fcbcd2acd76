//go:build cgo

package ocr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Available reports whether Recognize can run.
func Available() bool {
	return true
}

// Recognize runs Tesseract over an encoded image and returns the recognized text.
//
// Parameters:
//   - data: Encoded image bytes (PNG, JPEG, TIFF, BMP, ...).
//   - language: Tesseract language code(s), e.g. "eng" or "eng+deu". Empty
//     selects DefaultLanguage.
//
// A new Tesseract client is created per call; clients are not shared between
// goroutines.
func (r *Recognizer) Recognize(data []byte, language string) (*Result, error) {
	if len(data) == 0 {
		return nil, errors.New("ocr: empty image")
	}

	langs := languages(language)

	client := gosseract.NewClient()
	defer client.Close()

	if dir := r.tessdataFor(langs); dir != "" {
		if err := client.SetTessdataPrefix(dir); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	return &Result{
		Text:     strings.TrimSpace(text),
		Language: strings.Join(langs, "+"),
	}, nil
}
