// Package ocr extracts text from normalized images using Tesseract.
//
// On builds with cgo enabled this wraps the Tesseract engine through
// gosseract/v2. Builds without cgo compile a stub whose Recognize always
// returns ErrUnavailable, so text extraction degrades to a warning instead of
// failing the tool call.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Languages
//
// The default language is English ("eng"). Other Tesseract language codes
// ("deu", "fra", "chi_sim", ...) work when their data files are installed.
// Several languages may be combined with "+", e.g. "eng+deu".
package ocr
