//go:build !cgo

package ocr

// Available reports whether Recognize can run.
func Available() bool {
	return false
}

// Recognize always fails with ErrUnavailable on builds without cgo.
func (r *Recognizer) Recognize(data []byte, language string) (*Result, error) {
	return nil, ErrUnavailable
}
