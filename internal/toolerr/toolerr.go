// Package toolerr defines the error kinds surfaced by the image tools.
//
// Every stage (policy, acquisition, normalization, persistence) returns a
// *Error carrying one Kind so the server can report a readable message and
// count failures by category. Causes are wrapped and remain reachable through
// errors.Is and errors.As.
package toolerr

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure.
type Kind string

const (
	InvalidInput       Kind = "invalid_input"
	NotFound           Kind = "not_found"
	SizeExceeded       Kind = "size_exceeded"
	DecodeFailure      Kind = "decode_failure"
	AcquisitionFailure Kind = "acquisition_failure"
	Internal           Kind = "internal"
)

// Error is a classified tool failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, prefixing msg. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Warning records a best-effort step that failed without failing the request.
// It travels alongside the fallback value the step produced.
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}
