package resources

import (
	"errors"
	"fmt"
)

// ErrInvalidHandle is returned for handles whose entry was released or
// destroyed, and for the zero Handle.
var ErrInvalidHandle = errors.New("resources: invalid handle")

// LoadErrorKind classifies load failures.
type LoadErrorKind int

const (
	NotFound LoadErrorKind = iota
	DecodeFailure
	UnsupportedFormat
)

func (k LoadErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case DecodeFailure:
		return "decode failure"
	case UnsupportedFormat:
		return "unsupported format"
	}
	return "unknown"
}

// LoadError reports a failed Load. Nothing is cached for a failed source.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resources: load %q: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("resources: load %q: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
