package summarizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/apisummarizer/internal/classfile"
)

// ErrDuplicateClass is returned under DuplicateReject when two inputs declare
// the same binary name.
var ErrDuplicateClass = errors.New("duplicate class")

// ErrorKind classifies why an input failed.
type ErrorKind string

const (
	KindFormat      ErrorKind = "format"
	KindTruncation  ErrorKind = "truncation"
	KindUnsupported ErrorKind = "unsupported"
	KindResource    ErrorKind = "resource"
	KindDuplicate   ErrorKind = "duplicate"
	KindCancelled   ErrorKind = "cancelled"
)

// Resource operations reported by ResourceError.
const (
	OpOpen  = "open"
	OpRead  = "read"
	OpClose = "close"
)

// ResourceError reports a failure to open, read or close an input stream.
type ResourceError struct {
	Op    string
	Input string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Input, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// InputError identifies the input that failed by its position in the
// provider list and its name. It unwraps to the underlying cause.
type InputError struct {
	Index int
	Input string
	Kind  ErrorKind
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input #%d (%s): %s: %v", e.Index, e.Input, e.Kind, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func newInputError(index int, input string, err error) *InputError {
	return &InputError{Index: index, Input: input, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	var (
		truncationErr  *classfile.TruncationError
		unsupportedErr *classfile.UnsupportedFeatureError
		resourceErr    *ResourceError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrDuplicateClass):
		return KindDuplicate
	case errors.As(err, &resourceErr):
		return KindResource
	case errors.As(err, &truncationErr):
		return KindTruncation
	case errors.As(err, &unsupportedErr):
		return KindUnsupported
	default:
		// *classfile.FormatError and builder ordering errors
		return KindFormat
	}
}
