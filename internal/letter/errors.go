package letter

import (
	"errors"
	"fmt"
)

// Taxonomy kinds. Compare with errors.Is.
var (
	ErrPermission    = errors.New("permission denied")
	ErrTranscription = errors.New("transcription failed")
	ErrGeneration    = errors.New("generation failed")
	ErrExport        = errors.New("export failed")
	ErrValidation    = errors.New("invalid input")
)

var kinds = []error{ErrPermission, ErrTranscription, ErrGeneration, ErrExport, ErrValidation}

// Error attaches a taxonomy kind and the failing operation to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a message.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the taxonomy sentinel carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is a short machine readable name for the kind of err.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrPermission:
		return "permission"
	case ErrTranscription:
		return "transcription"
	case ErrGeneration:
		return "generation"
	case ErrExport:
		return "export"
	case ErrValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Stage describes, for a notification line, which pipeline stage failed.
func Stage(err error) string {
	switch KindOf(err) {
	case ErrPermission:
		return "Microphone access failed"
	case ErrTranscription:
		return "Transcription failed"
	case ErrGeneration:
		return "Letter generation failed"
	case ErrExport:
		return "Export failed"
	case ErrValidation:
		return "Nothing to work with"
	default:
		return "Unexpected error"
	}
}
