// Package docerr defines the error taxonomy shared by every document operation.
// Each failure carries the stage that produced it and one of the sentinel kinds
// below, so callers can branch with errors.Is and users get a message naming
// which stage failed and why.
package docerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument marks malformed, encrypted or unsupported input.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrConversion marks a failed format translation.
	ErrConversion = errors.New("conversion failed")

	// ErrExtraction marks a failed text extraction on an otherwise readable document.
	ErrExtraction = errors.New("extraction failed")

	// ErrInference marks a question the model could not answer.
	ErrInference = errors.New("inference failed")

	// ErrEnvironment marks a missing external renderer or dependency.
	ErrEnvironment = errors.New("environment unavailable")

	// ErrIO marks a temporary storage read or write failure.
	ErrIO = errors.New("i/o failure")
)

// Stage names used across the services.
const (
	StageMerge     = "merge"
	StagePDFToWord = "pdf-to-word"
	StageWordToPDF = "word-to-pdf"
	StageExtract   = "extract"
	StageAnswer    = "answer"
	StageUpload    = "upload"
)

// Error is a classified failure.
type Error struct {
	Stage string
	Kind  error
	Err   error
}

// New classifies err under kind for the given stage.
func New(stage string, kind, err error) error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// Errorf is New with a formatted cause.
func Errorf(stage string, kind error, format string, args ...any) error {
	return &Error{Stage: stage, Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var kinds = []error{
	ErrInvalidDocument,
	ErrConversion,
	ErrExtraction,
	ErrInference,
	ErrEnvironment,
	ErrIO,
}

// KindOf returns the outermost classification of err, or nil if err was never classified.
func KindOf(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// StageOf returns the stage recorded on the outermost classified error.
func StageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// KindName returns a stable identifier for a kind, used in API responses and job records.
func KindName(kind error) string {
	switch kind {
	case ErrInvalidDocument:
		return "InvalidDocument"
	case ErrConversion:
		return "ConversionError"
	case ErrExtraction:
		return "ExtractionError"
	case ErrInference:
		return "InferenceError"
	case ErrEnvironment:
		return "EnvironmentError"
	case ErrIO:
		return "IOError"
	default:
		return "InternalError"
	}
}
