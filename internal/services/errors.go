package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrFetch         = errors.New("fetch error")
	ErrTranscode     = errors.New("transcode error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Stage identifies which part of a job produced a failure.
type Stage string

const (
	StageValidation Stage = "validation"
	StageFetch      Stage = "fetch"
	StageTranscode  Stage = "transcode"
)

// Marker returns the sentinel error associated with the stage.
func (s Stage) Marker() error {
	switch s {
	case StageValidation:
		return ErrValidation
	case StageFetch:
		return ErrFetch
	case StageTranscode:
		return ErrTranscode
	default:
		return nil
	}
}

// Failure is the single error type a job returns. Message is the complete
// text shown to end users; Diagnostics carries the tail of the failing
// process output and Err the underlying cause.
type Failure struct {
	Stage       Stage
	Message     string
	Diagnostics string
	Err         error
}

// NewFailure builds a Failure for the given stage.
func NewFailure(stage Stage, message, diagnostics string, err error) *Failure {
	return &Failure{
		Stage:       stage,
		Message:     strings.TrimSpace(message),
		Diagnostics: strings.TrimSpace(diagnostics),
		Err:         err,
	}
}

// Validation reports bad or missing input detected before any process starts.
func Validation(message string) *Failure {
	return NewFailure(StageValidation, message, "", nil)
}

func (f *Failure) Error() string {
	detail := buildDetail(string(f.Stage), "", f.Message)
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", detail, f.Err)
	}
	return detail
}

// Unwrap exposes both the stage marker and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if marker := f.Stage.Marker(); marker != nil {
		errs = append(errs, marker)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// ErrorKind implements the classifier contract used by history and metrics.
func (f *Failure) ErrorKind() string {
	return string(f.Stage)
}

// UserMessage renders the text returned to HTTP clients and printed by the CLI.
func (f *Failure) UserMessage() string {
	if f.Diagnostics == "" {
		return f.Message
	}
	return f.Message + "\n\n" + f.Diagnostics
}

// ErrorClassifier lets errors declare a classification without importing
// this package's concrete types.
type ErrorClassifier interface {
	ErrorKind() string
}

// StageOf reports the failure stage carried by err, if any.
func StageOf(err error) (Stage, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Stage, true
	}
	switch {
	case errors.Is(err, ErrValidation):
		return StageValidation, true
	case errors.Is(err, ErrFetch):
		return StageFetch, true
	case errors.Is(err, ErrTranscode):
		return StageTranscode, true
	}
	return "", false
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "job failure"
	}
	return strings.Join(parts, ": ")
}
