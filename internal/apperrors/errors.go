package apperrors

import (
	"errors"
	"fmt"
)

// InputFormatError indicates an upload that cannot be processed at all:
// unsupported extension, unparseable or empty dataset, missing required columns.
type InputFormatError struct {
	Reason string
	Err    error
}

func (e *InputFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// ExtractionError indicates a document container that opened fine but
// produced no usable text.
type ExtractionError struct {
	Source string
	Reason string
}

func (e *ExtractionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("extraction failed for %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

// RenderError wraps any failure while assembling a workbook or deck.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Input builds an InputFormatError without a cause.
func Input(reason string) error { return &InputFormatError{Reason: reason} }

// Inputf builds an InputFormatError with a formatted reason.
func Inputf(format string, args ...any) error {
	return &InputFormatError{Reason: fmt.Sprintf(format, args...)}
}

// Render wraps err as a RenderError for the given stage. A nil err stays nil.
func Render(stage string, err error) error {
	if err == nil {
		return nil
	}
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Stage: stage, Err: err}
}

// Error codes recorded on failed jobs and used as metric labels.
const (
	CodeInputFormat = "input_format"
	CodeExtraction  = "extraction"
	CodeRender      = "render"
	CodeInternal    = "internal"
)

// Code classifies err into one of the Code* constants; nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	var ie *InputFormatError
	var ee *ExtractionError
	var re *RenderError
	switch {
	case errors.As(err, &ie):
		return CodeInputFormat
	case errors.As(err, &ee):
		return CodeExtraction
	case errors.As(err, &re):
		return CodeRender
	default:
		return CodeInternal
	}
}
