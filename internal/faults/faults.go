// Package faults holds the coded failures of the analysis pipeline.
//
// A DocumentFault never leaves the document it happened on; the batch turns it
// into an Error record. A BootstrapFault is the only failure that stops a batch.
package faults

import (
	"fmt"
	"strings"
	"time"
)

type Code string

const (
	CodeRasterize   Code = "RASTERIZE_FAILED"
	CodeDetect      Code = "DETECTION_FAILED"
	CodeRecognize   Code = "RECOGNITION_FAILED"
	CodeOCRTimeout  Code = "OCR_TIMEOUT"
	CodeReference   Code = "REFERENCE_FAILED"
	CodePanic       Code = "UNEXPECTED_PANIC"
	CodeEngineSetup Code = "ENGINE_BOOTSTRAP_FAILED"
)

// DocumentFault is an unexpected failure while analysing one document.
type DocumentFault struct {
	Code      Code
	Stage     string
	Document  string
	Message   string
	Timestamp time.Time
	Cause     error
}

func (e *DocumentFault) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %s (caused by: %v)", e.Code, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Stage, e.Message)
}

func (e *DocumentFault) Unwrap() error {
	return e.Cause
}

func NewDocumentFault(code Code, stage, document string, cause error) *DocumentFault {
	return &DocumentFault{
		Code:      code,
		Stage:     stage,
		Document:  document,
		Message:   messageFor(code),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewPanicFault(stage, document string, recovered any) *DocumentFault {
	return &DocumentFault{
		Code:      CodePanic,
		Stage:     stage,
		Document:  document,
		Message:   fmt.Sprintf("recovered panic: %v", recovered),
		Timestamp: time.Now(),
	}
}

func messageFor(code Code) string {
	switch code {
	case CodeRasterize:
		return "could not rasterize first page"
	case CodeDetect:
		return "printed text detection failed"
	case CodeRecognize:
		return "handwriting recognition failed"
	case CodeOCRTimeout:
		return "recognition engine did not answer in time"
	case CodeReference:
		return "reference time lookup failed"
	default:
		return "unexpected failure"
	}
}

// Attempt records one engine initialisation try.
type Attempt struct {
	Languages []string
	Err       error
}

// BootstrapFault means no language configuration could start the engine.
type BootstrapFault struct {
	Engine   string
	Attempts []Attempt
}

func (e *BootstrapFault) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("[%s]: %v", strings.Join(a.Languages, "+"), a.Err))
	}
	return fmt.Sprintf("%s: engine %s unavailable: %s", CodeEngineSetup, e.Engine, strings.Join(parts, "; "))
}

// Unwrap exposes the error of the last attempt.
func (e *BootstrapFault) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
