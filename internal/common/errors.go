package common

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies pipeline failures.
type Code string

const (
	CodeUnsupportedFileType    Code = "UNSUPPORTED_FILE_TYPE"
	CodeUnreadableDocument     Code = "UNREADABLE_DOCUMENT"
	CodeConversionFailure      Code = "CONVERSION_FAILURE"
	CodePreprocessingFailure   Code = "PREPROCESSING_FAILURE"
	CodeRecognitionFailure     Code = "RECOGNITION_FAILURE"
	CodeAggregationFailure     Code = "AGGREGATION_FAILURE"
	CodeArtifactCleanupFailure Code = "ARTIFACT_CLEANUP_FAILURE"
	CodeJobCancelled           Code = "JOB_CANCELLED"
	CodeConfig                 Code = "CONFIG_ERROR"
	CodeInvalidInput           Code = "INVALID_INPUT"
)

// AppError represents application-specific errors.
// Message is safe to show to callers; Cause keeps the raw tool or engine error.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so the sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrUnsupportedFileType    = &AppError{Code: CodeUnsupportedFileType, Message: "unsupported file type"}
	ErrUnreadableDocument     = &AppError{Code: CodeUnreadableDocument, Message: "document could not be read"}
	ErrConversionFailure      = &AppError{Code: CodeConversionFailure, Message: "pdf conversion failed"}
	ErrPreprocessingFailure   = &AppError{Code: CodePreprocessingFailure, Message: "image preprocessing failed"}
	ErrRecognitionFailure     = &AppError{Code: CodeRecognitionFailure, Message: "text recognition failed"}
	ErrAggregationFailure     = &AppError{Code: CodeAggregationFailure, Message: "no usable text produced"}
	ErrArtifactCleanupFailure = &AppError{Code: CodeArtifactCleanupFailure, Message: "temporary file cleanup failed"}
	ErrJobCancelled           = &AppError{Code: CodeJobCancelled, Message: "job cancelled"}
	ErrInvalidInput           = &AppError{Code: CodeInvalidInput, Message: "invalid input"}
)

// NewAppError constructs an AppError.
func NewAppError(code Code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// SafeMessage renders err for callers without leaking raw tool output.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("%s: %s", appErr.Code, appErr.Message)
	}
	return "internal error"
}

// FromContext translates a context error into a JOB_CANCELLED AppError.
func FromContext(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError(CodeJobCancelled, "job timed out", err)
	case errors.Is(err, context.Canceled):
		return NewAppError(CodeJobCancelled, "job cancelled", err)
	}
	return err
}
