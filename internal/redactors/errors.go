// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProportion is returned for a proportion outside (0, 1]
var ErrInvalidProportion = errors.New("redaction proportion must be in (0, 1]")

// RedactionErrorType defines the type of redaction error
type RedactionErrorType int

const (
	// ErrorDocumentProcessing indicates a document processing failure
	ErrorDocumentProcessing RedactionErrorType = iota

	// ErrorFileSystem indicates a file system operation failure
	ErrorFileSystem

	// ErrorConfiguration indicates a configuration error
	ErrorConfiguration

	// ErrorValidation indicates a validation error
	ErrorValidation
)

// String returns the string representation of the error type
func (ret RedactionErrorType) String() string {
	switch ret {
	case ErrorDocumentProcessing:
		return "document_processing"
	case ErrorFileSystem:
		return "file_system"
	case ErrorConfiguration:
		return "configuration"
	case ErrorValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// RedactionError represents an error that occurred during redaction
type RedactionError struct {
	// Type is the type of error
	Type RedactionErrorType

	// Message is the error message
	Message string

	// FilePath is the path to the file being processed when the error occurred
	FilePath string

	// Page is the 1-based page number, 0 when not page specific
	Page int

	// Component is the component that generated the error
	Component string

	// Timestamp is when the error occurred
	Timestamp time.Time

	// Cause is the underlying error that caused this error
	Cause error
}

// Error implements the error interface
func (re *RedactionError) Error() string {
	location := fmt.Sprintf("component: %s", re.Component)
	if re.FilePath != "" {
		location = fmt.Sprintf("file: %s, %s", re.FilePath, location)
	}
	if re.Page > 0 {
		location = fmt.Sprintf("page: %d, %s", re.Page, location)
	}
	if re.Cause == nil {
		return fmt.Sprintf("[%s] %s (%s)", re.Type.String(), re.Message, location)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", re.Type.String(), re.Message, location, re.Cause.Error())
}

// Unwrap returns the underlying error for error unwrapping
func (re *RedactionError) Unwrap() error {
	return re.Cause
}

// NewRedactionError creates a new RedactionError
func NewRedactionError(errorType RedactionErrorType, message, filePath, component string, cause error) *RedactionError {
	return &RedactionError{
		Type:      errorType,
		Message:   message,
		FilePath:  filePath,
		Component: component,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// WithPage records the page the error belongs to
func (re *RedactionError) WithPage(page int) *RedactionError {
	re.Page = page
	return re
}

// IsErrorType reports whether err wraps a RedactionError of the given type
func IsErrorType(err error, errorType RedactionErrorType) bool {
	var re *RedactionError
	return errors.As(err, &re) && re.Type == errorType
}
