// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"

	"dob-redact/internal/core"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Verbose   bool // Whether to display per-candidate details
	NoColor   bool // Whether to disable colored output
	ShowMatch bool // Whether to display the detected dates unmasked
}

// Failure records a document that could not be processed
type Failure struct {
	Input string `json:"input" yaml:"input"`
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error string `json:"error" yaml:"error"`
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders the outcome of a run over one or more documents
	Format(results []*core.RunResult, failures []Failure, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	var names []string
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Export formats a run with the named formatter
func Export(format string, results []*core.RunResult, failures []Failure, options FormatterOptions) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter.Format(results, failures, options)
}

// NewFailure converts a processing error into a Failure, keeping the
// pipeline stage when there is one
func NewFailure(input string, err error) Failure {
	return Failure{
		Input: input,
		Stage: string(core.StageOf(err)),
		Error: err.Error(),
	}
}
