// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strconv"
	"strings"
	"unicode"

	"dob-redact/internal/core"
	"dob-redact/internal/formatters"
)

// JSONResponse represents the top-level response structure for JSON/YAML output
type JSONResponse struct {
	Documents []JSONDocument       `json:"documents" yaml:"documents"`
	Failures  []formatters.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Summary   JSONSummary          `json:"summary" yaml:"summary"`
}

// JSONSummary totals a run
type JSONSummary struct {
	Documents  int `json:"documents" yaml:"documents"`
	Redacted   int `json:"redacted" yaml:"redacted"`
	Failed     int `json:"failed" yaml:"failed"`
	Candidates int `json:"candidates" yaml:"candidates"`
}

// JSONDocument represents one processed document in JSON/YAML format
type JSONDocument struct {
	Input      string          `json:"input" yaml:"input"`
	Output     string          `json:"output" yaml:"output"`
	OCRPath    string          `json:"ocr_path" yaml:"ocr_path"`
	Redacted   bool            `json:"redacted" yaml:"redacted"`
	Pages      int             `json:"pages" yaml:"pages"`
	Batches    int             `json:"batches,omitempty" yaml:"batches,omitempty"`
	Regions    int             `json:"regions,omitempty" yaml:"regions,omitempty"`
	DurationMs int64           `json:"duration_ms" yaml:"duration_ms"`
	Candidates []JSONCandidate `json:"candidates" yaml:"candidates"`
}

// JSONCandidate represents a single date of birth in JSON/YAML format
type JSONCandidate struct {
	Date       string  `json:"date" yaml:"date"`
	Age        float64 `json:"age" yaml:"age"`
	Year       int     `json:"year,omitempty" yaml:"year,omitempty"`
	Proportion float64 `json:"proportion,omitempty" yaml:"proportion,omitempty"`
}

// MaskDate hides every letter and digit of raw except the year, which is
// the part the redaction leaves in place
func MaskDate(raw string, year int) string {
	y := strconv.Itoa(year)
	keep := strings.LastIndex(raw, y)

	var b strings.Builder
	for i, r := range raw {
		if keep >= 0 && i >= keep && i < keep+len(y) {
			b.WriteRune(r)
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune('*')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DisplayDate returns the candidate text as it should be shown
func DisplayDate(raw string, year int, options formatters.FormatterOptions) string {
	if options.ShowMatch {
		return raw
	}
	return MaskDate(raw, year)
}

// ConvertResultsToJSONFormat converts run results to JSON/YAML format
func ConvertResultsToJSONFormat(results []*core.RunResult, failures []formatters.Failure, options formatters.FormatterOptions) JSONResponse {
	response := JSONResponse{
		Documents: []JSONDocument{},
		Failures:  failures,
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		doc := JSONDocument{
			Input:      result.InputPath,
			Output:     result.OutputPath,
			OCRPath:    result.OCRPath,
			Redacted:   result.Redacted,
			Pages:      result.Pages,
			DurationMs: result.Duration.Milliseconds(),
			Candidates: []JSONCandidate{},
		}
		if options.Verbose {
			doc.Batches = result.Batches
			doc.Regions = result.Regions
		}

		for _, c := range result.Candidates {
			candidate := JSONCandidate{
				Date: DisplayDate(c.RawText, c.Year, options),
				Age:  c.Age,
			}
			if options.Verbose {
				candidate.Year = c.Year
				candidate.Proportion = c.Proportion()
			}
			doc.Candidates = append(doc.Candidates, candidate)
		}

		response.Documents = append(response.Documents, doc)
		response.Summary.Candidates += len(result.Candidates)
		if result.Redacted {
			response.Summary.Redacted++
		}
	}

	response.Summary.Documents = len(response.Documents)
	response.Summary.Failed = len(failures)
	return response
}
