// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// Candidate represents a date-of-birth-like value found in OCR text
type Candidate struct {
	// RawText is the matched substring after label stripping. It is the
	// literal that gets searched for during redaction.
	RawText string `json:"date"`

	// ParsedDate is the calendar date derived from RawText. Day defaults to 1
	// when only month and year were present.
	ParsedDate time.Time `json:"-"`

	// Age in years relative to the extraction clock, rounded to 2 decimals
	Age float64 `json:"age"`

	// Year is the four digit year of ParsedDate
	Year int `json:"year"`
}

// Proportion returns the fraction of the raw text that is covered by the
// year digits, counted in characters. This is the share of each occurrence
// that gets blacked out, anchored at its right edge.
func (c Candidate) Proportion() float64 {
	total := utf8.RuneCountInString(c.RawText)
	if total == 0 {
		return 0
	}
	year := utf8.RuneCountInString(strconv.Itoa(c.Year))
	p := float64(year) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}

// Batch is the set of candidates produced by one OCR pass over one page
type Batch []Candidate

// Extractor defines methods for pulling candidates out of text
type Extractor interface {
	// Extract returns every retained candidate in pattern order. Duplicates
	// across patterns are kept.
	Extract(text string) []Candidate

	// ValidateContent runs Extract over preprocessed content. The path is
	// only used for logging.
	ValidateContent(content string, originalPath string) ([]Candidate, error)
}

// Flatten returns every candidate in batch order
func Flatten(batches []Batch) []Candidate {
	var out []Candidate
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
