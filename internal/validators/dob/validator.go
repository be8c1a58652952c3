// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dob

import (
	"regexp"
	"time"

	"dob-redact/internal/detector"
	"dob-redact/internal/observability"
)

const (
	// DefaultMinAge is the youngest age, in years, a birth date may imply
	DefaultMinAge = 14.0

	// DefaultMaxAge is carried in configuration but not enforced
	DefaultMaxAge = 80.0
)

// Validator implements the detector.Extractor interface for finding
// labelled date-of-birth fields in OCR text.
type Validator struct {
	patterns []*regexp.Regexp

	minAge float64
	maxAge float64

	// now is the extraction clock
	now func() time.Time

	// Observability
	observer *observability.StandardObserver
}

// NewValidator creates and returns a new Validator instance with the
// label-anchored date patterns compiled.
func NewValidator() *Validator {
	return &Validator{
		patterns: compilePatterns(),
		minAge:   DefaultMinAge,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
	}
}

// GetComponentName returns the component identifier
func (v *Validator) GetComponentName() string {
	return "dob_validator"
}

// SetObserver sets the observability component
func (v *Validator) SetObserver(observer *observability.StandardObserver) {
	v.observer = observer
}

// SetClock replaces the clock used for age computation
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// SetAgeBounds overrides the age limits. maxAge is recorded only.
func (v *Validator) SetAgeBounds(minAge, maxAge float64) {
	v.minAge = minAge
	v.maxAge = maxAge
}

// MaxAge returns the configured upper age limit
func (v *Validator) MaxAge() float64 {
	return v.maxAge
}

// Extract returns every retained candidate in pattern order
func (v *Validator) Extract(text string) []detector.Candidate {
	now := v.now()

	var rawStrings []string
	for _, re := range v.patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			rawStrings = append(rawStrings, prefixPattern.ReplaceAllString(m[1], ""))
		}
	}

	candidates := make([]detector.Candidate, 0, len(rawStrings))
	for _, raw := range rawStrings {
		parsed, ok := TryParseDate(raw, now)
		if !ok {
			observability.Detail(v.observer, v.GetComponentName(), "unparseable date dropped")
			continue
		}

		age := AgeInYears(parsed, now)
		if age < v.minAge {
			continue
		}
		if !IsDate(raw) {
			continue
		}

		candidates = append(candidates, detector.Candidate{
			RawText:    raw,
			ParsedDate: parsed,
			Age:        RoundAge(age),
			Year:       parsed.Year(),
		})
	}

	return candidates
}

// ValidateContent validates preprocessed content for birth dates
func (v *Validator) ValidateContent(content string, originalPath string) ([]detector.Candidate, error) {
	finish := observability.Timing(v.observer, v.GetComponentName(), "validate_content", originalPath)

	candidates := v.Extract(content)

	finish(true, map[string]interface{}{
		"match_count":    len(candidates),
		"content_length": len(content),
	})
	return candidates, nil
}
