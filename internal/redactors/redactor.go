// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"context"
	"image/color"
	"math"
	"time"
)

// Overshoot widens each redaction region to the right so that glyph
// overhang past the reported box is still covered.
const Overshoot = 1.02

var (
	// FillColor is painted over the redacted region
	FillColor = color.RGBA{A: 0xff}

	// StrokeColor outlines the redaction annotation
	StrokeColor = color.RGBA{R: 0xff, A: 0xff}
)

// Rect is an axis-aligned rectangle in page units. The origin is the top
// left corner and y grows downward.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Annotation is a pending redaction on a page
type Annotation struct {
	Rect   Rect
	Fill   color.RGBA
	Stroke color.RGBA
}

// Instruction pairs a literal search term with the share of each hit to
// black out.
type Instruction struct {
	Term       string  `json:"term" yaml:"term"`
	Proportion float64 `json:"proportion" yaml:"proportion"`
}

// Page is a single page that supports literal text search and burn-in
// redaction.
type Page interface {
	// Number is 1-based
	Number() int

	// SearchFor returns one rectangle per exact occurrence of term
	SearchFor(term string) []Rect

	// AddRedaction queues an annotation. Nothing is removed until
	// ApplyRedactions is called.
	AddRedaction(a Annotation)

	// ApplyRedactions irreversibly removes the content under every queued
	// annotation. It is a no-op when nothing is queued.
	ApplyRedactions(ctx context.Context) error
}

// Document is an ordered set of pages that can be written back out
type Document interface {
	Pages() []Page
	Save(ctx context.Context, outputPath string) error
}

// RedactionRegion keeps the right-hand proportion p of r. The region
// starts at r.X1 - width*p and ends at r.X1 scaled by Overshoot, with the
// vertical extent unchanged.
func RedactionRegion(r Rect, p float64) Rect {
	return Rect{
		X0: r.X1 - r.Width()*p,
		Y0: r.Y0,
		X1: r.X1 * Overshoot,
		Y1: r.Y1,
	}
}

// NormalizeProportion rejects non-positive values and clamps values above 1
func NormalizeProportion(p float64) (float64, error) {
	if p <= 0 || math.IsNaN(p) {
		return 0, ErrInvalidProportion
	}
	if p > 1 {
		return 1, nil
	}
	return p, nil
}

// RedactionResult contains the results of a redaction operation
type RedactionResult struct {
	// RedactedFilePath is the path to the redacted document
	RedactedFilePath string

	// RedactionMap contains details of all redactions performed
	RedactionMap []RedactionMapping

	// PagesRedacted counts pages that had at least one region applied
	PagesRedacted int

	// ProcessingTime is the time taken to perform the redaction
	ProcessingTime time.Duration
}

// RedactionMapping represents a single redaction operation
type RedactionMapping struct {
	// Page is the 1-based page number
	Page int

	// Term is the literal that was searched for
	Term string

	// Match is the rectangle the search returned
	Match Rect

	// Region is the rectangle that was blacked out
	Region Rect
}
