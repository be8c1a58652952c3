// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"context"
	"fmt"
	"time"

	"dob-redact/internal/observability"
)

// Planner turns search terms into proportional redaction annotations and
// applies them page by page.
type Planner struct {
	observer *observability.StandardObserver
}

// NewPlanner creates a planner
func NewPlanner() *Planner {
	return &Planner{}
}

// GetComponentName returns the component name for observability
func (p *Planner) GetComponentName() string {
	return "redaction_planner"
}

// SetObserver sets the observability component
func (p *Planner) SetObserver(observer *observability.StandardObserver) {
	p.observer = observer
}

// PlanAndApply redacts the right-hand proportion of every occurrence of
// every term on every page, then saves the document to outputPath.
func (p *Planner) PlanAndApply(ctx context.Context, doc Document, outputPath string, terms []string, proportion float64) (*RedactionResult, error) {
	instructions := make([]Instruction, 0, len(terms))
	for _, term := range terms {
		instructions = append(instructions, Instruction{Term: term, Proportion: proportion})
	}
	return p.ApplyInstructions(ctx, doc, outputPath, instructions)
}

// ApplyInstructions is PlanAndApply with a proportion per term. All
// instructions are applied to the same document in a single pass.
func (p *Planner) ApplyInstructions(ctx context.Context, doc Document, outputPath string, instructions []Instruction) (*RedactionResult, error) {
	start := time.Now()
	finish := observability.Timing(p.observer, p.GetComponentName(), "apply_instructions", outputPath)

	normalized := make([]Instruction, 0, len(instructions))
	for _, in := range instructions {
		prop, err := NormalizeProportion(in.Proportion)
		if err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return nil, NewRedactionError(ErrorValidation,
				fmt.Sprintf("invalid proportion %v for term %q", in.Proportion, in.Term), outputPath, p.GetComponentName(), err)
		}
		if in.Term == "" {
			continue
		}
		normalized = append(normalized, Instruction{Term: in.Term, Proportion: prop})
	}

	result := &RedactionResult{RedactedFilePath: outputPath}
	for _, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return nil, err
		}

		mappings := p.PlanPage(page, normalized)
		if len(mappings) == 0 {
			continue
		}
		if err := page.ApplyRedactions(ctx); err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return nil, NewRedactionError(ErrorDocumentProcessing, "failed to apply redactions",
				outputPath, p.GetComponentName(), err).WithPage(page.Number())
		}
		result.RedactionMap = append(result.RedactionMap, mappings...)
		result.PagesRedacted++
	}

	if err := doc.Save(ctx, outputPath); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, NewRedactionError(ErrorFileSystem, "failed to save redacted document",
			outputPath, p.GetComponentName(), err)
	}

	result.ProcessingTime = time.Since(start)
	finish(true, map[string]interface{}{
		"match_count":    len(result.RedactionMap),
		"pages_redacted": result.PagesRedacted,
	})
	return result, nil
}

// PlanPage queues one annotation per occurrence of each instruction's term
// and returns what was queued. Nothing is applied.
func (p *Planner) PlanPage(page Page, instructions []Instruction) []RedactionMapping {
	var mappings []RedactionMapping
	for _, in := range instructions {
		for _, hit := range page.SearchFor(in.Term) {
			region := RedactionRegion(hit, in.Proportion)
			page.AddRedaction(Annotation{Rect: region, Fill: FillColor, Stroke: StrokeColor})
			mappings = append(mappings, RedactionMapping{
				Page:   page.Number(),
				Term:   in.Term,
				Match:  hit,
				Region: region,
			})
		}
	}
	if len(mappings) > 0 {
		observability.Metric(p.observer, p.GetComponentName(), fmt.Sprintf("page_%d_regions", page.Number()), len(mappings))
	}
	return mappings
}
