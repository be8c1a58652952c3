// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"os"

	"dob-redact/internal/observability"
	"dob-redact/internal/redactors"
	"dob-redact/internal/redactors/pdf"
)

// RedactFile blacks out the right-hand proportion of every exact
// occurrence of terms in an existing PDF and writes the result to
// outputPath. Pages without a hit are copied through unchanged.
func (p *Pipeline) RedactFile(ctx context.Context, inputPath, outputPath string, terms []string, proportion float64) (*redactors.RedactionResult, error) {
	if p.c.Renderer == nil {
		return nil, stageError(StageRedact, 0, redactors.NewRedactionError(redactors.ErrorConfiguration,
			"no renderer configured", inputPath, p.GetComponentName(), nil))
	}

	workDir, err := p.workDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	doc, err := pdf.Open(inputPath, p.c.Renderer, p.c.Engine, p.c.Tool, pdf.Options{
		WorkDir: workDir,
		Workers: p.opts.Workers,
	})
	if err != nil {
		return nil, stageError(StageRedact, 0, err)
	}
	doc.SetObserver(p.observer)

	observability.Detail(p.observer, p.GetComponentName(), fmt.Sprintf("redacting %d term(s) across %d page(s)", len(terms), len(doc.Pages())))

	result, err := p.c.Planner.PlanAndApply(ctx, doc, outputPath, terms, proportion)
	if err != nil {
		return nil, stageError(StageRedact, 0, err)
	}
	return result, nil
}
