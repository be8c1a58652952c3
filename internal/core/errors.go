// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a failure belongs to
type Stage string

const (
	StageRender   Stage = "render"
	StageEnhance  Stage = "enhance"
	StageOCR      Stage = "ocr"
	StageExtract  Stage = "extract"
	StageAssemble Stage = "assemble"
	StageRedact   Stage = "redact"
)

// PipelineError reports which stage, and optionally which page, failed
type PipelineError struct {
	Stage Stage
	// Page is 1-based, 0 when the failure is not page specific
	Page  int
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s failed on page %d: %v", e.Stage, e.Page, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func stageError(stage Stage, page int, cause error) error {
	return &PipelineError{Stage: stage, Page: page, Cause: cause}
}

// StageOf returns the stage recorded in err, or "" if err did not come
// from the pipeline
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
