// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"io"
	"os"

	"dob-redact/internal/assembler"
	"dob-redact/internal/config"
	"dob-redact/internal/observability"
	"dob-redact/internal/ocr"
	"dob-redact/internal/platform"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
	"dob-redact/internal/store"
	"dob-redact/internal/validators/dob"
)

// NewObserver builds the observer shared by every component of a run.
// Debug mode attaches the step tracer and emits JSON operation records.
func NewObserver(debug bool, w io.Writer) *observability.StandardObserver {
	if w == nil {
		w = os.Stderr
	}
	observer := observability.NewStandardObserver(observability.ObservabilityMetrics, w)
	if debug {
		debugObs := observability.NewDebugObserver(w)
		observer = debugObs.StandardObserver
	}
	return observer
}

// BuildPipeline wires the external tools, store and validator described
// by cfg into a Pipeline
func BuildPipeline(cfg *config.Config, observer *observability.StandardObserver) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	candidates, err := store.New(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	runner := platform.NewExecRunner(observer)

	enhancer := preprocessors.NewEnhancer()
	enhancer.Scale = cfg.Enhance.Scale
	enhancer.Contrast = cfg.Enhance.Contrast
	enhancer.Brightness = cfg.Enhance.Brightness
	enhancer.Threshold = uint8(cfg.Enhance.Threshold)

	validator := dob.NewValidator()
	validator.SetAgeBounds(cfg.Extraction.MinAge, cfg.Extraction.MaxAge)

	engine := ocr.NewEngine(runner, ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
		LayoutPSM:   cfg.OCR.PSM,
	})

	p := NewPipeline(Components{
		Rasterizer: preprocessors.NewInputRasterizer(runner, cfg.OCR.Pdftoppm, cfg.OCR.DPI),
		Renderer:   preprocessors.NewPDFRenderer(runner, cfg.OCR.Pdftoppm, cfg.OCR.DPI),
		Enhancer:   enhancer,
		Engine:     engine,
		Extractor:  validator,
		Store:      candidates,
		Tool:       assembler.NewAssembler(),
		Planner:    redactors.NewPlanner(),
	}, Options{
		DPI:        cfg.OCR.DPI,
		Workers:    cfg.Pipeline.Workers,
		Redact:     cfg.Redaction.Enabled,
		ScratchDir: cfg.Pipeline.WorkDir,
	})
	p.SetObserver(observer)
	return p, nil
}
