// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"dob-redact/internal/detector"
	"dob-redact/internal/observability"
	"dob-redact/internal/ocr"
	"dob-redact/internal/parallel"
	"dob-redact/internal/paths"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
	"dob-redact/internal/redactors/pdf"
	"dob-redact/internal/redactors/scan"
	"dob-redact/internal/store"
)

// OCREngine is the subset of the tesseract engine the pipeline drives
type OCREngine interface {
	DetectRotation(ctx context.Context, imagePath string) (int, error)
	Text(ctx context.Context, imagePath string) (string, error)
	SearchablePDF(ctx context.Context, imagePath, outBase string, dpi int) (*ocr.Output, error)
}

// PageTool merges fragments and manipulates existing PDFs
type PageTool interface {
	Merge(fragments []string, outputPath string) error
	ExtractPage(inputPath string, page int, outputPath string) error
	Validate(inputPath string) error
	PageCount(inputPath string) (int, error)
}

// Components are the collaborators a Pipeline is assembled from
type Components struct {
	Rasterizer preprocessors.Rasterizer
	Renderer   pdf.Renderer
	Enhancer   *preprocessors.Enhancer
	Engine     OCREngine
	Extractor  detector.Extractor
	Store      store.Store
	Tool       PageTool
	Planner    *redactors.Planner
}

// Options tune a Pipeline
type Options struct {
	// DPI is the render resolution
	DPI int

	// Workers bounds concurrent pages, 0 means parallel.DefaultWorkers
	Workers int

	// Redact disables the redaction pass when false
	Redact bool

	// ScratchDir is where per-run work directories are created, "" for
	// the system temp dir
	ScratchDir string
}

// RunResult describes one processed document
type RunResult struct {
	InputPath  string               `json:"input" yaml:"input"`
	OCRPath    string               `json:"ocr_path" yaml:"ocr_path"`
	OutputPath string               `json:"output_path" yaml:"output_path"`
	Redacted   bool                 `json:"redacted" yaml:"redacted"`
	Candidates []detector.Candidate `json:"candidates" yaml:"candidates"`
	Batches    int                  `json:"batches" yaml:"batches"`
	Pages      int                  `json:"pages" yaml:"pages"`
	Regions    int                  `json:"regions" yaml:"regions"`
	Duration   time.Duration        `json:"duration_ns" yaml:"duration"`
}

// PageResult is the outcome of processing one page raster
type PageResult struct {
	Number     int
	Rotation   int
	Text       string
	Raster     *image.Gray
	Fragment   string
	Words      []ocr.Word
	Candidates []detector.Candidate
}

// Pipeline turns scanned documents into searchable PDFs with dates of
// birth redacted
type Pipeline struct {
	c        Components
	opts     Options
	progress parallel.ProgressCallback
	observer *observability.StandardObserver
}

// NewPipeline assembles a pipeline. Missing enhancer and planner fall back
// to the standard ones.
func NewPipeline(c Components, opts Options) *Pipeline {
	if c.Enhancer == nil {
		c.Enhancer = preprocessors.NewEnhancer()
	}
	if c.Planner == nil {
		c.Planner = redactors.NewPlanner()
	}
	if opts.DPI <= 0 {
		opts.DPI = preprocessors.DefaultDPI
	}
	if opts.Workers <= 0 {
		opts.Workers = parallel.DefaultWorkers()
	}
	return &Pipeline{c: c, opts: opts}
}

// GetComponentName returns the component identifier
func (p *Pipeline) GetComponentName() string {
	return "ocr_pipeline"
}

// SetObserver sets the observer on the pipeline and every observable
// collaborator
func (p *Pipeline) SetObserver(observer *observability.StandardObserver) {
	p.observer = observer
	for _, c := range []interface{}{p.c.Rasterizer, p.c.Renderer, p.c.Engine, p.c.Extractor, p.c.Tool, p.c.Planner} {
		if o, ok := c.(observability.Observable); ok {
			o.SetObserver(observer)
		}
	}
}

// SetProgress installs a callback invoked after each page completes
func (p *Pipeline) SetProgress(progress parallel.ProgressCallback) {
	p.progress = progress
}

// ocrDPI is the resolution of the enhanced raster handed to tesseract
func (p *Pipeline) ocrDPI() int {
	scale := p.c.Enhancer.Scale
	if scale < 1 {
		scale = 1
	}
	return p.opts.DPI * scale
}

// ExecuteOCR runs the whole document through the pipeline. The searchable
// PDF is always written next to the input; the redacted copy is written
// only when dates of birth were found.
func (p *Pipeline) ExecuteOCR(ctx context.Context, inputPath string) (*RunResult, error) {
	start := time.Now()
	finish := observability.Timing(p.observer, p.GetComponentName(), "execute_ocr", inputPath)

	result, err := p.execute(ctx, inputPath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	result.Duration = time.Since(start)

	finish(true, map[string]interface{}{
		"match_count": len(result.Candidates),
		"pages":       result.Pages,
		"redacted":    result.Redacted,
	})
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, inputPath string) (*RunResult, error) {
	out, err := paths.ForInput(inputPath)
	if err != nil {
		return nil, err
	}

	if err := p.c.Store.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset candidate store: %w", err)
	}

	workDir, err := p.workDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	sources, err := p.c.Rasterizer.Rasterize(ctx, inputPath, workDir)
	if err != nil {
		return nil, stageError(StageRender, 0, err)
	}
	if len(sources) == 0 {
		return nil, stageError(StageRender, 0, fmt.Errorf("no pages rendered from %s", inputPath))
	}
	observability.Metric(p.observer, p.GetComponentName(), "pages", len(sources))

	pages, err := parallel.Map(ctx, "page_ocr", p.opts.Workers, p.observer, sources,
		func(ctx context.Context, src preprocessors.PageSource) (*PageResult, error) {
			return p.ProcessPage(ctx, src, workDir)
		}, p.progress)
	if err != nil {
		return nil, err
	}

	fragments := make([]string, len(pages))
	for i, page := range pages {
		fragments[i] = page.Fragment
	}
	if err := p.c.Tool.Merge(fragments, out.OCR); err != nil {
		return nil, stageError(StageAssemble, 0, err)
	}

	result := &RunResult{
		InputPath:  inputPath,
		OCRPath:    out.OCR,
		OutputPath: out.OCR,
		Pages:      len(pages),
	}

	batches, err := p.c.Store.Load()
	if err != nil {
		// Not fatal: the searchable PDF is still a useful result
		observability.Detail(p.observer, p.GetComponentName(), fmt.Sprintf("candidate store unreadable, skipping redaction: %v", err))
		p.logStoreFailure(inputPath, err)
		return result, nil
	}
	result.Batches = len(batches)
	result.Candidates = detector.Flatten(batches)

	if !p.opts.Redact || len(result.Candidates) == 0 {
		return result, nil
	}

	instructions := make([]redactors.Instruction, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		instructions = append(instructions, redactors.Instruction{Term: c.RawText, Proportion: c.Proportion()})
	}

	data := make([]scan.PageData, len(pages))
	for i, page := range pages {
		data[i] = scan.PageData{
			Number:       page.Number,
			Raster:       page.Raster,
			Words:        page.Words,
			FragmentPath: page.Fragment,
		}
	}
	doc := scan.NewDocument(data, p.c.Engine, p.c.Tool, scan.Options{
		WorkDir: workDir,
		DPI:     p.ocrDPI(),
		Workers: p.opts.Workers,
	})
	doc.SetObserver(p.observer)

	redaction, err := p.c.Planner.ApplyInstructions(ctx, doc, out.Redacted, instructions)
	if err != nil {
		return nil, stageError(StageRedact, 0, err)
	}

	result.OutputPath = out.Redacted
	result.Redacted = true
	result.Regions = len(redaction.RedactionMap)
	return result, nil
}

// ProcessPage enhances, orients and OCRs one raster, records its date of
// birth candidates in the store and builds its searchable PDF fragment
// under workDir.
func (p *Pipeline) ProcessPage(ctx context.Context, src preprocessors.PageSource, workDir string) (*PageResult, error) {
	finish := observability.Timing(p.observer, p.GetComponentName(), fmt.Sprintf("page_%d", src.Number), src.Path)
	fail := func(stage Stage, err error) (*PageResult, error) {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, stageError(stage, src.Number, err)
	}

	img, err := preprocessors.LoadImage(src.Path)
	if err != nil {
		return fail(StageEnhance, err)
	}
	enhanced := p.c.Enhancer.Enhance(img)

	enhancedPath := filepath.Join(workDir, fmt.Sprintf("enhanced-%d.png", src.Number))
	if err := preprocessors.SavePNG(enhanced, enhancedPath); err != nil {
		return fail(StageEnhance, err)
	}

	rotation, err := p.c.Engine.DetectRotation(ctx, enhancedPath)
	if err != nil {
		return fail(StageOCR, fmt.Errorf("orientation detection: %w", err))
	}
	if rotation != 0 {
		enhanced, err = p.c.Enhancer.Rotate(enhanced, rotation)
		if err != nil {
			return fail(StageEnhance, err)
		}
		if err := preprocessors.SavePNG(enhanced, enhancedPath); err != nil {
			return fail(StageEnhance, err)
		}
	}

	text, err := p.c.Engine.Text(ctx, enhancedPath)
	if err != nil {
		return fail(StageOCR, err)
	}

	candidates, err := p.c.Extractor.ValidateContent(text, src.Path)
	if err != nil {
		return fail(StageExtract, err)
	}
	if len(candidates) > 0 {
		if err := p.c.Store.Append(detector.Batch(candidates)); err != nil {
			return fail(StageExtract, err)
		}
	}

	outBase := filepath.Join(workDir, fmt.Sprintf("ocr-%d", src.Number))
	output, err := p.c.Engine.SearchablePDF(ctx, enhancedPath, outBase, p.ocrDPI())
	if err != nil {
		return fail(StageOCR, err)
	}

	finish(true, map[string]interface{}{"match_count": len(candidates), "rotation": rotation})
	return &PageResult{
		Number:     src.Number,
		Rotation:   rotation,
		Text:       text,
		Raster:     enhanced,
		Fragment:   output.PDFPath,
		Words:      output.Words,
		Candidates: candidates,
	}, nil
}

func (p *Pipeline) workDir() (string, error) {
	root := p.opts.ScratchDir
	if root == "" {
		root = paths.GetTempDir()
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	dir, err := os.MkdirTemp(root, "dob-redact-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) logStoreFailure(inputPath string, err error) {
	if p.observer == nil {
		return
	}
	p.observer.LogOperation(observability.StandardObservabilityData{
		Component: p.GetComponentName(),
		Operation: "load_candidates",
		FilePath:  inputPath,
		Success:   false,
		Error:     err.Error(),
	})
}
