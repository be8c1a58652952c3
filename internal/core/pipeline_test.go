// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dob-redact/internal/detector"
	"dob-redact/internal/ocr"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
	"dob-redact/internal/store"
	"dob-redact/internal/validators/dob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeRasterizer writes blank white pages of 60x30 pixels
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, workDir string) ([]preprocessors.PageSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []preprocessors.PageSource
	for n := 1; n <= f.pages; n++ {
		img := image.NewGray(image.Rect(0, 0, 60, 30))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
		path := filepath.Join(workDir, fmt.Sprintf("page-%d.png", n))
		if err := preprocessors.SavePNG(img, path); err != nil {
			return nil, err
		}
		out = append(out, preprocessors.PageSource{Number: n, Path: path})
	}
	return out, nil
}

// fakeEngine serves canned OCR output keyed by page number
type fakeEngine struct {
	mu        sync.Mutex
	texts     map[int]string
	words     map[int][]ocr.Word
	rotations map[int]int
	osdErr    error
	rebuilt   map[int]*image.Gray
	pdfCalls  []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		texts:     map[int]string{},
		words:     map[int][]ocr.Word{},
		rotations: map[int]int{},
		rebuilt:   map[int]*image.Gray{},
	}
}

// pageOf extracts N from names such as enhanced-N.png or redacted-N
func pageOf(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, _ := strconv.Atoi(name[strings.LastIndex(name, "-")+1:])
	return n
}

func (f *fakeEngine) DetectRotation(_ context.Context, imagePath string) (int, error) {
	if f.osdErr != nil {
		return 0, f.osdErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotations[pageOf(imagePath)], nil
}

func (f *fakeEngine) Text(_ context.Context, imagePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[pageOf(imagePath)], nil
}

func (f *fakeEngine) SearchablePDF(_ context.Context, imagePath, outBase string, dpi int) (*ocr.Output, error) {
	page := pageOf(outBase)
	if err := os.WriteFile(outBase+".pdf", []byte(fmt.Sprintf("%%PDF page %d dpi %d", page, dpi)), 0600); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdfCalls = append(f.pdfCalls, filepath.Base(outBase))
	if strings.HasPrefix(filepath.Base(outBase), "redacted-") {
		img, err := preprocessors.LoadImage(imagePath)
		if err != nil {
			return nil, err
		}
		f.rebuilt[page] = preprocessors.ToGray(img)
	}
	return &ocr.Output{PDFPath: outBase + ".pdf", Words: f.words[page]}, nil
}

// fakeTool records merges and writes the concatenated fragments
type fakeTool struct {
	mu     sync.Mutex
	merges map[string][]string
	err    error
}

func (f *fakeTool) Merge(fragments []string, outputPath string) error {
	if f.err != nil {
		return f.err
	}
	var buf bytes.Buffer
	names := make([]string, len(fragments))
	for i, frag := range fragments {
		data, err := os.ReadFile(frag)
		if err != nil {
			return err
		}
		buf.Write(data)
		names[i] = filepath.Base(frag)
	}
	f.mu.Lock()
	if f.merges == nil {
		f.merges = map[string][]string{}
	}
	f.merges[filepath.Base(outputPath)] = names
	f.mu.Unlock()
	return os.WriteFile(outputPath, buf.Bytes(), 0600)
}

func (f *fakeTool) ExtractPage(string, int, string) error { return nil }
func (f *fakeTool) Validate(string) error                 { return nil }
func (f *fakeTool) PageCount(string) (int, error)         { return 1, nil }

// brokenStore appends fine but cannot be read back
type brokenStore struct {
	store.Store
}

func (b brokenStore) Load() ([]detector.Batch, error) {
	return nil, store.ErrMalformed
}

type harness struct {
	input    string
	dir      string
	engine   *fakeEngine
	tool     *fakeTool
	raster   *fakeRasterizer
	store    store.Store
	pipeline *Pipeline
}

func newHarness(t *testing.T, pages int, redact bool) *harness {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	input := filepath.Join(dir, "intake.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4"), 0600))

	h := &harness{
		input:  input,
		dir:    dir,
		engine: newFakeEngine(),
		tool:   &fakeTool{},
		raster: &fakeRasterizer{pages: pages},
		store:  store.NewMemoryStore(),
	}
	h.build(t, redact)
	return h
}

func (h *harness) build(t *testing.T, redact bool) {
	validator := dob.NewValidator()
	validator.SetClock(func() time.Time { return fixedNow })

	h.pipeline = NewPipeline(Components{
		Rasterizer: h.raster,
		Engine:     h.engine,
		Extractor:  validator,
		Store:      h.store,
		Tool:       h.tool,
	}, Options{
		DPI:        200,
		Workers:    2,
		Redact:     redact,
		ScratchDir: t.TempDir(),
	})
}

func TestExecuteOCR_RedactsDetectedDates(t *testing.T) {
	h := newHarness(t, 2, true)
	h.engine.texts[1] = "Patient intake\nDOB: 01/15/1990\n"
	h.engine.texts[2] = "Signature ____"
	// enhanced rasters are 120x60
	h.engine.words[1] = []ocr.Word{
		{Text: "DOB:", Block: 1, Par: 1, Line: 1, Left: 2, Top: 10, Width: 20, Height: 10},
		{Text: "01/15/1990", Block: 1, Par: 1, Line: 1, Left: 30, Top: 10, Width: 60, Height: 10},
	}

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	assert.Equal(t, h.input, result.InputPath)
	assert.Equal(t, filepath.Join(h.dir, "intake_OCR.pdf"), result.OCRPath)
	assert.Equal(t, filepath.Join(h.dir, "intake_OCR_redacted.pdf"), result.OutputPath)
	assert.True(t, result.Redacted)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 1, result.Batches)
	assert.Equal(t, 1, result.Regions)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "01/15/1990", result.Candidates[0].RawText)
	assert.Equal(t, 34.38, result.Candidates[0].Age)

	assert.FileExists(t, result.OCRPath)
	assert.FileExists(t, result.OutputPath)

	assert.Equal(t, []string{"ocr-1.pdf", "ocr-2.pdf"}, h.tool.merges["intake_OCR.pdf"])
	assert.Equal(t, []string{"redacted-1.pdf", "ocr-2.pdf"}, h.tool.merges["intake_OCR_redacted.pdf"])

	// Region keeps the year: x from 90-60*0.4=66 to 90*1.02
	rebuilt := h.engine.rebuilt[1]
	require.NotNil(t, rebuilt)
	assert.Equal(t, image.Rect(0, 0, 120, 60), rebuilt.Bounds())
	assert.Equal(t, color.Gray{Y: 0}, rebuilt.GrayAt(80, 15))
	assert.Equal(t, color.Gray{Y: 0xff}, rebuilt.GrayAt(50, 15))
	assert.Equal(t, color.Gray{Y: 0xff}, rebuilt.GrayAt(80, 40))
	assert.NotContains(t, h.engine.rebuilt, 2)
}

func TestExecuteOCR_UsesDoubleDPIForOCR(t *testing.T) {
	h := newHarness(t, 1, true)

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	data, err := os.ReadFile(result.OCRPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF page 1 dpi 400", string(data))
}

func TestExecuteOCR_NoCandidates(t *testing.T) {
	h := newHarness(t, 1, true)
	h.engine.texts[1] = "Nothing to see. Issued 03/2020."

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	assert.False(t, result.Redacted)
	assert.Equal(t, result.OCRPath, result.OutputPath)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 0, result.Batches)
	assert.Len(t, h.tool.merges, 1)
	assert.NoFileExists(t, filepath.Join(h.dir, "intake_OCR_redacted.pdf"))
}

func TestExecuteOCR_RedactionDisabled(t *testing.T) {
	h := newHarness(t, 1, false)
	h.engine.texts[1] = "DOB: 01/15/1990"

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	assert.False(t, result.Redacted)
	assert.Equal(t, result.OCRPath, result.OutputPath)
	assert.Len(t, result.Candidates, 1)
}

func TestExecuteOCR_StoreLoadFailureReturnsOCR(t *testing.T) {
	h := newHarness(t, 1, true)
	h.store = brokenStore{Store: store.NewMemoryStore()}
	h.build(t, true)
	h.engine.texts[1] = "DOB: 01/15/1990"

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	assert.False(t, result.Redacted)
	assert.Equal(t, result.OCRPath, result.OutputPath)
	assert.Empty(t, result.Candidates)
}

func TestExecuteOCR_ResetsStoreBetweenRuns(t *testing.T) {
	h := newHarness(t, 1, true)
	h.engine.texts[1] = "DOB: 01/15/1990"

	_, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	h.engine.texts[1] = "no dates"
	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.False(t, result.Redacted)
}

func TestExecuteOCR_FileStoreBackend(t *testing.T) {
	h := newHarness(t, 2, true)
	scratch := filepath.Join(t.TempDir(), "uploads", "data.json")
	h.store = store.NewFileStore(scratch)
	h.build(t, true)
	h.engine.texts[1] = "Date of Birth: 1980-03-03"
	h.engine.texts[2] = "DOB: 01/15/1990"

	result, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Batches)
	assert.Len(t, result.Candidates, 2)
	assert.FileExists(t, scratch)
}

func TestExecuteOCR_OrientationFailureIsFatal(t *testing.T) {
	h := newHarness(t, 1, true)
	h.engine.osdErr = errors.New("Too few characters")

	_, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.Error(t, err)

	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageOCR, pe.Stage)
	assert.Equal(t, 1, pe.Page)
	assert.Contains(t, err.Error(), "Too few characters")
	assert.NoFileExists(t, filepath.Join(h.dir, "intake_OCR.pdf"))
}

func TestExecuteOCR_RenderFailure(t *testing.T) {
	h := newHarness(t, 1, true)
	h.raster.err = errors.New("pdftoppm: exit status 1")

	_, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.Error(t, err)
	assert.Equal(t, StageRender, StageOf(err))
}

func TestExecuteOCR_NoPages(t *testing.T) {
	h := newHarness(t, 0, true)

	_, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.Error(t, err)
	assert.Equal(t, StageRender, StageOf(err))
}

func TestExecuteOCR_MergeFailure(t *testing.T) {
	h := newHarness(t, 1, true)
	h.tool.err = errors.New("disk full")

	_, err := h.pipeline.ExecuteOCR(context.Background(), h.input)
	require.Error(t, err)
	assert.Equal(t, StageAssemble, StageOf(err))
}

func TestExecuteOCR_MissingInput(t *testing.T) {
	h := newHarness(t, 1, true)

	_, err := h.pipeline.ExecuteOCR(context.Background(), filepath.Join(h.dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestProcessPage_AppliesRotation(t *testing.T) {
	h := newHarness(t, 1, true)
	h.engine.rotations[1] = 90
	h.engine.texts[1] = "D.O.B.: 05-06-1974"

	workDir := t.TempDir()
	sources, err := h.raster.Rasterize(context.Background(), h.input, workDir)
	require.NoError(t, err)

	page, err := h.pipeline.ProcessPage(context.Background(), sources[0], workDir)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 90, page.Rotation)
	assert.Equal(t, image.Rect(0, 0, 60, 120), page.Raster.Bounds())
	assert.Equal(t, filepath.Join(workDir, "ocr-1.pdf"), page.Fragment)
	require.Len(t, page.Candidates, 1)
	assert.Equal(t, "05-06-1974", page.Candidates[0].RawText)

	batches, err := h.store.Load()
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestProcessPage_EmptyBatchNotStored(t *testing.T) {
	h := newHarness(t, 1, true)

	workDir := t.TempDir()
	sources, err := h.raster.Rasterize(context.Background(), h.input, workDir)
	require.NoError(t, err)

	_, err = h.pipeline.ProcessPage(context.Background(), sources[0], workDir)
	require.NoError(t, err)

	batches, err := h.store.Load()
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestProcessPage_UnreadableRaster(t *testing.T) {
	h := newHarness(t, 1, true)
	workDir := t.TempDir()
	bad := filepath.Join(workDir, "page-1.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0600))

	_, err := h.pipeline.ProcessPage(context.Background(), preprocessors.PageSource{Number: 1, Path: bad}, workDir)
	require.Error(t, err)
	assert.Equal(t, StageEnhance, StageOf(err))
}

func TestRedactFile_RequiresRenderer(t *testing.T) {
	h := newHarness(t, 1, true)

	_, err := h.pipeline.RedactFile(context.Background(), h.input, filepath.Join(h.dir, "out.pdf"), []string{"01/15/1990"}, 0.4)
	require.Error(t, err)
	assert.Equal(t, StageRedact, StageOf(err))
	assert.True(t, redactors.IsErrorType(err, redactors.ErrorConfiguration))
}
