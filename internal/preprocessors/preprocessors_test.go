// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls [][]string
	run   func(name string, args []string) error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run != nil {
		return nil, nil, f.run(name, args)
	}
	return nil, nil, nil
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(200)
			if x < w/2 {
				v = 40
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestEnhanceDoublesSizeAndBinarises(t *testing.T) {
	out := NewEnhancer().Enhance(testImage(20, 10))

	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
	for _, p := range out.Pix {
		assert.True(t, p == 0 || p == 255, "pixel %d is not binary", p)
	}

	// Dark half stays black, light half goes white
	assert.Equal(t, uint8(0), out.GrayAt(2, 10).Y)
	assert.Equal(t, uint8(255), out.GrayAt(37, 10).Y)
}

func TestEnhancerRotate(t *testing.T) {
	e := NewEnhancer()
	img := image.NewGray(image.Rect(0, 0, 30, 10))
	img.SetGray(29, 0, color.Gray{Y: 255})

	same, err := e.Rotate(img, 0)
	require.NoError(t, err)
	assert.Same(t, img, same)

	rotated, err := e.Rotate(img, 90)
	require.NoError(t, err)
	assert.Equal(t, 10, rotated.Bounds().Dx())
	assert.Equal(t, 30, rotated.Bounds().Dy())
	// Counter-clockwise: top right corner moves to top left
	assert.Equal(t, uint8(255), rotated.GrayAt(0, 0).Y)

	upside, err := e.Rotate(img, 180)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), upside.GrayAt(0, 9).Y)

	_, err = e.Rotate(img, 45)
	assert.Error(t, err)
}

func TestMedianFilterRemovesSpeckle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(2, 2, color.Gray{Y: 0})

	out := MedianFilter3x3(img)
	assert.Equal(t, uint8(255), out.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(255), out.GrayAt(0, 0).Y)
}

func TestMedianFilterKeepsSolidRegions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 3; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := MedianFilter3x3(img)
	assert.Equal(t, uint8(255), out.GrayAt(1, 3).Y)
	assert.Equal(t, uint8(0), out.GrayAt(4, 3).Y)
}

func TestAdjustContrastAroundMean(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 140, G: 140, B: 140, A: 255})

	out := adjustContrast(img, 2)
	assert.Equal(t, uint8(80), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(160), out.NRGBAAt(1, 0).R)
}

func TestAdjustBrightnessClips(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 60, G: 60, B: 60, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	out := adjustBrightness(img, 2)
	assert.Equal(t, uint8(120), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 0).R)
}

func TestThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{128, 129, 10}

	out := threshold(img, 128)
	assert.Equal(t, []uint8{0, 255, 0}, out.Pix)
}

func TestApplyOrientation(t *testing.T) {
	img := testImage(30, 10)

	assert.Equal(t, img, ApplyOrientation(img, 1))
	assert.Equal(t, 10, ApplyOrientation(img, 6).Bounds().Dx())
	assert.Equal(t, 10, ApplyOrientation(img, 8).Bounds().Dx())
	assert.Equal(t, 30, ApplyOrientation(img, 3).Bounds().Dx())
}

func TestReadOrientationWithoutExif(t *testing.T) {
	assert.Equal(t, 1, ReadOrientation([]byte("not an image")))
}

func TestLoadImagePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, SavePNG(testImage(8, 4), path))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestLoadImageMissing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.PNG"))
	assert.True(t, IsImageFile("scan.tiff"))
	assert.False(t, IsImageFile("doc.pdf"))
	assert.True(t, IsPDFFile("doc.PDF"))
}

func TestRenderOrdersPagesNumerically(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(name string, args []string) error {
		prefix := args[len(args)-1]
		for _, suffix := range []string{"-10", "-02", "-1"} {
			if err := os.WriteFile(prefix+suffix+".png", []byte("x"), 0600); err != nil {
				return err
			}
		}
		return nil
	}}

	pages, err := NewPDFRenderer(runner, "", 0).Render(context.Background(), "in.pdf", dir)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, 10, pages[2].Number)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "pdftoppm -r 200 -png in.pdf "+filepath.Join(dir, "page"), strings.Join(runner.calls[0], " "))
}

func TestRenderFailure(t *testing.T) {
	runner := &fakeRunner{run: func(string, []string) error { return errors.New("boom") }}

	_, err := NewPDFRenderer(runner, "pdftoppm", 300).Render(context.Background(), "in.pdf", t.TempDir())
	assert.Error(t, err)
}

func TestRenderNoPages(t *testing.T) {
	_, err := NewPDFRenderer(&fakeRunner{}, "pdftoppm", 300).Render(context.Background(), "in.pdf", t.TempDir())
	assert.Error(t, err)
}

func TestRenderPageArgs(t *testing.T) {
	runner := &fakeRunner{}
	require.NoError(t, NewPDFRenderer(runner, "pdftoppm", 150).RenderPage(context.Background(), "in.pdf", 3, "/tmp/x/p3.png"))

	assert.Equal(t, "pdftoppm -r 150 -png -f 3 -l 3 -singlefile in.pdf /tmp/x/p3", strings.Join(runner.calls[0], " "))
}

func TestRasterizeImageInput(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, SavePNG(testImage(8, 4), src))
	work := t.TempDir()

	pages, err := NewInputRasterizer(&fakeRunner{}, "", 0).Rasterize(context.Background(), src, work)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.FileExists(t, pages[0].Path)
}

func TestRasterizeUnsupported(t *testing.T) {
	_, err := NewInputRasterizer(&fakeRunner{}, "", 0).Rasterize(context.Background(), "notes.txt", t.TempDir())
	assert.Error(t, err)
}
