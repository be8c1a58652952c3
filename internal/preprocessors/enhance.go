// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	DefaultScale      = 2
	DefaultContrast   = 2.0
	DefaultBrightness = 2.0
	DefaultThreshold  = 128
)

// Enhancer prepares a page raster for OCR
type Enhancer struct {
	Scale      int
	Contrast   float64
	Brightness float64
	Threshold  uint8
}

// NewEnhancer returns the standard enhancement chain
func NewEnhancer() *Enhancer {
	return &Enhancer{
		Scale:      DefaultScale,
		Contrast:   DefaultContrast,
		Brightness: DefaultBrightness,
		Threshold:  DefaultThreshold,
	}
}

// Enhance converts to grayscale, upscales with Lanczos, boosts contrast and
// brightness, removes speckle with a 3x3 median and binarises. Orientation
// is handled separately by Rotate once OSD has run on the result.
func (e *Enhancer) Enhance(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)

	b := gray.Bounds()
	scale := e.Scale
	if scale < 1 {
		scale = 1
	}
	resized := imaging.Resize(gray, b.Dx()*scale, b.Dy()*scale, imaging.Lanczos)

	adjusted := adjustContrast(resized, e.Contrast)
	adjusted = adjustBrightness(adjusted, e.Brightness)

	filtered := MedianFilter3x3(toGray(adjusted))
	return threshold(filtered, e.Threshold)
}

// Rotate turns img counter-clockwise by degrees, which must be a multiple
// of 90.
func (e *Enhancer) Rotate(img *image.Gray, degrees int) (*image.Gray, error) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img, nil
	case 90:
		return toGray(imaging.Rotate90(img)), nil
	case 180:
		return toGray(imaging.Rotate180(img)), nil
	case 270:
		return toGray(imaging.Rotate270(img)), nil
	default:
		return nil, fmt.Errorf("unsupported rotation %d", degrees)
	}
}

// adjustContrast blends each pixel with the mean luminance:
// out = mean + factor*(p - mean)
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	hist := imaging.Histogram(img)
	var mean float64
	for i, v := range hist {
		mean += float64(i) * v
	}
	mean = math.Floor(mean + 0.5)

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(mean + factor*(float64(c.R)-mean)),
			G: clamp(mean + factor*(float64(c.G)-mean)),
			B: clamp(mean + factor*(float64(c.B)-mean)),
			A: c.A,
		}
	})
}

// adjustBrightness blends each pixel with black: out = factor*p
func adjustBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(factor * float64(c.R)),
			G: clamp(factor * float64(c.G)),
			B: clamp(factor * float64(c.B)),
			A: c.A,
		}
	})
}

func threshold(img *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, p := range img.Pix {
		if p > level {
			out.Pix[i] = 255
		}
	}
	return out
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// toGray copies any image into a zero-origin 8-bit gray raster
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := img.(*image.NRGBA); ok {
		// Skip the generic At path for imaging output
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := n.NRGBAAt(b.Min.X+x, b.Min.Y+y)
				out.Pix[y*out.Stride+x] = color.GrayModel.Convert(c).(color.Gray).Y
			}
		}
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

// ToGray exposes the gray conversion used by the chain
func ToGray(img image.Image) *image.Gray {
	return toGray(img)
}
