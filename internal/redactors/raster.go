// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// BurnIn paints each annotation's fill over img. Rectangles are in pixel
// units scaled by scale and are rounded outward, then clipped to the image.
// It returns the number of rectangles that touched the image.
func BurnIn(img draw.Image, annotations []Annotation, scale float64) int {
	bounds := img.Bounds()
	painted := 0
	for _, a := range annotations {
		r := image.Rect(
			int(math.Floor(a.Rect.X0*scale)),
			int(math.Floor(a.Rect.Y0*scale)),
			int(math.Ceil(a.Rect.X1*scale)),
			int(math.Ceil(a.Rect.Y1*scale)),
		).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		draw.Draw(img, r, &image.Uniform{C: fillFor(img, a.Fill)}, image.Point{}, draw.Src)
		painted++
	}
	return painted
}

func fillFor(img draw.Image, c color.RGBA) color.Color {
	return img.ColorModel().Convert(c)
}
