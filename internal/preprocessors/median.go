// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import "image"

// MedianFilter3x3 replaces each pixel with the median of its 3x3
// neighbourhood. Edge pixels reuse the nearest in-bounds neighbour.
func MedianFilter3x3(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := b.Min.Y + clampIndex(y+dy, h)
				for dx := -1; dx <= 1; dx++ {
					window[n] = img.Pix[img.PixOffset(b.Min.X+clampIndex(x+dx, w), yy)]
					n++
				}
			}
			out.Pix[y*out.Stride+x] = median9(&window)
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// median9 partially sorts the window in place
func median9(w *[9]uint8) uint8 {
	for i := 0; i <= 4; i++ {
		min := i
		for j := i + 1; j < 9; j++ {
			if w[j] < w[min] {
				min = j
			}
		}
		w[i], w[min] = w[min], w[i]
	}
	return w[4]
}
