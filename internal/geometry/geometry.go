/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry implements the pure constraint math for circular avatar
// cropping: zoom-range derivation, translation clamping, and crop-rectangle
// computation in source pixel space.
//
// All functions are stateless. Coordinates come in two spaces: layout points
// (gesture input, mask diameter) and source pixels; the pixel ratio of the
// display converts between them.
package geometry

import (
	"image"
	"math"
)

// Epsilon is the fixed relative tolerance used for every scale comparison
// (clamping, double-tap cycling, tests). Keeping it in one place avoids
// flaky boundary behavior.
const Epsilon = 1e-3

// MinSourceSidePx is the absolute resolution floor for a usable source
// image: its shorter side must be at least this many pixels.
const MinSourceSidePx = 320

// Vec is a 2D translation in layout points.
type Vec struct{ X, Y float64 }

// Size is a source image size in pixels.
type Size struct{ W, H int }

// MinSide returns the shorter dimension.
func (s Size) MinSide() int {
	if s.W < s.H {
		return s.W
	}
	return s.H
}

// Mask describes the per-session display constants the constraint math
// depends on.
type Mask struct {
	// DiameterPts is the circular mask diameter in layout points,
	// pre-resolved by the surrounding layout code.
	DiameterPts float64
	// PixelRatio is device pixels per layout point.
	PixelRatio float64
	// OutputSizePx is the side length of the square output.
	OutputSizePx int
	// QualityMultiplier is the oversampling factor required for a crisp
	// output (visible crop must hold at least OutputSizePx*Quality pixels).
	QualityMultiplier float64
	// MaxZoomMultiplier caps zoom relative to the cover scale.
	MaxZoomMultiplier float64
}

// Range is a derived zoom range. Min is the cover scale: the smallest zoom
// at which the displayed image still fully covers the mask on both axes.
type Range struct {
	Min, Max       float64
	QualityLimited bool
}

// ScaleEq reports whether two scales are equal within the shared relative
// epsilon.
func ScaleEq(a, b float64) bool {
	d := math.Abs(a - b)
	m := math.Max(math.Abs(a), math.Abs(b))
	if m == 0 {
		return true
	}
	return d/m <= Epsilon
}

// ZoomRange derives the valid zoom range for a source under a mask.
//
// The cover scale is governed by the tighter-fitting axis; the quality scale
// is the zoom beyond which the visible crop window holds fewer source pixels
// than OutputSizePx*QualityMultiplier requires. The returned range is always
// valid: for pathologically small sources Max clamps up to Min rather than
// going below it.
func ZoomRange(mask Mask, src Size) Range {
	if src.W <= 0 || src.H <= 0 || mask.DiameterPts <= 0 || mask.PixelRatio <= 0 {
		// Degenerate input: report a trivial unit range instead of NaN.
		return Range{Min: 1, Max: 1, QualityLimited: true}
	}
	wPts := float64(src.W) / mask.PixelRatio
	hPts := float64(src.H) / mask.PixelRatio
	cover := math.Max(mask.DiameterPts/wPts, mask.DiameterPts/hPts)

	quality := math.Inf(1)
	if mask.OutputSizePx > 0 && mask.QualityMultiplier > 0 {
		quality = (mask.DiameterPts * mask.PixelRatio) / (float64(mask.OutputSizePx) * mask.QualityMultiplier)
	}

	zoomCap := cover * mask.MaxZoomMultiplier
	limited := quality <= zoomCap
	max := math.Min(zoomCap, quality)
	if max < cover {
		max = cover
	}
	return Range{Min: cover, Max: max, QualityLimited: limited}
}

// ClampTranslation restricts a proposed translation so the displayed image,
// at the given scale, still fully covers the mask. This is the sole
// mechanism preventing blank space under the mask; callers must reapply it
// after every scale change because the allowed range shrinks with scale.
func ClampTranslation(scale float64, mask Mask, src Size, proposed Vec) Vec {
	if mask.PixelRatio <= 0 || scale <= 0 {
		return Vec{}
	}
	dispW := float64(src.W) / mask.PixelRatio * scale
	dispH := float64(src.H) / mask.PixelRatio * scale
	halfX := math.Max(0, (dispW-mask.DiameterPts)/2)
	halfY := math.Max(0, (dispH-mask.DiameterPts)/2)
	return Vec{
		X: clamp(proposed.X, -halfX, halfX),
		Y: clamp(proposed.Y, -halfY, halfY),
	}
}

// CropRect computes the square crop region in source pixels for the current
// scale and translation. The window center moves opposite the visual
// translation; the side length is DiameterPts*PixelRatio/scale. The result
// is integer-aligned and clamped at the origin (never the size) so it stays
// inside the source bounds.
func CropRect(scale float64, t Vec, mask Mask, src Size) image.Rectangle {
	if src.W <= 0 || src.H <= 0 || scale <= 0 || mask.PixelRatio <= 0 {
		return image.Rectangle{}
	}
	pxPerPt := mask.PixelRatio / scale
	side := int(math.Round(mask.DiameterPts * pxPerPt))
	if side < 1 {
		side = 1
	}
	// Degenerate scales below cover would ask for a window larger than the
	// source; cap so the origin clamp below can still succeed.
	if side > src.W {
		side = src.W
	}
	if side > src.H {
		side = src.H
	}

	cx := float64(src.W)/2 - t.X*pxPerPt
	cy := float64(src.H)/2 - t.Y*pxPerPt

	x := int(math.Round(cx - float64(side)/2))
	y := int(math.Round(cy - float64(side)/2))
	x = clampInt(x, 0, src.W-side)
	y = clampInt(y, 0, src.H-side)
	return image.Rect(x, y, x+side, y+side)
}

// ValidateMinimumPixelDensity reports whether the fully zoomed-out view
// still maps at least one source pixel per device pixel. Failing this is a
// quality warning, not an error.
func ValidateMinimumPixelDensity(minScale, pixelRatio float64) bool {
	if minScale <= 0 {
		return false
	}
	return pixelRatio/minScale >= 1.0-Epsilon
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
