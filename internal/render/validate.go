/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"math"

	"avatarcrop/internal/geometry"
)

// Issue is one finding from pre-confirmation crop validation.
type Issue int

const (
	// CropOutOfBounds: the rectangle escapes the source. Not overridable.
	CropOutOfBounds Issue = iota
	// CropTooSmall: fewer source pixels than the quality requirement.
	CropTooSmall
	// NonSquareAspectRatio: aspect deviates more than 1% from square.
	NonSquareAspectRatio
	// TooCloseToEdges: within 2px of the source boundary, a common source
	// of resampling artifacts.
	TooCloseToEdges
)

func (i Issue) String() string {
	switch i {
	case CropOutOfBounds:
		return "crop out of bounds"
	case CropTooSmall:
		return "crop too small"
	case NonSquareAspectRatio:
		return "non-square aspect ratio"
	case TooCloseToEdges:
		return "too close to edges"
	default:
		return "unknown issue"
	}
}

// Overridable reports whether the UI may warn and proceed anyway.
func (i Issue) Overridable() bool { return i != CropOutOfBounds }

// Report is the outcome of ValidateCrop.
type Report struct {
	Issues []Issue
	Valid  bool
}

// Has reports whether the given issue was found.
func (r Report) Has(i Issue) bool {
	for _, have := range r.Issues {
		if have == i {
			return true
		}
	}
	return false
}

// edgeProximityPx is the warning distance from the source boundary.
const edgeProximityPx = 2

// aspectTolerance is the allowed relative deviation from a square aspect.
const aspectTolerance = 0.01

// ValidateCrop re-checks a crop rectangle immediately before the final
// render, so stale transforms never reach the encoder. A clean clamp path
// should make every issue here rare; findings usually indicate a
// configuration bug.
func ValidateCrop(rect image.Rectangle, src geometry.Size, outputSizePx int, qualityMultiplier float64) Report {
	var rep Report
	bounds := image.Rect(0, 0, src.W, src.H)

	if rect.Empty() || !rect.In(bounds) {
		rep.Issues = append(rep.Issues, CropOutOfBounds)
	}

	required := float64(outputSizePx) * qualityMultiplier
	if float64(rect.Dx()) < required || float64(rect.Dy()) < required {
		rep.Issues = append(rep.Issues, CropTooSmall)
	}

	if rect.Dy() > 0 {
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if math.Abs(aspect-1) > aspectTolerance {
			rep.Issues = append(rep.Issues, NonSquareAspectRatio)
		}
	}

	if !rect.Empty() &&
		(rect.Min.X < edgeProximityPx || rect.Min.Y < edgeProximityPx ||
			src.W-rect.Max.X < edgeProximityPx || src.H-rect.Max.Y < edgeProximityPx) {
		rep.Issues = append(rep.Issues, TooCloseToEdges)
	}

	rep.Valid = len(rep.Issues) == 0
	return rep
}
