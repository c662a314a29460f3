/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Quality is a derived assessment of the output that would result from the
// current zoom. It feeds both inline warnings and pre-confirmation gating.
type Quality struct {
	// PixelDensity is source pixels per device pixel at the current zoom.
	PixelDensity float64
	// MeetsPixelDensity is true when at least one source pixel backs each
	// device pixel.
	MeetsPixelDensity bool
	// MeetsQualityRequirement is true when the visible crop window holds at
	// least OutputSizePx*QualityMultiplier source pixels per side.
	MeetsQualityRequirement bool
	// MeetsSourceSizeRequirement is true when the source's shorter side is
	// at or above the absolute resolution floor.
	MeetsSourceSizeRequirement bool
	// Score is an overall 0..1 rating.
	Score float64
	// Acceptable gates confirmation. A low pixel density alone only warns.
	Acceptable bool
}

// AssessQuality rates the output quality for a given zoom. It combines the
// pixel density, the ratio of visible crop size to the required output size,
// and the absolute source-resolution floor.
func AssessQuality(scale float64, mask Mask, src Size) Quality {
	var q Quality
	if scale <= 0 || mask.PixelRatio <= 0 || src.W <= 0 || src.H <= 0 {
		return q
	}

	q.PixelDensity = mask.PixelRatio / scale
	q.MeetsPixelDensity = q.PixelDensity >= 1.0-Epsilon

	visibleSidePx := mask.DiameterPts * mask.PixelRatio / scale
	requiredPx := float64(mask.OutputSizePx) * mask.QualityMultiplier
	ratio := 1.0
	if requiredPx > 0 {
		ratio = visibleSidePx / requiredPx
	}
	q.MeetsQualityRequirement = ratio >= 1.0-Epsilon

	minSide := float64(src.MinSide())
	q.MeetsSourceSizeRequirement = minSide >= MinSourceSidePx

	q.Score = 0.4*clamp01(ratio) + 0.3*clamp01(q.PixelDensity) + 0.3*clamp01(minSide/MinSourceSidePx)
	q.Acceptable = q.MeetsSourceSizeRequirement && q.MeetsQualityRequirement
	return q
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
