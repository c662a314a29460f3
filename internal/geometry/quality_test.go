/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "testing"

func TestAssessQualityLargeSource(t *testing.T) {
	m := stdMask()
	src := Size{4000, 3000}
	r := ZoomRange(m, src)

	q := AssessQuality(r.Min, m, src)
	if !q.MeetsSourceSizeRequirement {
		t.Fatalf("4000x3000 meets the size floor")
	}
	if !q.MeetsQualityRequirement {
		t.Fatalf("at min zoom the visible window holds ample pixels")
	}
	if !q.MeetsPixelDensity {
		t.Fatalf("density %v should pass at min zoom", q.PixelDensity)
	}
	if !q.Acceptable || q.Score < 0.99 {
		t.Fatalf("expected top score, got %+v", q)
	}
}

func TestAssessQualityTinySource(t *testing.T) {
	m := stdMask()
	src := Size{300, 200}
	r := ZoomRange(m, src)

	q := AssessQuality(r.Max, m, src)
	if q.MeetsSourceSizeRequirement {
		t.Fatalf("shorter side 200 is below the %dpx floor", MinSourceSidePx)
	}
	if q.Acceptable {
		t.Fatalf("tiny source must not be acceptable")
	}
	if q.Score <= 0 || q.Score >= 1 {
		t.Fatalf("score %v out of expected open interval", q.Score)
	}
}

func TestAssessQualityAtQualityScaleBoundary(t *testing.T) {
	m := stdMask()
	src := Size{4000, 3000}
	// qualityScale = 900/640; the visible window there is exactly the
	// required size, so within epsilon the requirement still holds.
	q := AssessQuality(900.0/640.0, m, src)
	if !q.MeetsQualityRequirement {
		t.Fatalf("boundary scale should meet the requirement within epsilon")
	}
}

func TestAssessQualityDegenerateInputs(t *testing.T) {
	q := AssessQuality(0, stdMask(), Size{100, 100})
	if q.Acceptable || q.Score != 0 {
		t.Fatalf("degenerate scale yields zero assessment, got %+v", q)
	}
}

func TestAssessQualityScoreMonotoneInZoom(t *testing.T) {
	m := stdMask()
	src := Size{4000, 3000}
	r := ZoomRange(m, src)
	lo := AssessQuality(r.Min, m, src)
	hi := AssessQuality(r.Max, m, src)
	if hi.Score > lo.Score {
		t.Fatalf("zooming in must not improve the score: %v -> %v", lo.Score, hi.Score)
	}
}
