/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"math"
	"testing"

	"avatarcrop/internal/geometry"
	"avatarcrop/internal/session"
)

func newController() (*Controller, *session.Session) {
	mask := geometry.Mask{
		DiameterPts:       300,
		PixelRatio:        3.0,
		OutputSizePx:      512,
		QualityMultiplier: 1.25,
		MaxZoomMultiplier: 4.0,
	}
	s := session.New(mask, geometry.Size{W: 4000, H: 3000})
	return New(s, geometry.Vec{X: 150, Y: 150}), s
}

func TestPinchAppliesIncrementally(t *testing.T) {
	c, s := newController()
	c.Began()
	before := s.State().Scale
	st := c.Pinch(1.1)
	if math.Abs(st.Scale-before*1.1) > 1e-9 {
		t.Fatalf("scale %v, want %v", st.Scale, before*1.1)
	}
	// Each frame clamps; a huge cumulative pinch lands exactly on max.
	for i := 0; i < 100; i++ {
		st = c.Pinch(1.2)
	}
	if st.Scale != s.ZoomRange().Max {
		t.Fatalf("scale %v, want max %v", st.Scale, s.ZoomRange().Max)
	}
	c.Ended()
}

func TestPinchIgnoresNonPositiveFactor(t *testing.T) {
	c, s := newController()
	before := s.State()
	if st := c.Pinch(0); st != before {
		t.Fatalf("zero factor must not change state")
	}
}

func TestPanAccumulatesAndClamps(t *testing.T) {
	c, s := newController()
	c.Began()
	c.Pinch(2.0)

	st := c.Pan(geometry.Vec{X: 5, Y: 0})
	if st.Translation.X != 5 {
		t.Fatalf("pan did not accumulate: %v", st.Translation)
	}
	for i := 0; i < 1000; i++ {
		st = c.Pan(geometry.Vec{X: 10, Y: 10})
	}
	// Far beyond any half-range; clamp must have engaged.
	m := s.Params().Mask
	src := s.Params().Src
	dispW := float64(src.W) / m.PixelRatio * st.Scale
	if st.Translation.X > (dispW-m.DiameterPts)/2+1e-9 {
		t.Fatalf("translation %v beyond half-range", st.Translation)
	}
}

func TestDoubleTapCyclesThroughLevels(t *testing.T) {
	c, s := newController()
	z := s.ZoomRange()
	mid := (z.Min + z.Max) / 2
	center := geometry.Vec{X: 150, Y: 150}

	// Seed sits at min*1.02, between min and mid.
	if st := c.DoubleTap(center); !geometry.ScaleEq(st.Scale, mid) {
		t.Fatalf("first tap: scale %v, want mid %v", st.Scale, mid)
	}
	if st := c.DoubleTap(center); !geometry.ScaleEq(st.Scale, z.Max) {
		t.Fatalf("second tap: scale %v, want max %v", st.Scale, z.Max)
	}
	if st := c.DoubleTap(center); !geometry.ScaleEq(st.Scale, z.Min) {
		t.Fatalf("third tap wraps: scale %v, want min %v", st.Scale, z.Min)
	}
}

func TestDoubleTapAtCenterKeepsTranslation(t *testing.T) {
	c, s := newController()
	before := s.State().Translation
	st := c.DoubleTap(geometry.Vec{X: 150, Y: 150})
	if st.Translation != before {
		t.Fatalf("center tap moved translation: %v -> %v", before, st.Translation)
	}
}

func TestDoubleTapOffCenterShiftsTowardTap(t *testing.T) {
	c, s := newController()
	st := c.DoubleTap(geometry.Vec{X: 100, Y: 150}) // left of center, zooming in
	if st.Scale <= s.ZoomRange().Min*1.02 {
		t.Fatalf("expected zoom in, scale %v", st.Scale)
	}
	if st.Translation.X <= 0 {
		t.Fatalf("tap left of center should push content right, got %v", st.Translation)
	}
	if st.Translation.Y != 0 {
		t.Fatalf("pure horizontal offset must not move Y: %v", st.Translation)
	}
}

func TestDoubleTapWrapDiscardsFocalShift(t *testing.T) {
	c, s := newController()
	center := geometry.Vec{X: 150, Y: 150}
	c.DoubleTap(center)
	c.DoubleTap(center) // now at max
	st := c.DoubleTap(geometry.Vec{X: 40, Y: 60})
	if !geometry.ScaleEq(st.Scale, s.ZoomRange().Min) {
		t.Fatalf("wrap should land on min, got %v", st.Scale)
	}
	// At min zoom on a 4:3 source the Y axis has no slack at all.
	if st.Translation.Y != 0 {
		t.Fatalf("translation %v should be clamped to the min-zoom range", st.Translation)
	}
}
