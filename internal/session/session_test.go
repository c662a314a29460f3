/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"image"
	"math"
	"testing"

	"avatarcrop/internal/geometry"
)

func testMask() geometry.Mask {
	return geometry.Mask{
		DiameterPts:       300,
		PixelRatio:        3.0,
		OutputSizePx:      512,
		QualityMultiplier: 1.25,
		MaxZoomMultiplier: 4.0,
	}
}

func TestSeedState(t *testing.T) {
	s := New(testMask(), geometry.Size{W: 4000, H: 3000})
	st := s.State()
	z := s.ZoomRange()
	if st.Phase != Idle {
		t.Fatalf("seed phase = %v", st.Phase)
	}
	want := z.Min * 1.02
	if math.Abs(st.Scale-want) > 1e-9 {
		t.Fatalf("seed scale %v, want %v", st.Scale, want)
	}
	if st.Translation != (geometry.Vec{}) {
		t.Fatalf("seed translation not zero: %v", st.Translation)
	}
	if !st.Hints.ShowGrid || !st.Hints.ShowInstructions {
		t.Fatalf("grid and instructions start visible, got %+v", st.Hints)
	}
}

func TestSeedClampsToDegenerateRange(t *testing.T) {
	// 800x600 degenerates to {1.5, 1.5}: min*1.02 exceeds max and must
	// clamp back down.
	s := New(testMask(), geometry.Size{W: 800, H: 600})
	z := s.ZoomRange()
	if st := s.State(); st.Scale != z.Max {
		t.Fatalf("seed scale %v, want clamped %v", st.Scale, z.Max)
	}
}

func TestUpdateScaleClampsAndReclampsTranslation(t *testing.T) {
	s := New(testMask(), geometry.Size{W: 4000, H: 3000})
	z := s.ZoomRange()

	// Zoom in, pan to the limit, then zoom back out. The old translation
	// exceeds the shrunken half-range and must be pulled back in.
	s.UpdateScale(z.Max)
	s.UpdateTranslation(geometry.Vec{X: 1e6, Y: 1e6})
	atMax := s.State().Translation
	if atMax.X == 0 && atMax.Y == 0 {
		t.Fatalf("expected pan slack at max zoom")
	}

	st := s.UpdateScale(z.Min)
	if st.Scale != z.Min {
		t.Fatalf("scale %v, want %v", st.Scale, z.Min)
	}
	half := halfRange(z.Min, testMask(), geometry.Size{W: 4000, H: 3000})
	if math.Abs(st.Translation.X) > half.X+1e-9 || math.Abs(st.Translation.Y) > half.Y+1e-9 {
		t.Fatalf("translation %v not re-clamped to %v", st.Translation, half)
	}
}

func TestUpdateScaleIdempotent(t *testing.T) {
	s1 := New(testMask(), geometry.Size{W: 4000, H: 3000})
	s2 := New(testMask(), geometry.Size{W: 4000, H: 3000})
	s1.UpdateScale(0.9)
	once := s1.State()
	s2.UpdateScale(0.9)
	s2.UpdateScale(0.9)
	if twice := s2.State(); once != twice {
		t.Fatalf("UpdateScale not idempotent: %+v vs %+v", once, twice)
	}
}

func TestGestureLifecycleHints(t *testing.T) {
	s := New(testMask(), geometry.Size{W: 4000, H: 3000})

	st := s.GestureBegan()
	if st.Phase != GestureActive {
		t.Fatalf("phase after begin = %v", st.Phase)
	}
	if st.Hints.ShowGrid || st.Hints.ShowInstructions {
		t.Fatalf("grid and instructions hide during a gesture: %+v", st.Hints)
	}

	st = s.GestureEnded()
	if st.Phase != Idle {
		t.Fatalf("phase after end = %v", st.Phase)
	}
	if !st.Hints.ShowGrid {
		t.Fatalf("grid returns after the gesture")
	}
	if st.Hints.ShowInstructions {
		t.Fatalf("instructions never return within a session")
	}

	// Second gesture round trip: still no instructions.
	s.GestureBegan()
	if st = s.GestureEnded(); st.Hints.ShowInstructions {
		t.Fatalf("instructions reappeared after second gesture")
	}
}

func TestQualityWarningHintTracksZoom(t *testing.T) {
	s := New(testMask(), geometry.Size{W: 4000, H: 3000})
	if s.State().Hints.ShowQualityWarning {
		t.Fatalf("no warning expected at min zoom, %+v", s.Quality())
	}
	st := s.UpdateScale(s.ZoomRange().Max)
	// At max zoom density drops to 2.5 source px per device px and the
	// visible window still exceeds the required size; no warning either.
	if st.Hints.ShowQualityWarning {
		t.Fatalf("unexpected warning at max zoom: %+v", s.Quality())
	}

	small := New(testMask(), geometry.Size{W: 800, H: 600})
	if !small.State().Hints.ShowQualityWarning {
		t.Fatalf("expected warning for quality-starved source: %+v", small.Quality())
	}
}

func TestCropRectInvariantHeldThroughTransitions(t *testing.T) {
	src := geometry.Size{W: 1200, H: 800}
	s := New(testMask(), src)
	bounds := image.Rect(0, 0, src.W, src.H)
	z := s.ZoomRange()

	events := []Event{
		GestureBegan{},
		SetScale{Scale: z.Max * 2},
		SetTranslation{T: geometry.Vec{X: -1000, Y: 1000}},
		SetScale{Scale: z.Min / 2},
		GestureEnded{},
		SetTranslation{T: geometry.Vec{X: 3, Y: -7}},
	}
	for _, ev := range events {
		st := Apply(s.Params(), s.State(), ev)
		s.st = st
		rect := s.CropRect()
		if !rect.In(bounds) {
			t.Fatalf("after %T: rect %v outside %v", ev, rect, bounds)
		}
		if d := rect.Dx() - rect.Dy(); d > 1 || d < -1 {
			t.Fatalf("after %T: rect %v not square", ev, rect)
		}
		if st.Scale < z.Min || st.Scale > z.Max {
			t.Fatalf("after %T: scale %v outside [%v, %v]", ev, st.Scale, z.Min, z.Max)
		}
	}
}

func TestDegenerateSourceStillValid(t *testing.T) {
	s := New(testMask(), geometry.Size{W: 0, H: 0})
	st := s.State()
	if math.IsNaN(st.Scale) || st.Scale <= 0 {
		t.Fatalf("degenerate source produced invalid scale %v", st.Scale)
	}
}

func halfRange(scale float64, m geometry.Mask, src geometry.Size) geometry.Vec {
	dispW := float64(src.W) / m.PixelRatio * scale
	dispH := float64(src.H) / m.PixelRatio * scale
	return geometry.Vec{
		X: math.Max(0, (dispW-m.DiameterPts)/2),
		Y: math.Max(0, (dispH-m.DiameterPts)/2),
	}
}
