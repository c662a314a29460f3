/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the live crop transform for one editing session.
//
// State is an immutable snapshot and Apply is a pure transition function;
// the Session wrapper just holds the latest snapshot and the per-session
// constants. The view layer diffs snapshots instead of reacting to hidden
// mutation.
package session

import (
	"image"
	"log/slog"

	"avatarcrop/internal/geometry"
	applog "avatarcrop/internal/log"
)

// Phase is the gesture lifecycle state.
type Phase int

const (
	Idle Phase = iota
	GestureActive
)

func (p Phase) String() string {
	if p == GestureActive {
		return "gesture-active"
	}
	return "idle"
}

// Hints are UI affordance flags derived alongside the transform.
type Hints struct {
	ShowGrid           bool
	ShowInstructions   bool
	ShowQualityWarning bool
}

// State is one immutable snapshot of the session transform.
type State struct {
	Phase       Phase
	Scale       float64
	Translation geometry.Vec
	Hints       Hints
}

// Params are the per-session constants every transition needs.
type Params struct {
	Mask geometry.Mask
	Src  geometry.Size
	Zoom geometry.Range
}

// Event is a gesture-driven state transition input.
type Event interface{ isEvent() }

// SetScale proposes a new zoom scale; it is clamped into the zoom range and
// the translation is re-clamped against the new scale.
type SetScale struct{ Scale float64 }

// SetTranslation proposes a new pan offset in points.
type SetTranslation struct{ T geometry.Vec }

// GestureBegan marks the start of a continuous gesture. The grid hides for
// its duration and the instruction overlay hides for the rest of the
// session.
type GestureBegan struct{}

// GestureEnded marks the end of a continuous gesture; only the grid
// returns.
type GestureEnded struct{}

func (SetScale) isEvent()       {}
func (SetTranslation) isEvent() {}
func (GestureBegan) isEvent()   {}
func (GestureEnded) isEvent()   {}

// Seed returns the initial state for a session: slightly above minimum zoom
// so a sliver of pan slack exists, centered, grid and instructions shown.
func Seed(p Params) State {
	scale := clampScale(p.Zoom, p.Zoom.Min*1.02)
	st := State{
		Phase:       Idle,
		Scale:       scale,
		Translation: geometry.Vec{},
		Hints:       Hints{ShowGrid: true, ShowInstructions: true},
	}
	return refreshQualityHint(p, st)
}

// Apply is the pure transition function. The returned state always
// satisfies the clamp invariants: scale within the zoom range, translation
// within the half-range for that scale.
func Apply(p Params, st State, ev Event) State {
	switch e := ev.(type) {
	case SetScale:
		st.Scale = clampScale(p.Zoom, e.Scale)
		// Bounds shrink as scale decreases; the old translation may now
		// hang over the mask edge.
		st.Translation = geometry.ClampTranslation(st.Scale, p.Mask, p.Src, st.Translation)
		st = refreshQualityHint(p, st)
	case SetTranslation:
		st.Translation = geometry.ClampTranslation(st.Scale, p.Mask, p.Src, e.T)
	case GestureBegan:
		st.Phase = GestureActive
		st.Hints.ShowGrid = false
		st.Hints.ShowInstructions = false
	case GestureEnded:
		st.Phase = Idle
		st.Hints.ShowGrid = true
		// Instructions stay hidden for the rest of the session.
	}
	return st
}

func clampScale(z geometry.Range, v float64) float64 {
	if v < z.Min {
		return z.Min
	}
	if v > z.Max {
		return z.Max
	}
	return v
}

func refreshQualityHint(p Params, st State) State {
	q := geometry.AssessQuality(st.Scale, p.Mask, p.Src)
	st.Hints.ShowQualityWarning = !q.MeetsPixelDensity || !q.MeetsQualityRequirement
	return st
}

// Session binds a state snapshot to its constants. It is not safe for
// concurrent use; each editing session owns exactly one.
type Session struct {
	params Params
	st     State
	log    *slog.Logger
}

// New sets up a session for a decoded source under the given mask geometry.
// Degenerate sources still produce a valid, if trivial, zoom range.
func New(mask geometry.Mask, src geometry.Size) *Session {
	p := Params{Mask: mask, Src: src, Zoom: geometry.ZoomRange(mask, src)}
	s := &Session{
		params: p,
		st:     Seed(p),
		log:    applog.WithComponent("session"),
	}
	s.log.Debug("session setup",
		slog.Int("src_w", src.W), slog.Int("src_h", src.H),
		slog.Float64("min_scale", p.Zoom.Min), slog.Float64("max_scale", p.Zoom.Max),
		slog.Bool("quality_limited", p.Zoom.QualityLimited))
	return s
}

// State returns the current snapshot.
func (s *Session) State() State { return s.st }

// Params returns the per-session constants.
func (s *Session) Params() Params { return s.params }

// ZoomRange returns the derived zoom range.
func (s *Session) ZoomRange() geometry.Range { return s.params.Zoom }

// UpdateScale applies a clamped scale change and returns the new snapshot.
func (s *Session) UpdateScale(scale float64) State {
	s.st = Apply(s.params, s.st, SetScale{Scale: scale})
	return s.st
}

// UpdateTranslation applies a clamped pan change and returns the new
// snapshot.
func (s *Session) UpdateTranslation(t geometry.Vec) State {
	s.st = Apply(s.params, s.st, SetTranslation{T: t})
	return s.st
}

// GestureBegan transitions Idle -> GestureActive.
func (s *Session) GestureBegan() State {
	s.st = Apply(s.params, s.st, GestureBegan{})
	return s.st
}

// GestureEnded transitions GestureActive -> Idle.
func (s *Session) GestureEnded() State {
	s.st = Apply(s.params, s.st, GestureEnded{})
	return s.st
}

// CropRect derives the pixel-space crop square for the current snapshot.
func (s *Session) CropRect() image.Rectangle {
	return geometry.CropRect(s.st.Scale, s.st.Translation, s.params.Mask, s.params.Src)
}

// Quality derives the quality assessment for the current snapshot.
func (s *Session) Quality() geometry.Quality {
	return geometry.AssessQuality(s.st.Scale, s.params.Mask, s.params.Src)
}
