/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture converts continuous pinch/pan/double-tap input into
// session transitions. Deltas are applied on every delivered frame, never
// batched, so the clamp invariants re-assert continuously and no unclamped
// intermediate state can reach the screen.
package gesture

import (
	"avatarcrop/internal/geometry"
	"avatarcrop/internal/session"
)

// Controller drives one session from gesture input. ViewCenter is the
// center of the crop view in the same point space as pan deltas and tap
// locations.
type Controller struct {
	sess       *session.Session
	viewCenter geometry.Vec
}

// New returns a controller for the session with the given view center.
func New(s *session.Session, viewCenter geometry.Vec) *Controller {
	return &Controller{sess: s, viewCenter: viewCenter}
}

// Began signals the start of a pinch or pan gesture.
func (c *Controller) Began() { c.sess.GestureBegan() }

// Ended signals the end of a pinch or pan gesture.
func (c *Controller) Ended() { c.sess.GestureEnded() }

// Pinch applies one frame of a pinch gesture: factor is the incremental
// scale change since the previous frame.
func (c *Controller) Pinch(factor float64) session.State {
	if factor <= 0 {
		return c.sess.State()
	}
	return c.sess.UpdateScale(c.sess.State().Scale * factor)
}

// Pan applies one frame of a pan gesture: delta is the incremental offset
// in points since the previous frame.
func (c *Controller) Pan(delta geometry.Vec) session.State {
	cur := c.sess.State().Translation
	return c.sess.UpdateTranslation(geometry.Vec{X: cur.X + delta.X, Y: cur.Y + delta.Y})
}

// DoubleTap cycles the zoom through {min, mid, max}, keeping the content
// under the tap point visually fixed. At (or within epsilon of) max it
// wraps back to min.
func (c *Controller) DoubleTap(p geometry.Vec) session.State {
	z := c.sess.ZoomRange()
	cur := c.sess.State().Scale
	target := nextLevel(z, cur)

	old := c.sess.State().Translation
	ratio := target / cur
	// Focal-point preservation: shift the translation so the tapped
	// content stays put while everything scales around it.
	t := geometry.Vec{
		X: old.X + (ratio-1)*(c.viewCenter.X-p.X),
		Y: old.Y + (ratio-1)*(c.viewCenter.Y-p.Y),
	}
	c.sess.UpdateScale(target)
	return c.sess.UpdateTranslation(t)
}

// nextLevel picks the next cycle stop strictly greater than cur, wrapping
// to min once at max.
func nextLevel(z geometry.Range, cur float64) float64 {
	if geometry.ScaleEq(cur, z.Max) {
		return z.Min
	}
	levels := [3]float64{z.Min, (z.Min + z.Max) / 2, z.Max}
	for _, l := range levels {
		if l > cur && !geometry.ScaleEq(l, cur) {
			return l
		}
	}
	return z.Min
}
