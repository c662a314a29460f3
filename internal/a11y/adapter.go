/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package a11y derives read-only accessibility values from session
// snapshots: a discrete zoom percentage and textual hints for assistive
// technologies. It never feeds anything back into the session.
package a11y

import (
	"fmt"
	"math"

	"avatarcrop/internal/geometry"
	"avatarcrop/internal/session"
)

// ZoomPercent maps the current scale to a discrete 0..100 position within
// the zoom range, in steps of 5 so screen readers do not announce every
// gesture frame.
func ZoomPercent(st session.State, z geometry.Range) int {
	span := z.Max - z.Min
	if span <= 0 {
		return 100
	}
	p := (st.Scale - z.Min) / span * 100
	step := math.Round(p/5) * 5
	return int(math.Min(100, math.Max(0, step)))
}

// ZoomLabel is the spoken description of the current zoom position.
func ZoomLabel(st session.State, z geometry.Range) string {
	return fmt.Sprintf("Zoom %d percent", ZoomPercent(st, z))
}

// Hint returns the instruction text appropriate to the current snapshot, or
// an empty string when nothing should be announced.
func Hint(st session.State) string {
	switch {
	case st.Phase == session.GestureActive:
		return ""
	case st.Hints.ShowInstructions:
		return "Pinch to zoom, drag to reposition, double-tap to cycle zoom"
	case st.Hints.ShowQualityWarning:
		return "Image quality is reduced at this zoom level"
	default:
		return ""
	}
}
