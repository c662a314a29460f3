/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"encoding/json"
	"strings"
	"testing"

	"avatarcrop/internal/geometry"
	"avatarcrop/internal/session"
)

func testSession() *session.Session {
	mask := geometry.Mask{
		DiameterPts:       300,
		PixelRatio:        3.0,
		OutputSizePx:      512,
		QualityMultiplier: 1.25,
		MaxZoomMultiplier: 4.0,
	}
	return session.New(mask, geometry.Size{W: 4000, H: 3000})
}

func TestBuildAndMarshal(t *testing.T) {
	s := testSession()
	doc := Build(s, s.CropRect(), "abc123", "image/png", ".png")
	if doc.SourceW != 4000 || doc.SourceH != 3000 {
		t.Fatalf("source size %dx%d", doc.SourceW, doc.SourceH)
	}
	if doc.Crop.W == 0 || doc.Crop.W != doc.Crop.H {
		t.Fatalf("crop not square: %+v", doc.Crop)
	}
	if doc.Quality != QualityOf(s.Quality()) {
		t.Fatalf("document quality diverges from the engine assessment: %+v", doc.Quality)
	}

	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.SourceHash != "abc123" || back.MIME != "image/png" {
		t.Fatalf("round trip lost fields: %+v", back)
	}
}

func TestMarshalRejectsInvalidDocument(t *testing.T) {
	s := testSession()
	doc := Build(s, s.CropRect(), "", "image/png", ".png")
	doc.Scale = 0 // schema requires a positive scale
	if _, err := Marshal(doc); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema violation, got %v", err)
	}
}

func TestQualityOf(t *testing.T) {
	q := QualityOf(geometry.Quality{PixelDensity: 2, Score: 0.8, Acceptable: true})
	if q.PixelDensity != 2 || q.Score != 0.8 || !q.Acceptable {
		t.Fatalf("conversion lost fields: %+v", q)
	}
}
