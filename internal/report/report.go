/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report builds the JSON hand-off document that accompanies a
// rendered avatar: the final crop window, the zoom range it came from, and
// the quality assessment. Consumers (preview UI, upload pipeline) parse
// this instead of poking at engine internals; the document is schema
// validated before it leaves the process.
package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"image"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"avatarcrop/internal/geometry"
	"avatarcrop/internal/session"
)

//go:embed schema.json
var schemaBytes []byte

// Rect is a JSON-friendly pixel rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Document is the session hand-off report.
type Document struct {
	SourceHash string    `json:"source_hash,omitempty"`
	SourceW    int       `json:"source_w"`
	SourceH    int       `json:"source_h"`
	Crop       Rect      `json:"crop"`
	Scale      float64   `json:"scale"`
	MinScale   float64   `json:"min_scale"`
	MaxScale   float64   `json:"max_scale"`
	Quality    Quality   `json:"quality"`
	MIME       string    `json:"mime,omitempty"`
	Ext        string    `json:"ext,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Quality mirrors the engine assessment for external consumers.
type Quality struct {
	PixelDensity float64 `json:"pixel_density"`
	Score        float64 `json:"score"`
	Acceptable   bool    `json:"acceptable"`
}

// Build assembles a document from the current session snapshot.
func Build(s *session.Session, cropRect image.Rectangle, sourceHash, mime, ext string) Document {
	st := s.State()
	z := s.ZoomRange()
	return Document{
		SourceHash: sourceHash,
		SourceW:    s.Params().Src.W,
		SourceH:    s.Params().Src.H,
		Crop:       Rect{X: cropRect.Min.X, Y: cropRect.Min.Y, W: cropRect.Dx(), H: cropRect.Dy()},
		Scale:      st.Scale,
		MinScale:   z.Min,
		MaxScale:   z.Max,
		Quality:    QualityOf(s.Quality()),
		MIME:       mime,
		Ext:        ext,
		CreatedAt:  time.Now().UTC(),
	}
}

// Marshal validates the document against the embedded schema and returns
// its JSON encoding.
func Marshal(d Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("report does not conform to schema: %v", res.Errors())
	}
	return data, nil
}

// QualityOf converts an engine assessment.
func QualityOf(q geometry.Quality) Quality {
	return Quality{PixelDensity: q.PixelDensity, Score: q.Score, Acceptable: q.Acceptable}
}
