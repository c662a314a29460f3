/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := encodePNG(t, 640, 480)
	src, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s := src.Size(); s.W != 640 || s.H != 480 {
		t.Fatalf("size %v, want 640x480", s)
	}
	if src.Hash() == "" {
		t.Fatalf("missing content hash")
	}
	if src.Image().Rect.Min != (image.Point{}) {
		t.Fatalf("buffer not normalized to origin")
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, ErrImageDecodingFailed) {
		t.Fatalf("want ErrImageDecodingFailed, got %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.png")
	if err := os.WriteFile(path, encodePNG(t, 400, 400), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s := src.Size(); s.W != 400 || s.H != 400 {
		t.Fatalf("size %v, want 400x400", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrImageDecodingFailed) {
		t.Fatalf("want ErrImageDecodingFailed, got %v", err)
	}
}

func TestValidateSize(t *testing.T) {
	big, _ := Decode(bytes.NewReader(encodePNG(t, 320, 800)))
	if err := ValidateSize(big); err != nil {
		t.Fatalf("320px shorter side meets the floor: %v", err)
	}
	small, _ := Decode(bytes.NewReader(encodePNG(t, 319, 800)))
	if err := ValidateSize(small); !errors.Is(err, ErrImageTooSmall) {
		t.Fatalf("want ErrImageTooSmall, got %v", err)
	}
}
