/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageio loads decoded, orientation-normalized source images for a
// crop session. It is a thin collaborator wrapper: orientation handling is
// an upstream responsibility, and the engine only ever reads the buffer.
package imageio

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"

	// Registered decoders for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	"avatarcrop/internal/geometry"
)

// ErrImageDecodingFailed marks an unreadable source. Fatal to the session;
// there is no retry without a new image.
var ErrImageDecodingFailed = errors.New("image decoding failed")

// ErrImageTooSmall marks a source whose shorter side is below the
// resolution floor. Blocking before a session proceeds.
var ErrImageTooSmall = errors.New("image too small")

// Source is an immutable decoded pixel buffer. It is owned by one session
// and read-only to the engine; the renderer copies out of it, never writes.
type Source struct {
	img  *image.NRGBA
	size geometry.Size
	hash string
}

// Decode reads and decodes a PNG or JPEG stream into a Source.
func Decode(r io.Reader) (*Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodingFailed, err)
	}
	sum := sha256.Sum256(raw)
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodingFailed, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s has empty bounds", ErrImageDecodingFailed, format)
	}
	// Normalize to NRGBA so later pixel extraction is uniform.
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Source{
		img:  nrgba,
		size: geometry.Size{W: b.Dx(), H: b.Dy()},
		hash: hex.EncodeToString(sum[:]),
	}, nil
}

// Load opens and decodes a source image file.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodingFailed, err)
	}
	defer f.Close()
	return Decode(f)
}

// ValidateSize enforces the absolute resolution floor before a session may
// proceed.
func ValidateSize(s *Source) error {
	if s.size.MinSide() < geometry.MinSourceSidePx {
		return fmt.Errorf("%w: shorter side %dpx, need at least %dpx",
			ErrImageTooSmall, s.size.MinSide(), geometry.MinSourceSidePx)
	}
	return nil
}

// Size returns the pixel dimensions.
func (s *Source) Size() geometry.Size { return s.size }

// Image returns the decoded buffer. Callers must treat it as read-only.
func (s *Source) Image() *image.NRGBA { return s.img }

// Hash returns the hex SHA-256 of the encoded source bytes.
func (s *Source) Hash() string { return s.hash }

// FromImage wraps an already-decoded image, copying it into a fresh NRGBA
// buffer. Intended for tests and in-process callers.
func FromImage(img image.Image) *Source {
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return &Source{img: nrgba, size: geometry.Size{W: b.Dx(), H: b.Dy()}}
}
