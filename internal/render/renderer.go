/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render extracts the final crop window from a source image,
// resamples it into a square output buffer, and encodes it with an explicit
// sRGB tag. Rendering is the only non-trivial-time operation in the engine
// and is context-cancellable between stages.
package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"avatarcrop/internal/imageio"
	applog "avatarcrop/internal/log"
)

// ErrCropProcessingFailed marks a degenerate rectangle or encoder failure.
// Retryable: the caller may re-derive the rectangle from the still-valid
// transform and render again.
var ErrCropProcessingFailed = errors.New("crop processing failed")

// Encoding selects the output codec.
type Encoding int

const (
	// EncodeLossless produces PNG output.
	EncodeLossless Encoding = iota
	// EncodeLossy produces JPEG output at the configured quality.
	EncodeLossy
)

// Options controls a single render.
type Options struct {
	OutputSizePx int
	Encoding     Encoding
	// JPEGQuality is in [0,1]; ignored for lossless output.
	JPEGQuality float64
}

// Result describes the encoded output for the storage/upload collaborator.
type Result struct {
	MIME string
	Ext  string
	Size image.Point
}

// RenderSquare extracts rect from the source, resamples it to a square of
// OutputSizePx, and encodes it. The requested rectangle is re-clamped
// against the source bounds here; upstream clamping is not trusted. The
// extraction copies pixels so the shared read-only source is never aliased
// into the output path.
func RenderSquare(ctx context.Context, src *imageio.Source, rect image.Rectangle, opts Options) ([]byte, Result, error) {
	l := applog.WithComponent("render")
	if opts.OutputSizePx <= 0 {
		return nil, Result{}, fmt.Errorf("%w: output size %d", ErrCropProcessingFailed, opts.OutputSizePx)
	}

	bounds := image.Rect(0, 0, src.Size().W, src.Size().H)
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return nil, Result{}, fmt.Errorf("%w: empty crop rectangle after clamping", ErrCropProcessingFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, Result{}, err
	}

	// Copy, not a view: the source stays untouched and reusable.
	sub := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(sub, sub.Bounds(), src.Image(), rect.Min, draw.Src)

	if err := ctx.Err(); err != nil {
		return nil, Result{}, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, opts.OutputSizePx, opts.OutputSizePx))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), sub, sub.Bounds(), xdraw.Src, nil)

	if err := ctx.Err(); err != nil {
		return nil, Result{}, err
	}

	var buf bytes.Buffer
	var out []byte
	res := Result{Size: image.Pt(opts.OutputSizePx, opts.OutputSizePx)}
	switch opts.Encoding {
	case EncodeLossy:
		q := int(math.Round(opts.JPEGQuality * 100))
		if q < 1 {
			q = 1
		}
		if q > 100 {
			q = 100
		}
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
			return nil, Result{}, fmt.Errorf("%w: jpeg encode: %v", ErrCropProcessingFailed, err)
		}
		// JFIF streams without an embedded profile are sRGB by convention.
		out = buf.Bytes()
		res.MIME, res.Ext = "image/jpeg", ".jpg"
	default:
		if err := png.Encode(&buf, dst); err != nil {
			return nil, Result{}, fmt.Errorf("%w: png encode: %v", ErrCropProcessingFailed, err)
		}
		tagged, err := tagPNGAsSRGB(buf.Bytes())
		if err != nil {
			return nil, Result{}, fmt.Errorf("%w: %v", ErrCropProcessingFailed, err)
		}
		out = tagged
		res.MIME, res.Ext = "image/png", ".png"
	}
	l.Debug("rendered", slog.String("mime", res.MIME), slog.Int("bytes", len(out)),
		slog.Int("crop_side", rect.Dx()), slog.Int("out_side", opts.OutputSizePx))
	return out, res, nil
}

// Async runs RenderSquare on its own goroutine so gesture tracking never
// stalls. The returned channel delivers exactly one result; cancel ctx to
// discard an abandoned render.
func Async(ctx context.Context, src *imageio.Source, rect image.Rectangle, opts Options) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		data, res, err := RenderSquare(ctx, src, rect, opts)
		ch <- AsyncResult{Data: data, Result: res, Err: err}
	}()
	return ch
}

// AsyncResult is the outcome of an Async render.
type AsyncResult struct {
	Data   []byte
	Result Result
	Err    error
}

// PNG is layed out as an 8-byte signature followed by length/type/data/crc
// chunks. The stdlib encoder emits no color-space chunk, so the output
// would inherit whatever the consumer assumes; inject explicit sRGB and
// gAMA chunks right after IHDR to pin the interpretation, regardless of the
// source's original profile.
func tagPNGAsSRGB(data []byte) ([]byte, error) {
	const sigLen = 8
	if len(data) < sigLen+25 || string(data[sigLen+4:sigLen+8]) != "IHDR" {
		return nil, errors.New("malformed png stream")
	}
	ihdrLen := int(binary.BigEndian.Uint32(data[sigLen:]))
	ihdrEnd := sigLen + 4 + 4 + ihdrLen + 4

	// sRGB chunk: one byte rendering intent (0 = perceptual).
	srgb := buildChunk("sRGB", []byte{0})
	// gAMA chunk: gamma 1/2.2 scaled by 100000, required companion for
	// decoders that ignore sRGB.
	g := make([]byte, 4)
	binary.BigEndian.PutUint32(g, 45455)
	gama := buildChunk("gAMA", g)

	out := make([]byte, 0, len(data)+len(srgb)+len(gama))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, srgb...)
	out = append(out, gama...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}

func buildChunk(typ string, payload []byte) []byte {
	buf := make([]byte, 0, 12+len(payload))
	var ln [4]byte
	binary.BigEndian.PutUint32(ln[:], uint32(len(payload)))
	buf = append(buf, ln[:]...)
	buf = append(buf, typ...)
	buf = append(buf, payload...)
	crc := crc32.ChecksumIEEE(buf[4:])
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], crc)
	return append(buf, c[:]...)
}
