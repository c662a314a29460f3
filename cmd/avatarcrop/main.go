/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"avatarcrop/internal/config"
	"avatarcrop/internal/crash"
	"avatarcrop/internal/gesture"
	"avatarcrop/internal/geometry"
	"avatarcrop/internal/imageio"
	applog "avatarcrop/internal/log"
	"avatarcrop/internal/render"
	"avatarcrop/internal/report"
	"avatarcrop/internal/session"
	"avatarcrop/internal/storage"
	"avatarcrop/internal/telemetry"
	"avatarcrop/internal/ui"
	"avatarcrop/internal/upload"
	"avatarcrop/internal/version"
)

// viewSidePts is the nominal square viewport side used to resolve the mask
// diameter when cropping headless (no real screen to measure).
const viewSidePts = 390.0

func usage() {
	fmt.Println("Avatar Crop — circular avatar cropping engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  avatarcrop version|-v|--version            Show version")
	fmt.Println("  avatarcrop inspect <image>                  Print source info, zoom range and quality")
	fmt.Println("  avatarcrop crop <image> [flags]             Render a square avatar headless")
	fmt.Println("      -o <file>       output path (default avatar.png or avatar.jpg)")
	fmt.Println("      -zoom <f>       scale factor, clamped into the valid range (default min)")
	fmt.Println("      -pan-x <f>      horizontal pan in points, clamped (default 0)")
	fmt.Println("      -pan-y <f>      vertical pan in points, clamped (default 0)")
	fmt.Println("      -report <file>  also write a JSON crop report")
	fmt.Println("      -upload         upload the result instead of printing a path")
	fmt.Println("      -force          override soft validation warnings")
	fmt.Println("  avatarcrop history [n]                      Show the n most recent crops (default 10)")
	fmt.Println("  avatarcrop ui <image>                       Launch desktop preview (build with -tags fyne)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer crash.Recover()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Avatar Crop — circular avatar cropping engine")
			fmt.Println(version.String())
			return
		case "inspect":
			if len(args) < 3 {
				fmt.Println("inspect requires <image>")
				usage()
				os.Exit(2)
			}
			if err := inspect(l, args[2]); err != nil {
				l.Error("inspect failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "crop":
			if len(args) < 3 {
				fmt.Println("crop requires <image>")
				usage()
				os.Exit(2)
			}
			if err := crop(l, args[2], args[3:]); err != nil {
				l.Error("crop failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "history":
			limit := 10
			if len(args) >= 3 {
				if n, err := strconv.Atoi(args[2]); err == nil && n > 0 {
					limit = n
				}
			}
			if err := history(limit); err != nil {
				l.Error("history failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "ui":
			if len(args) < 3 {
				fmt.Println("ui requires <image>")
				usage()
				os.Exit(2)
			}
			if err := ui.Run(args[2]); err != nil {
				l.Error("ui failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}
	usage()
}

// newSession loads the image and seeds a crop session from the resolved
// configuration, using the nominal viewport for the mask diameter.
func newSession(cfg config.AppConfig, path string) (*imageio.Source, *session.Session, error) {
	src, err := imageio.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := imageio.ValidateSize(src); err != nil {
		return nil, nil, err
	}
	mask := geometry.Mask{
		DiameterPts:       cfg.Engine.MaskDiameterFraction * viewSidePts,
		PixelRatio:        1, // headless: source pixels map 1:1 to points
		OutputSizePx:      cfg.Engine.OutputSizePixels,
		QualityMultiplier: cfg.Engine.QualityMultiplier,
		MaxZoomMultiplier: cfg.Engine.MaxZoomMultiplier,
	}
	return src, session.New(mask, src.Size()), nil
}

func inspect(l *slog.Logger, path string) error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}
	src, sess, err := newSession(cfg, path)
	if err != nil {
		return err
	}
	z := sess.ZoomRange()
	q := sess.Quality()
	rect := sess.CropRect()
	sz := src.Size()

	fmt.Printf("Source:   %dx%d px (%s)\n", sz.W, sz.H, filepath.Base(path))
	fmt.Printf("Hash:     %s\n", src.Hash())
	fmt.Printf("Zoom:     min %.4f  max %.4f", z.Min, z.Max)
	if z.QualityLimited {
		fmt.Print("  (quality limited)")
	}
	fmt.Println()
	fmt.Printf("Crop:     %dx%d px at (%d,%d) at minimum zoom\n", rect.Dx(), rect.Dy(), rect.Min.X, rect.Min.Y)
	fmt.Printf("Quality:  score %.2f  density %.2f  acceptable %v\n", q.Score, q.PixelDensity, q.Acceptable)
	l.Debug("inspect done", slog.String("hash", src.Hash()))
	return nil
}

func crop(l *slog.Logger, path string, rest []string) error {
	fs := flag.NewFlagSet("crop", flag.ExitOnError)
	out := fs.String("o", "", "output path")
	zoom := fs.Float64("zoom", 0, "scale factor (0 means minimum)")
	panX := fs.Float64("pan-x", 0, "horizontal pan in points")
	panY := fs.Float64("pan-y", 0, "vertical pan in points")
	reportPath := fs.String("report", "", "JSON report output path")
	doUpload := fs.Bool("upload", false, "upload the rendered avatar")
	force := fs.Bool("force", false, "override soft validation warnings")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	src, sess, err := newSession(cfg, path)
	if err != nil {
		return err
	}

	// Drive the session exactly like a gesture would, so every value is
	// clamped by the same rules the interactive path uses.
	ctrl := gesture.New(sess, geometry.Vec{X: viewSidePts / 2, Y: viewSidePts / 2})
	ctrl.Began()
	if *zoom > 0 {
		sess.UpdateScale(*zoom)
	}
	if *panX != 0 || *panY != 0 {
		ctrl.Pan(geometry.Vec{X: *panX, Y: *panY})
	}
	ctrl.Ended()

	rect := sess.CropRect()
	rep := render.ValidateCrop(rect, src.Size(), cfg.Engine.OutputSizePixels, cfg.Engine.QualityMultiplier)
	if rep.Has(render.CropOutOfBounds) {
		return fmt.Errorf("crop rectangle is outside the image")
	}
	if !rep.Valid && !*force {
		for _, is := range rep.Issues {
			fmt.Println("Warning:", is.String())
		}
		return fmt.Errorf("crop has warnings; re-run with -force to render anyway")
	}

	enc := render.EncodeLossless
	ext := ".png"
	if cfg.Engine.Encoding == "lossy" {
		enc = render.EncodeLossy
		ext = ".jpg"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	data, res, err := render.RenderSquare(ctx, src, rect, render.Options{
		OutputSizePx: cfg.Engine.OutputSizePixels,
		Encoding:     enc,
		JPEGQuality:  cfg.Engine.JPEGQuality,
	})
	if err != nil {
		return err
	}
	telemetry.Event("crop_rendered", map[string]any{"mime": res.MIME, "size": res.Size.X})

	if *reportPath != "" {
		doc := report.Build(sess, rect, src.Hash(), res.MIME, res.Ext)
		blob, err := report.Marshal(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*reportPath, blob, 0o644); err != nil {
			return err
		}
		fmt.Println("Report:", *reportPath)
	}

	if *doUpload {
		cl := upload.New(cfg.Upload.BaseURL, token, time.Duration(cfg.Upload.TimeoutMs)*time.Millisecond)
		name := src.Hash()[:16] + res.Ext
		if err := cl.Put(ctx, name, res.MIME, data); err != nil {
			return err
		}
		fmt.Println("Uploaded:", name)
		record(l, src, sess, res, "")
		return nil
	}

	dest := *out
	if dest == "" {
		dest = "avatar" + ext
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	abs, _ := filepath.Abs(dest)
	fmt.Println(wroteSummary(abs, res, len(data)))
	record(l, src, sess, res, abs)
	return nil
}

// wroteSummary formats the one-line crop result for the terminal.
func wroteSummary(path string, res render.Result, byteCount int) string {
	return fmt.Sprintf("Wrote %s (%dx%d, %s, %d bytes)", path, res.Size.X, res.Size.Y, res.MIME, byteCount)
}

// record appends the crop to the local history database, best effort.
func record(l *slog.Logger, src *imageio.Source, sess *session.Session, res render.Result, outPath string) {
	path, err := storage.DefaultPath()
	if err != nil {
		l.Warn("history path", slog.Any("err", err))
		return
	}
	h, err := storage.Open(path)
	if err != nil {
		l.Warn("history open", slog.Any("err", err))
		return
	}
	defer h.Close()
	rect := sess.CropRect()
	q := sess.Quality()
	if _, err := h.Record(context.Background(), storage.Entry{
		SourceHash:   src.Hash(),
		CropX:        rect.Min.X,
		CropY:        rect.Min.Y,
		CropW:        rect.Dx(),
		CropH:        rect.Dy(),
		Scale:        sess.State().Scale,
		QualityScore: q.Score,
		MIME:         res.MIME,
		OutputPath:   outPath,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		l.Warn("history record", slog.Any("err", err))
	}
}

func history(limit int) error {
	path, err := storage.DefaultPath()
	if err != nil {
		return err
	}
	h, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()
	entries, err := h.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No crops recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %dx%d@(%d,%d)  zoom %.3f  score %.2f  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.SourceHash[:12], e.CropW, e.CropH, e.CropX, e.CropY,
			e.Scale, e.QualityScore, e.MIME)
	}
	return nil
}
