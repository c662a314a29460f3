//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"avatarcrop/internal/a11y"
	"avatarcrop/internal/config"
	"avatarcrop/internal/crash"
	"avatarcrop/internal/gesture"
	"avatarcrop/internal/geometry"
	"avatarcrop/internal/imageio"
	applog "avatarcrop/internal/log"
	"avatarcrop/internal/render"
	"avatarcrop/internal/session"
	"avatarcrop/internal/storage"
	"avatarcrop/internal/telemetry"
	"avatarcrop/internal/upload"
	"avatarcrop/internal/version"
)

// viewSidePts is the logical side length of the square crop viewport.
// It matches the nominal phone-width viewport the geometry defaults assume.
const viewSidePts float32 = 390

// Run starts the Fyne-based crop preview for the given image file.
func Run(imagePath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	defer crash.Recover()
	l.Info("starting UI", slog.String("image", imagePath), slog.String("version", version.String()))

	cfg, token, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	src, err := imageio.Load(imagePath)
	if err != nil {
		return err
	}
	if err := imageio.ValidateSize(src); err != nil {
		return err
	}

	fyneApp := app.NewWithID("avatarcrop")
	if th := themeForName(cfg.General.Theme); th != nil {
		fyneApp.Settings().SetTheme(th)
	}
	w := fyneApp.NewWindow("Avatar Crop")

	mask := geometry.Mask{
		DiameterPts:       cfg.Engine.MaskDiameterFraction * float64(viewSidePts),
		PixelRatio:        pixelRatio(w),
		OutputSizePx:      cfg.Engine.OutputSizePixels,
		QualityMultiplier: cfg.Engine.QualityMultiplier,
		MaxZoomMultiplier: cfg.Engine.MaxZoomMultiplier,
	}
	sess := session.New(mask, src.Size())
	ctrl := gesture.New(sess, geometry.Vec{X: float64(viewSidePts) / 2, Y: float64(viewSidePts) / 2})

	zoomLabel := widget.NewLabel("")
	hintLabel := widget.NewLabel("")
	hintLabel.Wrapping = fyne.TextWrapWord

	cv := NewCropView(src, sess, ctrl)
	cv.showGrid = cfg.General.ShowGrid
	cv.OnState = func(st session.State) {
		zoomLabel.SetText(a11y.ZoomLabel(st, sess.ZoomRange()))
		hintLabel.SetText(a11y.Hint(st))
	}
	cv.OnState(sess.State())

	saveBtn := widget.NewButton("Save…", func() {
		confirmAndRender(w, cfg, src, sess, func(data []byte, res render.Result) {
			saveDialog(w, l, src, sess, data, res)
		}, l)
	})
	var items []fyne.CanvasObject
	items = append(items, saveBtn)
	if strings.TrimSpace(cfg.Upload.BaseURL) != "" {
		items = append(items, widget.NewButton("Upload", func() {
			confirmAndRender(w, cfg, src, sess, func(data []byte, res render.Result) {
				uploadAvatar(w, l, cfg, token, src, data, res)
			}, l)
		}))
	}
	items = append(items, widget.NewButton("Reset", func() {
		st := sess.UpdateScale(sess.ZoomRange().Min)
		st = sess.UpdateTranslation(geometry.Vec{})
		cv.Refresh()
		cv.OnState(st)
	}))

	toolbar := container.NewHBox(items...)
	status := container.NewVBox(zoomLabel, hintLabel)
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, cv))
	w.Resize(fyne.NewSize(viewSidePts+40, viewSidePts+160))
	w.ShowAndRun()
	return nil
}

// forcedVariantTheme pins the light or dark variant regardless of the
// system setting.
type forcedVariantTheme struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

func (t *forcedVariantTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.Theme.Color(name, t.variant)
}

// themeForName maps the configured theme to a Fyne theme. "system" (and
// anything unrecognized) returns nil, meaning leave the default alone.
func themeForName(name string) fyne.Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return &forcedVariantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantDark}
	case "light":
		return &forcedVariantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantLight}
	default:
		return nil
	}
}

// pixelRatio reports the device pixel ratio of the window's screen, falling
// back to 1 before the canvas is realized.
func pixelRatio(w fyne.Window) float64 {
	if c := w.Canvas(); c != nil && c.Scale() > 0 {
		return float64(c.Scale())
	}
	return 1
}

// confirmAndRender validates the current crop, asks the user to override
// soft issues, renders the square output and hands the bytes to done.
func confirmAndRender(w fyne.Window, cfg config.AppConfig, src *imageio.Source, sess *session.Session, done func([]byte, render.Result), l *slog.Logger) {
	rect := sess.CropRect()
	rep := render.ValidateCrop(rect, src.Size(), cfg.Engine.OutputSizePixels, cfg.Engine.QualityMultiplier)

	doRender := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, res, err := render.RenderSquare(ctx, src, rect, renderOptions(cfg))
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		l.Info("crop rendered", slog.String("mime", res.MIME), slog.Int("bytes", len(data)))
		telemetry.Event("crop_rendered", map[string]any{"mime": res.MIME, "size": res.Size.X})
		done(data, res)
	}

	if rep.Has(render.CropOutOfBounds) {
		dialog.ShowError(fmt.Errorf("crop rectangle is outside the image"), w)
		return
	}
	if !rep.Valid {
		msgs := make([]string, 0, len(rep.Issues))
		for _, is := range rep.Issues {
			msgs = append(msgs, is.String())
		}
		dialog.ShowConfirm("Crop warnings", strings.Join(msgs, "\n")+"\n\nSave anyway?", func(ok bool) {
			if ok {
				doRender()
			}
		}, w)
		return
	}
	doRender()
}

func renderOptions(cfg config.AppConfig) render.Options {
	enc := render.EncodeLossless
	if cfg.Engine.Encoding == "lossy" {
		enc = render.EncodeLossy
	}
	return render.Options{
		OutputSizePx: cfg.Engine.OutputSizePixels,
		Encoding:     enc,
		JPEGQuality:  cfg.Engine.JPEGQuality,
	}
}

func saveDialog(w fyne.Window, l *slog.Logger, src *imageio.Source, sess *session.Session, data []byte, res render.Result) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if wc == nil {
			return
		}
		defer wc.Close()
		if _, err := wc.Write(data); err != nil {
			dialog.ShowError(err, w)
			return
		}
		l.Info("avatar saved", slog.String("uri", wc.URI().String()))
		recordHistory(l, src, sess, res, wc.URI().Path())
	}, w)
	d.SetFileName("avatar" + res.Ext)
	d.Show()
}

func uploadAvatar(w fyne.Window, l *slog.Logger, cfg config.AppConfig, token string, src *imageio.Source, data []byte, res render.Result) {
	cl := upload.New(cfg.Upload.BaseURL, token, time.Duration(cfg.Upload.TimeoutMs)*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	name := src.Hash()[:16] + res.Ext
	if err := cl.Put(ctx, name, res.MIME, data); err != nil {
		dialog.ShowError(err, w)
		return
	}
	l.Info("avatar uploaded", slog.String("name", name))
	dialog.ShowInformation("Upload", "Avatar uploaded as "+name, w)
}

// recordHistory appends the crop to the local history database. Failures are
// logged but never surfaced; history is best effort.
func recordHistory(l *slog.Logger, src *imageio.Source, sess *session.Session, res render.Result, outPath string) {
	path, err := storage.DefaultPath()
	if err != nil {
		l.Warn("history path", slog.String("error", err.Error()))
		return
	}
	h, err := storage.Open(path)
	if err != nil {
		l.Warn("history open", slog.String("error", err.Error()))
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
		l.Warn("history record", slog.String("error", err.Error()))
	}
}

// CropView is the interactive crop viewport: the source image pans and zooms
// under a fixed circular mask. Drag pans, the wheel zooms, double tap cycles
// the zoom levels around the tapped point.
type CropView struct {
	widget.BaseWidget

	src  *imageio.Source
	sess *session.Session
	ctrl *gesture.Controller

	showGrid bool
	dragging bool

	// OnState is invoked after every state transition with the new snapshot.
	OnState func(session.State)
}

// NewCropView builds the viewport for one session.
func NewCropView(src *imageio.Source, sess *session.Session, ctrl *gesture.Controller) *CropView {
	cv := &CropView{src: src, sess: sess, ctrl: ctrl, showGrid: true}
	cv.ExtendBaseWidget(cv)
	return cv
}

func (cv *CropView) notify() {
	cv.Refresh()
	if cv.OnState != nil {
		cv.OnState(cv.sess.State())
	}
}

// Tapped is required so Fyne routes double taps to this widget.
func (cv *CropView) Tapped(_ *fyne.PointEvent) {}

// DoubleTapped cycles the zoom level, keeping the tapped content fixed.
func (cv *CropView) DoubleTapped(e *fyne.PointEvent) {
	cv.ctrl.DoubleTap(geometry.Vec{X: float64(e.Position.X), Y: float64(e.Position.Y)})
	cv.notify()
}

// Dragged pans the image by the incremental drag delta.
func (cv *CropView) Dragged(e *fyne.DragEvent) {
	if !cv.dragging {
		cv.dragging = true
		cv.ctrl.Began()
	}
	cv.ctrl.Pan(geometry.Vec{X: float64(e.Dragged.DX), Y: float64(e.Dragged.DY)})
	cv.notify()
}

// DragEnd settles the gesture.
func (cv *CropView) DragEnd() {
	if cv.dragging {
		cv.dragging = false
		cv.ctrl.Ended()
		cv.notify()
	}
}

// Scrolled zooms with the wheel; a pinch on trackpads arrives the same way.
func (cv *CropView) Scrolled(e *fyne.ScrollEvent) {
	factor := 1 + float64(e.Scrolled.DY)*0.01
	if factor <= 0.1 {
		factor = 0.1
	}
	cv.ctrl.Began()
	cv.ctrl.Pinch(factor)
	cv.ctrl.Ended()
	cv.notify()
}

// PreferredSize keeps the viewport square at the nominal side length.
func (cv *CropView) PreferredSize() fyne.Size { return fyne.NewSize(viewSidePts, viewSidePts) }

// CreateRenderer builds the layered objects we position manually.
func (cv *CropView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 24, G: 24, B: 28, A: 255})

	img := canvas.NewImageFromImage(cv.src.Image())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth

	mask := canvas.NewCircle(color.RGBA{0, 0, 0, 0})
	mask.StrokeColor = color.RGBA{R: 255, G: 255, B: 255, A: 230}
	mask.StrokeWidth = 2

	var grid []*canvas.Line
	for i := 0; i < 4; i++ {
		ln := canvas.NewLine(color.RGBA{R: 255, G: 255, B: 255, A: 90})
		ln.StrokeWidth = 1
		grid = append(grid, ln)
	}

	objs := []fyne.CanvasObject{bg, img, mask}
	for _, ln := range grid {
		objs = append(objs, ln)
	}
	return &cropViewRenderer{cv: cv, objects: objs, bg: bg, img: img, mask: mask, grid: grid}
}

type cropViewRenderer struct {
	cv      *CropView
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	img     *canvas.Image
	mask    *canvas.Circle
	grid    []*canvas.Line
}

func (r *cropViewRenderer) Destroy()                     {}
func (r *cropViewRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *cropViewRenderer) MinSize() fyne.Size           { return r.cv.PreferredSize() }
func (r *cropViewRenderer) Refresh()                     { r.Layout(r.cv.Size()); canvas.Refresh(r.cv) }

func (r *cropViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	st := r.cv.sess.State()
	p := r.cv.sess.Params()
	sigma := p.Mask.PixelRatio

	// Displayed image size in points at the current scale.
	dispW := float32(float64(p.Src.W) / sigma * st.Scale)
	dispH := float32(float64(p.Src.H) / sigma * st.Scale)
	cx := size.Width / 2
	cy := size.Height / 2
	r.img.Resize(fyne.NewSize(dispW, dispH))
	r.img.Move(fyne.NewPos(cx-dispW/2+float32(st.Translation.X), cy-dispH/2+float32(st.Translation.Y)))

	d := float32(p.Mask.DiameterPts)
	r.mask.Resize(fyne.NewSize(d, d))
	r.mask.Move(fyne.NewPos(cx-d/2, cy-d/2))

	// Rule-of-thirds grid inside the mask's bounding square.
	show := r.cv.showGrid && st.Hints.ShowGrid
	x0, y0 := cx-d/2, cy-d/2
	for i, ln := range r.grid {
		if !show {
			ln.Hide()
			continue
		}
		ln.Show()
		switch i {
		case 0:
			ln.Position1 = fyne.NewPos(x0+d/3, y0)
			ln.Position2 = fyne.NewPos(x0+d/3, y0+d)
		case 1:
			ln.Position1 = fyne.NewPos(x0+2*d/3, y0)
			ln.Position2 = fyne.NewPos(x0+2*d/3, y0+d)
		case 2:
			ln.Position1 = fyne.NewPos(x0, y0+d/3)
			ln.Position2 = fyne.NewPos(x0+d, y0+d/3)
		case 3:
			ln.Position1 = fyne.NewPos(x0, y0+2*d/3)
			ln.Position2 = fyne.NewPos(x0+d, y0+2*d/3)
		}
	}
}
