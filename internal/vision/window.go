//go:build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/pipeline"
)

// WindowTitle is the title of the display window.
const WindowTitle = "Traffic Counter"

var (
	boxColor   = color.RGBA{R: 40, G: 180, B: 40, A: 255}
	dotColor   = color.RGBA{R: 255, A: 255}
	idColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	lineColor  = color.RGBA{G: 120, B: 255, A: 255}
	countColor = color.RGBA{R: 255, G: 255, A: 255}
	helpColor  = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// Window draws each frame with its overlays and reads the keyboard. It is
// both the pipeline's renderer and its controls: keys pressed while a frame
// is shown are returned by the next Poll.
type Window struct {
	win     *gocv.Window
	lastKey int
}

// NewWindow opens the display window.
func NewWindow() *Window {
	return &Window{win: gocv.NewWindow(WindowTitle), lastKey: KeyNone}
}

// Render implements pipeline.Renderer.
func (w *Window) Render(v pipeline.View) error {
	img, ok := v.Frame.Payload.(*gocv.Mat)
	if !ok {
		return fmt.Errorf("vision: frame %d has no image", v.Frame.Index)
	}

	for _, tr := range v.Tracks {
		b := tr.Box
		gocv.Rectangle(img, image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H), boxColor, 2)
		gocv.Circle(img, pt(tr.Centroid), 3, dotColor, -1)
		gocv.PutText(img, fmt.Sprintf("ID %d", tr.ID), image.Pt(b.X, max(b.Y-6, 10)),
			gocv.FontHersheySimplex, 0.45, idColor, 1)
	}
	for _, l := range v.Lines {
		gocv.Line(img, pt(l.Line.A), pt(l.Line.B), lineColor, 2)
	}
	for i, c := range v.Counts {
		gocv.PutText(img, fmt.Sprintf("%s: %d", c.Name, c.Count), image.Pt(12, 24+i*24),
			gocv.FontHersheySimplex, 0.62, countColor, 2)
	}
	gocv.PutText(img, "ESC - quit, P - pause", image.Pt(12, img.Rows()-16),
		gocv.FontHersheySimplex, 0.55, helpColor, 1)

	w.win.IMShow(*img)
	w.lastKey = w.win.WaitKey(1)
	return nil
}

// Poll implements pipeline.Controls with the key read during the last
// Render.
func (w *Window) Poll() pipeline.Signal {
	key := w.lastKey
	w.lastKey = KeyNone
	return KeySignal(key)
}

// Wait blocks until a key is pressed.
func (w *Window) Wait() pipeline.Signal {
	return WaitSignal(w.win.WaitKey(0))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

func pt(p geom.Point) image.Point {
	return image.Pt(p.X, p.Y)
}
