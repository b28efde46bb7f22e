package report

import (
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/fsutil"
	"github.com/banshee-data/flow.report/internal/monitoring"
)

// Timeline collects crossing events during a run and plots the cumulative
// count of every line against the frame index when the run ends.
type Timeline struct {
	Path  string
	Lines []string // Plot order; lines without events still get a flat series
	FS    fsutil.FileSystem

	mu     sync.Mutex
	events []crossing.Event
}

// NewTimeline returns a timeline for the named lines.
func NewTimeline(path string, lines []string) *Timeline {
	return &Timeline{Path: path, Lines: append([]string(nil), lines...)}
}

// RecordEvents implements pipeline.EventSink.
func (t *Timeline) RecordEvents(runID string, events []crossing.Event) error {
	t.mu.Lock()
	t.events = append(t.events, events...)
	t.mu.Unlock()
	return nil
}

// Series returns, per line, the cumulative count after each of its events,
// starting from (0, 0) and ending at lastFrame.
func (t *Timeline) Series(lastFrame int64) map[string]plotter.XYs {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]plotter.XYs, len(t.Lines))
	for _, name := range t.Lines {
		out[name] = plotter.XYs{{X: 0, Y: 0}}
	}
	for _, ev := range t.events {
		pts, ok := out[ev.Line]
		if !ok {
			pts = plotter.XYs{{X: 0, Y: 0}}
		}
		last := pts[len(pts)-1].Y
		out[ev.Line] = append(pts, plotter.XY{X: float64(ev.Frame), Y: last + 1})
	}
	for name, pts := range out {
		end := pts[len(pts)-1]
		if float64(lastFrame) > end.X {
			out[name] = append(pts, plotter.XY{X: float64(lastFrame), Y: end.Y})
		}
	}
	return out
}

// Plot builds the timeline plot.
func (t *Timeline) Plot(lastFrame int64) (*plot.Plot, error) {
	series := t.Series(lastFrame)

	p := plot.New()
	p.Title.Text = "Cumulative crossings"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Crossings"
	p.Legend.Top = true
	p.Legend.Left = true

	colors := generateColors(len(t.Lines))
	for i, name := range t.Lines {
		line, err := plotter.NewLine(series[name])
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	return p, nil
}

// Persist implements pipeline.Persister. The elapsed time is unused; the
// x axis ends at the last event.
func (t *Timeline) Persist(counts []crossing.LineCount, elapsed time.Duration) error {
	var lastFrame int64
	t.mu.Lock()
	if n := len(t.events); n > 0 {
		lastFrame = t.events[n-1].Frame
	}
	t.mu.Unlock()

	p, err := t.Plot(lastFrame)
	if err != nil {
		return fmt.Errorf("build timeline: %w", err)
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render timeline: %w", err)
	}
	err = fsutil.WriteFileAtomic(fileSystem(t.FS), t.Path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("write timeline: %w", err)
	}
	monitoring.Logf("[report] timeline saved to %s", t.Path)
	return nil
}

// generateColors creates a palette of distinct colours, one per line.
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
