// Package render draws the live counts as a styled table on a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/timeutil"
)

const (
	colorAccent lipgloss.Color = "#f5c2e7"
	colorText   lipgloss.Color = "#cdd6f4"
	colorMuted  lipgloss.Color = "#a6adc8"
	colorBorder lipgloss.Color = "#45475a"
	colorHit    lipgloss.Color = "#a6e3a1"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(colorText)
	countStyle  = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	hitStyle    = lipgloss.NewStyle().Foreground(colorHit).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// Terminal writes a count table at most hz times per second. Frames that
// carry a crossing are always drawn so no count change is skipped.
type Terminal struct {
	out     io.Writer
	clock   timeutil.Clock
	limiter *rate.Limiter
}

// NewTerminal returns a renderer writing to out. hz <= 0 draws every frame.
func NewTerminal(out io.Writer, hz float64, clock timeutil.Clock) *Terminal {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	t := &Terminal{out: out, clock: clock}
	if hz > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(hz), 1)
	}
	return t
}

// Render implements pipeline.Renderer.
func (t *Terminal) Render(v pipeline.View) error {
	if len(v.Events) == 0 && t.limiter != nil && !t.limiter.AllowN(t.clock.Now(), 1) {
		return nil
	}
	_, err := io.WriteString(t.out, Table(v)+"\n")
	return err
}

// Table formats the frame header and per-line counts. Lines crossed on this
// frame are highlighted.
func Table(v pipeline.View) string {
	hit := make(map[string]bool, len(v.Events))
	for _, ev := range v.Events {
		hit[ev.Line] = true
	}

	width := len("line")
	total := 0
	for _, c := range v.Counts {
		width = max(width, len(c.Name))
		total += c.Count
	}

	var rows []string
	rows = append(rows, headerStyle.Render(pad("line", width)+"  count"))
	for _, c := range v.Counts {
		rows = append(rows, row(c, width, hit[c.Name]))
	}
	rows = append(rows, mutedStyle.Render(pad("total", width)+fmt.Sprintf("  %5d", total)))

	title := mutedStyle.Render(fmt.Sprintf("frame %d  tracks %d  %s", v.Tick, len(v.Tracks), v.State))
	return lipgloss.JoinVertical(lipgloss.Left, title, boxStyle.Render(strings.Join(rows, "\n")))
}

func row(c crossing.LineCount, width int, hit bool) string {
	count := countStyle
	if hit {
		count = hitStyle
	}
	return nameStyle.Render(pad(c.Name, width)) + "  " + count.Render(fmt.Sprintf("%5d", c.Count))
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
