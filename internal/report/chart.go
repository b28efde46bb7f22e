package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/fsutil"
	"github.com/banshee-data/flow.report/internal/monitoring"
)

// CountsBar builds a bar chart with one bar per line.
func CountsBar(title, subtitle string, counts []crossing.LineCount) *charts.Bar {
	names := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		names[i] = c.Name
		data[i] = opts.BarData{Value: c.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Direction"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Crossings", Min: 0}),
	)
	bar.SetXAxis(names).AddSeries("crossings", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// RenderCountsPage writes a standalone HTML page holding the counts chart.
func RenderCountsPage(w io.Writer, title string, counts []crossing.LineCount, elapsed time.Duration) error {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	subtitle := fmt.Sprintf("total=%d duration=%.2fs", total, elapsed.Seconds())

	page := components.NewPage()
	page.AddCharts(CountsBar(title, subtitle, counts))
	return page.Render(w)
}

// ChartWriter persists the counts chart as HTML to Path.
type ChartWriter struct {
	Path  string
	Title string
	FS    fsutil.FileSystem
}

// Persist implements pipeline.Persister.
func (c *ChartWriter) Persist(counts []crossing.LineCount, elapsed time.Duration) error {
	title := c.Title
	if title == "" {
		title = "Direction counts"
	}
	err := fsutil.WriteFileAtomic(fileSystem(c.FS), c.Path, func(w io.Writer) error {
		return RenderCountsPage(w, title, counts, elapsed)
	})
	if err != nil {
		return fmt.Errorf("write counts chart: %w", err)
	}
	monitoring.Logf("[report] chart saved to %s", c.Path)
	return nil
}
