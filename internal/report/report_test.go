package report

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/fsutil"
	"github.com/banshee-data/flow.report/internal/monitoring"
)

func sampleCounts() []crossing.LineCount {
	return []crossing.LineCount{
		{Name: "N", Count: 4}, {Name: "S", Count: 0}, {Name: "E", Count: 2},
		{Name: "W", Count: 1}, {Name: "NE", Count: 0}, {Name: "SW", Count: 3},
	}
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

func TestWriteCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCounts(&buf, sampleCounts(), 12346*time.Millisecond))

	want := "direction,count\n" +
		"N,4\nS,0\nE,2\nW,1\nNE,0\nSW,3\n" +
		"\n" +
		"duration_sec,12.35\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCountsZeroDuration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCounts(&buf, nil, 0))
	assert.Equal(t, "direction,count\n\nduration_sec,0.00\n", buf.String())
}

func TestCSVWriterPersist(t *testing.T) {
	muteLogs(t)

	fsys := fsutil.NewMemoryFileSystem()
	w := &CSVWriter{Path: "out/traffic_counts.csv", FS: fsys}
	require.NoError(t, w.Persist(sampleCounts(), 2*time.Second))

	data, err := fsys.ReadFile("out/traffic_counts.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "direction,count", lines[0])
	assert.Equal(t, "", lines[7])
	assert.Equal(t, "duration_sec,2.00", lines[8])
}

type readOnlyFS struct{ *fsutil.MemoryFileSystem }

func (readOnlyFS) Create(string) (io.WriteCloser, error) { return nil, errors.New("read-only") }

func TestCSVWriterReportsFailure(t *testing.T) {
	muteLogs(t)

	w := &CSVWriter{Path: "counts.csv", FS: readOnlyFS{fsutil.NewMemoryFileSystem()}}
	err := w.Persist(sampleCounts(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write counts csv")
	assert.Contains(t, err.Error(), "read-only")
}

// ---------------------------------------------------------------------------
// Chart
// ---------------------------------------------------------------------------

func TestRenderCountsPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCountsPage(&buf, "Junction A", sampleCounts(), 90*time.Second))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Junction A")
	assert.Contains(t, html, "total=10 duration=90.00s")
	for _, c := range sampleCounts() {
		assert.Contains(t, html, `"`+c.Name+`"`)
	}
}

func TestChartWriterPersist(t *testing.T) {
	muteLogs(t)

	fsys := fsutil.NewMemoryFileSystem()
	w := &ChartWriter{Path: "counts.html", FS: fsys}
	require.NoError(t, w.Persist(sampleCounts(), time.Second))

	data, err := fsys.ReadFile("counts.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Direction counts")
}

// ---------------------------------------------------------------------------
// Timeline
// ---------------------------------------------------------------------------

func TestTimelineSeries(t *testing.T) {
	tl := NewTimeline("timeline.png", []string{"N", "S"})
	require.NoError(t, tl.RecordEvents("run", []crossing.Event{{Frame: 5, Line: "N"}}))
	require.NoError(t, tl.RecordEvents("run", []crossing.Event{{Frame: 9, Line: "N"}, {Frame: 9, Line: "S"}}))

	series := tl.Series(20)
	assert.Equal(t, []float64{0, 5, 9, 20}, xs(series["N"]))
	assert.Equal(t, []float64{0, 1, 2, 2}, ys(series["N"]))
	assert.Equal(t, []float64{0, 9, 20}, xs(series["S"]))
	assert.Equal(t, []float64{0, 1, 1}, ys(series["S"]))
}

func TestTimelinePersistWritesPNG(t *testing.T) {
	muteLogs(t)

	fsys := fsutil.NewMemoryFileSystem()
	tl := NewTimeline("plots/timeline.png", []string{"N", "S", "E"})
	tl.FS = fsys
	require.NoError(t, tl.RecordEvents("run", []crossing.Event{{Frame: 3, Line: "E"}}))
	require.NoError(t, tl.Persist(nil, time.Second))

	data, err := fsys.ReadFile("plots/timeline.png")
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestTimelineWithoutEvents(t *testing.T) {
	muteLogs(t)

	fsys := fsutil.NewMemoryFileSystem()
	tl := NewTimeline("timeline.png", []string{"N"})
	tl.FS = fsys
	require.NoError(t, tl.Persist(nil, 0))
	assert.Equal(t, []string{"timeline.png"}, fsys.Files())
}

func TestGenerateColors(t *testing.T) {
	colors := generateColors(6)
	require.Len(t, colors, 6)
	seen := map[[3]uint32]bool{}
	for _, c := range colors {
		r, g, b, a := c.RGBA()
		assert.Equal(t, uint32(0xffff), a)
		seen[[3]uint32{r, g, b}] = true
	}
	assert.Len(t, seen, 6)
}

func xs(pts plotter.XYs) []float64 {
	out := make([]float64, pts.Len())
	for i := range out {
		out[i], _ = pts.XY(i)
	}
	return out
}

func ys(pts plotter.XYs) []float64 {
	out := make([]float64, pts.Len())
	for i := range out {
		_, out[i] = pts.XY(i)
	}
	return out
}
