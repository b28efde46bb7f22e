package replay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/monitoring"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/testutil"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// ---------------------------------------------------------------------------
// Log parsing
// ---------------------------------------------------------------------------

func TestParseLog(t *testing.T) {
	t.Parallel()

	doc := `frame,x,y,w,h
# two cars on frame 0
0,120,40,60,35
0, 400, 42, 58, 33
2,130,60,60,35
4,,,,
`
	l, err := ParseLog(strings.NewReader(doc))
	require.NoError(t, err)

	want := [][]geom.Box{
		{{X: 120, Y: 40, W: 60, H: 35}, {X: 400, Y: 42, W: 58, H: 33}},
		nil,
		{{X: 130, Y: 60, W: 60, H: 35}},
		nil,
		nil,
	}
	if diff := cmp.Diff(want, l.Frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, l.Boxes())
}

func TestParseLogErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"wrong column count": "0,1,2,3\n",
		"bad frame":          "x,1,2,3,4\n",
		"negative frame":     "-1,1,2,3,4\n",
		"decreasing frames":  "3,1,2,3,4\n1,1,2,3,4\n",
		"bad field":          "0,1,two,3,4\n",
		"zero width":         "0,1,2,0,4\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLog(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestWriteLogRoundTrip(t *testing.T) {
	t.Parallel()

	l := &Log{Frames: [][]geom.Box{
		{{X: 1, Y: 2, W: 30, H: 40}},
		nil,
		nil,
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteLog(&buf, l))
	assert.True(t, strings.HasPrefix(buf.String(), "frame,x,y,w,h\n"))

	back, err := ParseLog(&buf)
	require.NoError(t, err)
	assert.Len(t, back.Frames, 3, "trailing empty frames survive")
	assert.Equal(t, l.Frames[0], back.Frames[0])
}

func TestLoadLogMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadLog(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrSourceUnavailable))
}

// ---------------------------------------------------------------------------
// Source and detector
// ---------------------------------------------------------------------------

func TestSourceServesFramesInOrder(t *testing.T) {
	t.Parallel()

	l := &Log{Frames: [][]geom.Box{{{X: 1, Y: 1, W: 30, H: 30}}, nil}}
	src := NewSource(l, 0)
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.Index)
	boxes, err := Detector{}.Detect(f)
	require.NoError(t, err)
	assert.Len(t, boxes, 1)

	f, err = src.Next(ctx)
	require.NoError(t, err)
	boxes, err = Detector{}.Detect(f)
	require.NoError(t, err)
	assert.Empty(t, boxes)
	assert.Zero(t, src.Remaining())

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDetectorRejectsForeignFrames(t *testing.T) {
	t.Parallel()

	_, err := Detector{}.Detect(pipeline.Frame{Index: 3, Payload: "image"})
	assert.Error(t, err)
}

func TestSourcePacingHonoursContext(t *testing.T) {
	t.Parallel()

	l := &Log{Frames: make([][]geom.Box, 3)}
	src := NewSource(l, 0.5) // one frame every two seconds after the first

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.Next(ctx)
	require.NoError(t, err, "burst of one admits the first frame immediately")
	_, err = src.Next(ctx)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Controls
// ---------------------------------------------------------------------------

func TestParseKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pipeline.SignalPause, ParseKey("P"))
	assert.Equal(t, pipeline.SignalQuit, ParseKey(" q "))
	assert.Equal(t, pipeline.SignalResume, ParseKey(""))
	assert.Equal(t, pipeline.SignalNone, ParseKey("zzz"))
}

func TestChannelControls(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan pipeline.Signal, 2)
	c := NewChannelControls(ctx, ch)

	assert.Equal(t, pipeline.SignalNone, c.Poll())
	ch <- pipeline.SignalPause
	assert.Equal(t, pipeline.SignalPause, c.Poll())
	ch <- pipeline.SignalResume
	assert.Equal(t, pipeline.SignalResume, c.Wait())

	close(ch)
	assert.Equal(t, pipeline.SignalNone, c.Poll())
	assert.Equal(t, pipeline.SignalResume, c.Wait(), "closed input never blocks a paused loop")
}

func TestChannelControlsWaitEndsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewChannelControls(ctx, make(chan pipeline.Signal))
	cancel()
	assert.Equal(t, pipeline.SignalQuit, c.Wait())
}

func TestReadKeys(t *testing.T) {
	t.Parallel()

	ch := ReadKeys(context.Background(), strings.NewReader("p\nnoise\n\nq\n"))
	var got []pipeline.Signal
	for sig := range ch {
		got = append(got, sig)
	}
	assert.Equal(t, []pipeline.Signal{pipeline.SignalPause, pipeline.SignalResume, pipeline.SignalQuit}, got)
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

// TestReplayCountsAndEvicts drives the full loop from a log file: one object
// crosses line D1 and then the scene stays empty for twenty frames.
func TestReplayCountsAndEvicts(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	var sb strings.Builder
	sb.WriteString("frame,x,y,w,h\n")
	for i, y := range []int{60, 90, 120, 150} {
		sb.WriteString(strings.Join([]string{strconv.Itoa(i), "480", strconv.Itoa(y - 10), "40", "20"}, ",") + "\n")
	}
	sb.WriteString("23,,,,\n")
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	l, err := LoadLog(path)
	require.NoError(t, err)
	require.Len(t, l.Frames, 24)

	tracker := tracking.NewTracker(tracking.DefaultTrackerConfig())
	r, err := pipeline.New(pipeline.Config{
		Source:   NewSource(l, 0),
		Detector: Detector{},
		Tracker:  tracker,
		Counter:  crossing.NewCounter(testutil.SixDirections()),
	})
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(24), summary.Frames)
	assert.Equal(t, []crossing.LineCount{
		{Name: "D0", Count: 0}, {Name: "D1", Count: 1}, {Name: "D2", Count: 0},
		{Name: "D3", Count: 0}, {Name: "D4", Count: 0}, {Name: "D5", Count: 0},
	}, summary.Counts)
	assert.Zero(t, tracker.Store().Len(), "the object is evicted after eleven empty frames")
	assert.Equal(t, 1, tracker.TracksEvicted)
}
