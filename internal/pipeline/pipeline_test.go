package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/monitoring"
	"github.com/banshee-data/flow.report/internal/testutil"
	"github.com/banshee-data/flow.report/internal/timeutil"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type closeCounter struct{ closed *int }

func (c closeCounter) Close() error { *c.closed++; return nil }

// sliceSource serves one frame per entry in boxes; the boxes ride in the
// payload.
type sliceSource struct {
	boxes  [][]geom.Box
	next   int
	closed int
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if s.next >= len(s.boxes) {
		return Frame{}, io.EOF
	}
	f := Frame{Index: int64(s.next), Payload: framePayload{boxes: s.boxes[s.next], closer: closeCounter{&s.closed}}}
	s.next++
	return f, nil
}

type framePayload struct {
	boxes  []geom.Box
	closer closeCounter
}

func (p framePayload) Close() error { return p.closer.Close() }

// payloadDetector returns the boxes carried by the frame and optionally
// advances a mock clock to simulate work.
type payloadDetector struct {
	clock   *timeutil.MockClock
	cost    time.Duration
	failAt  int64
	failErr error
}

func (d *payloadDetector) Detect(f Frame) ([]geom.Box, error) {
	if d.failErr != nil && f.Index == d.failAt {
		return nil, d.failErr
	}
	if d.clock != nil {
		d.clock.Advance(d.cost)
	}
	return f.Payload.(framePayload).boxes, nil
}

type recordingRenderer struct {
	views []View
	err   error
}

func (r *recordingRenderer) Render(v View) error {
	r.views = append(r.views, v)
	return r.err
}

// scriptedControls replays fixed Poll and Wait answers, then falls back to
// SignalNone and SignalResume.
type scriptedControls struct {
	polls []Signal
	waits []Signal
	waitN int
}

func (c *scriptedControls) Poll() Signal {
	if len(c.polls) == 0 {
		return SignalNone
	}
	s := c.polls[0]
	c.polls = c.polls[1:]
	return s
}

func (c *scriptedControls) Wait() Signal {
	c.waitN++
	if len(c.waits) == 0 {
		return SignalResume
	}
	s := c.waits[0]
	c.waits = c.waits[1:]
	return s
}

type recordingPersister struct {
	counts  []crossing.LineCount
	elapsed time.Duration
	calls   int
	err     error
}

func (p *recordingPersister) Persist(counts []crossing.LineCount, elapsed time.Duration) error {
	p.calls++
	p.counts = counts
	p.elapsed = elapsed
	return p.err
}

type recordingSink struct {
	mu     sync.Mutex
	runIDs []string
	events []crossing.Event
	err    error
}

func (s *recordingSink) RecordEvents(runID string, events []crossing.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runIDs = append(s.runIDs, runID)
	s.events = append(s.events, events...)
	return s.err
}

type recordingRecorder struct {
	begun    []RunInfo
	finished []Summary
	beginErr error
}

func (r *recordingRecorder) BeginRun(info RunInfo) error {
	r.begun = append(r.begun, info)
	return r.beginErr
}

func (r *recordingRecorder) FinishRun(s Summary) error {
	r.finished = append(r.finished, s)
	return nil
}

func boxAt(x, y int) geom.Box {
	return geom.Box{X: x - 5, Y: y - 5, W: 10, H: 10}
}

// crossingScript moves one object down through y = 100 (line D1).
func crossingScript() [][]geom.Box {
	return [][]geom.Box{
		{boxAt(500, 60)},
		{boxAt(500, 90)},
		{boxAt(500, 120)},
		{boxAt(500, 150)},
	}
}

func newConfig(src Source, det Detector) Config {
	return Config{
		Source:     src,
		Detector:   det,
		Tracker:    tracking.NewTracker(tracking.DefaultTrackerConfig()),
		Counter:    crossing.NewCounter(testutil.SixDirections()),
		RunID:      "run-1",
		SourceName: "test",
	}
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

func TestTransition(t *testing.T) {
	cases := []struct {
		from State
		sig  Signal
		want State
	}{
		{StateRunning, SignalNone, StateRunning},
		{StateRunning, SignalResume, StateRunning},
		{StateRunning, SignalPause, StatePaused},
		{StateRunning, SignalQuit, StateStopped},
		{StatePaused, SignalNone, StatePaused},
		{StatePaused, SignalResume, StateRunning},
		{StatePaused, SignalPause, StateRunning},
		{StatePaused, SignalQuit, StateStopped},
		{StateStopped, SignalResume, StateStopped},
		{StateStopped, SignalPause, StateStopped},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"+"+tc.sig.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, transition(tc.from, tc.sig))
		})
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func TestNewRequiresCoreCollaborators(t *testing.T) {
	src := &sliceSource{}
	det := &payloadDetector{}

	for name, mutate := range map[string]func(*Config){
		"source":   func(c *Config) { c.Source = nil },
		"detector": func(c *Config) { c.Detector = nil },
		"tracker":  func(c *Config) { c.Tracker = nil },
		"counter":  func(c *Config) { c.Counter = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := newConfig(src, det)
			mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}

	cfg := newConfig(src, det)
	cfg.RunID = ""
	r, err := New(cfg)
	require.NoError(t, err)
	assert.Len(t, r.RunID(), 36, "generated run ids are UUIDs")
}

func TestRunToEndOfStream(t *testing.T) {
	muteLogs(t)

	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	src := &sliceSource{boxes: crossingScript()}
	cfg := newConfig(src, &payloadDetector{clock: clock, cost: 25 * time.Millisecond})
	cfg.Clock = clock
	rend := &recordingRenderer{}
	cfg.Renderers = []Renderer{rend}
	persist := &recordingPersister{}
	cfg.Persisters = []Persister{persist}
	sink := &recordingSink{}
	cfg.EventSinks = []EventSink{sink}
	rec := &recordingRecorder{}
	cfg.Recorder = rec
	board := NewBoard()
	cfg.Board = board

	r, err := New(cfg)
	require.NoError(t, err)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.Frames)
	assert.Equal(t, 100*time.Millisecond, summary.Elapsed)
	assert.Equal(t, 1, summary.Total())
	assert.Equal(t, 1, summary.Events)
	assert.Equal(t, 1, summary.TracksCreated)
	assert.NoError(t, summary.Err)

	// Latency is the simulated detector cost on every frame.
	assert.Equal(t, 4, summary.Latency.Samples)
	assert.InDelta(t, 25.0, summary.Latency.Mean, 1e-9)
	assert.InDelta(t, 25.0, summary.Latency.P95, 1e-9)
	assert.InDelta(t, 0.0, summary.Latency.StdDev, 1e-9)

	assert.Equal(t, 4, src.closed, "every payload is released")

	require.Len(t, rend.views, 4)
	assert.Equal(t, int64(3), rend.views[2].Tick)
	require.Len(t, rend.views[2].Events, 1, "crossing happens on the third frame")
	assert.Equal(t, "D1", rend.views[2].Events[0].Line)
	assert.Len(t, rend.views[0].Lines, 6)

	assert.Equal(t, 1, persist.calls)
	assert.Equal(t, summary.Counts, persist.counts)
	assert.Equal(t, 100*time.Millisecond, persist.elapsed)

	assert.Equal(t, []string{"run-1"}, sink.runIDs)
	require.Len(t, sink.events, 1)
	assert.Equal(t, tracking.TrackID(1), sink.events[0].Track)

	require.Len(t, rec.begun, 1)
	assert.Equal(t, "test", rec.begun[0].Source)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, int64(4), rec.finished[0].Frames)

	snap := board.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.Equal(t, int64(4), snap.Frames)
	assert.Equal(t, 1, snap.Total())
}

func TestRunPauseResumeQuit(t *testing.T) {
	muteLogs(t)

	t.Run("pause then resume", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		ctl := &scriptedControls{
			polls: []Signal{SignalNone, SignalPause},
			waits: []Signal{SignalNone, SignalPause},
		}
		cfg.Controls = ctl

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, ctl.waitN, "SignalNone keeps the loop paused")
		assert.Equal(t, 1, summary.Pauses)
		assert.Equal(t, int64(4), summary.Frames, "resumes and reads the rest")
	})

	t.Run("quit while paused", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		persist := &recordingPersister{}
		cfg.Persisters = []Persister{persist}
		cfg.Controls = &scriptedControls{
			polls: []Signal{SignalPause},
			waits: []Signal{SignalQuit},
		}

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int64(1), summary.Frames, "no frames are read while paused")
		assert.Equal(t, 1, persist.calls)
	})

	t.Run("quit while running", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		cfg.Controls = &scriptedControls{polls: []Signal{SignalNone, SignalQuit}}

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.Frames)
	})
}

func TestRunContextCancellation(t *testing.T) {
	muteLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	src := &sliceSource{boxes: crossingScript()}
	cfg := newConfig(src, &payloadDetector{})
	persist := &recordingPersister{}
	cfg.Persisters = []Persister{persist}
	cfg.Renderers = []Renderer{rendererFunc(func(v View) error {
		if v.Tick == 2 {
			cancel()
		}
		return nil
	})}

	r, err := New(cfg)
	require.NoError(t, err)
	summary, err := r.Run(ctx)
	require.NoError(t, err, "cancellation is an orderly stop")
	assert.Equal(t, int64(2), summary.Frames)
	assert.Equal(t, 1, persist.calls)
}

type rendererFunc func(View) error

func (f rendererFunc) Render(v View) error { return f(v) }

func TestRunStageFailureStillPersists(t *testing.T) {
	muteLogs(t)

	boom := errors.New("boom")

	t.Run("detector", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{failAt: 3, failErr: boom})
		persist := &recordingPersister{}
		cfg.Persisters = []Persister{persist}

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "detect frame 3")

		assert.Equal(t, 1, persist.calls)
		assert.Equal(t, 1, summary.Total(), "partial counts survive")
		assert.ErrorIs(t, summary.Err, boom)
	})

	t.Run("renderer", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		cfg.Renderers = []Renderer{&recordingRenderer{err: boom}}
		persist := &recordingPersister{}
		cfg.Persisters = []Persister{persist}

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), summary.Frames)
		assert.Equal(t, 1, persist.calls)
	})

	t.Run("persister failure is reported after the others run", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		failing := &recordingPersister{err: boom}
		after := &recordingPersister{}
		cfg.Persisters = []Persister{failing, after}

		r, err := New(cfg)
		require.NoError(t, err)
		_, err = r.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, after.calls)
	})

	t.Run("event sink failure does not stop the run", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		cfg.EventSinks = []EventSink{&recordingSink{err: boom}}

		r, err := New(cfg)
		require.NoError(t, err)
		summary, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(4), summary.Frames)
	})

	t.Run("recorder refuses the run", func(t *testing.T) {
		src := &sliceSource{boxes: crossingScript()}
		cfg := newConfig(src, &payloadDetector{})
		cfg.Recorder = &recordingRecorder{beginErr: boom}

		r, err := New(cfg)
		require.NoError(t, err)
		_, err = r.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, src.next, "no frames read")
	})
}

// ---------------------------------------------------------------------------
// Summary and snapshot
// ---------------------------------------------------------------------------

func TestComputeLatency(t *testing.T) {
	assert.Equal(t, LatencyStats{}, computeLatency(nil))

	one := computeLatency([]float64{7})
	assert.Equal(t, LatencyStats{Samples: 1, Mean: 7, P50: 7, P95: 7, Max: 7}, one)

	samples := []float64{10, 2, 8, 4, 6}
	got := computeLatency(samples)
	assert.Equal(t, 5, got.Samples)
	assert.InDelta(t, 6.0, got.Mean, 1e-9)
	assert.InDelta(t, 3.1623, got.StdDev, 1e-4)
	assert.Equal(t, 6.0, got.P50)
	assert.Equal(t, 10.0, got.P95)
	assert.Equal(t, 10.0, got.Max)
}

func TestSummaryString(t *testing.T) {
	s := Summary{
		RunID:   "abc",
		Frames:  10,
		Elapsed: 1500 * time.Millisecond,
		Counts:  []crossing.LineCount{{Name: "N", Count: 2}, {Name: "S", Count: 1}},
	}
	out := s.String()
	assert.Contains(t, out, "run abc: 10 frames in 1.50s")
	assert.Contains(t, out, "N            2")
	assert.Contains(t, out, "total        3")
}

func TestBoardCopiesCounts(t *testing.T) {
	b := NewBoard()
	counts := []crossing.LineCount{{Name: "N", Count: 1}}
	b.Publish(Snapshot{RunID: "r", Counts: counts})
	counts[0].Count = 99

	snap := b.Snapshot()
	assert.Equal(t, 1, snap.Counts[0].Count)
	snap.Counts[0].Count = 42
	assert.Equal(t, 1, b.Snapshot().Counts[0].Count)
}
