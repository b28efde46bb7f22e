package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/monitoring"
	"github.com/banshee-data/flow.report/internal/timeutil"
	"github.com/banshee-data/flow.report/internal/tracking"
)

var logf = monitoring.Component("pipeline")

// Config holds the collaborators for one run. Source, Detector, Tracker and
// Counter are required; everything else is optional.
type Config struct {
	Source   Source
	Detector Detector
	Tracker  *tracking.Tracker
	Counter  *crossing.Counter

	Renderers  []Renderer
	Controls   Controls    // Defaults to NopControls
	Persisters []Persister // Run after the loop stops, in order
	EventSinks []EventSink
	Recorder   RunRecorder // Optional run bookkeeping (database)
	Board      *Board      // Optional live snapshot for the monitor

	Clock      timeutil.Clock // Defaults to RealClock
	RunID      string         // Defaults to a random UUID
	SourceName string
	Verbose    bool
}

// Runner executes the frame loop described by a Config.
type Runner struct {
	cfg   Config
	clock timeutil.Clock

	runID     string
	startedAt time.Time
	events    int
	sinkErrs  int
}

// New validates cfg and returns a Runner.
func New(cfg Config) (*Runner, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("pipeline: source is required")
	case cfg.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case cfg.Tracker == nil:
		return nil, errors.New("pipeline: tracker is required")
	case cfg.Counter == nil:
		return nil, errors.New("pipeline: counter is required")
	}
	if cfg.Controls == nil {
		cfg.Controls = NopControls{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg.Tracker.Verbose = cfg.Verbose
	return &Runner{cfg: cfg, clock: clock, runID: runID}, nil
}

// RunID returns the identifier of the run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run drives the loop until the source is exhausted, the user quits, ctx is
// cancelled or a stage fails. Persisters always run with whatever counts
// were reached. The returned error joins the stage failure, if any, with
// any persistence failures.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.startedAt = r.clock.Now()
	if r.cfg.Recorder != nil {
		err := r.cfg.Recorder.BeginRun(RunInfo{
			RunID:     r.runID,
			Source:    r.cfg.SourceName,
			Lines:     r.cfg.Counter.Lines(),
			StartedAt: r.startedAt,
		})
		if err != nil {
			return Summary{RunID: r.runID}, fmt.Errorf("begin run: %w", err)
		}
	}
	logf("run %s started on %q", r.runID, r.cfg.SourceName)

	var (
		state     = StateRunning
		runErr    error
		latencies []float64
		pauses    int
		pausedFor time.Duration
	)
	r.publish(state)

loop:
	for state != StateStopped {
		if ctx.Err() != nil {
			logf("run %s interrupted: %v", r.runID, ctx.Err())
			break
		}

		if state == StatePaused {
			waitStart := r.clock.Now()
			sig := r.cfg.Controls.Wait()
			pausedFor += r.clock.Since(waitStart)
			state = transition(state, sig)
			if state == StateRunning {
				logf("run %s resumed", r.runID)
			}
			r.publish(state)
			continue
		}

		frame, err := r.cfg.Source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			logf("run %s: end of stream", r.runID)
			break loop
		case err != nil && ctx.Err() != nil:
			logf("run %s interrupted: %v", r.runID, ctx.Err())
			break loop
		case err != nil:
			runErr = fmt.Errorf("read frame: %w", err)
			break loop
		}

		began := r.clock.Now()
		err = r.step(frame, state)
		latencies = append(latencies, float64(r.clock.Since(began))/float64(time.Millisecond))
		closePayload(frame)
		if err != nil {
			runErr = err
			break
		}

		next := transition(state, r.cfg.Controls.Poll())
		if next == StatePaused {
			pauses++
			logf("run %s paused at frame %d", r.runID, r.cfg.Tracker.Frame())
		}
		state = next
		r.publish(state)
	}

	summary := Summary{
		RunID:         r.runID,
		Source:        r.cfg.SourceName,
		StartedAt:     r.startedAt,
		Elapsed:       r.clock.Since(r.startedAt),
		Frames:        r.cfg.Tracker.Frame(),
		Pauses:        pauses,
		PausedFor:     pausedFor,
		TracksCreated: r.cfg.Tracker.TracksCreated,
		Events:        r.events,
		Counts:        r.cfg.Counter.Ordered(),
		Latency:       computeLatency(latencies),
		Err:           runErr,
	}
	if runErr != nil {
		logf("run %s failed after %d frames: %v", r.runID, summary.Frames, runErr)
	}

	errs := []error{runErr}
	for _, p := range r.cfg.Persisters {
		if err := p.Persist(summary.Counts, summary.Elapsed); err != nil {
			errs = append(errs, fmt.Errorf("persist: %w", err))
		}
	}
	if r.cfg.Recorder != nil {
		if err := r.cfg.Recorder.FinishRun(summary); err != nil {
			errs = append(errs, fmt.Errorf("finish run: %w", err))
		}
	}
	if r.sinkErrs > 0 {
		logf("run %s: %d event sink writes failed", r.runID, r.sinkErrs)
	}
	r.publish(StateStopped)
	logf("run %s stopped: %d frames, %d crossings in %.2fs", r.runID, summary.Frames, summary.Total(), summary.Elapsed.Seconds())
	return summary, errors.Join(errs...)
}

// step processes one frame: detect, associate, evict, count, render.
func (r *Runner) step(frame Frame, state State) error {
	boxes, err := r.cfg.Detector.Detect(frame)
	if err != nil {
		return fmt.Errorf("detect frame %d: %w", frame.Index, err)
	}

	res := r.cfg.Tracker.Update(boxes)
	r.cfg.Counter.Forget(res.Evicted)
	tick := r.cfg.Tracker.Frame()
	tracks := r.cfg.Tracker.Tracks()

	events := r.cfg.Counter.Observe(tick, tracks)
	if len(events) > 0 {
		r.events += len(events)
		for _, ev := range events {
			logf("frame %d: track %d crossed %s (%s -> %s)", tick, ev.Track, ev.Line, ev.From, ev.To)
		}
		for _, sink := range r.cfg.EventSinks {
			if err := sink.RecordEvents(r.runID, events); err != nil {
				r.sinkErrs++
				if r.cfg.Verbose {
					logf("frame %d: event sink: %v", tick, err)
				}
			}
		}
	}

	if len(r.cfg.Renderers) == 0 {
		return nil
	}
	view := View{
		Frame:  frame,
		Tick:   tick,
		Tracks: tracks,
		Lines:  r.cfg.Counter.Lines(),
		Counts: r.cfg.Counter.Ordered(),
		Events: events,
		State:  state,
	}
	for _, rd := range r.cfg.Renderers {
		if err := rd.Render(view); err != nil {
			return fmt.Errorf("render frame %d: %w", frame.Index, err)
		}
	}
	return nil
}

func (r *Runner) publish(state State) {
	if r.cfg.Board == nil {
		return
	}
	elapsed := r.clock.Since(r.startedAt)
	r.cfg.Board.Publish(Snapshot{
		RunID:   r.runID,
		Source:  r.cfg.SourceName,
		State:   state,
		Frames:  r.cfg.Tracker.Frame(),
		Tracks:  r.cfg.Tracker.Store().Len(),
		Counts:  r.cfg.Counter.Ordered(),
		Elapsed: elapsed,
		Updated: r.startedAt.Add(elapsed),
	})
}

func closePayload(f Frame) {
	c, ok := f.Payload.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logf("frame %d: release payload: %v", f.Index, err)
	}
}
