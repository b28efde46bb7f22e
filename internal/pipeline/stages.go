package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// Frame is one unit of input. Payload is adapter specific: the replay
// source carries its logged boxes, the OpenCV source carries an image. A
// Payload that implements io.Closer is closed once the frame is done.
type Frame struct {
	Index   int64 // Source-assigned position, zero-based
	Width   int
	Height  int
	Payload interface{}
}

// View is everything a renderer needs to draw one frame.
type View struct {
	Frame  Frame
	Tick   int64 // Loop frame counter, starting at 1
	Tracks []tracking.Track
	Lines  []config.Direction
	Counts []crossing.LineCount
	Events []crossing.Event
	State  State
}

// Signal is a user request sampled by Controls.
type Signal int

const (
	SignalNone Signal = iota
	SignalPause
	SignalResume
	SignalQuit
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalPause:
		return "pause"
	case SignalResume:
		return "resume"
	case SignalQuit:
		return "quit"
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Stage interfaces
// ---------------------------------------------------------------------------

// Source yields frames in order. io.EOF ends the run.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Detector turns a frame into foreground boxes.
type Detector interface {
	Detect(frame Frame) ([]geom.Box, error)
}

// Renderer presents a View. Renderers must not retain the View's slices.
type Renderer interface {
	Render(v View) error
}

// Controls reports user requests. Poll must not block. Wait blocks until
// the next request arrives and is only called while paused.
type Controls interface {
	Poll() Signal
	Wait() Signal
}

// Persister receives the final counts and the elapsed run time once the
// loop stops, including after a failed run.
type Persister interface {
	Persist(counts []crossing.LineCount, elapsed time.Duration) error
}

// EventSink receives crossing events as they are counted.
type EventSink interface {
	RecordEvents(runID string, events []crossing.Event) error
}

// RunRecorder brackets a run with start and finish records.
type RunRecorder interface {
	BeginRun(info RunInfo) error
	FinishRun(summary Summary) error
}

// RunInfo describes a run at start.
type RunInfo struct {
	RunID     string
	Source    string
	Lines     []config.Direction
	StartedAt time.Time
}

// NopControls never requests anything. It suits batch runs.
type NopControls struct{}

// Poll always returns SignalNone.
func (NopControls) Poll() Signal { return SignalNone }

// Wait resumes immediately.
func (NopControls) Wait() Signal { return SignalResume }

// ErrSourceUnavailable reports a source that could not be opened. Sources
// wrap it so callers can tell startup failures from stage failures.
var ErrSourceUnavailable = errors.New("source unavailable")
