package vision

import (
	"strconv"
	"strings"

	"github.com/banshee-data/flow.report/internal/pipeline"
)

// Key codes returned by the window's key wait, masked to the low byte.
const (
	KeyNone = -1
	KeyEsc  = 27
)

// SourceSpec says what to open: a camera index or a file path.
type SourceSpec struct {
	Camera   int
	Path     string
	IsCamera bool
}

// ParseSource treats an all-digit string as a camera index and anything
// else as a path.
func ParseSource(s string) SourceSpec {
	if s != "" && strings.Trim(s, "0123456789") == "" {
		if n, err := strconv.Atoi(s); err == nil {
			return SourceSpec{Camera: n, IsCamera: true}
		}
	}
	return SourceSpec{Path: s}
}

func (s SourceSpec) String() string {
	if s.IsCamera {
		return "camera " + strconv.Itoa(s.Camera)
	}
	return s.Path
}

// KeySignal maps a key pressed while running.
func KeySignal(key int) pipeline.Signal {
	if key < 0 {
		return pipeline.SignalNone
	}
	switch key & 0xFF {
	case KeyEsc:
		return pipeline.SignalQuit
	case 'p', 'P':
		return pipeline.SignalPause
	}
	return pipeline.SignalNone
}

// WaitSignal maps a key pressed while paused. Any key resumes except ESC,
// which quits.
func WaitSignal(key int) pipeline.Signal {
	if key >= 0 && key&0xFF == KeyEsc {
		return pipeline.SignalQuit
	}
	return pipeline.SignalResume
}
