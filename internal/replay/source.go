package replay

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/banshee-data/flow.report/internal/pipeline"
)

// Source serves a Log frame by frame.
type Source struct {
	log     *Log
	next    int
	limiter *rate.Limiter
}

// NewSource returns a source over l. A positive fps paces delivery to that
// many frames per second; zero replays as fast as the loop runs.
func NewSource(l *Log, fps float64) *Source {
	s := &Source{log: l}
	if fps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(fps), 1)
	}
	return s
}

// Next implements pipeline.Source.
func (s *Source) Next(ctx context.Context) (pipeline.Frame, error) {
	if s.next >= len(s.log.Frames) {
		return pipeline.Frame{}, io.EOF
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return pipeline.Frame{}, err
		}
	}
	f := pipeline.Frame{Index: int64(s.next), Payload: payload(s.log.Frames[s.next])}
	s.next++
	return f, nil
}

// Remaining returns the number of frames not yet served.
func (s *Source) Remaining() int {
	return len(s.log.Frames) - s.next
}
