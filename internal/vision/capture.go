//go:build gocv

package vision

import (
	"context"
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"github.com/banshee-data/flow.report/internal/pipeline"
)

// VideoSource reads frames from a camera or a video file. Each frame's
// payload is a *gocv.Mat that the loop closes after the frame.
type VideoSource struct {
	capture *gocv.VideoCapture
	spec    SourceSpec
	next    int64
}

// OpenSource opens the capture described by spec. Failures wrap
// pipeline.ErrSourceUnavailable.
func OpenSource(spec SourceSpec) (*VideoSource, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if spec.IsCamera {
		capture, err = gocv.VideoCaptureDevice(spec.Camera)
	} else {
		capture, err = gocv.VideoCaptureFile(spec.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrSourceUnavailable, spec, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", pipeline.ErrSourceUnavailable, spec)
	}
	return &VideoSource{capture: capture, spec: spec}, nil
}

// Next implements pipeline.Source. A failed or empty read ends the stream.
func (s *VideoSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return pipeline.Frame{}, io.EOF
	}
	f := pipeline.Frame{
		Index:   s.next,
		Width:   mat.Cols(),
		Height:  mat.Rows(),
		Payload: &mat,
	}
	s.next++
	return f, nil
}

// Name describes the capture for logs and run records.
func (s *VideoSource) Name() string {
	return s.spec.String()
}

// Close releases the capture device.
func (s *VideoSource) Close() error {
	return s.capture.Close()
}
