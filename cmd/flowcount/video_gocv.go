//go:build gocv

package main

import (
	"io"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/vision"
)

func openVideo(s config.Settings, tuning *config.TuningConfig) (*input, error) {
	src, err := vision.OpenSource(vision.ParseSource(s.Source))
	if err != nil {
		return nil, err
	}
	det := vision.NewDetector(tuning)
	in := &input{
		name:     src.Name(),
		source:   src,
		detector: det,
		closers:  []io.Closer{src, det},
	}
	if s.UI.Window {
		w := vision.NewWindow()
		in.window = w
		in.closers = append(in.closers, w)
	}
	return in, nil
}
