//go:build !gocv

package main

import (
	"fmt"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/vision"
)

func openVideo(s config.Settings, _ *config.TuningConfig) (*input, error) {
	return nil, fmt.Errorf("%w: %s: video input needs a build with -tags gocv; pass a .csv detection log to replay",
		pipeline.ErrSourceUnavailable, vision.ParseSource(s.Source))
}
