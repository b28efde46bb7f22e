//go:build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/detect"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/pipeline"
)

// Detector finds moving objects with MOG2 background subtraction. The
// background model is stateful: feed it every frame in order.
type Detector struct {
	subtractor gocv.BackgroundSubtractorMOG2
	kernel     gocv.Mat
	mask       gocv.Mat
	threshold  float32
	filter     detect.Filter
}

// NewDetector builds a detector from the tuning document. Close releases
// its native buffers.
func NewDetector(cfg *config.TuningConfig) *Detector {
	return &Detector{
		subtractor: gocv.NewBackgroundSubtractorMOG2WithParams(
			cfg.GetMOG2History(),
			float64(cfg.GetMOG2VarThreshold()),
			cfg.GetMOG2DetectShadows(),
		),
		kernel:    gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5)),
		mask:      gocv.NewMat(),
		threshold: float32(cfg.GetMaskThreshold()),
		filter:    detect.FilterFromTuning(cfg),
	}
}

// Detect implements pipeline.Detector. Shadows (grey in the MOG2 mask) are
// cut by the threshold, the mask is opened once and dilated twice, and the
// external contours that pass the filter become boxes.
func (d *Detector) Detect(frame pipeline.Frame) ([]geom.Box, error) {
	img, ok := frame.Payload.(*gocv.Mat)
	if !ok {
		return nil, fmt.Errorf("vision: frame %d has no image", frame.Index)
	}
	if img.Empty() {
		return nil, nil
	}

	d.subtractor.Apply(*img, &d.mask)
	gocv.Threshold(d.mask, &d.mask, d.threshold, 255, gocv.ThresholdBinary)
	gocv.MorphologyEx(d.mask, &d.mask, gocv.MorphOpen, d.kernel)
	gocv.Dilate(d.mask, &d.mask, d.kernel)
	gocv.Dilate(d.mask, &d.mask, d.kernel)

	contours := gocv.FindContours(d.mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]detect.Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		r := gocv.BoundingRect(c)
		regions = append(regions, detect.Region{
			Area: gocv.ContourArea(c),
			Box:  geom.Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()},
		})
	}
	return d.filter.Apply(regions), nil
}

// Close releases the background model and buffers.
func (d *Detector) Close() error {
	d.mask.Close()
	d.kernel.Close()
	return d.subtractor.Close()
}
