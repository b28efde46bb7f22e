// Package detect turns raw foreground regions into candidate boxes.
package detect

import (
	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/geom"
)

// Filter decides which foreground regions are worth tracking.
type Filter struct {
	MinArea        float64 // Minimum contour area in square pixels
	MinSide        int     // Minimum box width and height
	MinAspectRatio float64 // Lower bound on w / max(h, 1)
	MaxAspectRatio float64 // Upper bound on w / max(h, 1)
}

// FilterFromTuning builds a Filter from the tuning document.
func FilterFromTuning(cfg *config.TuningConfig) Filter {
	return Filter{
		MinArea:        cfg.GetMinContourArea(),
		MinSide:        cfg.GetMinBoxSide(),
		MinAspectRatio: cfg.GetMinAspectRatio(),
		MaxAspectRatio: cfg.GetMaxAspectRatio(),
	}
}

// DefaultFilter returns the built-in thresholds.
func DefaultFilter() Filter {
	return FilterFromTuning(config.EmptyTuningConfig())
}

// Region is a foreground blob: its contour area and bounding box. The area
// is the contour's own area, which can be smaller than the box.
type Region struct {
	Area float64
	Box  geom.Box
}

// Accept reports whether a region passes every threshold.
func (f Filter) Accept(r Region) bool {
	if r.Area < f.MinArea {
		return false
	}
	if r.Box.W < f.MinSide || r.Box.H < f.MinSide {
		return false
	}
	ratio := r.Box.AspectRatio()
	return ratio >= f.MinAspectRatio && ratio <= f.MaxAspectRatio
}

// Apply returns the boxes of the accepted regions in input order.
func (f Filter) Apply(regions []Region) []geom.Box {
	var out []geom.Box
	for _, r := range regions {
		if f.Accept(r) {
			out = append(out, r.Box)
		}
	}
	return out
}
