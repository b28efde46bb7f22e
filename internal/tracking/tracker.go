package tracking

import (
	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/monitoring"
)

// TrackerConfig holds the association and eviction parameters.
type TrackerConfig struct {
	MaxMissed   int     // Tracks with more consecutive misses than this are evicted
	MaxDistance float64 // Largest centroid distance (pixels) a match may span
}

// DefaultTrackerConfig returns the built-in tracker parameters.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromTuning(config.EmptyTuningConfig())
}

// TrackerConfigFromTuning builds a TrackerConfig from a loaded TuningConfig.
func TrackerConfigFromTuning(cfg *config.TuningConfig) TrackerConfig {
	return TrackerConfig{
		MaxMissed:   cfg.GetMaxMissed(),
		MaxDistance: cfg.GetMaxDistance(),
	}
}

// FrameResult is the outcome of one Tracker.Update call.
type FrameResult struct {
	Assignment
	Evicted []TrackID
}

// Tracker runs association and eviction against its own Store.
type Tracker struct {
	Config  TrackerConfig
	Verbose bool

	store *Store
	frame int64

	// Lifetime counters.
	TracksCreated int
	TracksEvicted int
}

// NewTracker creates a tracker with an empty store.
func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{
		Config: cfg,
		store:  NewStore(),
	}
}

// Update associates one frame's detections, evicts stale tracks and returns
// what happened. Evicted identities must be forgotten by any state keyed on
// them.
func (t *Tracker) Update(detections []geom.Box) FrameResult {
	t.frame++
	t.store.SetFrame(t.frame)

	res := FrameResult{Assignment: Associate(t.store, detections, t.Config.MaxDistance)}
	res.Evicted = t.store.EvictStale(t.Config.MaxMissed)

	t.TracksCreated += len(res.Created)
	t.TracksEvicted += len(res.Evicted)

	if t.Verbose {
		for _, id := range res.Created {
			monitoring.Logf("[tracking] frame %d: created track %d", t.frame, id)
		}
		for _, id := range res.Evicted {
			monitoring.Logf("[tracking] frame %d: evicted track %d", t.frame, id)
		}
	}
	return res
}

// Tracks returns the live tracks ordered by identity.
func (t *Tracker) Tracks() []Track {
	return t.store.Tracks()
}

// Store exposes the underlying store for inspection.
func (t *Tracker) Store() *Store {
	return t.store
}

// Frame returns the number of Update calls so far.
func (t *Tracker) Frame() int64 {
	return t.frame
}
