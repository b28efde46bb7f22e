package tracking

import (
	"fmt"
	"sort"

	"github.com/banshee-data/flow.report/internal/geom"
)

// TrackID identifies a track for the lifetime of the process. IDs start at 1
// and are never reused.
type TrackID int64

// Track is a single object followed across frames.
type Track struct {
	ID       TrackID
	Centroid geom.Point
	Box      geom.Box
	Misses   int // Consecutive frames without a matching detection

	// Lifecycle bookkeeping, not used for association.
	FirstFrame int64
	LastFrame  int64
	Hits       int
}

// Store holds the live tracks. It is the only owner of Track values; callers
// receive copies.
type Store struct {
	tracks map[TrackID]*Track
	nextID TrackID

	// frame is stamped onto created and updated tracks.
	frame int64
}

// NewStore creates an empty store whose first identity will be 1.
func NewStore() *Store {
	return &Store{
		tracks: make(map[TrackID]*Track),
		nextID: 1,
	}
}

// SetFrame records the index of the frame being processed.
func (s *Store) SetFrame(frame int64) {
	s.frame = frame
}

// Create allocates a new track for box and returns its identity.
func (s *Store) Create(box geom.Box) TrackID {
	id := s.nextID
	s.nextID++
	s.tracks[id] = &Track{
		ID:         id,
		Centroid:   box.Centroid(),
		Box:        box,
		FirstFrame: s.frame,
		LastFrame:  s.frame,
		Hits:       1,
	}
	return id
}

// Update moves a track onto box and clears its miss count.
func (s *Store) Update(id TrackID, box geom.Box) {
	tr := s.mustGet(id)
	tr.Box = box
	tr.Centroid = box.Centroid()
	tr.Misses = 0
	tr.Hits++
	tr.LastFrame = s.frame
}

// MarkMissed increments a track's miss count.
func (s *Store) MarkMissed(id TrackID) {
	tr := s.mustGet(id)
	tr.Misses++
	tr.Hits = 0
}

// EvictStale removes every track whose miss count exceeds threshold and
// returns the removed identities in ascending order.
func (s *Store) EvictStale(threshold int) []TrackID {
	var evicted []TrackID
	for id, tr := range s.tracks {
		if tr.Misses > threshold {
			evicted = append(evicted, id)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i] < evicted[j] })
	for _, id := range evicted {
		delete(s.tracks, id)
	}
	return evicted
}

// Get returns a copy of the track with the given identity.
func (s *Store) Get(id TrackID) (Track, bool) {
	tr, ok := s.tracks[id]
	if !ok {
		return Track{}, false
	}
	return *tr, true
}

// Len returns the number of live tracks.
func (s *Store) Len() int {
	return len(s.tracks)
}

// NextID returns the identity the next Create call will assign.
func (s *Store) NextID() TrackID {
	return s.nextID
}

// IDs returns the live identities in ascending order. Ascending identity is
// creation order, which fixes the row order of the association matrix.
func (s *Store) IDs() []TrackID {
	ids := make([]TrackID, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Tracks returns copies of the live tracks ordered by identity.
func (s *Store) Tracks() []Track {
	ids := s.IDs()
	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.tracks[id])
	}
	return out
}

func (s *Store) mustGet(id TrackID) *Track {
	tr, ok := s.tracks[id]
	if !ok {
		panic(fmt.Sprintf("tracking: unknown track %d", id))
	}
	return tr
}
