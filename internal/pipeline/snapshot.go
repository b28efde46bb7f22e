package pipeline

import (
	"sync"
	"time"

	"github.com/banshee-data/flow.report/internal/crossing"
)

// Snapshot is the read-only view of a run published after every frame.
type Snapshot struct {
	RunID   string               `json:"run_id"`
	Source  string               `json:"source"`
	State   State                `json:"state"`
	Frames  int64                `json:"frames"`
	Tracks  int                  `json:"tracks"`
	Counts  []crossing.LineCount `json:"counts"`
	Elapsed time.Duration        `json:"elapsed_ns"`
	Updated time.Time            `json:"updated"`
}

// Total sums the counts across lines.
func (s Snapshot) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Count
	}
	return n
}

// Board holds the latest Snapshot. The loop publishes; HTTP handlers read.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Publish replaces the current snapshot. The counts slice is copied.
func (b *Board) Publish(s Snapshot) {
	s.Counts = append([]crossing.LineCount(nil), s.Counts...)
	b.mu.Lock()
	b.snap = s
	b.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.snap
	s.Counts = append([]crossing.LineCount(nil), s.Counts...)
	return s
}
