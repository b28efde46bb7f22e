package tracking

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/banshee-data/flow.report/internal/geom"
)

// Match pairs a detection index with the track it updated.
type Match struct {
	Detection int
	Track     TrackID
	Distance  float64
}

// Assignment describes what one association step did.
type Assignment struct {
	Matched []Match   // In commit order (ascending distance)
	Created []TrackID // One per unmatched detection, in detection order
	Missed  []TrackID // Ascending identity
}

// candidate is one cell of the track × detection distance matrix.
type candidate struct {
	dist float64
	row  int // index into the identity-ordered track list
	col  int // detection index
}

// candidateHeap orders cells by distance, then row, then column. The
// secondary keys reproduce the first-occurrence tie-break of a row-major
// argmin over the full matrix.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	if h[i].row != h[j].row {
		return h[i].row < h[j].row
	}
	return h[i].col < h[j].col
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Associate matches detections to the live tracks in store using greedy
// global-minimum assignment under maxDistance, then applies the result:
// matched tracks are updated, unmatched tracks are marked missed and
// unmatched detections seed new tracks.
//
// A pair whose distance is exactly maxDistance is still eligible.
func Associate(store *Store, detections []geom.Box, maxDistance float64) Assignment {
	var result Assignment

	ids := store.IDs()
	if len(ids) == 0 {
		for _, det := range detections {
			result.Created = append(result.Created, store.Create(det))
		}
		return result
	}
	if len(detections) == 0 {
		for _, id := range ids {
			store.MarkMissed(id)
		}
		result.Missed = ids
		return result
	}

	centroids := make([]geom.Point, len(detections))
	for j, det := range detections {
		centroids[j] = det.Centroid()
	}

	h := make(candidateHeap, 0, len(ids)*len(detections))
	for i, id := range ids {
		tr, _ := store.Get(id)
		for j, c := range centroids {
			d := tr.Centroid.Distance(c)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				panic(fmt.Sprintf("tracking: non-finite distance between track %d and detection %d", id, j))
			}
			if d > maxDistance {
				// Never eligible: the matching loop would stop on it.
				continue
			}
			h = append(h, candidate{dist: d, row: i, col: j})
		}
	}
	heap.Init(&h)

	usedRows := make([]bool, len(ids))
	usedCols := make([]bool, len(detections))
	for h.Len() > 0 {
		c := heap.Pop(&h).(candidate)
		if usedRows[c.row] || usedCols[c.col] {
			continue
		}
		id := ids[c.row]
		store.Update(id, detections[c.col])
		usedRows[c.row] = true
		usedCols[c.col] = true
		result.Matched = append(result.Matched, Match{Detection: c.col, Track: id, Distance: c.dist})
	}

	for i, id := range ids {
		if !usedRows[i] {
			store.MarkMissed(id)
			result.Missed = append(result.Missed, id)
		}
	}
	for j, det := range detections {
		if !usedCols[j] {
			result.Created = append(result.Created, store.Create(det))
		}
	}
	return result
}
