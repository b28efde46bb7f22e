// Package crossing counts tracked objects crossing configured direction
// lines.
//
// For every (track, line) pair the counter remembers the last side the
// track's centroid was on. A line's count goes up by one when a track moves
// from one side straight to the other. An on-line reading never counts and
// is itself remembered, so a track that touches the line and returns to the
// side it came from is not counted.
package crossing

import (
	"fmt"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// Event records one counted crossing.
type Event struct {
	Frame int64
	Track tracking.TrackID
	Line  string
	From  geom.Side
	To    geom.Side
	At    geom.Point
}

// LineCount is one line's running total.
type LineCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Counter owns the side state and the per-line counts.
type Counter struct {
	lines  []config.Direction
	index  map[string]int
	counts []int

	// sides[track][lineIdx] is the last side seen. Only lines observed for
	// the track are present.
	sides map[tracking.TrackID]map[int]geom.Side
}

// NewCounter creates a counter with every line at zero. Line names must be
// unique.
func NewCounter(lines []config.Direction) *Counter {
	c := &Counter{
		lines:  append([]config.Direction(nil), lines...),
		index:  make(map[string]int, len(lines)),
		counts: make([]int, len(lines)),
		sides:  make(map[tracking.TrackID]map[int]geom.Side),
	}
	for i, l := range lines {
		if _, dup := c.index[l.Name]; dup {
			panic(fmt.Sprintf("crossing: duplicate line name %q", l.Name))
		}
		c.index[l.Name] = i
	}
	return c
}

// Observe classifies every track against every line, counts crossings and
// updates the side state. Events are returned in track order, then line
// order.
func (c *Counter) Observe(frame int64, tracks []tracking.Track) []Event {
	var events []Event
	for _, tr := range tracks {
		prev, ok := c.sides[tr.ID]
		if !ok {
			prev = make(map[int]geom.Side, len(c.lines))
			c.sides[tr.ID] = prev
		}
		for li, line := range c.lines {
			cur := line.Line.SideOf(tr.Centroid)
			if last, seen := prev[li]; seen && last.Opposes(cur) {
				c.counts[li]++
				events = append(events, Event{
					Frame: frame,
					Track: tr.ID,
					Line:  line.Name,
					From:  last,
					To:    cur,
					At:    tr.Centroid,
				})
			}
			prev[li] = cur
		}
	}
	return events
}

// Forget drops the side state of evicted tracks. Counts are unaffected.
func (c *Counter) Forget(ids []tracking.TrackID) {
	for _, id := range ids {
		delete(c.sides, id)
	}
}

// Side returns the remembered side for a track and line.
func (c *Counter) Side(id tracking.TrackID, line string) (geom.Side, bool) {
	li, ok := c.index[line]
	if !ok {
		return geom.SideOnLine, false
	}
	s, ok := c.sides[id][li]
	return s, ok
}

// Tracked returns the number of tracks with side state.
func (c *Counter) Tracked() int {
	return len(c.sides)
}

// Count returns the total for one line.
func (c *Counter) Count(line string) int {
	li, ok := c.index[line]
	if !ok {
		panic(fmt.Sprintf("crossing: unknown line %q", line))
	}
	return c.counts[li]
}

// Counts returns a copy of the totals keyed by line name.
func (c *Counter) Counts() map[string]int {
	out := make(map[string]int, len(c.lines))
	for i, l := range c.lines {
		out[l.Name] = c.counts[i]
	}
	return out
}

// Ordered returns the totals in configuration order.
func (c *Counter) Ordered() []LineCount {
	out := make([]LineCount, len(c.lines))
	for i, l := range c.lines {
		out[i] = LineCount{Name: l.Name, Count: c.counts[i]}
	}
	return out
}

// Lines returns the configured lines.
func (c *Counter) Lines() []config.Direction {
	return append([]config.Direction(nil), c.lines...)
}
