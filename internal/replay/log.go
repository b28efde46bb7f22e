package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/pipeline"
)

// Log is a parsed detection log: Frames[i] holds the boxes of frame i.
type Log struct {
	Frames [][]geom.Box
}

// Boxes returns the number of boxes across all frames.
func (l *Log) Boxes() int {
	n := 0
	for _, f := range l.Frames {
		n += len(f)
	}
	return n
}

// LoadLog reads a detection log from disk.
func LoadLog(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrSourceUnavailable, err)
	}
	defer f.Close()
	l, err := ParseLog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseLog reads a detection log from r.
func ParseLog(r io.Reader) (*Log, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	l := &Log{}
	last := -1
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return l, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse detection log: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "frame") {
			continue
		}

		frame, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil || frame < 0 {
			return nil, fmt.Errorf("line %d: invalid frame index %q", line, rec[0])
		}
		if frame < last {
			return nil, fmt.Errorf("line %d: frame %d after frame %d", line, frame, last)
		}
		last = frame
		for len(l.Frames) <= frame {
			l.Frames = append(l.Frames, nil)
		}

		if blank(rec[1:]) {
			continue
		}
		var v [4]int
		for i, field := range rec[1:] {
			v[i], err = strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid box field %q", line, field)
			}
		}
		if v[2] <= 0 || v[3] <= 0 {
			return nil, fmt.Errorf("line %d: box must have positive size, got %dx%d", line, v[2], v[3])
		}
		l.Frames[frame] = append(l.Frames[frame], geom.Box{X: v[0], Y: v[1], W: v[2], H: v[3]})
	}
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteLog writes l in the format ParseLog reads, with a header. Empty
// frames are written as blank rows so the frame count round-trips.
func WriteLog(w io.Writer, l *Log) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"frame", "x", "y", "w", "h"}); err != nil {
		return err
	}
	for i, boxes := range l.Frames {
		idx := strconv.Itoa(i)
		if len(boxes) == 0 {
			if err := cw.Write([]string{idx, "", "", "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, b := range boxes {
			rec := []string{idx, strconv.Itoa(b.X), strconv.Itoa(b.Y), strconv.Itoa(b.W), strconv.Itoa(b.H)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// payload is what replay frames carry.
type payload []geom.Box

// Detector returns the boxes recorded for a replay frame.
type Detector struct{}

// Detect implements pipeline.Detector.
func (Detector) Detect(f pipeline.Frame) ([]geom.Box, error) {
	boxes, ok := f.Payload.(payload)
	if !ok {
		return nil, fmt.Errorf("replay: frame %d was not produced by a replay source", f.Index)
	}
	return boxes, nil
}
