package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/flow.report/internal/geom"
)

// RequiredDirections is the number of direction lines a configuration must
// define.
const RequiredDirections = 6

// ErrInvalidDirections is wrapped by every direction document validation
// failure.
var ErrInvalidDirections = errors.New("invalid directions configuration")

// Direction is a named counting line.
type Direction struct {
	Name string
	Line geom.Line
}

// directionsDocument mirrors the on-disk layout:
//
//	{"directions": [{"name": "N", "line": [[x1, y1], [x2, y2]]}, ...]}
type directionsDocument struct {
	Directions []struct {
		Name *string  `json:"name"`
		Line [][]*int `json:"line"`
	} `json:"directions"`
}

// LoadDirections reads and validates a direction document.
func LoadDirections(path string) ([]Direction, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDirections(data)
}

// ParseDirections decodes and validates a direction document. The returned
// slice keeps document order, which is also the report order.
func ParseDirections(data []byte) ([]Direction, error) {
	var doc directionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDirections, err)
	}

	if n := len(doc.Directions); n != RequiredDirections {
		return nil, fmt.Errorf("%w: expected exactly %d directions, got %d", ErrInvalidDirections, RequiredDirections, n)
	}

	seen := make(map[string]bool, len(doc.Directions))
	out := make([]Direction, 0, len(doc.Directions))
	for i, item := range doc.Directions {
		if item.Name == nil || *item.Name == "" {
			return nil, fmt.Errorf("%w: direction %d: missing name", ErrInvalidDirections, i)
		}
		name := *item.Name
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate direction name %q", ErrInvalidDirections, name)
		}
		seen[name] = true

		line, err := parseLine(item.Line)
		if err != nil {
			return nil, fmt.Errorf("%w: direction %q: %v", ErrInvalidDirections, name, err)
		}
		out = append(out, Direction{Name: name, Line: line})
	}
	return out, nil
}

func parseLine(raw [][]*int) (geom.Line, error) {
	if len(raw) != 2 {
		return geom.Line{}, fmt.Errorf("line must have exactly 2 endpoints, got %d", len(raw))
	}
	var pts [2]geom.Point
	for i, p := range raw {
		if len(p) != 2 || p[0] == nil || p[1] == nil {
			return geom.Line{}, fmt.Errorf("endpoint %d must be [x, y]", i)
		}
		pts[i] = geom.Point{X: *p[0], Y: *p[1]}
	}
	line := geom.Line{A: pts[0], B: pts[1]}
	if line.Degenerate() {
		return geom.Line{}, fmt.Errorf("endpoints coincide at %s", line.A)
	}
	return line, nil
}

// DirectionNames returns the names in configuration order.
func DirectionNames(dirs []Direction) []string {
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.Name
	}
	return names
}
