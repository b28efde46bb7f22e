package geom

import (
	"fmt"
	"math"
)

// Point is an integer pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Hypot(dx, dy)
}

// Box is an axis-aligned bounding box given by its top-left corner and size.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Centroid returns the box centre, rounding half sizes down.
func (b Box) Centroid() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Area returns W*H.
func (b Box) Area() int {
	return b.W * b.H
}

// AspectRatio returns W/H, treating a zero height as one.
func (b Box) AspectRatio() float64 {
	h := b.H
	if h < 1 {
		h = 1
	}
	return float64(b.W) / float64(h)
}

// Max returns the bottom-right corner (exclusive).
func (b Box) Max() Point {
	return Point{X: b.X + b.W, Y: b.Y + b.H}
}

func (b Box) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", b.X, b.Y, b.W, b.H)
}

// Side is the half-plane a point occupies relative to an oriented line.
type Side int8

const (
	SideRight  Side = -1 // negative cross product
	SideOnLine Side = 0
	SideLeft   Side = 1 // positive cross product
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideOnLine:
		return "on-line"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Opposes reports whether s and other are both off the line and on
// different sides of it.
func (s Side) Opposes(other Side) bool {
	return s != SideOnLine && other != SideOnLine && s != other
}

// Line is an oriented segment A→B. Only its orientation matters for side
// classification; it is treated as infinite.
type Line struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Degenerate reports whether the two endpoints coincide.
func (l Line) Degenerate() bool {
	return l.A == l.B
}

// Cross returns the z component of (B−A) × (p−A).
func (l Line) Cross(p Point) int64 {
	dx := int64(l.B.X - l.A.X)
	dy := int64(l.B.Y - l.A.Y)
	px := int64(p.X - l.A.X)
	py := int64(p.Y - l.A.Y)
	return dx*py - dy*px
}

// SideOf classifies p by the sign of the cross product.
func (l Line) SideOf(p Point) Side {
	switch v := l.Cross(p); {
	case v > 0:
		return SideLeft
	case v < 0:
		return SideRight
	default:
		return SideOnLine
	}
}

func (l Line) String() string {
	return fmt.Sprintf("%s->%s", l.A, l.B)
}
