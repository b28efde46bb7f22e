// Package geom holds the integer pixel geometry shared by the tracker and the
// crossing counter: boxes, centroids, oriented lines and half-plane sides.
//
// Everything here is a pure function of its inputs. Coordinates are in the
// image space of the video source, with y growing downwards.
package geom
