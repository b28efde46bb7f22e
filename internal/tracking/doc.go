// Package tracking owns per-frame identity continuity for detected objects.
//
// Responsibilities: the track store (creation, update, miss counting,
// eviction) and greedy nearest-centroid association of detections to live
// tracks under a distance cap.
// Key types: Track, Store, Tracker, Assignment.
//
// A track's position is its last matched centroid; there is no motion
// model. All mutation happens inside a single frame step and no type in this
// package is safe for concurrent use.
package tracking
