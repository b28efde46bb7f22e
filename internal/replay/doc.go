// Package replay drives the counting loop from a recorded detection log
// instead of live video.
//
// A log is a CSV file of foreground boxes, one per row:
//
//	frame,x,y,w,h
//	0,120,40,60,35
//	0,400,42,58,33
//	3,,,,
//
// Frame indices are zero-based and non-decreasing. Frames missing from the
// log are replayed as empty, and a row whose box columns are all blank
// marks a frame that exists but holds no boxes, which lets a log end on a
// run of empty frames. A header row is optional.
package replay
