// Package vision connects the pipeline to OpenCV: a camera or file video
// source, a MOG2 background-subtraction detector and an on-screen window
// that also reads the pause and quit keys.
//
// The OpenCV adapters need the gocv build tag and a system OpenCV
// installation:
//
//	go build -tags gocv ./cmd/flowcount
//
// Source selection and key mapping are plain Go and always built.
package vision
