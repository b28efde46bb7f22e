// Package pipeline drives the per-frame counting loop.
//
// It is the composition root for the core: it pulls frames from a Source,
// hands them to a Detector, feeds the boxes through the tracking and
// crossing packages, and pushes the results to renderers, event sinks and
// persisters. The collaborators are interfaces; concrete adapters live in
// the replay, vision, render, report and db packages, none of which import
// pipeline internals beyond these contracts.
package pipeline
