// Package metrics provides observability hooks for a test run.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	ws, err := workspace.New(area, workspace.WithRecorder(recorder))
//
// PrometheusRecorder backs the interface with client_golang collectors on a
// private registry. Since a run is a short-lived process rather than a scrape
// target, the registry is exported once as a node-exporter style textfile
// (WriteTextfile) into the global artifacts directory, so it is uploaded with
// the rest of the run's artifacts.
package metrics
