// Package metrics provides the Prometheus collectors shared by the API server
// and the refresh worker.
//
// HTTP collectors are fed by the handler middleware. Fetch collectors are fed
// by the fetch use case through the Record helpers:
//
//	metrics.RecordAttempt("ok")
//	metrics.RecordFetchCompleted("FRESH", time.Since(start))
//
// All collectors register with the default registry and are exposed on /metrics.
package metrics
