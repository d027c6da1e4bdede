// Package metric provides the Prometheus metrics of statekeep.
//
// A Registry owns its own prometheus.Registry with the Go and process
// collectors, the checkpoint counters and histograms, and optionally a
// Collector that samples an object space on every scrape. Handler serves
// them in the Prometheus exposition format.
package metric
