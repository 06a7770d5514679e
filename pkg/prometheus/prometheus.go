// Package prometheus registers application metrics and exposes them over
// HTTP for scraping. RegisterChi (chi.go) wires the /metrics endpoint;
// this file is retained as the package's entry point for future
// process-wide collectors.
package prometheus
