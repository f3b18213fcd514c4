// Package daemon coordinates the gantry lifecycle: single-instance locking,
// the bootstrap sequence that provisions, patches, launches, and probes the
// supervised WebUI, the job bridge worker, and the inbound HTTP API.
package daemon
