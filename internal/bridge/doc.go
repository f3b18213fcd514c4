// Package bridge runs the steady-state worker that relays queued jobs to
// the supervised service's REST API.
//
// The worker claims the oldest pending job, forwards its settings document
// to the Deforum batch endpoint, polls the service for a terminal status
// within the per-job budget, and records the outcome on the job row. A
// failed relay is scoped to its job: the worker logs it and moves on, and
// is the only component expected to run indefinitely.
package bridge
