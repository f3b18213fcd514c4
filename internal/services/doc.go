// Package services holds the error taxonomy and context annotations shared
// by the bootstrap phases and the job bridge.
//
// Sentinel errors classify failures so callers can decide between fatal,
// advisory, and per-job handling without string matching.
package services
