// Package patch applies declarative, idempotent source transformations to
// the supervised service's on-disk files before launch.
//
// Each defect in the upstream extension is expressed as a Rule: a target
// file, an anchor pattern, and a guard to inject immediately after the
// anchor. A marker string makes every rule idempotent, and a rule whose
// anchor no longer exists reports TargetNotFound instead of failing the
// bootstrap, since the upstream source changes shape between versions.
// New upstream releases are supported by adding rules, not by rewriting
// logic.
package patch
