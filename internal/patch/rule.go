package patch

import "regexp"

// Rule describes one idempotent source transformation.
type Rule struct {
	// Name identifies the rule in logs.
	Name string
	// File is the target file path.
	File string
	// Anchor locates the line the guard is injected after.
	Anchor *regexp.Regexp
	// Inject holds the guard lines, unindented. Indentation is inferred
	// from the first non-blank line following the injection point.
	Inject []string
	// Marker must occur in Inject; its presence in the file means the rule
	// was already applied.
	Marker string
}

// Outcome classifies the result of applying one rule.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeTargetNotFound Outcome = "target_not_found"
	OutcomeIOFailure      Outcome = "io_failure"
)

// Result pairs a rule with its outcome.
type Result struct {
	Rule    string
	File    string
	Outcome Outcome
	Err     error
}
