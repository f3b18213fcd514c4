package patch

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gantry/internal/logging"
)

// Patcher evaluates rules against the supervised service's source tree.
type Patcher struct {
	logger *slog.Logger
}

// New constructs a Patcher.
func New(logger *slog.Logger) *Patcher {
	return &Patcher{logger: logging.WithComponent(logger, "patch")}
}

// ApplyAll applies every rule in order. No outcome is fatal: the service is
// launched afterward even unpatched or partially patched.
func (p *Patcher) ApplyAll(rules []Rule) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		result := p.Apply(rule)
		results = append(results, result)

		switch result.Outcome {
		case OutcomeApplied:
			p.logger.Info("patch applied", logging.String("rule", rule.Name), logging.String("file", rule.File))
		case OutcomeAlreadyApplied:
			p.logger.Info("patch already applied", logging.String("rule", rule.Name))
		case OutcomeTargetNotFound:
			p.logger.Warn("patch target not found; upstream source may have changed shape",
				logging.String("rule", rule.Name), logging.String("file", rule.File))
		case OutcomeIOFailure:
			p.logger.Warn("patch failed; launching service unpatched",
				logging.String("rule", rule.Name), logging.Error(result.Err))
		}
	}
	return results
}

// Apply evaluates one rule. Applying a rule twice yields file content
// byte-identical to applying it once.
func (p *Patcher) Apply(rule Rule) Result {
	result := Result{Rule: rule.Name, File: rule.File}

	data, err := os.ReadFile(rule.File)
	if err != nil {
		result.Outcome = OutcomeIOFailure
		result.Err = err
		return result
	}
	content := string(data)

	if strings.Contains(content, rule.Marker) {
		result.Outcome = OutcomeAlreadyApplied
		return result
	}

	patched, found := inject(content, rule)
	if !found {
		result.Outcome = OutcomeTargetNotFound
		return result
	}

	info, err := os.Stat(rule.File)
	if err != nil {
		result.Outcome = OutcomeIOFailure
		result.Err = err
		return result
	}
	if err := os.WriteFile(rule.File, []byte(patched), info.Mode().Perm()); err != nil {
		result.Outcome = OutcomeIOFailure
		result.Err = err
		return result
	}

	result.Outcome = OutcomeApplied
	return result
}

// inject places the rule's guard immediately after the first line matching
// the anchor, indented to match the first non-blank line that follows.
func inject(content string, rule Rule) (string, bool) {
	if rule.Anchor == nil {
		return content, false
	}
	lines := strings.Split(content, "\n")

	anchorIdx := -1
	for i, line := range lines {
		if rule.Anchor.MatchString(line) {
			anchorIdx = i
			break
		}
	}
	if anchorIdx == -1 {
		return content, false
	}

	indent := ""
	for _, line := range lines[anchorIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		break
	}

	injected := make([]string, 0, len(rule.Inject))
	for _, line := range rule.Inject {
		if line == "" {
			injected = append(injected, "")
			continue
		}
		injected = append(injected, indent+line)
	}

	out := make([]string, 0, len(lines)+len(injected))
	out = append(out, lines[:anchorIdx+1]...)
	out = append(out, injected...)
	out = append(out, lines[anchorIdx+1:]...)
	return strings.Join(out, "\n"), true
}

// ErrNoMarker guards rule construction in tests.
var ErrNoMarker = errors.New("rule inject does not contain its marker")

// Check verifies a rule is internally consistent.
func Check(rule Rule) error {
	joined := strings.Join(rule.Inject, "\n")
	if !strings.Contains(joined, rule.Marker) {
		return ErrNoMarker
	}
	return nil
}
