package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of the supervised process or its files.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed inputs.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing targets, such as a patch anchor that no
	// longer exists in the installed extension version.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks bounded waits that expired.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures worth retrying or continuing past.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
