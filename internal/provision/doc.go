// Package provision ensures the model artifacts the supervised service
// expects exist on disk before launch.
//
// Provisioning is idempotent and best-effort: a file already present under
// either accepted extension short-circuits without network traffic, a failed
// download is reported as skipped rather than aborting startup, and after a
// file is resolved an alias is created under the alternate extension so
// consumers that expect either name succeed.
package provision
