// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package doctor

// Status is the outcome of a single health check.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusWarn  Status = "warn"
	StatusSkip  Status = "skip"
	StatusFixed Status = "fixed"
)

// FixAction repairs a failed check. Dependencies (paths, systemd
// client) are captured in the closure when the check is built.
type FixAction func() error

// Result holds one health check outcome. Fixable failures carry a
// FixHint (human description) and an unexported fix function; fixes
// that need root set Elevated.
type Result struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	FixHint  string `json:"fix_hint,omitempty"`
	Elevated bool   `json:"elevated,omitempty"`
	fix      FixAction
}

// HasFix reports whether the result carries a fix action.
func (r *Result) HasFix() bool {
	return r.fix != nil
}

// Pass creates a passing check result.
func Pass(name, message string) Result {
	return Result{Name: name, Status: StatusPass, Message: message}
}

// Fail creates a failing check result with no automatic fix.
func Fail(name, message string) Result {
	return Result{Name: name, Status: StatusFail, Message: message}
}

// FailWithFix creates a failing check result with an automatic fix.
func FailWithFix(name, message, fixHint string, fix FixAction) Result {
	return Result{Name: name, Status: StatusFail, Message: message, FixHint: fixHint, fix: fix}
}

// FailElevated creates a failing check whose fix requires root. When
// ExecuteFixes runs without root it skips the fix and counts it in
// Outcome.ElevatedSkipped.
func FailElevated(name, message, fixHint string, fix FixAction) Result {
	return Result{Name: name, Status: StatusFail, Message: message, FixHint: fixHint, Elevated: true, fix: fix}
}

// Warn creates a warning. Warnings do not fail the doctor run.
func Warn(name, message string) Result {
	return Result{Name: name, Status: StatusWarn, Message: message}
}

// Skip creates a skipped check, used when a prerequisite failed.
func Skip(name, message string) Result {
	return Result{Name: name, Status: StatusSkip, Message: message}
}

// Outcome aggregates a fix pass.
type Outcome struct {
	// FixedCount is the number of successfully applied fixes.
	FixedCount int

	// PermissionDenied is set when a fix failed with EPERM/EACCES.
	PermissionDenied bool

	// ElevatedSkipped counts fixes skipped because they need root and
	// the process is not running as root.
	ElevatedSkipped int
}

// Report is the JSON output structure for doctor runs.
type Report struct {
	Checks           []Result `json:"checks"`
	OK               bool     `json:"ok"`
	DryRun           bool     `json:"dry_run,omitempty"`
	PermissionDenied bool     `json:"permission_denied,omitempty"`
	ElevatedSkipped  int      `json:"elevated_skipped,omitempty"`
}
