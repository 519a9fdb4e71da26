// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// IsRoot reports whether the process has effective UID 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// ExecuteFixes runs the fix action for each fixable failure, updating
// results in place. In dry-run mode nothing executes and the Outcome
// is empty. Elevated fixes are skipped when not running as root.
func ExecuteFixes(results []Result, dryRun bool) Outcome {
	if dryRun {
		return Outcome{}
	}

	var outcome Outcome
	root := IsRoot()

	for i := range results {
		if results[i].Status != StatusFail || results[i].fix == nil {
			continue
		}
		if results[i].Elevated && !root {
			outcome.ElevatedSkipped++
			continue
		}
		if err := results[i].fix(); err != nil {
			if isPermissionDenied(err) {
				outcome.PermissionDenied = true
				results[i].Message = fmt.Sprintf("%s (insufficient permissions)", results[i].Message)
			} else {
				results[i].Message = fmt.Sprintf("%s (fix failed: %v)", results[i].Message, err)
			}
		} else {
			results[i].Status = StatusFixed
			outcome.FixedCount++
		}
	}
	return outcome
}

// isPermissionDenied reports whether err wraps EPERM or EACCES.
func isPermissionDenied(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}

// MarkRepaired flips results that now pass but failed on an earlier
// iteration to fixed, so the final checklist credits the repair. Call
// it after the re-check with the names that failed before fixing.
func MarkRepaired(results []Result, repairedNames map[string]bool) {
	for i := range results {
		if results[i].Status == StatusPass && repairedNames[results[i].Name] {
			results[i].Status = StatusFixed
		}
	}
}

// BuildReport assembles the JSON report from results and outcome.
func BuildReport(results []Result, dryRun bool, outcome Outcome) Report {
	ok := true
	for _, result := range results {
		if result.Status == StatusFail {
			ok = false
			break
		}
	}
	return Report{
		Checks:           results,
		OK:               ok,
		DryRun:           dryRun,
		PermissionDenied: outcome.PermissionDenied,
		ElevatedSkipped:  outcome.ElevatedSkipped,
	}
}
