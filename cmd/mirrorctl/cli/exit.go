// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without an extra error line.
// Commands that have already printed their own report (doctor, status)
// return it so main() exits with the code silently.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main() checks for this interface to
// distinguish "handled non-zero exit" from "unexpected error to print".
func (e *ExitError) ExitCode() int {
	return e.Code
}
