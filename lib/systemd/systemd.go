// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package systemd

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a host command to completion. Run is for mutations
// and reports only success or failure; Output is for read-only queries
// and returns captured stdout. A hung child blocks the caller: the
// tool is a one-shot CLI and imposes no timeout of its own.
type Runner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec. When Sudo is set, mutating
// commands are invoked through sudo; queries never are, since
// systemctl answers is-enabled/is-active for any user.
type ExecRunner struct {
	Sudo bool
}

// Run executes the command and returns an error carrying the exit
// status and trimmed combined output on failure.
func (r ExecRunner) Run(name string, args ...string) error {
	name, args = r.argv(name, args)
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Output executes the command and returns its trimmed stdout.
func (r ExecRunner) Output(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).Output()
	return strings.TrimSpace(string(output)), err
}

// argv prepends sudo when configured.
func (r ExecRunner) argv(name string, args []string) (string, []string) {
	if !r.Sudo {
		return name, args
	}
	return "sudo", append([]string{name}, args...)
}

// Client issues systemctl commands through a Runner.
type Client struct {
	runner Runner
}

// NewClient returns a Client backed by runner.
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// DaemonReload reloads the systemd manager configuration. Must run
// after unit files change and before any unit is enabled.
func (c *Client) DaemonReload() error {
	return c.runner.Run("systemctl", "daemon-reload")
}

// Enable enables a unit.
func (c *Client) Enable(unit string) error {
	return c.runner.Run("systemctl", "enable", unit)
}

// Restart restarts a unit, starting it if it was not running.
func (c *Client) Restart(unit string) error {
	return c.runner.Run("systemctl", "restart", unit)
}

// Disable disables a unit.
func (c *Client) Disable(unit string) error {
	return c.runner.Run("systemctl", "disable", unit)
}

// Stop stops a unit.
func (c *Client) Stop(unit string) error {
	return c.runner.Run("systemctl", "stop", unit)
}

// IsEnabled reports whether a unit is enabled. Query failures read as
// not enabled; systemctl exits non-zero for disabled and unknown units
// alike.
func (c *Client) IsEnabled(unit string) bool {
	status, err := c.runner.Output("systemctl", "is-enabled", unit)
	return err == nil && status == "enabled"
}

// IsActive reports whether a unit is active or still activating.
func (c *Client) IsActive(unit string) bool {
	status, err := c.runner.Output("systemctl", "is-active", unit)
	if err != nil {
		return false
	}
	return status == "active" || status == "activating"
}
