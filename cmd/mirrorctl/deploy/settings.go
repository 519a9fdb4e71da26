// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	"github.com/mirrorbot/mirrorbot/lib/config"
	"github.com/mirrorbot/mirrorbot/lib/content"
	libdeploy "github.com/mirrorbot/mirrorbot/lib/deploy"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// commonParams are the flags shared by every deployment command.
// Empty flag values mean "not set", so the configuration file (and
// then the built-in defaults) can fill them in.
type commonParams struct {
	Config      string `flag:"config" desc:"path to mirrorctl.yaml (default: $MIRRORCTL_CONFIG)"`
	TemplateDir string `flag:"template-dir" desc:"directory containing unit templates (default: config value or current directory)"`
	UnitDir     string `flag:"unit-dir" desc:"directory for rendered unit files (default: config value or /etc/systemd/system)"`
	Embedded    bool   `flag:"embedded" desc:"render from the embedded canonical templates instead of a template directory"`
	NoSudo      bool   `flag:"no-sudo" desc:"invoke systemctl directly instead of through sudo"`
}

// resolveEnvironment validates the single positional environment
// argument. It runs before anything touches the filesystem or systemd.
func resolveEnvironment(commandName string, args []string) (libdeploy.Environment, error) {
	if len(args) != 1 {
		return "", cli.Validation("usage: mirrorctl %s <dev|prod>", commandName)
	}
	return libdeploy.ParseEnvironment(args[0])
}

// resolveSettings layers command-line flags over the configuration
// file over defaults.
func resolveSettings(params commonParams, environment libdeploy.Environment) (config.Settings, error) {
	configuration, err := config.Locate(params.Config)
	if err != nil {
		return config.Settings{}, err
	}
	settings := configuration.Resolve(environment)
	if params.TemplateDir != "" {
		settings.TemplateDir = params.TemplateDir
	}
	if params.UnitDir != "" {
		settings.UnitDir = params.UnitDir
	}
	if params.NoSudo {
		settings.Sudo = false
	}
	return settings, nil
}

// buildPlan constructs the installation plan with any configured
// extra substitutions merged in.
func buildPlan(environment libdeploy.Environment, settings config.Settings) libdeploy.Plan {
	return libdeploy.NewPlan(environment).MergeSubstitutions(settings.Substitutions)
}

// templateSource picks between the on-disk template directory and the
// embedded canonical templates.
func templateSource(params commonParams, settings config.Settings) libdeploy.TemplateSource {
	if params.Embedded {
		return content.Source{}
	}
	return libdeploy.DirSource{Dir: settings.TemplateDir}
}

// newRunner builds the systemctl runner. Variable rather than function
// so tests can substitute a recording fake.
var newRunner = func(sudo bool) systemd.Runner {
	return systemd.ExecRunner{Sudo: sudo}
}
