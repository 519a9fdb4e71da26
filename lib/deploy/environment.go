// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import "fmt"

// Environment is the deployment target. It selects the naming suffix
// for unit files and the ENVIRONMENT value rendered into service
// templates. The set is closed: dev and prod.
type Environment string

const (
	// Dev is the development deployment.
	Dev Environment = "dev"
	// Prod is the production deployment.
	Prod Environment = "prod"
)

// ParseEnvironment validates a command-line environment argument.
// Only the literal strings "dev" and "prod" are accepted.
func ParseEnvironment(argument string) (Environment, error) {
	switch argument {
	case string(Dev):
		return Dev, nil
	case string(Prod):
		return Prod, nil
	default:
		return "", fmt.Errorf("invalid environment %q (expected dev or prod)", argument)
	}
}

// LongName returns the spelled-out environment name used for the
// override sections in the configuration file.
func (e Environment) LongName() string {
	if e == Prod {
		return "production"
	}
	return "development"
}
