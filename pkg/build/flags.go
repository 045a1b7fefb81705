// SPDX-License-Identifier: MIT
//
// Package build carries metadata injected at compile time via linker
// flags: application name, build timestamp, Git commit and semantic
// version. Used for the version subcommand and startup logging.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation, for example:
//
//	go build -ldflags "-X sonoscope/pkg/build.buildName=sonoscope ..."
//
// Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize validates and copies build information from the ldflags
// variables into the buildFlags struct. Call early in program startup.
// Returns an error naming the first missing flag; callers may treat
// that as non-fatal for development builds.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information. Initialize()
// should have run first; before that the fields read "unknown".
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// Summary returns a one-line description suitable for the version
// subcommand and startup logs.
func Summary() string {
	return fmt.Sprintf("%s %s (%s, built %s)",
		buildFlags.Name, buildFlags.Version, buildFlags.Commit, buildFlags.Time)
}
