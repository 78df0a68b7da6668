// SPDX-License-Identifier: MIT
//
// Package build holds the version information of the binary. Release builds
// set it with linker flags:
//
//	go build -ldflags "-X equalizer/pkg/build.buildName=eq -X equalizer/pkg/build.buildVersion=v1.2.0 ..."
//
// Builds without linker flags fall back to the module and VCS information
// the Go toolchain embeds.
package build

import (
	"fmt"
	"runtime/debug"
)

const (
	DefaultName = "eq"
	Description = "Fixed-point multi-band equalizer"

	unknown     = "unknown"
	shortCommit = 12
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = newFlags()
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

func newFlags() *ldFlags {
	return &ldFlags{
		Name:        DefaultName,
		Description: Description,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize copies the build information into place. Linker flags must be
// set all together or not at all; without them the embedded module
// information is used and missing fields stay "unknown".
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		fromBuildInfo(buildFlags)
		return nil
	}

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

func fromBuildInfo(f *ldFlags) {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		f.Version = v
	}

	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			f.Commit = s.Value[:min(len(s.Value), shortCommit)]
		case "vcs.time":
			f.Time = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && f.Commit != unknown {
		f.Commit += "-dirty"
	}
}

// GetBuildFlags returns the current build information. Initialize should
// be called first.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for --version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}
