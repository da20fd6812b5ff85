// Package version carries the agent's build identity and a small semantic
// version parser used for client compatibility checks.
package version

import (
	"regexp"
	"strconv"
	"strings"
)

// Set at build time via -ldflags.
var (
	Current   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info is the wire representation of the agent's build identity.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Build returns the agent's build identity.
func Build() Info {
	return Info{
		Version:   Current,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
}

// Version represents a semantic version
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string // e.g., "dev", "beta", "rc1"
	Metadata   string // e.g., "abc1234" from "dev-abc1234"
}

var semverRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([a-zA-Z0-9.-]+))?(?:\+([a-zA-Z0-9.-]+))?$`)

// Parse parses a version string like "v1.2.3", "1.2.3", "dev", "dev-abc1234"
func Parse(s string) Version {
	s = strings.TrimPrefix(s, "v")

	if s == "dev" || strings.HasPrefix(s, "dev-") {
		parts := strings.SplitN(s, "-", 2)
		v := Version{Prerelease: "dev"}
		if len(parts) > 1 {
			v.Metadata = parts[1]
		}
		return v
	}

	matches := semverRe.FindStringSubmatch(s)
	if matches == nil {
		return Version{Prerelease: "unknown"}
	}

	var v Version
	v.Major, _ = strconv.Atoi(matches[1])
	if matches[2] != "" {
		v.Minor, _ = strconv.Atoi(matches[2])
	}
	if matches[3] != "" {
		v.Patch, _ = strconv.Atoi(matches[3])
	}
	v.Prerelease = matches[4]
	v.Metadata = matches[5]
	return v
}

// IsDev returns true if this is a development or unparseable version
func (v Version) IsDev() bool {
	return v.Prerelease == "dev" || v.Prerelease == "unknown"
}

// Compare returns:
//
//	-1 if v < other
//	 0 if v == other
//	 1 if v > other
//
// Dev builds always compare older than releases and equal to each other.
func (v Version) Compare(other Version) int {
	if v.IsDev() && !other.IsDev() {
		return -1
	}
	if !v.IsDev() && other.IsDev() {
		return 1
	}
	if v.IsDev() && other.IsDev() {
		return 0
	}

	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}

	// Equal numbers, a prerelease sorts before the bare release.
	if v.Prerelease == "" && other.Prerelease != "" {
		return 1
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1
	}
	return 0
}

// AtLeast returns true if v is the same as or newer than other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// String returns the version as a string
func (v Version) String() string {
	if v.IsDev() {
		if v.Metadata != "" {
			return "dev-" + v.Metadata
		}
		return "dev"
	}

	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}
