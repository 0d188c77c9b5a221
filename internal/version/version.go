// Package version carries build metadata stamped in through -ldflags:
//
//	go build -ldflags "-X github.com/gotrs-io/todomvc-e2e/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or the branch name for untagged builds.
	Version = "dev"

	// GitCommit is the short commit SHA.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info is the JSON form served by `todoprobe version --json` and /healthz.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String returns "v0.3.0 (abc1234)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}

func Short() string {
	return Version
}

// Full adds the build date and toolchain.
func Full() string {
	return fmt.Sprintf("%s (%s) built %s with %s", Version, GitCommit, BuildDate, runtime.Version())
}

// UserAgent identifies probe traffic in the target's access logs.
func UserAgent(base string) string {
	ua := "todoprobe/" + Version
	if base == "" {
		return ua
	}
	return base + " " + ua
}
