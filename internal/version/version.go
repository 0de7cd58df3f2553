// Package version reports the build version of glimpse. The variables are
// set with -ldflags at release time.
package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// fallback stands in for unreleased builds so generated headers still carry
// a comparable version.
var fallback = semver.MustParse("0.0.0-dev")

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string { return i.Version }

// Full is the one-line form printed by the version command.
func (i Info) Full() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}

// Semver parses Version. Non-semver builds such as "dev" report 0.0.0-dev.
func (i Info) Semver() *semver.Version {
	if v, err := semver.NewVersion(i.Version); err == nil {
		return v
	}
	return fallback
}
