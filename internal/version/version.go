// Package version reports which quoteseek build is running. The variables
// are set with -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/quoteseek/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/quoteseek/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/quoteseek/internal/version.BuildDate=2025-01-01"
//
// Without ldflags the commit and date come from the VCS stamp the Go
// toolchain embeds, when there is one.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "unknown"
	// BuildDate is the UTC build time.
	BuildDate = "unknown"
)

// Info is a resolved build description.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
	// Modified is true when the VCS stamp reports uncommitted changes.
	Modified bool
}

// Get returns the ldflags values, filling gaps from debug.ReadBuildInfo.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return fromBuildSettings(info, bi.Settings)
}

func fromBuildSettings(info Info, settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value[:min(len(s.Value), 7)]
			}
		case "vcs.time":
			if info.BuildDate == "unknown" && s.Value != "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String formats the build as printed by `quoteseek version`.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("quoteseek %s (commit: %s, built: %s)", i.Version, commit, i.BuildDate)
}
