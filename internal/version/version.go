// Package version reports build information stamped with -ldflags or read
// from the module build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Release   bool      `json:"is_release" yaml:"is_release"`
	Dirty     bool      `json:"is_dirty" yaml:"is_dirty"`
}

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/unobtrusive/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Get returns the build information of the running binary.
func Get() BuildInfo {
	settings := vcsSettings()

	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildTime = t.UTC()
	}
	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev, ok := settings["vcs.revision"]; ok {
			info.GitCommit = rev
		}
	}
	if info.Version == "" || info.Version == "dev" {
		info.Version = "dev"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		} else if len(info.GitCommit) >= 7 && info.GitCommit != "unknown" {
			info.Version = "dev-" + info.GitCommit[:7]
		}
	}
	info.Release = info.Version != "dev" && !strings.HasPrefix(info.Version, "dev-")
	return info
}

// Short returns the version with an abbreviated commit.
func (b BuildInfo) Short() string {
	if len(b.GitCommit) >= 7 && b.GitCommit != "unknown" && !strings.HasPrefix(b.Version, "dev-") {
		return fmt.Sprintf("%s (%s)", b.Version, b.GitCommit[:7])
	}
	return b.Version
}

// Detailed returns one "Key: value" line per known field.
func (b BuildInfo) Detailed() string {
	lines := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "Built: "+b.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+b.GoVersion, "Platform: "+b.Platform)
	if b.Dirty {
		lines = append(lines, "Working directory: dirty")
	}
	if b.Release {
		lines = append(lines, "Build type: release")
	} else {
		lines = append(lines, "Build type: development")
	}
	return strings.Join(lines, "\n")
}

func vcsSettings() map[string]string {
	out := make(map[string]string)
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if strings.HasPrefix(s.Key, "vcs.") {
				out[s.Key] = s.Value
			}
		}
	}
	return out
}
