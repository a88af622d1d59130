// Package version exposes build version information.
package version

import (
	"runtime/debug"
	"strings"
)

// buildVersion is set via -ldflags "-X clicktrail/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the best available version string.
func Current() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
		if v := fromVCS(info); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func fromVCS(info *debug.BuildInfo) string {
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "+dirty"
	}
	return "v0.0.0-" + revision
}
