// Package misc holds small helpers which do not belong anywhere else.
package misc

import (
	"runtime/debug"
)

var (
	appName = "readalong"
	version = "dev"
)

// GetAppName returns the program name used for logging and file naming.
func GetAppName() string {
	return appName
}

// GetVersion returns the program version, preferring build info when present.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// GetGitHash returns vcs revision recorded in build info, if any.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
