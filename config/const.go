package config

import (
	"strings"

	"golang.org/x/mod/semver"
)

// AppVersion is the version of the editor, set at build time with
// -ldflags "-X github.com/dixieflatline76/Retouch/config.AppVersion=1.2.3".
var AppVersion string

// AppName is the name of the editor.
const AppName = "Retouch"

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// LogFileName returns the name of the rotating log file.
func LogFileName() string {
	return strings.ToLower(AppName) + LogExt
}

// devVersion is reported when AppVersion is unset or not a valid semantic version.
const devVersion = "v0.0.0-dev"

// Version returns AppVersion in canonical semver form ("v1.2.3").
func Version() string {
	v := strings.TrimSpace(AppVersion)
	if v == "" {
		return devVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return devVersion
	}
	return semver.Canonical(v)
}
