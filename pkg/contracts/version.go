package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// APIVersion is the version of the HTTP and WebSocket contracts
const APIVersion = "v1"

// Version, BuildTime and GitCommit are overridden at link time:
//
//	go build -ldflags "-X gridexport/pkg/contracts.Version=1.2.0 -X gridexport/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo fills unset build fields from the VCS stamp the go tool
// embeds in module builds.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "unknown":
			info.GitCommit = s.Value
		case s.Key == "vcs.time" && info.BuildTime == "unknown":
			info.BuildTime = s.Value
		}
	}
	return info
}

// GetFullVersionString is printed by "server -version"
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("Grid Export v%s (api %s, commit %s, built %s, %s %s/%s)",
		info.Version, info.APIVersion, info.GitCommit, info.BuildTime,
		info.GoVersion, info.OS, info.Architecture)
}
