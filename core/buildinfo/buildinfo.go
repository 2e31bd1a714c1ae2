// Package buildinfo carries link-time build metadata:
//
//	go build -ldflags "-X github.com/m3rciful/schoolbot/core/buildinfo.Version=v1.2.0 \
//	  -X github.com/m3rciful/schoolbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/schoolbot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, or the VCS revision stamped by the Go toolchain
// when the binary was built without ldflags.
func Revision() string {
	if Commit != "" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "local"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "local"
}
